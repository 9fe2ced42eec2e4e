package infrastructure

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConnectorSettingModel struct {
	Key   string `gorm:"primaryKey;column:key"`
	Value string `gorm:"column:value"`
}

func (ConnectorSettingModel) TableName() string {
	return "connector_settings"
}

type ConnectorSettingsGormRepository struct {
	db *gorm.DB
}

func NewConnectorSettingsGormRepository(db *gorm.DB) *ConnectorSettingsGormRepository {
	return &ConnectorSettingsGormRepository{db: db}
}

func (r *ConnectorSettingsGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&ConnectorSettingModel{})
}

func (r *ConnectorSettingsGormRepository) Get(ctx context.Context, key string) (string, error) {
	var m ConnectorSettingModel
	if err := r.db.WithContext(ctx).First(&m, "key = ?", key).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(m.Value), nil
}

func (r *ConnectorSettingsGormRepository) Set(ctx context.Context, key string, value string) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"value": value}),
	}).Create(&ConnectorSettingModel{
		Key:   key,
		Value: value,
	}).Error
}

func (r *ConnectorSettingsGormRepository) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Delete(&ConnectorSettingModel{}, "key = ?", key).Error
}
