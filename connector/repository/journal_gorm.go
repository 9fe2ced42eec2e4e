// Package repository persists the dialog journal, the append-only trail of
// callbacks and operations per dialog.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/VIER-CognitiveVoice/cvg-connect/connector/domain"
)

// --- Persistence Model ---

type dialogEventModel struct {
	ID        string    `gorm:"primaryKey"`
	DialogID  string    `gorm:"index:idx_dialog_events_dialog;not null"`
	Direction string    `gorm:"not null"`
	Kind      string    `gorm:"not null"`
	Payload   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"index:idx_dialog_events_created;not null"`
}

func (dialogEventModel) TableName() string {
	return "dialog_events"
}

// --- Repository Implementation ---

type JournalGormRepository struct {
	db *gorm.DB
}

func NewJournalGormRepository(db *gorm.DB) *JournalGormRepository {
	return &JournalGormRepository{db: db}
}

func (r *JournalGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&dialogEventModel{})
}

// Append stores one event. ID and CreatedAt are filled in when the caller
// left them empty.
func (r *JournalGormRepository) Append(ctx context.Context, event *domain.DialogEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	model := dialogEventModel{
		ID:        event.ID,
		DialogID:  event.DialogID,
		Direction: string(event.Direction),
		Kind:      event.Kind,
		Payload:   event.Payload,
		CreatedAt: event.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

// ListByDialog returns the newest events of one dialog, newest first.
func (r *JournalGormRepository) ListByDialog(ctx context.Context, dialogID string, limit int) ([]*domain.DialogEvent, error) {
	query := r.db.WithContext(ctx).
		Where("dialog_id = ?", dialogID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var models []dialogEventModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	events := make([]*domain.DialogEvent, len(models))
	for i, m := range models {
		events[i] = &domain.DialogEvent{
			ID:        m.ID,
			DialogID:  m.DialogID,
			Direction: domain.EventDirection(m.Direction),
			Kind:      m.Kind,
			Payload:   m.Payload,
			CreatedAt: m.CreatedAt,
		}
	}
	return events, nil
}
