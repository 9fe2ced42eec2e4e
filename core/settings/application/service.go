package application

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/VIER-CognitiveVoice/cvg-connect/core/config"
	"github.com/VIER-CognitiveVoice/cvg-connect/core/settings/domain"
	"github.com/VIER-CognitiveVoice/cvg-connect/core/settings/infrastructure"
)

// SettingsService reads and writes operator-tunable connector behaviour
// stored in the database. Stored values win over environment defaults.
type SettingsService struct {
	repo domain.ISettingsRepository
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{
		repo: infrastructure.NewConnectorSettingsGormRepository(db),
	}
}

type DynamicSettings struct {
	StartIntent            string
	EngineURL              string
	OperationDelayMs       *int
	BlockingEndpoints      *bool
	IgnoreMessagesWhenBusy *bool
}

func (s *SettingsService) GetDynamicSettings(ctx context.Context) (*DynamicSettings, error) {
	if err := s.repo.InitSchema(ctx); err != nil {
		return nil, err
	}

	ds := &DynamicSettings{}

	if val, _ := s.repo.Get(ctx, domain.KeyStartIntent); val != "" {
		ds.StartIntent = val
	}
	if val, _ := s.repo.Get(ctx, domain.KeyEngineURL); val != "" {
		ds.EngineURL = val
	}
	if val, _ := s.repo.Get(ctx, domain.KeyOperationDelayMs); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n >= 0 {
			ds.OperationDelayMs = &n
		}
	}
	if val, _ := s.repo.Get(ctx, domain.KeyBlockingEndpoints); val != "" {
		isOn := parseBool(val)
		ds.BlockingEndpoints = &isOn
	}
	if val, _ := s.repo.Get(ctx, domain.KeyIgnoreMessagesWhenBusy); val != "" {
		isOn := parseBool(val)
		ds.IgnoreMessagesWhenBusy = &isOn
	}
	return ds, nil
}

// Apply overlays the stored settings onto the loaded configuration.
func (ds *DynamicSettings) Apply(cfg *config.Config) {
	if ds.StartIntent != "" {
		cfg.CVG.StartIntent = ds.StartIntent
	}
	if ds.EngineURL != "" {
		cfg.Engine.URL = ds.EngineURL
	}
	if ds.OperationDelayMs != nil {
		cfg.CVG.OperationDelay = time.Duration(*ds.OperationDelayMs) * time.Millisecond
	}
	if ds.BlockingEndpoints != nil {
		cfg.CVG.BlockingEndpoints = *ds.BlockingEndpoints
	}
	if ds.IgnoreMessagesWhenBusy != nil {
		cfg.CVG.IgnoreMessagesWhenBusy = *ds.IgnoreMessagesWhenBusy
	}
}

func (s *SettingsService) SetStartIntent(ctx context.Context, v string) error {
	return s.repo.Set(ctx, domain.KeyStartIntent, strings.TrimSpace(v))
}

func (s *SettingsService) SetEngineURL(ctx context.Context, v string) error {
	return s.repo.Set(ctx, domain.KeyEngineURL, strings.TrimSpace(v))
}

func (s *SettingsService) SetOperationDelay(ctx context.Context, v int) error {
	if v < 0 {
		v = 0
	}
	return s.repo.Set(ctx, domain.KeyOperationDelayMs, fmt.Sprintf("%d", v))
}

func (s *SettingsService) SetBlockingEndpoints(ctx context.Context, v bool) error {
	return s.repo.Set(ctx, domain.KeyBlockingEndpoints, formatBool(v))
}

func (s *SettingsService) SetIgnoreMessagesWhenBusy(ctx context.Context, v bool) error {
	return s.repo.Set(ctx, domain.KeyIgnoreMessagesWhenBusy, formatBool(v))
}

var writableKeys = map[string]struct{}{
	domain.KeyStartIntent:            {},
	domain.KeyEngineURL:              {},
	domain.KeyOperationDelayMs:       {},
	domain.KeyBlockingEndpoints:      {},
	domain.KeyIgnoreMessagesWhenBusy: {},
}

// Reset removes one stored override so the environment value applies again
// on the next start.
func (s *SettingsService) Reset(ctx context.Context, key string) error {
	if _, ok := writableKeys[key]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownSetting, key)
	}
	return s.repo.Delete(ctx, key)
}

func parseBool(v string) bool {
	vLower := strings.ToLower(v)
	return vLower == "1" || vLower == "true" || vLower == "yes" || vLower == "on"
}

func formatBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
