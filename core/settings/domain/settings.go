package domain

import (
	"context"
	"errors"
)

// ErrUnknownSetting is returned when a key is not one of the settings the
// connector understands.
var ErrUnknownSetting = errors.New("unknown setting key")

// Setting represents a dynamic configuration value stored in the database.
type Setting struct {
	Key   string
	Value string
}

// ISettingsRepository defines the contract for persisting dynamic settings.
type ISettingsRepository interface {
	// Basic CRUD
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error

	// InitSchema creates the necessary tables
	InitSchema(ctx context.Context) error
}

// Common Keys defined in the system
const (
	KeyStartIntent            = "cvg_start_intent"
	KeyOperationDelayMs       = "cvg_operation_delay_ms"
	KeyBlockingEndpoints      = "cvg_blocking_endpoints"
	KeyIgnoreMessagesWhenBusy = "cvg_ignore_messages_when_busy"
	KeyEngineURL              = "engine_url"
)
