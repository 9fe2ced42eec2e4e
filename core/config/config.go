package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App      AppConfig
	CVG      CVGConfig
	Engine   EngineConfig
	Database DatabaseConfig
	TaskPool TaskPoolConfig
}

type AppConfig struct {
	Version  string
	Port     string
	Debug    bool
	BasePath string
}

// CVGConfig carries everything the Cognitive Voice Gateway side needs:
// the webhook bearer token and the behaviour switches of the connector.
type CVGConfig struct {
	Token                  string
	Proxy                  string
	StartIntent            string
	BlockingEndpoints      bool
	IgnoreMessagesWhenBusy bool
	OperationDelay         time.Duration
}

// EngineConfig points at the dialogue engine consuming canonical events.
// An empty URL leaves the connector running with a log-only engine stub.
type EngineConfig struct {
	URL     string
	Timeout time.Duration
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string // File path for SQLite, DB name for Postgres
}

type TaskPoolConfig struct {
	Size      int
	QueueSize int
}

// Global provides access to the loaded configuration globally.
var Global *Config

// LoadConfig loads configuration from environment variables or defaults.
func LoadConfig() (*Config, error) {
	token := getEnv("CVG_TOKEN", "")
	if token == "" {
		return nil, fmt.Errorf("CVG_TOKEN is required: no webhook authentication token has been configured")
	}

	storages := getEnv("APP_BASE_DIR", "storages")

	cfg := &Config{
		App: AppConfig{
			Version:  "v1.2.0",
			Port:     getEnv("APP_PORT", "5031"),
			Debug:    getEnvBool("APP_DEBUG", false),
			BasePath: getEnv("APP_BASE_PATH", ""),
		},
		CVG: CVGConfig{
			Token:                  token,
			Proxy:                  getEnv("CVG_PROXY", ""),
			StartIntent:            getEnv("CVG_START_INTENT", "/cvg_session"),
			BlockingEndpoints:      getEnvBool("CVG_BLOCKING_ENDPOINTS", true),
			IgnoreMessagesWhenBusy: getEnvBool("CVG_IGNORE_MESSAGES_WHEN_BUSY", false),
			OperationDelay:         time.Duration(getEnvInt("CVG_OPERATION_DELAY_MS", 25)) * time.Millisecond,
		},
		Engine: EngineConfig{
			URL:     getEnv("ENGINE_URL", ""),
			Timeout: time.Duration(getEnvInt("ENGINE_TIMEOUT_MS", 30000)) * time.Millisecond,
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "sqlite"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", filepath.Join(storages, "connector.db")),
		},
		TaskPool: TaskPoolConfig{
			Size:      getEnvInt("TASK_POOL_SIZE", 8),
			QueueSize: getEnvInt("TASK_POOL_QUEUE_SIZE", 250),
		},
	}

	Global = cfg
	return cfg, nil
}
