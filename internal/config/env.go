package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	HTTPPort string `envconfig:"HTTP_PORT" default:"3200"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"debug"`
	APIKey   string `envconfig:"API_KEY" required:"true"`
}

type StoreEnv struct {
	// Empty DSN selects the in-memory repositories (local development).
	DatabaseDSN string `envconfig:"DATABASE_DSN"`
}

type AIEnv struct {
	APIKey        string        `envconfig:"AI_API_KEY"`
	Endpoint      string        `envconfig:"AI_ENDPOINT" default:"https://api.anthropic.com/v1/messages"`
	Model         string        `envconfig:"AI_MODEL" default:"claude-3-5-sonnet-latest"`
	BatchEndpoint string        `envconfig:"AI_BATCH_ENDPOINT" default:"https://api.anthropic.com/v1/messages/batches"`
	MaxRetries    int           `envconfig:"AI_MAX_RETRIES" default:"5"`
	MaxRetryDelay time.Duration `envconfig:"AI_MAX_RETRY_DELAY" default:"60s"`
}

type SyncEnv struct {
	// Directory holding YAML editorial task sources; empty disables the watcher.
	TaskSourceDir string `envconfig:"TASK_SOURCE_DIR"`
}

type ScheduleEnv struct {
	ExecutionRetention time.Duration `envconfig:"EXECUTION_RETENTION" default:"2160h"`
	ReconcileInterval  time.Duration `envconfig:"RECONCILE_INTERVAL" default:"1m"`
}

type Env struct {
	BaseEnv
	StoreEnv
	AIEnv
	SyncEnv
	ScheduleEnv
}

const namespace = "CONTENTOPS"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}
