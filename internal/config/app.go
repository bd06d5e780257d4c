package config

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/aizen/pkg/log"
)

// GetRuntimePath resolves the runtime directory before the full config is
// parsed. The .env file living there may define the rest of the environment.
func GetRuntimePath() string {
	if v := os.Getenv("AIZEN_RUNTIME_PATH"); v != "" {
		return v
	}
	return ".aizen"
}

type AppConfig struct {
	RuntimePath string `env:"AIZEN_RUNTIME_PATH" envDefault:".aizen"`
	// Allow selecting the reasoning engine provider
	EngineProvider string `env:"ENGINE_PROVIDER" envDefault:"openai"`

	// Tool dispatch
	ToolTimeout    time.Duration `env:"TOOL_TIMEOUT" envDefault:"2m"`
	WorkerPoolSize int           `env:"WORKER_POOL_SIZE" envDefault:"4"`

	// Scheduler
	ErrorCooldown time.Duration `env:"ERROR_COOLDOWN" envDefault:"60s"`

	// How many persisted messages a carried-over session reloads
	HistoryWindowSize int `env:"HISTORY_WINDOW_SIZE" envDefault:"50"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	return c
}

func (c AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "aizen.db")
}

func (c AppConfig) GetAgentPath() string {
	return filepath.Join(c.RuntimePath, "agent.yaml")
}

func (c AppConfig) GetTasksPath() string {
	return filepath.Join(c.RuntimePath, "tasks.yaml")
}

func (c AppConfig) GetMCPConfigPath() string {
	return filepath.Join(c.RuntimePath, "mcp_config.json")
}
