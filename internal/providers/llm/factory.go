package llm

import (
	"context"
	"fmt"

	"github.com/sandevgo/aizen/internal/config"
	"github.com/sandevgo/aizen/internal/core"
	"github.com/sandevgo/aizen/pkg/log"
)

// NewEngine creates the configured reasoning engine.
func NewEngine(ctx context.Context, cfg *config.AppConfig) (core.ReasoningEngine, error) {
	log.FromCtx(ctx).Info().
		Str("provider", cfg.EngineProvider).
		Msg("starting reasoning engine")

	switch cfg.EngineProvider {
	case "openai":
		c := config.NewOpenAIConfig(ctx)
		return NewOpenAI(c.APIKey, c.Model), nil
	case "openrouter":
		c := config.NewOpenRouterConfig(ctx)
		return NewOpenRouter(c.APIKey, c.Model), nil
	case "custom":
		c := config.NewCustomEngineConfig(ctx)
		return NewCustomOpenAI(c.BaseURL, c.APIKey, c.Model), nil
	default:
		return nil, fmt.Errorf("unknown engine provider: %s", cfg.EngineProvider)
	}
}
