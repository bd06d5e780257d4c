package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/aizen/pkg/log"
)

type OpenAIConfig struct {
	APIKey string `env:"OPENAI_API_KEY,required,notEmpty"`
	Model  string `env:"OPENAI_MODEL,notEmpty" envDefault:"gpt-4o-mini"`
}

func NewOpenAIConfig(ctx context.Context) *OpenAIConfig {
	c := &OpenAIConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse OpenAI config")
	}
	return c
}

type OpenRouterConfig struct {
	APIKey string `env:"OPENROUTER_API_KEY,required,notEmpty"`
	Model  string `env:"OPENROUTER_MODEL,required,notEmpty" envDefault:"google/gemma-3-27b-it:free"`
}

func NewOpenRouterConfig(ctx context.Context) *OpenRouterConfig {
	c := &OpenRouterConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse OpenRouter config")
	}
	return c
}

// CustomEngineConfig points at any OpenAI-compatible endpoint, local llama
// servers included.
type CustomEngineConfig struct {
	BaseURL string `env:"ENGINE_BASE_URL,required,notEmpty"`
	APIKey  string `env:"ENGINE_API_KEY"`
	Model   string `env:"ENGINE_MODEL,required,notEmpty"`
}

func NewCustomEngineConfig(ctx context.Context) *CustomEngineConfig {
	c := &CustomEngineConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse custom engine config")
	}
	return c
}
