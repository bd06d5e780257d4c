package config

import (
	"context"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/aizen/pkg/log"
)

// IsTelegramEnabled reports whether a bot token is configured. The publishing
// toolset is only registered when it is.
func IsTelegramEnabled() bool {
	return os.Getenv("TELEGRAM_TOKEN") != ""
}

type TelegramConfig struct {
	Token     string `env:"TELEGRAM_TOKEN,required,notEmpty"`
	ChannelID int64  `env:"TELEGRAM_CHANNEL_ID,required"`
}

func NewTelegramConfig(ctx context.Context) *TelegramConfig {
	c := &TelegramConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Telegram config")
	}
	return c
}
