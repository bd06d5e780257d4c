package config

import (
	"context"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/aizen/pkg/log"
)

// IsEthereumEnabled reports whether an RPC endpoint is configured. The chain
// toolset is only registered when it is.
func IsEthereumEnabled() bool {
	return os.Getenv("ETH_RPC_URL") != ""
}

type EthereumConfig struct {
	RPCURL string `env:"ETH_RPC_URL,required,notEmpty"`
	// Hex-encoded key, only needed when the transfer tool is enabled
	PrivateKey string `env:"ETH_PRIVATE_KEY"`
	ChainID    int64  `env:"ETH_CHAIN_ID" envDefault:"1"`
}

func NewEthereumConfig(ctx context.Context) *EthereumConfig {
	c := &EthereumConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Ethereum config")
	}
	return c
}
