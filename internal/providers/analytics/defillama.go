package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sandevgo/aizen/internal/core"
	"github.com/sandevgo/aizen/pkg/log"
	"github.com/sandevgo/aizen/pkg/retry"
)

const defaultAPITimeout = 20 * time.Second

const listProtocolsSchema = `
{
  "type": "object",
  "properties": {
    "topk": { "type": "integer", "description": "Maximum number of protocols to return, ranked by TVL", "default": 25 }
  }
}
`

const protocolTVLSchema = `
{
  "type": "object",
  "properties": {
    "protocol": { "type": "string", "description": "Protocol slug, e.g. 'uniswap'" }
  },
  "required": ["protocol"]
}
`

const chainTVLSchema = `
{
  "type": "object",
  "properties": {
    "chain": { "type": "string", "description": "Chain slug, e.g. 'ethereum'" }
  },
  "required": ["chain"]
}
`

const currentPricesSchema = `
{
  "type": "object",
  "properties": {
    "coins": { "type": "string", "description": "Comma-separated coin ids, e.g. 'ethereum:0x...,coingecko:bitcoin'" }
  },
  "required": ["coins"]
}
`

// DefiLlama wraps the public DefiLlama REST API.
type DefiLlama struct {
	baseURL string
	client  *http.Client
	retrier *retry.Retrier
}

func NewDefiLlama() *DefiLlama {
	return NewDefiLlamaWithURL("https://api.llama.fi", defaultAPITimeout, nil)
}

func NewDefiLlamaWithURL(baseURL string, timeout time.Duration, retryCfg *retry.Config) *DefiLlama {
	if retryCfg == nil {
		retryCfg = retry.NewDefaultConfig()
	}
	return &DefiLlama{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
		retrier: retry.NewRetrier(retryCfg),
	}
}

func (d *DefiLlama) get(ctx context.Context, endpoint string) ([]byte, error) {
	log.FromCtx(ctx).Debug().Str("endpoint", endpoint).Msg("defillama request")

	var body []byte
	err := d.retrier.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+endpoint, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", core.AizenUserAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := d.client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to query defillama: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read body: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// ListProtocols returns the top protocols by TVL. The upstream list holds
// thousands of entries, so it is trimmed to the fields and count the engine
// can reasonably digest.
func (d *DefiLlama) ListProtocols(ctx context.Context, args json.RawMessage) (string, error) {
	var input struct {
		TopK int `json:"topk"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if input.TopK <= 0 {
		input.TopK = 25
	}

	body, err := d.get(ctx, "/protocols")
	if err != nil {
		return "", err
	}

	var protocols []struct {
		Name   string  `json:"name"`
		Slug   string  `json:"slug"`
		Symbol string  `json:"symbol"`
		Chain  string  `json:"chain"`
		TVL    float64 `json:"tvl"`
	}
	if err := json.Unmarshal(body, &protocols); err != nil {
		return "", fmt.Errorf("decode protocols: %w", err)
	}

	if len(protocols) > input.TopK {
		protocols = protocols[:input.TopK]
	}

	data, err := json.Marshal(protocols)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (d *DefiLlama) GetProtocolTVL(ctx context.Context, args json.RawMessage) (string, error) {
	var input struct {
		Protocol string `json:"protocol"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if input.Protocol == "" {
		return "", fmt.Errorf("protocol is required")
	}

	// current TVL only; the historical series is far too large for a tool result
	body, err := d.get(ctx, "/tvl/"+url.PathEscape(input.Protocol))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (d *DefiLlama) GetChainTVL(ctx context.Context, args json.RawMessage) (string, error) {
	var input struct {
		Chain string `json:"chain"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if input.Chain == "" {
		return "", fmt.Errorf("chain is required")
	}

	body, err := d.get(ctx, "/v2/historicalChainTvl/"+url.PathEscape(input.Chain))
	if err != nil {
		return "", err
	}

	// keep only the most recent datapoints
	var series []struct {
		Date int64   `json:"date"`
		TVL  float64 `json:"tvl"`
	}
	if err := json.Unmarshal(body, &series); err != nil {
		return "", fmt.Errorf("decode chain tvl: %w", err)
	}
	const keep = 30
	if len(series) > keep {
		series = series[len(series)-keep:]
	}

	data, err := json.Marshal(series)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (d *DefiLlama) GetAllChainsTVL(ctx context.Context, args json.RawMessage) (string, error) {
	body, err := d.get(ctx, "/v2/chains")
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (d *DefiLlama) GetCurrentPrices(ctx context.Context, args json.RawMessage) (string, error) {
	var input struct {
		Coins string `json:"coins"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if input.Coins == "" {
		return "", fmt.Errorf("coins is required")
	}

	body, err := d.get(ctx, "/prices/current/"+input.Coins)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (d *DefiLlama) Definitions() []core.ToolDefinition {
	return []core.ToolDefinition{
		{
			Name:        "list_protocols",
			Description: "List DeFi protocols ranked by total value locked",
			Schema:      listProtocolsSchema,
			Handler:     d.ListProtocols,
			Blocking:    true,
		},
		{
			Name:        "get_protocol_tvl",
			Description: "Get the current TVL of a DeFi protocol",
			Schema:      protocolTVLSchema,
			Handler:     d.GetProtocolTVL,
			Blocking:    true,
		},
		{
			Name:        "get_chain_tvl",
			Description: "Get the recent TVL history of a chain",
			Schema:      chainTVLSchema,
			Handler:     d.GetChainTVL,
			Blocking:    true,
		},
		{
			Name:        "get_all_chains_tvl",
			Description: "Get the current TVL of every chain",
			Schema:      `{"type":"object","properties":{}}`,
			Handler:     d.GetAllChainsTVL,
			Blocking:    true,
		},
		{
			Name:        "get_current_prices",
			Description: "Get current token prices by coin id",
			Schema:      currentPricesSchema,
			Handler:     d.GetCurrentPrices,
			Blocking:    true,
		},
	}
}
