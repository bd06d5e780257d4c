package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/aizen/pkg/retry"
)

func newTestAPI(t *testing.T, handler http.HandlerFunc) *DefiLlama {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewDefiLlamaWithURL(srv.URL, 5*time.Second, &retry.Config{
		MaxRetries:    1,
		InitialDelay:  time.Millisecond,
		MaxDelay:      time.Millisecond,
		BackoffFactor: 1.0,
	})
}

func TestDefiLlama_ListProtocols(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/protocols", r.URL.Path)
		fmt.Fprint(w, `[
			{"name":"Lido","slug":"lido","symbol":"LDO","chain":"Ethereum","tvl":30000000000,"extra":"dropped"},
			{"name":"Aave","slug":"aave","symbol":"AAVE","chain":"Multi-Chain","tvl":20000000000},
			{"name":"Uniswap","slug":"uniswap","symbol":"UNI","chain":"Multi-Chain","tvl":5000000000}
		]`)
	})

	out, err := api.ListProtocols(context.Background(), json.RawMessage(`{"topk":2}`))
	require.NoError(t, err)

	var protocols []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &protocols))
	require.Len(t, protocols, 2)
	assert.Equal(t, "Lido", protocols[0]["name"])
	assert.NotContains(t, protocols[0], "extra", "unknown upstream fields are dropped")
}

func TestDefiLlama_GetProtocolTVL(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tvl/uniswap", r.URL.Path)
		fmt.Fprint(w, `5123456789.12`)
	})

	out, err := api.GetProtocolTVL(context.Background(), json.RawMessage(`{"protocol":"uniswap"}`))
	require.NoError(t, err)
	assert.Equal(t, "5123456789.12", out)
}

func TestDefiLlama_GetProtocolTVL_MissingArg(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := api.GetProtocolTVL(context.Background(), json.RawMessage(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "protocol is required")
}

func TestDefiLlama_GetChainTVL_TrimsSeries(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/historicalChainTvl/ethereum", r.URL.Path)
		series := make([]string, 0, 100)
		for i := 0; i < 100; i++ {
			series = append(series, fmt.Sprintf(`{"date":%d,"tvl":%d}`, 1700000000+i*86400, 1000000+i))
		}
		w.Write([]byte("["))
		for i, s := range series {
			if i > 0 {
				w.Write([]byte(","))
			}
			w.Write([]byte(s))
		}
		w.Write([]byte("]"))
	})

	out, err := api.GetChainTVL(context.Background(), json.RawMessage(`{"chain":"ethereum"}`))
	require.NoError(t, err)

	var series []struct {
		Date int64   `json:"date"`
		TVL  float64 `json:"tvl"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &series))
	require.Len(t, series, 30, "series trimmed to recent datapoints")
	assert.Equal(t, float64(1000099), series[29].TVL, "newest datapoint kept")
}

func TestDefiLlama_GetCurrentPrices(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/prices/current/coingecko:bitcoin", r.URL.Path)
		fmt.Fprint(w, `{"coins":{"coingecko:bitcoin":{"price":97000.5}}}`)
	})

	out, err := api.GetCurrentPrices(context.Background(), json.RawMessage(`{"coins":"coingecko:bitcoin"}`))
	require.NoError(t, err)
	assert.Contains(t, out, "97000.5")
}

func TestDefiLlama_UpstreamError(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := api.GetAllChainsTVL(context.Background(), json.RawMessage(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 429")
}

func TestDefiLlama_Definitions(t *testing.T) {
	defs := NewDefiLlama().Definitions()
	require.Len(t, defs, 5)

	names := make(map[string]bool)
	for _, def := range defs {
		names[def.Name] = true
		assert.True(t, json.Valid([]byte(def.Schema)), "%s schema must be valid JSON", def.Name)
		assert.True(t, def.Blocking)
	}
	for _, want := range []string{"list_protocols", "get_protocol_tvl", "get_chain_tvl", "get_all_chains_tvl", "get_current_prices"} {
		assert.True(t, names[want], "missing %s", want)
	}
}
