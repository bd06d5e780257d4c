package chain

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend answers chain reads from canned values and captures sent
// transactions.
type fakeBackend struct {
	balances  map[common.Address]*big.Int
	gasPrice  *big.Int
	block     uint64
	nonce     uint64
	contracts map[string][]byte // selector hex -> return data
	sentTx    *types.Transaction
}

func (f *fakeBackend) BalanceAt(ctx context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	if b, ok := f.balances[account]; ok {
		return b, nil
	}
	return big.NewInt(0), nil
}

func (f *fakeBackend) CallContract(ctx context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	return f.contracts[common.Bytes2Hex(call.Data[:4])], nil
}

func (f *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return f.gasPrice, nil
}

func (f *fakeBackend) BlockNumber(ctx context.Context) (uint64, error) {
	return f.block, nil
}

func (f *fakeBackend) PendingNonceAt(ctx context.Context, _ common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.sentTx = tx
	return nil
}

const (
	holderAddr = "0x8ba1f109551bD432803012645Ac136ddd64DBA72"
	tokenAddr  = "0x6B175474E89094C44Da98b954EedeAC495271d0F"
	// well-known throwaway key
	testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
)

func newTestEthereum(t *testing.T, backend *fakeBackend, key string) *Ethereum {
	t.Helper()
	e, err := newEthereum(backend, 1, key)
	require.NoError(t, err)
	return e
}

func TestEthereum_GetBalance(t *testing.T) {
	wei, _ := new(big.Int).SetString("1500000000000000000", 10)
	backend := &fakeBackend{
		balances: map[common.Address]*big.Int{
			common.HexToAddress(holderAddr): wei,
		},
	}
	e := newTestEthereum(t, backend, "")

	out, err := e.GetBalance(context.Background(), json.RawMessage(`{"address":"`+holderAddr+`"}`))
	require.NoError(t, err)

	var result map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "1500000000000000000", result["balance_wei"])
	assert.Equal(t, "1.5", result["balance_eth"])
}

func TestEthereum_GetBalance_InvalidAddress(t *testing.T) {
	e := newTestEthereum(t, &fakeBackend{}, "")

	_, err := e.GetBalance(context.Background(), json.RawMessage(`{"address":"vitalik"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid ethereum address")
}

func TestEthereum_GetTokenBalance(t *testing.T) {
	e := newTestEthereum(t, &fakeBackend{}, "")

	balanceOut, err := e.erc20.Methods["balanceOf"].Outputs.Pack(big.NewInt(2500000)) // 2.5 with 6 decimals
	require.NoError(t, err)
	decimalsOut, err := e.erc20.Methods["decimals"].Outputs.Pack(uint8(6))
	require.NoError(t, err)
	symbolOut, err := e.erc20.Methods["symbol"].Outputs.Pack("USDC")
	require.NoError(t, err)

	backend := &fakeBackend{
		contracts: map[string][]byte{
			common.Bytes2Hex(e.erc20.Methods["balanceOf"].ID): balanceOut,
			common.Bytes2Hex(e.erc20.Methods["decimals"].ID):  decimalsOut,
			common.Bytes2Hex(e.erc20.Methods["symbol"].ID):    symbolOut,
		},
	}
	e.eth = backend

	out, err := e.GetTokenBalance(context.Background(),
		json.RawMessage(`{"token_address":"`+tokenAddr+`","address":"`+holderAddr+`"}`))
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "2500000", result["raw"])
	assert.Equal(t, "2.5", result["balance"])
	assert.Equal(t, "USDC", result["symbol"])
	assert.Equal(t, float64(6), result["decimals"])
}

func TestEthereum_GasPriceAndBlockNumber(t *testing.T) {
	backend := &fakeBackend{
		gasPrice: big.NewInt(25_000_000_000),
		block:    19_000_000,
	}
	e := newTestEthereum(t, backend, "")

	out, err := e.GasPrice(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Contains(t, out, `"gas_price_gwei":"25"`)

	out, err = e.BlockNumber(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Equal(t, `{"block_number":19000000}`, out)
}

func TestEthereum_Transfer(t *testing.T) {
	backend := &fakeBackend{
		gasPrice: big.NewInt(20_000_000_000),
		nonce:    7,
	}
	e := newTestEthereum(t, backend, testKey)

	out, err := e.Transfer(context.Background(),
		json.RawMessage(`{"to":"`+holderAddr+`","amount_eth":"0.25"}`))
	require.NoError(t, err)
	require.NotNil(t, backend.sentTx)

	tx := backend.sentTx
	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Equal(t, uint64(21000), tx.Gas())
	assert.Equal(t, common.HexToAddress(holderAddr), *tx.To())
	assert.Equal(t, "250000000000000000", tx.Value().String())

	// the signature must recover to the configured key's address
	from, err := types.Sender(types.NewEIP155Signer(big.NewInt(1)), tx)
	require.NoError(t, err)

	var result map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, from.Hex(), result["from"])
	assert.Equal(t, tx.Hash().Hex(), result["tx_hash"])
}

func TestEthereum_Transfer_NoKey(t *testing.T) {
	e := newTestEthereum(t, &fakeBackend{}, "")

	_, err := e.Transfer(context.Background(), json.RawMessage(`{"to":"`+holderAddr+`","amount_eth":"1"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no wallet configured")
}

func TestEthereum_Definitions(t *testing.T) {
	e := newTestEthereum(t, &fakeBackend{}, "")
	defs := e.Definitions()
	require.Len(t, defs, 5)
	for _, def := range defs {
		assert.True(t, json.Valid([]byte(def.Schema)), "%s schema must be valid JSON", def.Name)
		assert.True(t, def.Blocking)
	}
}

func TestWeiDecimalConversions(t *testing.T) {
	tests := []struct {
		wei      string
		decimals int
		want     string
	}{
		{"1500000000000000000", 18, "1.5"},
		{"1000000000000000000", 18, "1"},
		{"1", 18, "0.000000000000000001"},
		{"0", 18, "0"},
		{"25000000000", 9, "25"},
		{"2500000", 6, "2.5"},
	}
	for _, tt := range tests {
		n, _ := new(big.Int).SetString(tt.wei, 10)
		assert.Equal(t, tt.want, weiToDecimal(n, tt.decimals), "weiToDecimal(%s, %d)", tt.wei, tt.decimals)
	}

	roundTrips := []string{"1.5", "0.25", "42", "0.000001"}
	for _, s := range roundTrips {
		n, err := decimalToWei(s, 18)
		require.NoError(t, err)
		assert.Equal(t, s, weiToDecimal(n, 18), "round trip %s", s)
	}

	_, err := decimalToWei("-1", 18)
	assert.Error(t, err, "negative amounts rejected")
	_, err = decimalToWei("1.1234567890123456789", 18)
	assert.Error(t, err, "excess precision rejected")
	_, err = decimalToWei("abc", 18)
	assert.Error(t, err)
}
