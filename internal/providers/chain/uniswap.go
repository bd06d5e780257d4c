package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/sandevgo/aizen/internal/core"
	"github.com/sandevgo/aizen/pkg/log"
)

// Uniswap V2 router and WETH on Ethereum mainnet. Forks of the V2 router
// (PancakeSwap on BSC and the like) speak the same ABI; pointing ETH_RPC_URL
// at the other chain and overriding these per call covers them.
const (
	uniswapV2Router = "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"
	wethAddress     = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
)

const uniswapRouterABI = `[
	{"inputs":[{"internalType":"uint256","name":"amountIn","type":"uint256"},{"internalType":"address[]","name":"path","type":"address[]"}],"name":"getAmountsOut","outputs":[{"internalType":"uint256[]","name":"amounts","type":"uint256[]"}],"stateMutability":"view","type":"function"}
]`

const erc20ApproveABI = `[
	{"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

const getTokenPriceSchema = `
{
  "type": "object",
  "properties": {
    "token_address": { "type": "string", "description": "Token to price (0x...)" },
    "quote_address": { "type": "string", "description": "Quote token address, defaults to WETH" },
    "amount_in": { "type": "string", "description": "Input amount in token units, decimal string, default 1" }
  },
  "required": ["token_address"]
}
`

const getAmountsOutSchema = `
{
  "type": "object",
  "properties": {
    "amount_in_wei": { "type": "string", "description": "Input amount in wei" },
    "path": {
      "type": "array",
      "items": { "type": "string" },
      "minItems": 2,
      "description": "Swap path of token addresses"
    }
  },
  "required": ["amount_in_wei", "path"]
}
`

const approveTokenSchema = `
{
  "type": "object",
  "properties": {
    "token_address": { "type": "string", "description": "ERC20 token to approve" },
    "amount": { "type": "string", "description": "Amount in token units, decimal string" },
    "spender_address": { "type": "string", "description": "Spender, defaults to the Uniswap V2 router" }
  },
  "required": ["token_address", "amount"]
}
`

// Uniswap quotes swaps through the V2 router and manages the router
// allowances those swaps need. It shares the chain client's node connection
// and signing key.
type Uniswap struct {
	chain      *Ethereum
	router     abi.ABI
	approve    abi.ABI
	routerAddr common.Address
	wethAddr   common.Address
}

func NewUniswap(eth *Ethereum) (*Uniswap, error) {
	router, err := abi.JSON(strings.NewReader(uniswapRouterABI))
	if err != nil {
		return nil, fmt.Errorf("parse router abi: %w", err)
	}
	approve, err := abi.JSON(strings.NewReader(erc20ApproveABI))
	if err != nil {
		return nil, fmt.Errorf("parse approve abi: %w", err)
	}

	return &Uniswap{
		chain:      eth,
		router:     router,
		approve:    approve,
		routerAddr: common.HexToAddress(uniswapV2Router),
		wethAddr:   common.HexToAddress(wethAddress),
	}, nil
}

// GetTokenPrice quotes a token against WETH (or another quote token) via
// getAmountsOut on the [token, quote] path.
func (u *Uniswap) GetTokenPrice(ctx context.Context, args json.RawMessage) (string, error) {
	var input struct {
		TokenAddress string `json:"token_address"`
		QuoteAddress string `json:"quote_address"`
		AmountIn     string `json:"amount_in"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if !common.IsHexAddress(input.TokenAddress) {
		return "", fmt.Errorf("invalid token address: %s", input.TokenAddress)
	}

	token := common.HexToAddress(input.TokenAddress)
	quote := u.wethAddr
	if input.QuoteAddress != "" {
		if !common.IsHexAddress(input.QuoteAddress) {
			return "", fmt.Errorf("invalid quote address: %s", input.QuoteAddress)
		}
		quote = common.HexToAddress(input.QuoteAddress)
	}

	tokenDecimals := u.decimalsOf(ctx, token)
	quoteDecimals := u.decimalsOf(ctx, quote)

	amountIn := input.AmountIn
	if amountIn == "" {
		amountIn = "1"
	}
	amountInWei, err := decimalToWei(amountIn, tokenDecimals)
	if err != nil {
		return "", fmt.Errorf("invalid amount: %w", err)
	}
	if amountInWei.Sign() == 0 {
		return "", fmt.Errorf("amount must be positive")
	}

	amounts, err := u.amountsOut(ctx, amountInWei, []common.Address{token, quote})
	if err != nil {
		return "", fmt.Errorf("getAmountsOut: %w", err)
	}
	amountOut := amounts[len(amounts)-1]

	inF := new(big.Float).Quo(new(big.Float).SetInt(amountInWei), pow10(tokenDecimals))
	outF := new(big.Float).Quo(new(big.Float).SetInt(amountOut), pow10(quoteDecimals))
	price := new(big.Float).Quo(outF, inF)

	out, err := json.Marshal(map[string]string{
		"token":      input.TokenAddress,
		"quote":      quote.Hex(),
		"amount_in":  amountIn,
		"amount_out": weiToDecimal(amountOut, quoteDecimals),
		"price":      price.Text('g', 12),
	})
	return string(out), err
}

// GetAmountsOut exposes the raw router quote over an arbitrary swap path.
func (u *Uniswap) GetAmountsOut(ctx context.Context, args json.RawMessage) (string, error) {
	var input struct {
		AmountInWei string   `json:"amount_in_wei"`
		Path        []string `json:"path"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if len(input.Path) < 2 {
		return "", fmt.Errorf("path needs at least two token addresses")
	}

	amountIn, ok := new(big.Int).SetString(input.AmountInWei, 10)
	if !ok || amountIn.Sign() <= 0 {
		return "", fmt.Errorf("invalid amount_in_wei: %q", input.AmountInWei)
	}

	path := make([]common.Address, 0, len(input.Path))
	for _, addr := range input.Path {
		if !common.IsHexAddress(addr) {
			return "", fmt.Errorf("invalid address in path: %s", addr)
		}
		path = append(path, common.HexToAddress(addr))
	}

	amounts, err := u.amountsOut(ctx, amountIn, path)
	if err != nil {
		return "", fmt.Errorf("getAmountsOut: %w", err)
	}

	strs := make([]string, len(amounts))
	for i, a := range amounts {
		strs[i] = a.String()
	}
	out, err := json.Marshal(map[string]any{"amounts": strs})
	return string(out), err
}

// ApproveToken grants the router (or another spender) an allowance from the
// configured wallet.
func (u *Uniswap) ApproveToken(ctx context.Context, args json.RawMessage) (string, error) {
	if u.chain.key == nil {
		return "", fmt.Errorf("no wallet configured, set ETH_PRIVATE_KEY")
	}

	var input struct {
		TokenAddress   string `json:"token_address"`
		Amount         string `json:"amount"`
		SpenderAddress string `json:"spender_address"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if !common.IsHexAddress(input.TokenAddress) {
		return "", fmt.Errorf("invalid token address: %s", input.TokenAddress)
	}

	token := common.HexToAddress(input.TokenAddress)
	spender := u.routerAddr
	if input.SpenderAddress != "" {
		if !common.IsHexAddress(input.SpenderAddress) {
			return "", fmt.Errorf("invalid spender address: %s", input.SpenderAddress)
		}
		spender = common.HexToAddress(input.SpenderAddress)
	}

	amountWei, err := decimalToWei(input.Amount, u.decimalsOf(ctx, token))
	if err != nil {
		return "", fmt.Errorf("invalid amount: %w", err)
	}

	data, err := u.approve.Pack("approve", spender, amountWei)
	if err != nil {
		return "", fmt.Errorf("pack approve: %w", err)
	}

	nonce, err := u.chain.eth.PendingNonceAt(ctx, u.chain.keyAddr)
	if err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	gasPrice, err := u.chain.eth.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &token,
		Value:    big.NewInt(0),
		Gas:      100000, // plain ERC20 approve
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := types.SignTx(tx, types.NewEIP155Signer(u.chain.chainID), u.chain.key)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}
	if err := u.chain.eth.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}

	log.FromCtx(ctx).Info().Str("tx", signed.Hash().Hex()).Str("token", input.TokenAddress).Msg("approval sent")

	out, err := json.Marshal(map[string]string{
		"tx_hash":    signed.Hash().Hex(),
		"token":      input.TokenAddress,
		"spender":    spender.Hex(),
		"amount_wei": amountWei.String(),
	})
	return string(out), err
}

func (u *Uniswap) amountsOut(ctx context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	data, err := u.router.Pack("getAmountsOut", amountIn, path)
	if err != nil {
		return nil, err
	}
	raw, err := u.chain.eth.CallContract(ctx, ethereum.CallMsg{To: &u.routerAddr, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	results, err := u.router.Unpack("getAmountsOut", raw)
	if err != nil {
		return nil, err
	}
	amounts, ok := results[0].([]*big.Int)
	if !ok || len(amounts) == 0 {
		return nil, fmt.Errorf("getAmountsOut returned unexpected data")
	}
	return amounts, nil
}

// decimalsOf falls back to 18 when the token does not answer, matching how
// the balance tool treats silent contracts.
func (u *Uniswap) decimalsOf(ctx context.Context, token common.Address) int {
	if d, err := u.chain.callUint(ctx, token, "decimals"); err == nil {
		return int(d.Int64())
	}
	return 18
}

func pow10(decimals int) *big.Float {
	return new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
}

func (u *Uniswap) Definitions() []core.ToolDefinition {
	return []core.ToolDefinition{
		{
			Name:        "get_token_price",
			Description: "Quote a token's price in WETH (or another quote token) via the Uniswap V2 router",
			Schema:      getTokenPriceSchema,
			Handler:     u.GetTokenPrice,
			Blocking:    true,
		},
		{
			Name:        "get_amounts_out",
			Description: "Raw Uniswap V2 getAmountsOut quote over a swap path, amounts in wei",
			Schema:      getAmountsOutSchema,
			Handler:     u.GetAmountsOut,
			Blocking:    true,
		},
		{
			Name:        "approve_token",
			Description: "Approve the Uniswap V2 router (or another spender) to spend a token from the configured wallet",
			Schema:      approveTokenSchema,
			Handler:     u.ApproveToken,
			Blocking:    true,
		},
	}
}
