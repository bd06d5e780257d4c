package chain

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/sandevgo/aizen/internal/config"
	"github.com/sandevgo/aizen/internal/core"
	"github.com/sandevgo/aizen/pkg/log"
)

const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function"}
]`

const getBalanceSchema = `
{
  "type": "object",
  "properties": {
    "address": { "type": "string", "description": "Ethereum address (0x...)" }
  },
  "required": ["address"]
}
`

const getTokenBalanceSchema = `
{
  "type": "object",
  "properties": {
    "token_address": { "type": "string", "description": "ERC20 contract address" },
    "address": { "type": "string", "description": "Holder address" }
  },
  "required": ["token_address", "address"]
}
`

const transferSchema = `
{
  "type": "object",
  "properties": {
    "to": { "type": "string", "description": "Recipient address" },
    "amount_eth": { "type": "string", "description": "Amount in ETH, decimal string" }
  },
  "required": ["to", "amount_eth"]
}
`

const emptySchema = `{"type":"object","properties":{}}`

// ethBackend is the subset of ethclient the toolset needs, split out so tests
// can run without a node.
type ethBackend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Ethereum exposes chain reads and a guarded transfer over a JSON-RPC node.
type Ethereum struct {
	eth      ethBackend
	erc20    abi.ABI
	chainID  *big.Int
	key      *ecdsa.PrivateKey
	keyAddr  common.Address
	closeRPC func()
}

func NewEthereum(ctx context.Context, cfg *config.EthereumConfig) (*Ethereum, error) {
	rpcClient, err := gethrpc.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial ethereum node: %w", err)
	}
	eth := ethclient.NewClient(rpcClient)

	e, err := newEthereum(eth, cfg.ChainID, cfg.PrivateKey)
	if err != nil {
		rpcClient.Close()
		return nil, err
	}
	e.closeRPC = rpcClient.Close

	log.FromCtx(ctx).Info().Int64("chain_id", cfg.ChainID).Bool("signer", e.key != nil).Msg("ethereum client ready")
	return e, nil
}

func newEthereum(backend ethBackend, chainID int64, privateKey string) (*Ethereum, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	e := &Ethereum{
		eth:     backend,
		erc20:   parsed,
		chainID: big.NewInt(chainID),
	}

	if privateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		e.key = key
		e.keyAddr = crypto.PubkeyToAddress(key.PublicKey)
	}
	return e, nil
}

func (e *Ethereum) Close() {
	if e.closeRPC != nil {
		e.closeRPC()
	}
}

func (e *Ethereum) GetBalance(ctx context.Context, args json.RawMessage) (string, error) {
	var input struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if !common.IsHexAddress(input.Address) {
		return "", fmt.Errorf("invalid ethereum address: %s", input.Address)
	}

	wei, err := e.eth.BalanceAt(ctx, common.HexToAddress(input.Address), nil)
	if err != nil {
		return "", fmt.Errorf("get balance: %w", err)
	}

	out, err := json.Marshal(map[string]string{
		"address":     input.Address,
		"balance_wei": wei.String(),
		"balance_eth": weiToDecimal(wei, 18),
	})
	return string(out), err
}

func (e *Ethereum) GetTokenBalance(ctx context.Context, args json.RawMessage) (string, error) {
	var input struct {
		TokenAddress string `json:"token_address"`
		Address      string `json:"address"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if !common.IsHexAddress(input.TokenAddress) || !common.IsHexAddress(input.Address) {
		return "", fmt.Errorf("invalid ethereum address")
	}

	token := common.HexToAddress(input.TokenAddress)
	holder := common.HexToAddress(input.Address)

	balance, err := e.callUint(ctx, token, "balanceOf", holder)
	if err != nil {
		return "", fmt.Errorf("balanceOf: %w", err)
	}

	decimals := int64(18)
	if d, err := e.callUint(ctx, token, "decimals"); err == nil {
		decimals = d.Int64()
	}

	symbol := ""
	if data, err := e.erc20.Pack("symbol"); err == nil {
		if raw, err := e.eth.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil); err == nil {
			var s string
			if err := e.erc20.UnpackIntoInterface(&s, "symbol", raw); err == nil {
				symbol = s
			}
		}
	}

	out, err := json.Marshal(map[string]any{
		"token":    input.TokenAddress,
		"address":  input.Address,
		"symbol":   symbol,
		"raw":      balance.String(),
		"decimals": decimals,
		"balance":  weiToDecimal(balance, int(decimals)),
	})
	return string(out), err
}

func (e *Ethereum) GasPrice(ctx context.Context, args json.RawMessage) (string, error) {
	price, err := e.eth.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("gas price: %w", err)
	}
	out, err := json.Marshal(map[string]string{
		"gas_price_wei":  price.String(),
		"gas_price_gwei": weiToDecimal(price, 9),
	})
	return string(out), err
}

func (e *Ethereum) BlockNumber(ctx context.Context, args json.RawMessage) (string, error) {
	n, err := e.eth.BlockNumber(ctx)
	if err != nil {
		return "", fmt.Errorf("block number: %w", err)
	}
	return fmt.Sprintf(`{"block_number":%d}`, n), nil
}

// Transfer signs and broadcasts a plain ETH transfer from the configured key.
func (e *Ethereum) Transfer(ctx context.Context, args json.RawMessage) (string, error) {
	if e.key == nil {
		return "", fmt.Errorf("no wallet configured, set ETH_PRIVATE_KEY")
	}

	var input struct {
		To        string `json:"to"`
		AmountETH string `json:"amount_eth"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if !common.IsHexAddress(input.To) {
		return "", fmt.Errorf("invalid recipient address: %s", input.To)
	}

	wei, err := decimalToWei(input.AmountETH, 18)
	if err != nil {
		return "", fmt.Errorf("invalid amount: %w", err)
	}

	nonce, err := e.eth.PendingNonceAt(ctx, e.keyAddr)
	if err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	gasPrice, err := e.eth.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("gas price: %w", err)
	}

	to := common.HexToAddress(input.To)
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    wei,
		Gas:      21000, // standard ETH transfer
		GasPrice: gasPrice,
	})

	signed, err := types.SignTx(tx, types.NewEIP155Signer(e.chainID), e.key)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}
	if err := e.eth.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}

	log.FromCtx(ctx).Info().Str("tx", signed.Hash().Hex()).Str("to", input.To).Msg("transfer sent")

	out, err := json.Marshal(map[string]string{
		"tx_hash": signed.Hash().Hex(),
		"from":    e.keyAddr.Hex(),
		"to":      input.To,
		"wei":     wei.String(),
	})
	return string(out), err
}

func (e *Ethereum) callUint(ctx context.Context, contract common.Address, method string, params ...any) (*big.Int, error) {
	data, err := e.erc20.Pack(method, params...)
	if err != nil {
		return nil, err
	}
	raw, err := e.eth.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	results, err := e.erc20.Unpack(method, raw)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%s returned no data", method)
	}
	switch v := results[0].(type) {
	case *big.Int:
		return v, nil
	case uint8:
		return big.NewInt(int64(v)), nil
	default:
		return nil, fmt.Errorf("%s returned unexpected type %T", method, results[0])
	}
}

func (e *Ethereum) Definitions() []core.ToolDefinition {
	return []core.ToolDefinition{
		{
			Name:        "get_balance",
			Description: "Get the ETH balance of an address",
			Schema:      getBalanceSchema,
			Handler:     e.GetBalance,
			Blocking:    true,
		},
		{
			Name:        "get_token_balance",
			Description: "Get the ERC20 token balance of an address",
			Schema:      getTokenBalanceSchema,
			Handler:     e.GetTokenBalance,
			Blocking:    true,
		},
		{
			Name:        "gas_price",
			Description: "Get the current suggested gas price",
			Schema:      emptySchema,
			Handler:     e.GasPrice,
			Blocking:    true,
		},
		{
			Name:        "block_number",
			Description: "Get the latest block number",
			Schema:      emptySchema,
			Handler:     e.BlockNumber,
			Blocking:    true,
		},
		{
			Name:        "transfer",
			Description: "Send ETH from the configured wallet to an address",
			Schema:      transferSchema,
			Handler:     e.Transfer,
			Blocking:    true,
		},
	}
}
