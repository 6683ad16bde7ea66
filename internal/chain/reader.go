// internal/chain/reader.go
package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Caller is the subset of ethclient.Client used for read-only access.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// Metadata is the on-chain description of a token.
type Metadata struct {
	Address     string          `json:"address"`
	Name        string          `json:"name"`
	Symbol      string          `json:"symbol"`
	Decimals    uint8           `json:"decimals"`
	TotalSupply decimal.Decimal `json:"total_supply"`
	Parent      string          `json:"parent,omitempty"`
}

// Options tunes RPC retry behaviour.
type Options struct {
	Retries    int
	RetryDelay time.Duration
	Timeout    time.Duration
}

// Reader performs ERC-20 view calls against an EVM RPC endpoint.
type Reader struct {
	client Caller
	abi    abi.ABI
	opts   Options
	logger *zap.Logger
}

// NewReader wraps an existing client.
func NewReader(client Caller, opts Options, logger *zap.Logger) (*Reader, error) {
	parsed, err := abi.JSON(strings.NewReader(tokenABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}
	if opts.Retries <= 0 {
		opts.Retries = 1
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 500 * time.Millisecond
	}
	return &Reader{
		client: client,
		abi:    parsed,
		opts:   opts,
		logger: logger.Named("chain"),
	}, nil
}

// Dial connects to rpcURL and checks the chain id when expectedChainID > 0.
func Dial(ctx context.Context, rpcURL string, expectedChainID int64, opts Options, logger *zap.Logger) (*Reader, *ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", rpcURL, err)
	}

	reader, err := NewReader(client, opts, logger)
	if err != nil {
		client.Close()
		return nil, nil, err
	}

	if expectedChainID > 0 {
		if err := reader.VerifyChain(ctx, expectedChainID); err != nil {
			client.Close()
			return nil, nil, err
		}
	}

	logger.Info("Connected to RPC", zap.String("rpc", rpcURL), zap.Int64("chain_id", expectedChainID))
	return reader, client, nil
}

// VerifyChain fails with ErrWrongChain when the endpoint reports another id.
func (r *Reader) VerifyChain(ctx context.Context, expected int64) error {
	id, err := r.client.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to get chain id: %w", err)
	}
	if id.Int64() != expected {
		return fmt.Errorf("%w: got %s, want %d", ErrWrongChain, id.String(), expected)
	}
	return nil
}

// TokenMetadata reads name, symbol, decimals and total supply. Parent is
// read only when withParent is set.
func (r *Reader) TokenMetadata(ctx context.Context, token string, withParent bool) (*Metadata, error) {
	addr, err := parseAddress(token)
	if err != nil {
		return nil, err
	}

	meta := &Metadata{Address: addr.Hex()}

	if err := r.call(ctx, addr, "name", &meta.Name); err != nil {
		return nil, err
	}
	if err := r.call(ctx, addr, "symbol", &meta.Symbol); err != nil {
		return nil, err
	}
	if err := r.call(ctx, addr, "decimals", &meta.Decimals); err != nil {
		return nil, err
	}

	var supply *big.Int
	if err := r.call(ctx, addr, "totalSupply", &supply); err != nil {
		return nil, err
	}
	meta.TotalSupply = ToUnits(supply, meta.Decimals)

	if withParent {
		parent, err := r.Parent(ctx, token)
		if err != nil {
			return nil, err
		}
		meta.Parent = parent
	}

	r.logger.Debug("Token metadata read",
		zap.String("token", meta.Address),
		zap.String("symbol", meta.Symbol),
		zap.String("supply", meta.TotalSupply.String()))

	return meta, nil
}

// TotalSupply returns the supply in human units.
func (r *Reader) TotalSupply(ctx context.Context, token string, decimals uint8) (decimal.Decimal, error) {
	addr, err := parseAddress(token)
	if err != nil {
		return decimal.Zero, err
	}
	var supply *big.Int
	if err := r.call(ctx, addr, "totalSupply", &supply); err != nil {
		return decimal.Zero, err
	}
	return ToUnits(supply, decimals), nil
}

// Parent returns the address of the token a child is minted with.
func (r *Reader) Parent(ctx context.Context, token string) (string, error) {
	addr, err := parseAddress(token)
	if err != nil {
		return "", err
	}
	var parent common.Address
	if err := r.call(ctx, addr, "Parent", &parent); err != nil {
		return "", err
	}
	return parent.Hex(), nil
}

// BalanceOf returns owner's balance of token in base units.
func (r *Reader) BalanceOf(ctx context.Context, token, owner string) (*big.Int, error) {
	tokenAddr, err := parseAddress(token)
	if err != nil {
		return nil, err
	}
	ownerAddr, err := parseAddress(owner)
	if err != nil {
		return nil, err
	}
	var balance *big.Int
	if err := r.call(ctx, tokenAddr, "balanceOf", &balance, ownerAddr); err != nil {
		return nil, err
	}
	return orZero(balance), nil
}

// Allowance returns how much spender may pull from owner, in base units.
func (r *Reader) Allowance(ctx context.Context, token, owner, spender string) (*big.Int, error) {
	tokenAddr, err := parseAddress(token)
	if err != nil {
		return nil, err
	}
	ownerAddr, err := parseAddress(owner)
	if err != nil {
		return nil, err
	}
	spenderAddr, err := parseAddress(spender)
	if err != nil {
		return nil, err
	}
	var allowance *big.Int
	if err := r.call(ctx, tokenAddr, "allowance", &allowance, ownerAddr, spenderAddr); err != nil {
		return nil, err
	}
	return orZero(allowance), nil
}

// NativeBalance returns the PLS balance of owner in wei.
func (r *Reader) NativeBalance(ctx context.Context, owner string) (*big.Int, error) {
	addr, err := parseAddress(owner)
	if err != nil {
		return nil, err
	}
	return retryCall(ctx, r, "native balance", func(ctx context.Context) (*big.Int, error) {
		return r.client.BalanceAt(ctx, addr, nil)
	})
}

func (r *Reader) call(ctx context.Context, to common.Address, method string, out interface{}, args ...interface{}) error {
	data, err := r.abi.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("failed to pack %s: %w", method, err)
	}

	result, err := retryCall(ctx, r, method, func(ctx context.Context) ([]byte, error) {
		return r.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	})
	if err != nil {
		return fmt.Errorf("failed to call %s on %s: %w", method, to.Hex(), err)
	}
	if len(result) == 0 {
		return fmt.Errorf("%s on %s: %w", method, to.Hex(), ErrEmptyResult)
	}

	if err := r.abi.UnpackIntoInterface(out, method, result); err != nil {
		return fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	return nil
}

func retryCall[T any](ctx context.Context, r *Reader, what string, fn func(context.Context) (T, error)) (T, error) {
	notify := func(err error, d time.Duration) {
		r.logger.Debug("RPC call failed, retrying",
			zap.String("call", what),
			zap.Duration("backoff", d),
			zap.Error(err))
	}

	operation := func() (T, error) {
		callCtx := ctx
		if r.opts.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
			defer cancel()
		}
		return fn(callCtx)
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(r.opts.RetryDelay)),
		backoff.WithMaxTries(uint(r.opts.Retries)),
		backoff.WithNotify(notify))
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
