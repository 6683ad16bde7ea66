package chain

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	eoeAddr    = "0xa7b295c715713487877427589a93f93bc608d240"
	a1aAddr    = "0x697fc467720b2a8e1b2f7f665d0e3f28793e65e8"
	walletAddr = "0x1111111111111111111111111111111111111111"
)

type fakeCaller struct {
	t        *testing.T
	abi      abi.ABI
	mu       sync.Mutex
	results  map[string][]interface{}
	failures int
	calls    int
	chainID  int64
	native   *big.Int
}

func newFakeCaller(t *testing.T) *fakeCaller {
	parsed, err := abi.JSON(strings.NewReader(tokenABI))
	require.NoError(t, err)
	return &fakeCaller{t: t, abi: parsed, results: map[string][]interface{}{}, chainID: 369}
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("connection reset")
	}

	method, err := f.abi.MethodById(msg.Data[:4])
	require.NoError(f.t, err)
	values, ok := f.results[method.Name]
	if !ok {
		return nil, nil
	}
	out, err := method.Outputs.Pack(values...)
	require.NoError(f.t, err)
	return out, nil
}

func (f *fakeCaller) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return f.native, nil
}

func (f *fakeCaller) ChainID(context.Context) (*big.Int, error) {
	return big.NewInt(f.chainID), nil
}

func newTestReader(t *testing.T, f *fakeCaller, retries int) *Reader {
	r, err := NewReader(f, Options{Retries: retries, RetryDelay: time.Millisecond}, zap.NewNop())
	require.NoError(t, err)
	return r
}

func wei(units int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(units), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func TestTokenMetadata(t *testing.T) {
	f := newFakeCaller(t)
	f.results["name"] = []interface{}{"EhOneEh"}
	f.results["symbol"] = []interface{}{"EOE"}
	f.results["decimals"] = []interface{}{uint8(18)}
	f.results["totalSupply"] = []interface{}{new(big.Int).Add(wei(2221), big.NewInt(5e17))}
	f.results["Parent"] = []interface{}{common.HexToAddress(a1aAddr)}

	meta, err := newTestReader(t, f, 1).TokenMetadata(context.Background(), eoeAddr, true)
	require.NoError(t, err)

	assert.Equal(t, "EhOneEh", meta.Name)
	assert.Equal(t, "EOE", meta.Symbol)
	assert.Equal(t, uint8(18), meta.Decimals)
	assert.True(t, meta.TotalSupply.Equal(decimal.RequireFromString("2221.5")), meta.TotalSupply.String())
	assert.Equal(t, common.HexToAddress(a1aAddr).Hex(), meta.Parent)
}

func TestBalanceAndAllowance(t *testing.T) {
	f := newFakeCaller(t)
	f.results["balanceOf"] = []interface{}{wei(10)}
	f.results["allowance"] = []interface{}{wei(3)}
	f.native = big.NewInt(42)
	r := newTestReader(t, f, 1)

	balance, err := r.BalanceOf(context.Background(), a1aAddr, walletAddr)
	require.NoError(t, err)
	assert.Zero(t, wei(10).Cmp(balance))

	allowance, err := r.Allowance(context.Background(), a1aAddr, walletAddr, eoeAddr)
	require.NoError(t, err)
	assert.Zero(t, wei(3).Cmp(allowance))

	native, err := r.NativeBalance(context.Background(), walletAddr)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(42), native)
}

func TestCallRetriesTransientErrors(t *testing.T) {
	f := newFakeCaller(t)
	f.failures = 2
	f.results["totalSupply"] = []interface{}{wei(420)}

	supply, err := newTestReader(t, f, 3).TotalSupply(context.Background(), eoeAddr, 18)
	require.NoError(t, err)
	assert.True(t, supply.Equal(decimal.NewFromInt(420)))
	assert.Equal(t, 3, f.calls)
}

func TestCallGivesUpAfterRetries(t *testing.T) {
	f := newFakeCaller(t)
	f.failures = 5

	_, err := newTestReader(t, f, 2).TotalSupply(context.Background(), eoeAddr, 18)
	require.Error(t, err)
	assert.Equal(t, 2, f.calls)
}

func TestEmptyResult(t *testing.T) {
	f := newFakeCaller(t)
	_, err := newTestReader(t, f, 1).Parent(context.Background(), eoeAddr)
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestInvalidAddress(t *testing.T) {
	r := newTestReader(t, newFakeCaller(t), 1)

	_, err := r.BalanceOf(context.Background(), "0x1234", walletAddr)
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = r.TokenMetadata(context.Background(), "not-an-address", false)
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestVerifyChain(t *testing.T) {
	f := newFakeCaller(t)
	r := newTestReader(t, f, 1)

	assert.NoError(t, r.VerifyChain(context.Background(), 369))

	f.chainID = 1
	assert.ErrorIs(t, r.VerifyChain(context.Background(), 369), ErrWrongChain)
}

func TestUnits(t *testing.T) {
	assert.True(t, ToUnits(big.NewInt(1500), 3).Equal(decimal.RequireFromString("1.5")))
	assert.True(t, ToUnits(nil, 18).IsZero())

	assert.Zero(t, big.NewInt(1500).Cmp(FromUnits(decimal.RequireFromString("1.5"), 3)))
	assert.Zero(t, big.NewInt(1).Cmp(FromUnits(decimal.RequireFromString("0.0019"), 3)))
	assert.Zero(t, wei(7).Cmp(FromUnits(decimal.NewFromInt(7), 18)))
}
