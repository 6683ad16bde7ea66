package preflight

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/rovshanmuradov/pubprinter/internal/minting"
	"github.com/rovshanmuradov/pubprinter/internal/registry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWallet struct {
	balance   *big.Int
	allowance *big.Int
	err       error

	gotToken, gotOwner, gotSpender string
}

func (f *fakeWallet) BalanceOf(_ context.Context, token, owner string) (*big.Int, error) {
	f.gotToken, f.gotOwner = token, owner
	return f.balance, f.err
}

func (f *fakeWallet) Allowance(_ context.Context, _, _, spender string) (*big.Int, error) {
	f.gotSpender = spender
	return f.allowance, f.err
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr error
	}{
		{raw: "1", want: "1"},
		{raw: " 2.5 ", want: "2.5"},
		{raw: ".5", want: "0.5"},
		{raw: "3.", want: "3"},
		{raw: "", wantErr: ErrInvalidAmount},
		{raw: "0", wantErr: ErrInvalidAmount},
		{raw: "0.000", wantErr: ErrInvalidAmount},
		{raw: "-1", wantErr: ErrInvalidAmount},
		{raw: "1e3", wantErr: ErrInvalidAmount},
		{raw: "abc", wantErr: ErrInvalidAmount},
		{raw: "1.2.3", wantErr: ErrInvalidAmount},
		{raw: "0.1234", wantErr: ErrTooManyDigits},
		{raw: "10000000", want: "10000000"},
		{raw: "10000000.001", wantErr: ErrInvalidAmount},
		{raw: "10000001", wantErr: ErrInvalidAmount},
		{raw: "9223372036854775808", wantErr: ErrInvalidAmount},
		{raw: "18446744073709551616", wantErr: ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ValidateAmount(tt.raw, 3)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestRequiredParent(t *testing.T) {
	sched := minting.NewSchedule(1111, 1111)

	// 3 whole units: 1 at cost 2, 2 at cost 3; the half unit lands at cost 3.
	total, breakdown, landing := RequiredParent(sched, 2221, decimal.RequireFromString("3.5"))
	assert.Equal(t, int64(8), breakdown.TotalCost)
	assert.Equal(t, []minting.CostTier{{Count: 1, Cost: 2}, {Count: 2, Cost: 3}}, breakdown.Breakdown)
	assert.Equal(t, int64(3), landing)
	assert.True(t, decimal.RequireFromString("9.5").Equal(total), "got %s", total)

	// Fractional only: charged at the current cost.
	total, breakdown, landing = RequiredParent(sched, 100, decimal.RequireFromString("0.25"))
	assert.Empty(t, breakdown.Breakdown)
	assert.Equal(t, int64(2), landing)
	assert.True(t, decimal.RequireFromString("0.5").Equal(total))
}

func newChecker(w WalletReader) *Checker {
	return NewChecker(registry.Default(), w, zap.NewNop())
}

func TestCheckWithoutWallet(t *testing.T) {
	res, err := newChecker(nil).Check(context.Background(), Request{Symbol: "btb", Amount: "10", TotalSupply: 835})
	require.NoError(t, err)

	assert.Equal(t, "BTB", res.Symbol)
	assert.Equal(t, "B2B", res.Parent)
	assert.Equal(t, int64(2), res.Info.CurrentCost)
	assert.Equal(t, int64(5), res.Info.RemainingAtCurrentCost)
	assert.True(t, res.CrossesStep)
	assert.NotEmpty(t, res.Warnings)
	// 5 at cost 2, 5 at cost 3.
	assert.True(t, decimal.NewFromInt(25).Equal(res.RequiredParent))
	assert.Equal(t, 0, res.RequiredParentWei.Cmp(ether(25)))
	assert.Equal(t, 0, res.AmountWei.Cmp(ether(10)))
	assert.Nil(t, res.Balance)
	assert.False(t, res.Ready())
}

func TestCheckWallet(t *testing.T) {
	const owner = "0x00000000000000000000000000000000000000aa"

	tests := []struct {
		name         string
		balance      *big.Int
		allowance    *big.Int
		wantApproval bool
		wantShort    bool
	}{
		{name: "ready", balance: ether(100), allowance: ether(100)},
		{name: "needs approval", balance: ether(100), allowance: ether(1), wantApproval: true},
		{name: "insufficient", balance: ether(3), allowance: ether(100), wantShort: true},
		{name: "both", balance: big.NewInt(0), allowance: big.NewInt(0), wantApproval: true, wantShort: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &fakeWallet{balance: tt.balance, allowance: tt.allowance}
			res, err := newChecker(w).Check(context.Background(), Request{
				Symbol: "EOE", Amount: "2", Wallet: owner, TotalSupply: 1500,
			})
			require.NoError(t, err)

			assert.Equal(t, registry.AddressA1A, w.gotToken)
			assert.Equal(t, owner, w.gotOwner)
			assert.Equal(t, registry.AddressEOE, w.gotSpender)

			assert.Equal(t, 0, res.RequiredParentWei.Cmp(ether(4)))
			assert.Equal(t, tt.wantApproval, res.NeedsApproval)
			assert.Equal(t, tt.wantShort, res.InsufficientBalance)
			assert.Equal(t, !tt.wantApproval && !tt.wantShort, res.Ready())
			assert.False(t, res.CrossesStep)
		})
	}
}

func TestCheckErrors(t *testing.T) {
	c := newChecker(&fakeWallet{err: errors.New("rpc down")})
	ctx := context.Background()

	_, err := c.Check(ctx, Request{Symbol: "XYZ", Amount: "1"})
	assert.ErrorIs(t, err, registry.ErrTokenNotFound)

	_, err = c.Check(ctx, Request{Symbol: "A1A", Amount: "1"})
	assert.ErrorIs(t, err, registry.ErrNotMintable)

	_, err = c.Check(ctx, Request{Symbol: "EOE", Amount: "0"})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = c.Check(ctx, Request{Symbol: "EOE", Amount: "1", Wallet: "0x00000000000000000000000000000000000000aa"})
	assert.ErrorContains(t, err, "rpc down")
}

func TestCheckRejectsOversizedAmount(t *testing.T) {
	wallet := &fakeWallet{balance: ether(1), allowance: ether(1)}
	c := newChecker(wallet)

	res, err := c.Check(context.Background(), Request{
		Symbol:      "EOE",
		Amount:      "18446744073709551616",
		Wallet:      "0x00000000000000000000000000000000000000aa",
		TotalSupply: 2221,
	})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.ErrorIs(t, err, minting.ErrInvalidAmount)
	assert.Nil(t, res)
	assert.Empty(t, wallet.gotToken)
}
