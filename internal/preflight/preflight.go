// internal/preflight/preflight.go
package preflight

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strings"

	"github.com/rovshanmuradov/pubprinter/internal/chain"
	"github.com/rovshanmuradov/pubprinter/internal/minting"
	"github.com/rovshanmuradov/pubprinter/internal/registry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInvalidAmount = minting.ErrInvalidAmount
	ErrTooManyDigits = errors.New("too many decimal places")
)

var amountPattern = regexp.MustCompile(`^(\d+\.?\d*|\d*\.?\d+)$`)

// WalletReader is the chain side needed to check a mint.
type WalletReader interface {
	BalanceOf(ctx context.Context, token, owner string) (*big.Int, error)
	Allowance(ctx context.Context, token, owner, spender string) (*big.Int, error)
}

// Request describes a mint the user wants to make.
type Request struct {
	Symbol      string  `json:"symbol"`
	Amount      string  `json:"amount"`
	Wallet      string  `json:"wallet,omitempty"`
	TotalSupply float64 `json:"total_supply"`
}

// Result is the outcome of a preflight check. Balance and Allowance are nil
// when no wallet was given.
type Result struct {
	Symbol string `json:"symbol"`
	Parent string `json:"parent"`

	Amount    decimal.Decimal `json:"amount"`
	AmountWei *big.Int        `json:"amount_wei"`

	Info      minting.MintingInfo       `json:"minting_info"`
	Breakdown minting.MintCostBreakdown `json:"breakdown"`
	// LandingCost prices the fractional remainder of the amount.
	LandingCost int64 `json:"landing_cost"`

	RequiredParent    decimal.Decimal `json:"required_parent"`
	RequiredParentWei *big.Int        `json:"required_parent_wei"`

	Balance   *big.Int `json:"balance,omitempty"`
	Allowance *big.Int `json:"allowance,omitempty"`

	NeedsApproval       bool     `json:"needs_approval"`
	InsufficientBalance bool     `json:"insufficient_balance"`
	CrossesStep         bool     `json:"crosses_step"`
	Warnings            []string `json:"warnings,omitempty"`
}

// Ready reports whether the mint can be sent as is.
func (r *Result) Ready() bool {
	return r.Balance != nil && !r.NeedsApproval && !r.InsufficientBalance
}

// ValidateAmount parses a user supplied mint amount. It must be a plain
// positive decimal with at most decimals fractional digits, no larger than
// minting.MaxBatchAmount.
func ValidateAmount(raw string, decimals uint8) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%w: amount is empty", ErrInvalidAmount)
	}
	if !amountPattern.MatchString(raw) {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, raw)
	}
	if _, frac, ok := strings.Cut(raw, "."); ok && len(frac) > int(decimals) {
		return decimal.Zero, fmt.Errorf("%w: maximum %d decimal places allowed", ErrTooManyDigits, decimals)
	}

	normalized := strings.TrimSuffix(raw, ".")
	if strings.HasPrefix(normalized, ".") {
		normalized = "0" + normalized
	}
	amount, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidAmount)
	}
	if amount.GreaterThan(decimal.NewFromInt(minting.MaxBatchAmount)) {
		return decimal.Zero, fmt.Errorf("%w: amount must not exceed %d", ErrInvalidAmount, minting.MaxBatchAmount)
	}
	return amount, nil
}

// Checker validates mints against the schedule and the user's wallet.
type Checker struct {
	registry *registry.Registry
	wallet   WalletReader
	logger   *zap.Logger
}

// NewChecker creates a checker. wallet may be nil, in which case only the
// cost side is computed.
func NewChecker(reg *registry.Registry, wallet WalletReader, logger *zap.Logger) *Checker {
	return &Checker{
		registry: reg,
		wallet:   wallet,
		logger:   logger.Named("preflight"),
	}
}

// Check computes what the mint costs in the parent token and, when a wallet
// is given, compares it to the wallet's balance and allowance.
func (c *Checker) Check(ctx context.Context, req Request) (*Result, error) {
	tok, err := c.registry.BySymbol(req.Symbol)
	if err != nil {
		return nil, err
	}
	sched, err := tok.MintSchedule()
	if err != nil {
		return nil, err
	}
	parent, err := c.registry.ParentOf(tok.Symbol)
	if err != nil {
		return nil, err
	}

	amount, err := ValidateAmount(req.Amount, tok.Decimals)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Symbol:    tok.Symbol,
		Parent:    parent.Symbol,
		Amount:    amount,
		AmountWei: chain.FromUnits(amount, tok.Decimals),
		Info:      sched.Info(req.TotalSupply),
	}
	res.RequiredParent, res.Breakdown, res.LandingCost = RequiredParent(sched, req.TotalSupply, amount)
	res.RequiredParentWei = chain.FromUnits(res.RequiredParent, parent.Decimals)

	if minting.CrossesStep(res.Info, amount.InexactFloat64()) {
		res.CrossesStep = true
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"only %d %s left at cost %d; the rest is minted at a higher cost",
			res.Info.RemainingAtCurrentCost, tok.Symbol, res.Info.CurrentCost))
	}

	if req.Wallet == "" || c.wallet == nil {
		return res, nil
	}

	balance, err := c.wallet.BalanceOf(ctx, parent.Address, req.Wallet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s balance: %w", parent.Symbol, err)
	}
	allowance, err := c.wallet.Allowance(ctx, parent.Address, req.Wallet, tok.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s allowance: %w", parent.Symbol, err)
	}
	res.Balance = balance
	res.Allowance = allowance

	if balance.Cmp(res.RequiredParentWei) < 0 {
		res.InsufficientBalance = true
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"insufficient %s balance: need %s, have %s",
			parent.Symbol, res.RequiredParent.String(), chain.ToUnits(balance, parent.Decimals).String()))
	}
	if allowance.Cmp(res.RequiredParentWei) < 0 {
		res.NeedsApproval = true
	}

	c.logger.Debug("Preflight checked",
		zap.String("symbol", tok.Symbol),
		zap.String("amount", amount.String()),
		zap.String("required", res.RequiredParent.String()),
		zap.Bool("needs_approval", res.NeedsApproval),
		zap.Bool("insufficient_balance", res.InsufficientBalance))
	return res, nil
}

// RequiredParent prices amount units minted from totalSupply. Whole units go
// through the batch calculator; a fractional remainder is charged at the
// cost of the tier the batch lands in.
func RequiredParent(sched minting.Schedule, totalSupply float64, amount decimal.Decimal) (decimal.Decimal, minting.MintCostBreakdown, int64) {
	whole := amount.Truncate(0)
	frac := amount.Sub(whole)

	units := whole.IntPart()
	breakdown := sched.BatchCost(totalSupply, units)

	supply := totalSupply
	if math.IsNaN(supply) || math.IsInf(supply, 0) || supply < 0 {
		supply = 0
	}
	landing := sched.Info(math.Floor(supply) + float64(units)).CurrentCost

	total := decimal.NewFromInt(breakdown.TotalCost)
	if frac.IsPositive() {
		total = total.Add(frac.Mul(decimal.NewFromInt(landing)))
	}
	return total, breakdown, landing
}
