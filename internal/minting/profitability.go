// internal/minting/profitability.go
package minting

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Status classifies a minting opportunity.
type Status string

const (
	StatusProfit    Status = "profit"
	StatusBreakeven Status = "breakeven"
	StatusLoss      Status = "loss"
	StatusUnknown   Status = "unknown"
)

// DefaultBreakevenBand is the half-width, in percent, of the breakeven band around zero.
const DefaultBreakevenBand = 2.0

// ProfitabilityResult compares the USD cost of minting one unit with its market price.
type ProfitabilityResult struct {
	ProfitMargin float64 `json:"profit_margin"`
	Status       Status  `json:"status"`
	IsProfitable bool    `json:"is_profitable"`
}

// Evaluator classifies margins with a symmetric breakeven band.
type Evaluator struct {
	BreakevenBand float64
}

// NewEvaluator returns an evaluator; a non-positive band falls back to the default.
func NewEvaluator(band float64) Evaluator {
	if band <= 0 || math.IsNaN(band) || math.IsInf(band, 0) {
		band = DefaultBreakevenBand
	}
	return Evaluator{BreakevenBand: band}
}

// CheckMintingProfitability evaluates with the default ±2% band.
func CheckMintingProfitability(currentCost int64, mintedPriceUSD, parentPriceUSD string) ProfitabilityResult {
	return NewEvaluator(DefaultBreakevenBand).Check(currentCost, mintedPriceUSD, parentPriceUSD)
}

// Check computes the profit margin of minting at currentCost parent tokens per unit.
// Missing or unusable prices yield StatusUnknown with a zero margin.
func (e Evaluator) Check(currentCost int64, mintedPriceUSD, parentPriceUSD string) ProfitabilityResult {
	minted, ok := ParsePriceUSD(mintedPriceUSD)
	if !ok {
		return unknownResult()
	}
	parent, ok := ParsePriceUSD(parentPriceUSD)
	if !ok {
		return unknownResult()
	}
	if currentCost <= 0 {
		return unknownResult()
	}

	mintingCostUSD := float64(currentCost) * parent
	margin := (minted - mintingCostUSD) / mintingCostUSD * 100

	return e.Classify(margin)
}

// Classify maps a margin onto a status using the evaluator's band.
func (e Evaluator) Classify(margin float64) ProfitabilityResult {
	if math.IsNaN(margin) || math.IsInf(margin, 0) {
		return unknownResult()
	}
	band := e.BreakevenBand
	if band <= 0 {
		band = DefaultBreakevenBand
	}

	var status Status
	switch {
	case margin > band:
		status = StatusProfit
	case margin >= -band:
		status = StatusBreakeven
	default:
		status = StatusLoss
	}

	return ProfitabilityResult{
		ProfitMargin: margin,
		Status:       status,
		IsProfitable: status == StatusProfit,
	}
}

func unknownResult() ProfitabilityResult {
	return ProfitabilityResult{Status: StatusUnknown}
}

// ParsePriceUSD parses a price-source value. It reports false for empty, non-numeric,
// zero or negative input.
func ParsePriceUSD(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || !d.IsPositive() {
		return 0, false
	}
	f, _ := d.Float64()
	if f <= 0 || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Grade is a cosmetic strength label for presentation layers.
type Grade string

const (
	GradeStrongProfit Grade = "strong_profit"
	GradeProfit       Grade = "profit"
	GradeBreakeven    Grade = "breakeven"
	GradeLoss         Grade = "loss"
	GradeHeavyLoss    Grade = "heavy_loss"
	GradeUnknown      Grade = "unknown"
)

// Grade splits profit and loss by magnitude at ±20%.
func (r ProfitabilityResult) Grade() Grade {
	switch r.Status {
	case StatusProfit:
		if r.ProfitMargin > 20 {
			return GradeStrongProfit
		}
		return GradeProfit
	case StatusBreakeven:
		return GradeBreakeven
	case StatusLoss:
		if r.ProfitMargin > -20 {
			return GradeLoss
		}
		return GradeHeavyLoss
	default:
		return GradeUnknown
	}
}

// GasAdjustedMargin is the margin of selling at marketPriceUSD after paying
// unitCostUSD plus a flat gas allowance per mint. It reports false when the
// market price is unusable.
func GasAdjustedMargin(unitCostUSD float64, marketPriceUSD string, gasCostUSD float64) (float64, bool) {
	price, ok := ParsePriceUSD(marketPriceUSD)
	if !ok {
		return 0, false
	}
	effective := unitCostUSD + gasCostUSD
	if effective <= 0 {
		return 0, false
	}
	return (price - effective) / effective * 100, true
}
