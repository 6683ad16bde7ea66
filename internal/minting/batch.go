// internal/minting/batch.go
package minting

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
)

// MaxBatchAmount bounds the number of units a single batch may price.
const MaxBatchAmount int64 = 10_000_000

var ErrInvalidAmount = errors.New("invalid amount")

// ValidateBatchAmount rejects batch sizes outside 1..MaxBatchAmount.
func ValidateBatchAmount(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be greater than zero", ErrInvalidAmount)
	}
	if amount > MaxBatchAmount {
		return fmt.Errorf("%w: amount must not exceed %d", ErrInvalidAmount, MaxBatchAmount)
	}
	return nil
}

// CostTier is a run of consecutive mints at the same unit cost.
type CostTier struct {
	Count int64 `json:"count"`
	Cost  int64 `json:"cost"`
}

// MintCostBreakdown is the cost of a batch mint, tier by tier in minting order.
type MintCostBreakdown struct {
	TotalCost int64      `json:"total_cost"`
	Breakdown []CostTier `json:"breakdown"`
}

// BatchRequest describes a batch mint of Amount units starting at TotalSupply.
type BatchRequest struct {
	TotalSupply   float64
	Amount        int64
	StepSize      int64
	InitialSupply int64
	BaseCost      int64
}

// CalculateTotalMintCost walks the step schedule from TotalSupply and allocates Amount
// units tier by tier. Non-positive amounts yield an empty breakdown.
func CalculateTotalMintCost(req BatchRequest) MintCostBreakdown {
	s := Schedule{
		StepSize:      req.StepSize,
		InitialSupply: req.InitialSupply,
		BaseCost:      req.BaseCost,
	}
	return s.BatchCost(req.TotalSupply, req.Amount)
}

// BatchCost is CalculateTotalMintCost for a configured schedule. It stops and
// returns the tiers priced so far once the total would overflow int64.
func (s Schedule) BatchCost(totalSupply float64, amount int64) MintCostBreakdown {
	result := MintCostBreakdown{Breakdown: []CostTier{}}
	if amount <= 0 {
		return result
	}

	s = s.normalized()
	supply := int64(math.Floor(coerceSupply(totalSupply)))
	remaining := amount

	for remaining > 0 {
		var count, cost int64
		if supply < s.InitialSupply {
			count = min(s.InitialSupply-supply, remaining)
			cost = s.BaseCost
		} else {
			count = min(remaining, s.tierEnd(supply)-supply)
			cost = s.CostAt(supply)
		}
		if count <= 0 {
			break
		}

		subtotal, ok := mulAdd(result.TotalCost, count, cost)
		if !ok {
			break
		}
		result.TotalCost = subtotal
		result.Breakdown = append(result.Breakdown, CostTier{Count: count, Cost: cost})
		supply += count
		remaining -= count
	}

	return result
}

// mulAdd returns total + count*cost for non-negative operands, false on overflow.
func mulAdd(total, count, cost int64) (int64, bool) {
	hi, lo := bits.Mul64(uint64(count), uint64(cost))
	if hi != 0 || lo > math.MaxInt64 {
		return 0, false
	}
	sum := total + int64(lo)
	if sum < total {
		return 0, false
	}
	return sum, true
}

// Units returns the number of units covered by the breakdown.
func (b MintCostBreakdown) Units() int64 {
	var n int64
	for _, t := range b.Breakdown {
		n += t.Count
	}
	return n
}

// AverageCost is the mean unit cost across the batch, 0 for an empty batch.
func (b MintCostBreakdown) AverageCost() float64 {
	units := b.Units()
	if units == 0 {
		return 0
	}
	return float64(b.TotalCost) / float64(units)
}

// CrossesStep reports whether minting amount units from the state described by info
// would move past the current tier and pay a higher price for part of the batch.
func CrossesStep(info MintingInfo, amount float64) bool {
	return info.RemainingAtCurrentCost > 0 && amount > float64(info.RemainingAtCurrentCost)
}
