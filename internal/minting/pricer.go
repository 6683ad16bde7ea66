// internal/minting/pricer.go
package minting

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// DebugInfo is the structured breakdown behind a MintingInfo value.
type DebugInfo struct {
	TotalSupply        float64 `json:"total_supply"`
	StepSize           int64   `json:"step_size"`
	InitialSupply      int64   `json:"initial_supply"`
	MintedAfterInitial int64   `json:"minted_after_initial"`
	CurrentStepNumber  int64   `json:"current_step_number"`
	InitialBaseCost    int64   `json:"initial_base_cost"`
	TotalIncrease      int64   `json:"total_increase"`
	TokenType          string  `json:"token_type"`
}

// MintingInfo is the price of the next mint at an observed supply.
type MintingInfo struct {
	CurrentCost            int64     `json:"current_cost"`
	RemainingAtCurrentCost int64     `json:"remaining_at_current_cost"`
	NextMintingStep        int64     `json:"next_minting_step"`
	Debug                  DebugInfo `json:"debug"`
}

// ComputeMintingInfo prices the next mint for a token with the default base cost.
func ComputeMintingInfo(totalSupply float64, stepSize, initialSupply int64) MintingInfo {
	return NewSchedule(stepSize, initialSupply).Info(totalSupply)
}

// Info maps an observed total supply to the current unit cost and tier boundaries.
//
// A supply that cannot be interpreted (NaN, infinite, negative) is treated as 0 so a
// caller always gets a displayable base cost. The cost applies to the next token to be
// minted, i.e. to position floor(totalSupply)+1.
func (s Schedule) Info(totalSupply float64) MintingInfo {
	s = s.normalized()
	supply := coerceSupply(totalSupply)
	floored := int64(math.Floor(supply))

	debug := DebugInfo{
		TotalSupply:     supply,
		StepSize:        s.StepSize,
		InitialSupply:   s.InitialSupply,
		InitialBaseCost: s.BaseCost,
		TokenType:       s.Label,
	}

	if floored < s.InitialSupply {
		remaining := s.InitialSupply - floored
		return MintingInfo{
			CurrentCost:            s.BaseCost,
			RemainingAtCurrentCost: remaining,
			NextMintingStep:        s.InitialSupply,
			Debug:                  debug,
		}
	}

	nextTokenSupply := floored + 1
	mintedAfterInitial := max(0, nextTokenSupply-s.InitialSupply-1)
	currentStep := mintedAfterInitial / s.StepSize
	nextMintingStep := s.InitialSupply + (currentStep+1)*s.StepSize

	debug.MintedAfterInitial = mintedAfterInitial
	debug.CurrentStepNumber = currentStep
	debug.TotalIncrease = currentStep

	return MintingInfo{
		CurrentCost:            s.BaseCost + currentStep,
		RemainingAtCurrentCost: max(0, nextMintingStep-floored),
		NextMintingStep:        nextMintingStep,
		Debug:                  debug,
	}
}

// ParseSupply converts a human-unit supply string from the supply source.
// Anything unparseable comes back as NaN, which Info treats as supply 0.
func ParseSupply(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return math.NaN()
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return math.NaN()
	}
	f, _ := d.Float64()
	return f
}

func coerceSupply(totalSupply float64) float64 {
	if math.IsNaN(totalSupply) || math.IsInf(totalSupply, 0) || totalSupply < 0 {
		return 0
	}
	// Beyond this an int64 floor overflows; no real token family gets there.
	if totalSupply > maxSupply {
		return maxSupply
	}
	return totalSupply
}

const maxSupply = float64(1 << 53)
