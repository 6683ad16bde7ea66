package monitor

import (
	"time"

	"github.com/rovshanmuradov/pubprinter/internal/minting"
	"github.com/rovshanmuradov/pubprinter/internal/registry"
	"github.com/rovshanmuradov/pubprinter/internal/storage/models"
)

// Snapshot is the latest known state of one token.
type Snapshot struct {
	Token       registry.Token `json:"token"`
	TotalSupply float64        `json:"total_supply"`
	// SupplyText is the exact on-chain supply in human units.
	SupplyText     string `json:"supply_text"`
	MintedPriceUSD string `json:"minted_price_usd"`

	// Mint economics, only set for mintable tokens.
	Info           *minting.MintingInfo         `json:"minting_info,omitempty"`
	ParentPriceUSD string                       `json:"parent_price_usd,omitempty"`
	Profitability  *minting.ProfitabilityResult `json:"profitability,omitempty"`
	Grade          minting.Grade                `json:"grade,omitempty"`
	UnitCostUSD    float64                      `json:"unit_cost_usd,omitempty"`
	GasMargin      *float64                     `json:"gas_adjusted_margin,omitempty"`

	// Stale is set when the last refresh failed and older values are shown.
	Stale     bool      `json:"stale"`
	LastError string    `json:"last_error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
	// FreshAt is the time of the last refresh where every read succeeded.
	FreshAt time.Time `json:"fresh_at"`
}

// Mintable reports whether the snapshot carries mint economics.
func (s Snapshot) Mintable() bool {
	return s.Info != nil
}

// Status returns the profitability status or unknown.
func (s Snapshot) Status() minting.Status {
	if s.Profitability == nil {
		return minting.StatusUnknown
	}
	return s.Profitability.Status
}

// Record converts the snapshot into its persisted form.
func (s Snapshot) Record() *models.Snapshot {
	rec := &models.Snapshot{
		Symbol:         s.Token.Symbol,
		TotalSupply:    s.TotalSupply,
		MintedPriceUSD: s.MintedPriceUSD,
		ParentPriceUSD: s.ParentPriceUSD,
		Status:         string(s.Status()),
		CreatedAt:      s.UpdatedAt,
	}
	if s.Info != nil {
		rec.CurrentCost = s.Info.CurrentCost
		rec.Remaining = s.Info.RemainingAtCurrentCost
		rec.NextStep = s.Info.NextMintingStep
	}
	if s.Profitability != nil {
		rec.ProfitMargin = s.Profitability.ProfitMargin
	}
	return rec
}
