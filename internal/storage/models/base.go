// internal/storage/models/base.go
package models

import "time"

// Snapshot is one persisted observation of a token's mint economics.
type Snapshot struct {
	ID             int64     `json:"id"`
	Symbol         string    `json:"symbol"`
	TotalSupply    float64   `json:"total_supply"`
	CurrentCost    int64     `json:"current_cost"`
	Remaining      int64     `json:"remaining_at_current_cost"`
	NextStep       int64     `json:"next_minting_step"`
	MintedPriceUSD string    `json:"minted_price_usd"`
	ParentPriceUSD string    `json:"parent_price_usd"`
	ProfitMargin   float64   `json:"profit_margin"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// Alert is a persisted alert raised by the monitor.
type Alert struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Kind      string    `json:"kind"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	Margin    float64   `json:"margin,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SnapshotFilter narrows ListSnapshots. Zero values mean no bound.
type SnapshotFilter struct {
	Symbol string
	Since  time.Time
	Until  time.Time
	Limit  int
}
