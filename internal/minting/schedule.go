// internal/minting/schedule.go
package minting

// DefaultBaseCost is the unit cost, in parent tokens, of every mint inside the base zone.
const DefaultBaseCost int64 = 2

// Schedule describes the step pricing of a single token family.
// The pricer never looks at symbols or addresses, only at these three numbers.
type Schedule struct {
	StepSize      int64 `yaml:"step_size" json:"step_size"`
	InitialSupply int64 `yaml:"initial_supply" json:"initial_supply"`
	BaseCost      int64 `yaml:"base_cost" json:"base_cost"`

	// Label is carried into MintingInfo.Debug.TokenType for diagnostics only.
	Label string `yaml:"-" json:"label,omitempty"`
}

// NewSchedule returns a schedule with the default base cost.
func NewSchedule(stepSize, initialSupply int64) Schedule {
	return Schedule{
		StepSize:      stepSize,
		InitialSupply: initialSupply,
		BaseCost:      DefaultBaseCost,
	}
}

// WithLabel returns a copy of the schedule tagged with a diagnostic label.
func (s Schedule) WithLabel(label string) Schedule {
	s.Label = label
	return s
}

// normalized fills in defaults so that the arithmetic below stays total.
func (s Schedule) normalized() Schedule {
	if s.StepSize <= 0 {
		s.StepSize = 1
	}
	if s.InitialSupply < 0 {
		s.InitialSupply = 0
	}
	if s.BaseCost <= 0 {
		s.BaseCost = DefaultBaseCost
	}
	return s
}

// Valid reports whether the schedule satisfies the caller contract
// (positive step, non-negative floor, positive base cost).
func (s Schedule) Valid() bool {
	return s.StepSize > 0 && s.InitialSupply >= 0 && s.BaseCost > 0
}

// CostAt returns the unit cost of minting at integer supply position n.
// Cost is constant on [init + k*step, init + (k+1)*step) and equals base + k.
func (s Schedule) CostAt(n int64) int64 {
	s = s.normalized()
	if n < s.InitialSupply {
		return s.BaseCost
	}
	return s.BaseCost + (n-s.InitialSupply)/s.StepSize
}

// tierEnd returns the first supply position at which the cost rises above CostAt(n).
func (s Schedule) tierEnd(n int64) int64 {
	s = s.normalized()
	if n < s.InitialSupply {
		return s.InitialSupply
	}
	step := (n - s.InitialSupply) / s.StepSize
	return s.InitialSupply + (step+1)*s.StepSize
}
