package registry

import "github.com/rovshanmuradov/pubprinter/internal/minting"

// PulseChain token family shipped with the dashboard.
const (
	AddressA1A = "0x697fc467720b2a8e1b2f7f665d0e3f28793e65e8"
	AddressB2B = "0x6d2dc71afa00484c48bff8160dbddb7973c37a5e"
	AddressEOE = "0xa7b295c715713487877427589a93f93bc608d240"
	AddressBTB = "0x1df3da06c8047da659c8a5213ac2e7ded8dee7e3"
)

// DefaultTokens returns the built-in token family.
func DefaultTokens() []Token {
	eoe := minting.NewSchedule(1111, 1111)
	btb := minting.NewSchedule(420, 420)
	return []Token{
		{Symbol: "A1A", Name: "A1A", Address: AddressA1A, Decimals: 18},
		{Symbol: "B2B", Name: "B2B", Address: AddressB2B, Decimals: 18},
		{Symbol: "EOE", Name: "EhOneEh", Address: AddressEOE, Decimals: 18, Parent: "A1A", Schedule: &eoe},
		{Symbol: "BTB", Name: "BeeTwoBee", Address: AddressBTB, Decimals: 18, Parent: "B2B", Schedule: &btb},
	}
}

// Default returns the built-in registry.
func Default() *Registry {
	r, err := New(DefaultTokens())
	if err != nil {
		panic(err)
	}
	return r
}
