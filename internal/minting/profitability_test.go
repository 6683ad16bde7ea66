package minting

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckMintingProfitabilityProfit(t *testing.T) {
	got := CheckMintingProfitability(2, "10", "1")

	assert.True(t, got.IsProfitable)
	assert.Equal(t, StatusProfit, got.Status)
	assert.InDelta(t, 400.0, got.ProfitMargin, 1e-9)
}

func TestCheckMintingProfitabilityLoss(t *testing.T) {
	got := CheckMintingProfitability(10, "5", "1")

	assert.False(t, got.IsProfitable)
	assert.Equal(t, StatusLoss, got.Status)
	assert.InDelta(t, -50.0, got.ProfitMargin, 1e-9)
}

func TestCheckMintingProfitabilityUnknown(t *testing.T) {
	cases := []struct {
		name   string
		minted string
		parent string
	}{
		{"missing minted price", "", "1"},
		{"missing parent price", "5", ""},
		{"non numeric", "abc", "1"},
		{"zero parent price", "5", "0"},
		{"negative minted price", "-1", "1"},
		{"nan", "NaN", "1"},
		{"infinity", "5", "Inf"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CheckMintingProfitability(5, tc.minted, tc.parent)
			assert.Equal(t, StatusUnknown, got.Status)
			assert.Zero(t, got.ProfitMargin)
			assert.False(t, got.IsProfitable)
		})
	}
}

func TestCheckMintingProfitabilityBand(t *testing.T) {
	cases := []struct {
		minted string
		want   Status
	}{
		{"2.039", StatusBreakeven},
		{"1.961", StatusBreakeven},
		{"2", StatusBreakeven},
		{"2.0401", StatusProfit},
		{"1.9599", StatusLoss},
	}

	for _, tc := range cases {
		got := CheckMintingProfitability(2, tc.minted, "1")
		assert.Equal(t, tc.want, got.Status, "minted price %s margin %.6f", tc.minted, got.ProfitMargin)
		assert.Equal(t, tc.want == StatusProfit, got.IsProfitable)
	}
}

func TestClassifyBandEdges(t *testing.T) {
	e := NewEvaluator(DefaultBreakevenBand)
	assert.Equal(t, StatusBreakeven, e.Classify(2).Status)
	assert.Equal(t, StatusBreakeven, e.Classify(-2).Status)
	assert.Equal(t, StatusProfit, e.Classify(2.0001).Status)
	assert.Equal(t, StatusLoss, e.Classify(-2.0001).Status)
}

func TestEvaluatorCustomBand(t *testing.T) {
	e := NewEvaluator(3)
	assert.Equal(t, StatusBreakeven, e.Classify(2.5).Status)
	assert.Equal(t, StatusProfit, e.Classify(3.01).Status)
	assert.Equal(t, StatusLoss, e.Classify(-3.01).Status)

	assert.Equal(t, DefaultBreakevenBand, NewEvaluator(0).BreakevenBand)
	assert.Equal(t, DefaultBreakevenBand, NewEvaluator(-1).BreakevenBand)
}

func TestCheckMintingProfitabilityIdempotent(t *testing.T) {
	a := CheckMintingProfitability(3, "0.4156", "0.0639")
	b := CheckMintingProfitability(3, "0.4156", "0.0639")
	assert.Equal(t, a, b)
}

func TestProfitabilityGrade(t *testing.T) {
	assert.Equal(t, GradeStrongProfit, CheckMintingProfitability(2, "10", "1").Grade())
	assert.Equal(t, GradeProfit, CheckMintingProfitability(2, "2.2", "1").Grade())
	assert.Equal(t, GradeBreakeven, CheckMintingProfitability(2, "2", "1").Grade())
	assert.Equal(t, GradeLoss, CheckMintingProfitability(2, "1.8", "1").Grade())
	assert.Equal(t, GradeHeavyLoss, CheckMintingProfitability(10, "5", "1").Grade())
	assert.Equal(t, GradeUnknown, CheckMintingProfitability(2, "", "1").Grade())
}

func TestGasAdjustedMargin(t *testing.T) {
	margin, ok := GasAdjustedMargin(1.5, "4", 0.5)
	assert.True(t, ok)
	assert.InDelta(t, 100.0, margin, 1e-9)

	_, ok = GasAdjustedMargin(1.5, "", 0.5)
	assert.False(t, ok)
}

func TestParsePriceUSD(t *testing.T) {
	v, ok := ParsePriceUSD("0.41562381826259304")
	assert.True(t, ok)
	assert.InDelta(t, 0.41562381826259304, v, 1e-15)

	for _, raw := range []string{"", "  ", "0", "-0.1", "x1", "1,5"} {
		_, ok := ParsePriceUSD(raw)
		assert.False(t, ok, raw)
	}
}
