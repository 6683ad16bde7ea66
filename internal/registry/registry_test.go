package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rovshanmuradov/pubprinter/internal/minting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDefaultRegistry(t *testing.T) {
	r := Default()

	eoe, err := r.BySymbol("eoe")
	require.NoError(t, err)
	assert.Equal(t, "EOE", eoe.Symbol)
	assert.True(t, eoe.Mintable())

	sched, err := eoe.MintSchedule()
	require.NoError(t, err)
	assert.Equal(t, int64(1111), sched.StepSize)
	assert.Equal(t, int64(1111), sched.InitialSupply)
	assert.Equal(t, minting.DefaultBaseCost, sched.BaseCost)
	assert.Equal(t, "EOE", sched.Label)

	parent, err := r.ParentOf("BTB")
	require.NoError(t, err)
	assert.Equal(t, "B2B", parent.Symbol)

	byAddr, err := r.ByAddress("0xA7B295C715713487877427589A93F93BC608D240")
	require.NoError(t, err)
	assert.Equal(t, "EOE", byAddr.Symbol)

	assert.Len(t, r.Mintable(), 2)
	children := r.Children("a1a")
	require.Len(t, children, 1)
	assert.Equal(t, "EOE", children[0].Symbol)
}

func TestRegistryLookupErrors(t *testing.T) {
	r := Default()

	_, err := r.BySymbol("PLS")
	assert.True(t, errors.Is(err, ErrTokenNotFound))

	_, err = r.ParentOf("A1A")
	assert.True(t, errors.Is(err, ErrTokenNotFound))

	a1a, err := r.BySymbol("A1A")
	require.NoError(t, err)
	_, err = a1a.MintSchedule()
	assert.True(t, errors.Is(err, ErrNotMintable))
}

func TestNewRejectsInvalidTokens(t *testing.T) {
	bad := minting.Schedule{StepSize: 0, InitialSupply: 10}
	cases := map[string][]Token{
		"missing symbol":   {{Address: "0x1"}},
		"duplicate symbol": {{Symbol: "A"}, {Symbol: "a"}},
		"unknown parent":   {{Symbol: "A", Parent: "B"}},
		"self parent":      {{Symbol: "A", Parent: "A"}},
		"bad schedule":     {{Symbol: "A", Schedule: &bad}},
		"duplicate address": {
			{Symbol: "A", Address: "0xabc"},
			{Symbol: "B", Address: "0xABC"},
		},
	}

	for name, tokens := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(tokens)
			assert.Error(t, err)
		})
	}
}

func TestNewDoesNotMutateInput(t *testing.T) {
	sched := minting.Schedule{StepSize: 5}
	tokens := []Token{{Symbol: "P"}, {Symbol: "C", Parent: "P", Schedule: &sched}}

	r, err := New(tokens)
	require.NoError(t, err)
	assert.Zero(t, sched.BaseCost)

	c, err := r.BySymbol("C")
	require.NoError(t, err)
	assert.Equal(t, minting.DefaultBaseCost, c.Schedule.BaseCost)
	assert.Equal(t, uint8(18), c.Decimals)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.yaml")
	content := `tokens:
  - symbol: par
    name: Parent
    address: "0x0000000000000000000000000000000000000001"
    decimals: 8
  - symbol: kid
    name: Child
    address: "0x0000000000000000000000000000000000000002"
    parent: par
    schedule:
      step_size: 100
      initial_supply: 50
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	r, err := Load(path, zap.NewNop())
	require.NoError(t, err)

	kid, err := r.BySymbol("KID")
	require.NoError(t, err)
	assert.Equal(t, "PAR", kid.Parent)
	require.NotNil(t, kid.Schedule)
	assert.Equal(t, int64(100), kid.Schedule.StepSize)
	assert.Equal(t, int64(50), kid.Schedule.InitialSupply)
	assert.Equal(t, minting.DefaultBaseCost, kid.Schedule.BaseCost)

	par, err := r.BySymbol("par")
	require.NoError(t, err)
	assert.Equal(t, uint8(8), par.Decimals)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), zap.NewNop())
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("tokens: []\n"), 0o644))
	_, err = Load(empty, zap.NewNop())
	assert.Error(t, err)

	r, err := Load("", zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, r.All(), 4)
}
