package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rovshanmuradov/pubprinter/internal/export"
	"github.com/rovshanmuradov/pubprinter/internal/minting"
	"github.com/rovshanmuradov/pubprinter/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`{
		"log_file": %q,
		"database_path": %q,
		"export_dir": %q
	}`, filepath.Join(dir, "test.log"), filepath.Join(dir, "history.db"), filepath.Join(dir, "exports"))
	cfgPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCostCommand(t *testing.T) {
	out, err := execute(t, "cost", "eoe", "--supply", "2221", "--json")
	require.NoError(t, err)

	var got costOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "EOE", got.Symbol)
	assert.Equal(t, "A1A", got.Parent)
	assert.Equal(t, int64(2), got.Info.CurrentCost)
	assert.Equal(t, int64(1), got.Info.RemainingAtCurrentCost)
	assert.Equal(t, int64(2222), got.Info.NextMintingStep)
	assert.Equal(t, "EOE", got.Info.Debug.TokenType)
}

func TestCostCommandText(t *testing.T) {
	out, err := execute(t, "cost", "BTB", "--supply", "840")
	require.NoError(t, err)
	assert.Contains(t, out, "current cost:    3 B2B")
	assert.Contains(t, out, "next step at:    1260")
}

func TestCostCommandRejectsRootToken(t *testing.T) {
	_, err := execute(t, "cost", "A1A", "--supply", "10")
	assert.ErrorIs(t, err, registry.ErrNotMintable)

	_, err = execute(t, "cost", "XYZ", "--supply", "10")
	assert.ErrorIs(t, err, registry.ErrTokenNotFound)

	_, err = execute(t, "cost", "EOE", "--supply", "lots")
	assert.Error(t, err)
}

func TestBatchCommand(t *testing.T) {
	out, err := execute(t, "batch", "EOE", "3", "--supply", "2221", "--json")
	require.NoError(t, err)

	var got batchOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, int64(8), got.Breakdown.TotalCost)
	assert.Equal(t, []minting.CostTier{{Count: 1, Cost: 2}, {Count: 2, Cost: 3}}, got.Breakdown.Breakdown)
	assert.True(t, got.CrossesStep)

	out, err = execute(t, "batch", "EOE", "3", "--supply", "2221")
	require.NoError(t, err)
	assert.Contains(t, out, "3 EOE = 8 A1A")
	assert.Contains(t, out, "crosses a cost step")
}

func TestBatchCommandInvalidAmount(t *testing.T) {
	for _, amount := range []string{"0", "-2", "1.5", "ten"} {
		_, err := execute(t, "batch", "EOE", amount, "--supply", "2221")
		assert.Error(t, err, amount)
	}

	for _, amount := range []string{"10000001", "100000000000"} {
		_, err := execute(t, "batch", "EOE", amount, "--supply", "2221")
		assert.ErrorIs(t, err, minting.ErrInvalidAmount, amount)
	}
}

func TestProfitCommand(t *testing.T) {
	out, err := execute(t, "profit", "--cost", "2", "--minted", "0.01", "--parent", "0.001", "--json")
	require.NoError(t, err)

	var got profitOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, minting.StatusProfit, got.Result.Status)
	assert.InDelta(t, 400, got.Result.ProfitMargin, 1e-9)
	assert.Equal(t, minting.GradeStrongProfit, got.Grade)

	out, err = execute(t, "profit", "--cost", "3", "--minted", "0.00305", "--parent", "0.001", "--band", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "status: breakeven")

	out, err = execute(t, "profit", "--cost", "2", "--parent", "0.001")
	require.NoError(t, err)
	assert.Contains(t, out, "status: unknown")
}

func TestProfitCommandNeedsInput(t *testing.T) {
	_, err := execute(t, "profit")
	assert.Error(t, err)
}

func TestPreflightCommandWithoutWallet(t *testing.T) {
	out, err := execute(t, "preflight", "EOE", "3.5", "--supply", "2221", "--json")
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "9.5", got["required_parent"])
	assert.Equal(t, "A1A", got["parent"])
	assert.Equal(t, true, got["crosses_step"])
	assert.NotContains(t, got, "balance")

	_, err = execute(t, "preflight", "EOE", "1.2.3", "--supply", "2221")
	assert.Error(t, err)

	_, err = execute(t, "preflight", "EOE", "18446744073709551616", "--supply", "2221")
	assert.ErrorIs(t, err, minting.ErrInvalidAmount)
}

func TestExportCommandEmptyHistory(t *testing.T) {
	_, err := execute(t, "export", "--format", "json")
	assert.ErrorIs(t, err, export.ErrNothingToExport)

	_, err = execute(t, "export", "--format", "xml")
	assert.Error(t, err)

	_, err = execute(t, "export", "--since", "yesterday")
	assert.Error(t, err)
}
