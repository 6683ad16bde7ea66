package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, DefaultRPCURL, cfg.RPCURL)
	assert.Equal(t, int64(DefaultChainID), cfg.ChainID)
	assert.Equal(t, 30*time.Second, cfg.PollEvery())
	assert.Equal(t, DefaultPriceRetries, cfg.PriceRetries)
	assert.Equal(t, time.Second, cfg.PriceRetryDelayDuration())
	assert.Equal(t, DefaultRPCRetries, cfg.RPCRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.RPCRetryDelayDuration())
	assert.Equal(t, DefaultBreakevenBand, cfg.BreakevenBand)
	assert.Equal(t, DefaultGasCostUSD, cfg.GasCostUSD)
	assert.True(t, cfg.MetricsEnabled)
	assert.Equal(t, 168*time.Hour, cfg.Retention())
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `{
		"rpc_url": "https://rpc.example.org",
		"poll_interval_ms": 5000,
		"breakeven_band": 3,
		"wallet_address": "0x697fc467720b2a8e1b2f7f665d0e3f28793e65e8",
		"debug_logging": true,
		"rpc_retries": 7,
		"price_retries": 1
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://rpc.example.org", cfg.RPCURL)
	assert.Equal(t, 5*time.Second, cfg.PollEvery())
	assert.Equal(t, 3.0, cfg.BreakevenBand)
	assert.True(t, cfg.DebugLogging)
	assert.Equal(t, DefaultDexScreenerURL, cfg.DexScreenerURL)
	assert.Equal(t, 7, cfg.RPCRetries)
	assert.Equal(t, 1, cfg.PriceRetries)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("PUBPRINTER_LISTEN_ADDR", ":9999")
	t.Setenv("PUBPRINTER_BREAKEVEN_BAND", "5")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, 5.0, cfg.BreakevenBand)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad rpc scheme", `{"rpc_url": "ftp://rpc.example.org"}`, "invalid RPC URL protocol"},
		{"bad dexscreener", `{"dexscreener_url": "not a url"}`, "invalid dexscreener_url"},
		{"zero poll", `{"poll_interval_ms": 0}`, "invalid poll_interval_ms"},
		{"zero band", `{"breakeven_band": 0}`, "breakeven_band must be positive"},
		{"negative gas", `{"gas_cost_usd": -1}`, "invalid gas_cost_usd"},
		{"negative rpc retries", `{"rpc_retries": -1}`, "invalid rpc_retries"},
		{"bad wallet", `{"wallet_address": "0x1234"}`, "invalid wallet_address"},
		{"zero chain", `{"chain_id": 0}`, "invalid chain_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestWebsocketRPCAccepted(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `{"rpc_url": "wss://ws.pulsechain.com"}`))
	require.NoError(t, err)
	assert.Equal(t, "wss://ws.pulsechain.com", cfg.RPCURL)
}
