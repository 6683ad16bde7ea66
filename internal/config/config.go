// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	RPCURL           string  `mapstructure:"rpc_url"`
	ChainID          int64   `mapstructure:"chain_id"`
	TokensFile       string  `mapstructure:"tokens_file"`
	PollInterval     int     `mapstructure:"poll_interval_ms"`
	RPCTimeout       int     `mapstructure:"rpc_timeout_ms"`
	RPCRetries       int     `mapstructure:"rpc_retries"`
	RPCRetryDelay    int     `mapstructure:"rpc_retry_delay_ms"`
	PriceRetries     int     `mapstructure:"price_retries"`
	PriceRetryDelay  int     `mapstructure:"price_retry_delay_ms"`
	DexScreenerURL   string  `mapstructure:"dexscreener_url"`
	SubgraphURL      string  `mapstructure:"subgraph_url"`
	ListenAddr       string  `mapstructure:"listen_addr"`
	DatabasePath     string  `mapstructure:"database_path"`
	BreakevenBand    float64 `mapstructure:"breakeven_band"`
	GasCostUSD       float64 `mapstructure:"gas_cost_usd"`
	StepAlertUnits   int64   `mapstructure:"step_alert_units"`
	WalletAddress    string  `mapstructure:"wallet_address"`
	DebugLogging     bool    `mapstructure:"debug_logging"`
	LogFile          string  `mapstructure:"log_file"`
	MetricsEnabled   bool    `mapstructure:"metrics_enabled"`
	ExportDir        string  `mapstructure:"export_dir"`
	HistoryRetention int     `mapstructure:"history_retention_hours"`
}

const (
	DefaultRPCURL          = "https://rpc.pulsechain.com"
	DefaultChainID         = 369
	DefaultPollInterval    = 30000
	DefaultRPCTimeout      = 10000
	DefaultRPCRetries      = 3
	DefaultRPCRetryDelay   = 500
	DefaultPriceRetries    = 3
	DefaultPriceRetryDelay = 1000
	DefaultDexScreenerURL  = "https://api.dexscreener.com/latest/dex"
	DefaultSubgraphURL     = "https://graph.pulsechain.com/subgraphs/name/pulsechain/pulsex"
	DefaultListenAddr      = ":8080"
	DefaultDatabasePath    = "data/history.db"
	DefaultBreakevenBand   = 2.0
	DefaultGasCostUSD      = 0.5
	DefaultStepAlertUnits  = 50
	DefaultLogFile         = "logs/pubprinter.log"
	DefaultExportDir       = "exports"
	DefaultRetentionHours  = 24 * 7
)

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"rpc_url":                 DefaultRPCURL,
		"chain_id":                DefaultChainID,
		"poll_interval_ms":        DefaultPollInterval,
		"rpc_timeout_ms":          DefaultRPCTimeout,
		"rpc_retries":             DefaultRPCRetries,
		"rpc_retry_delay_ms":      DefaultRPCRetryDelay,
		"price_retries":           DefaultPriceRetries,
		"price_retry_delay_ms":    DefaultPriceRetryDelay,
		"dexscreener_url":         DefaultDexScreenerURL,
		"subgraph_url":            DefaultSubgraphURL,
		"listen_addr":             DefaultListenAddr,
		"database_path":           DefaultDatabasePath,
		"breakeven_band":          DefaultBreakevenBand,
		"gas_cost_usd":            DefaultGasCostUSD,
		"step_alert_units":        DefaultStepAlertUnits,
		"log_file":                DefaultLogFile,
		"metrics_enabled":         true,
		"export_dir":              DefaultExportDir,
		"history_retention_hours": DefaultRetentionHours,
		"tokens_file":             "",
		"wallet_address":          "",
		"debug_logging":           false,
	}
}

// LoadConfig reads a JSON config file. An empty path yields defaults plus
// PUBPRINTER_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	loadEnvironmentVariables(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg, err := LoadConfig("")
	if err != nil {
		cfg = &Config{}
	}
	return cfg
}

func (c *Config) PollEvery() time.Duration {
	return time.Duration(c.PollInterval) * time.Millisecond
}

func (c *Config) RPCTimeoutDuration() time.Duration {
	return time.Duration(c.RPCTimeout) * time.Millisecond
}

func (c *Config) RPCRetryDelayDuration() time.Duration {
	return time.Duration(c.RPCRetryDelay) * time.Millisecond
}

func (c *Config) PriceRetryDelayDuration() time.Duration {
	return time.Duration(c.PriceRetryDelay) * time.Millisecond
}

func (c *Config) Retention() time.Duration {
	return time.Duration(c.HistoryRetention) * time.Hour
}

func validateConfig(cfg *Config) error {
	if cfg.RPCURL == "" {
		return errors.New("rpc_url is empty")
	}
	if err := validateURLWithCache(cfg.RPCURL, "http"); err != nil {
		if err := validateURLWithCache(cfg.RPCURL, "ws"); err != nil {
			return errors.New("invalid RPC URL protocol")
		}
	}
	if err := validateURLWithCache(cfg.DexScreenerURL, "http"); err != nil {
		return errors.New("invalid dexscreener_url")
	}
	if cfg.SubgraphURL != "" {
		if err := validateURLWithCache(cfg.SubgraphURL, "http"); err != nil {
			return errors.New("invalid subgraph_url")
		}
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.ChainID <= 0 {
		return errors.New("invalid chain_id")
	}
	if cfg.PollInterval <= 0 {
		return errors.New("invalid poll_interval_ms")
	}
	if cfg.RPCTimeout <= 0 {
		return errors.New("invalid rpc_timeout_ms")
	}
	if cfg.RPCRetries < 0 {
		return errors.New("invalid rpc_retries")
	}
	if cfg.RPCRetryDelay < 0 {
		return errors.New("invalid rpc_retry_delay_ms")
	}
	if cfg.PriceRetries < 0 {
		return errors.New("invalid price_retries")
	}
	if cfg.PriceRetryDelay < 0 {
		return errors.New("invalid price_retry_delay_ms")
	}
	if cfg.BreakevenBand <= 0 {
		return errors.New("breakeven_band must be positive")
	}
	if cfg.GasCostUSD < 0 {
		return errors.New("invalid gas_cost_usd")
	}
	if cfg.WalletAddress != "" && !walletPattern.MatchString(cfg.WalletAddress) {
		return errors.New("invalid wallet_address")
	}
	if cfg.StepAlertUnits < 0 {
		return errors.New("invalid step_alert_units")
	}
	if cfg.HistoryRetention < 0 {
		return errors.New("invalid history_retention_hours")
	}
	return nil
}

var walletPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(protocol + "|" + rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) || parsed.Host == "" {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(protocol+"|"+rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper) {
	v.SetEnvPrefix("PUBPRINTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}
