package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rovshanmuradov/pubprinter/internal/chain"
	"github.com/rovshanmuradov/pubprinter/internal/config"
	"github.com/rovshanmuradov/pubprinter/internal/events"
	"github.com/rovshanmuradov/pubprinter/internal/logger"
	"github.com/rovshanmuradov/pubprinter/internal/metrics"
	"github.com/rovshanmuradov/pubprinter/internal/minting"
	"github.com/rovshanmuradov/pubprinter/internal/monitor"
	"github.com/rovshanmuradov/pubprinter/internal/price"
	"github.com/rovshanmuradov/pubprinter/internal/registry"
	"github.com/rovshanmuradov/pubprinter/internal/storage"
	"github.com/rovshanmuradov/pubprinter/internal/storage/sqlite"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// quietAnnotation keeps console logging off, for commands that own stdout.
const quietAnnotation = "quiet"

type app struct {
	configPath string
	tokensPath string
	debug      bool

	cfg      *config.Config
	logger   *zap.Logger
	logs     *logger.LogBuffer
	registry *registry.Registry
}

// setup loads configuration, logging and the token registry for cmd.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.debug {
		cfg.DebugLogging = true
	}
	if a.tokensPath != "" {
		cfg.TokensFile = a.tokensPath
	}
	a.cfg = cfg

	logs, err := logger.NewLogBuffer(500, "")
	if err != nil {
		return err
	}
	a.logs = logs

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Debug = cfg.DebugLogging
	if _, quiet := cmd.Annotations[quietAnnotation]; quiet {
		logCfg.Console = false
	}
	a.logger, err = logger.New(logCfg, logs)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	a.registry, err = registry.Load(cfg.TokensFile, a.logger)
	if err != nil {
		return err
	}
	return nil
}

func (a *app) teardown() {
	if a.logger != nil {
		_ = logger.Sync(a.logger)
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
}

func (a *app) dial(ctx context.Context) (*chain.Reader, *ethclient.Client, error) {
	opts := chain.Options{
		Retries:    a.cfg.RPCRetries,
		RetryDelay: a.cfg.RPCRetryDelayDuration(),
		Timeout:    a.cfg.RPCTimeoutDuration(),
	}
	return chain.Dial(ctx, a.cfg.RPCURL, a.cfg.ChainID, opts, a.logger)
}

func (a *app) evaluator() minting.Evaluator {
	return minting.NewEvaluator(a.cfg.BreakevenBand)
}

// runtime holds the long lived collaborators of serve and dashboard.
type runtime struct {
	reader  *chain.Reader
	client  *ethclient.Client
	prices  *price.DexScreener
	store   storage.Storage
	bus     *events.Bus
	metrics *metrics.Collector
	history *monitor.History
	monitor *monitor.Service
	logger  *zap.Logger
}

func (a *app) buildRuntime(ctx context.Context) (*runtime, error) {
	rt := &runtime{logger: a.logger}

	reader, client, err := a.dial(ctx)
	if err != nil {
		return nil, err
	}
	rt.reader, rt.client = reader, client

	var resolver *price.Resolver
	resolver, rt.prices = a.priceResolver()

	rt.store, err = sqlite.NewStorage(a.cfg.DatabasePath, a.logger)
	if err != nil {
		rt.close(context.Background())
		return nil, err
	}

	rt.bus = events.NewBus(a.logger, 256)

	journal := ""
	if a.cfg.ExportDir != "" {
		journal = filepath.Join(a.cfg.ExportDir, "alerts.csv")
	}
	rt.history, err = monitor.NewHistory(0, journal, a.logger)
	if err != nil {
		rt.close(context.Background())
		return nil, err
	}

	alertCfg := monitor.DefaultAlertConfig()
	alertCfg.StepApproachingUnits = a.cfg.StepAlertUnits
	alertCfg.StaleAfter = 10 * a.cfg.PollEvery()

	svcCfg := monitor.ServiceConfig{
		Registry:   a.registry,
		Supply:     reader,
		Prices:     resolver,
		Evaluator:  a.evaluator(),
		GasCostUSD: a.cfg.GasCostUSD,
		Interval:   a.cfg.PollEvery(),
		Retention:  a.cfg.Retention(),
		Recorder:   rt.store,
		Publisher:  rt.bus,
		Alerts:     monitor.NewAlertManager(alertCfg, a.logger),
		History:    rt.history,
		Logger:     a.logger,
	}
	if a.cfg.MetricsEnabled {
		rt.metrics = metrics.NewCollector(true)
		svcCfg.Observer = rt.metrics
	}

	rt.monitor, err = monitor.NewService(svcCfg)
	if err != nil {
		rt.close(context.Background())
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) close(ctx context.Context) {
	var errs []error
	if rt.bus != nil {
		errs = append(errs, rt.bus.Shutdown(ctx))
	}
	if rt.history != nil {
		errs = append(errs, rt.history.Close())
	}
	if rt.store != nil {
		errs = append(errs, rt.store.Close())
	}
	if rt.prices != nil {
		rt.prices.Close()
	}
	if rt.client != nil {
		rt.client.Close()
	}
	if err := errors.Join(errs...); err != nil {
		rt.logger.Warn("Shutdown finished with errors", zap.Error(err))
	}
}

func shutdownContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}
