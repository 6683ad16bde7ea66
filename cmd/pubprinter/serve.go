package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rovshanmuradov/pubprinter/internal/api"
	"github.com/rovshanmuradov/pubprinter/internal/preflight"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(a *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Poll the chain and serve the JSON API",
		Long: `serve starts the token monitor and the HTTP API. The monitor refreshes
supplies and prices every poll_interval_ms and records history into the
sqlite database; the API exposes tokens, mint costs, profitability, history,
alerts, mint preflight checks and Prometheus metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen != "" {
				a.cfg.ListenAddr = listen
			}
			return runServe(cmd.Context(), a)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address, overrides listen_addr")
	return cmd
}

func runServe(ctx context.Context, a *app) error {
	rt, err := a.buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := shutdownContext()
		defer cancel()
		rt.close(shutdownCtx)
	}()

	server := api.NewServer(rt.monitor, a.logger)
	server.SetStorage(rt.store)
	server.SetPreflight(preflight.NewChecker(a.registry, rt.reader, a.logger))
	if rt.metrics != nil {
		server.EnableMetrics(rt.metrics)
	}

	httpServer := &http.Server{
		Addr:              a.cfg.ListenAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return rt.monitor.Run(gctx)
	})
	g.Go(func() error {
		a.logger.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := shutdownContext()
		defer cancel()
		a.logger.Info("Shutting down HTTP server")
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
