package main

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rovshanmuradov/pubprinter/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newDashboardCmd(a *app) *cobra.Command {
	var light bool

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Open the terminal dashboard",
		Long: `dashboard runs the token monitor in the background and shows every
token's supply, mint cost, remaining units at that cost, prices and
profitability in a table. Press b for the batch cost calculator, t to switch
between the dark and light palettes, l to toggle the log pane.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{quietAnnotation: ""},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDashboard(cmd.Context(), a, light)
		},
	}

	cmd.Flags().BoolVar(&light, "light", false, "start with the light palette")
	return cmd
}

func runDashboard(parent context.Context, a *app, light bool) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	rt, err := a.buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := shutdownContext()
		defer cancel()
		rt.close(shutdownCtx)
	}()

	bridge := ui.NewBridge(rt.bus, 250*time.Millisecond, a.logger)
	defer bridge.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return rt.monitor.Run(gctx)
	})
	g.Go(func() error {
		bridge.Run(gctx)
		return nil
	})

	recovery := ui.NewRecoveryHandler(a.logger, func() (tea.Model, []tea.ProgramOption) {
		dash := ui.NewDashboard(ui.Options{
			Source:   rt.monitor,
			Logs:     a.logs,
			Messages: bridge.Messages(),
			Light:    light,
			Logger:   a.logger,
		})
		return dash, []tea.ProgramOption{tea.WithAltScreen()}
	})

	uiErr := recovery.RunWithRecovery(gctx)
	if uiErr != nil {
		a.logger.Error("Dashboard stopped", zap.Error(uiErr))
	}
	cancel()

	if err := g.Wait(); err != nil {
		return err
	}
	return uiErr
}
