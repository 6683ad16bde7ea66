package main

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/rovshanmuradov/pubprinter/internal/export"
	"github.com/rovshanmuradov/pubprinter/internal/storage/models"
	"github.com/rovshanmuradov/pubprinter/internal/storage/sqlite"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		format     string
		symbol     string
		since      string
		until      string
		day        string
		outputDir  string
		profitable bool
		summary    bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export recorded snapshot history",
		Long: `export writes the snapshot history recorded by serve or dashboard to a
CSV or JSON file and prints a per-token summary. --day writes a JSON report
with an hourly breakdown of one day instead.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{quietAnnotation: ""},
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmtOpt, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			filter := models.SnapshotFilter{Symbol: symbol}
			if filter.Since, err = parseTimeFlag("since", since); err != nil {
				return err
			}
			if filter.Until, err = parseTimeFlag("until", until); err != nil {
				return err
			}
			if outputDir == "" {
				outputDir = a.cfg.ExportDir
			}

			store, err := sqlite.NewStorage(a.cfg.DatabasePath, a.logger)
			if err != nil {
				return err
			}
			defer store.Close()

			snaps, err := store.ListSnapshots(cmd.Context(), filter)
			if err != nil {
				return err
			}
			slices.SortStableFunc(snaps, func(x, y models.Snapshot) int {
				return x.CreatedAt.Compare(y.CreatedAt)
			})
			a.logger.Debug("Snapshots loaded", zap.Int("count", len(snaps)))

			exporter := export.NewSnapshotExporter(a.logger)
			w := cmd.OutOrStdout()

			if day != "" {
				date, err := time.ParseInLocation(time.DateOnly, day, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --day %q: %w", day, err)
				}
				path, err := exporter.ExportDailyReport(snaps, date, outputDir)
				if err != nil {
					return err
				}
				if path == "" {
					fmt.Fprintf(w, "no snapshots recorded on %s\n", day)
					return nil
				}
				fmt.Fprintf(w, "daily report written to %s\n", path)
				return nil
			}

			path, err := exporter.ExportSnapshots(snaps, export.ExportOptions{
				Format:         fmtOpt,
				StartTime:      filter.Since,
				EndTime:        filter.Until,
				Symbol:         symbol,
				OnlyProfitable: profitable,
				OutputDir:      outputDir,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "exported to %s\n", path)

			if summary {
				printSummary(w, export.Summarize(snaps))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "csv", "output format: csv or json")
	cmd.Flags().StringVar(&symbol, "symbol", "", "only export this token")
	cmd.Flags().StringVar(&since, "since", "", "start time (RFC3339)")
	cmd.Flags().StringVar(&until, "until", "", "end time (RFC3339)")
	cmd.Flags().StringVar(&day, "day", "", "write a daily report for YYYY-MM-DD")
	cmd.Flags().StringVar(&outputDir, "out", "", "output directory (default: export_dir)")
	cmd.Flags().BoolVar(&profitable, "profitable", false, "only export snapshots with status profit")
	cmd.Flags().BoolVar(&summary, "summary", true, "print a per-token summary")
	return cmd
}

func parseTimeFlag(name, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q: %w", name, raw, err)
	}
	return t, nil
}

func printSummary(w io.Writer, s export.ExportSummary) {
	fmt.Fprintf(w, "%d snapshots of %d tokens, %s to %s, %.1f%% profitable\n",
		s.TotalSnapshots, s.UniqueTokens,
		s.StartDate.Format(time.DateTime), s.EndDate.Format(time.DateTime),
		s.ProfitableShare)

	t := table.New().Headers("token", "snapshots", "cost", "steps", "margin min/avg/max", "profit", "unknown")
	for _, tok := range s.Tokens {
		t.Row(
			tok.Symbol,
			strconv.Itoa(tok.Snapshots),
			fmt.Sprintf("%d-%d", tok.MinCost, tok.MaxCost),
			strconv.Itoa(tok.CostSteps),
			fmt.Sprintf("%.2f / %.2f / %.2f", tok.MinMargin, tok.AvgMargin, tok.MaxMargin),
			strconv.Itoa(tok.ProfitCount),
			strconv.Itoa(tok.UnknownCount),
		)
	}
	fmt.Fprintln(w, t.Render())
}
