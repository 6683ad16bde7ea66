package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rovshanmuradov/pubprinter/internal/minting"
	"github.com/rovshanmuradov/pubprinter/internal/storage/models"
	"go.uber.org/zap"
)

// ErrNothingToExport is returned when no snapshot matches the options.
var ErrNothingToExport = errors.New("no snapshots match the export criteria")

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ParseFormat accepts "csv" or "json" in any case.
func ParseFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format         ExportFormat
	StartTime      time.Time
	EndTime        time.Time
	Symbol         string // Filter by token symbol
	OnlyProfitable bool   // Only export snapshots with status profit
	OutputDir      string
}

// SnapshotExporter writes snapshot history to files.
type SnapshotExporter struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewSnapshotExporter(logger *zap.Logger) *SnapshotExporter {
	return &SnapshotExporter{
		logger: logger.Named("export"),
		now:    time.Now,
	}
}

// CSVHeaders is the header row of a snapshot export.
func CSVHeaders() []string {
	return []string{
		"timestamp", "symbol", "total_supply", "current_cost", "remaining_at_current_cost",
		"next_minting_step", "minted_price_usd", "parent_price_usd", "profit_margin", "status",
	}
}

func snapshotCSV(s models.Snapshot) []string {
	return []string{
		s.CreatedAt.UTC().Format(time.RFC3339),
		s.Symbol,
		strconv.FormatFloat(s.TotalSupply, 'f', -1, 64),
		strconv.FormatInt(s.CurrentCost, 10),
		strconv.FormatInt(s.Remaining, 10),
		strconv.FormatInt(s.NextStep, 10),
		s.MintedPriceUSD,
		s.ParentPriceUSD,
		strconv.FormatFloat(s.ProfitMargin, 'f', 2, 64),
		s.Status,
	}
}

// ExportSnapshots exports snapshots based on the provided options and
// returns the written file path.
func (se *SnapshotExporter) ExportSnapshots(snapshots []models.Snapshot, options ExportOptions) (string, error) {
	filtered := se.filterSnapshots(snapshots, options)
	if len(filtered) == 0 {
		return "", ErrNothingToExport
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
	})

	filename := se.generateFilename(options)
	outputPath := filepath.Join(options.OutputDir, filename)

	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	switch options.Format {
	case FormatCSV:
		err = se.exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = se.exportToJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	se.logger.Info("Snapshots exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

func (se *SnapshotExporter) filterSnapshots(snapshots []models.Snapshot, options ExportOptions) []models.Snapshot {
	var filtered []models.Snapshot

	for _, s := range snapshots {
		if !options.StartTime.IsZero() && s.CreatedAt.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && s.CreatedAt.After(options.EndTime) {
			continue
		}
		if options.Symbol != "" && !strings.EqualFold(s.Symbol, options.Symbol) {
			continue
		}
		if options.OnlyProfitable && s.Status != string(minting.StatusProfit) {
			continue
		}
		filtered = append(filtered, s)
	}

	return filtered
}

func (se *SnapshotExporter) generateFilename(options ExportOptions) string {
	timestamp := se.now().Format("20060102_150405")

	prefix := "snapshots_all"
	if options.Symbol != "" {
		prefix = "snapshots_" + strings.ToLower(options.Symbol)
	}
	if options.OnlyProfitable {
		prefix += "_profit"
	}

	return fmt.Sprintf("%s_%s.%s", prefix, timestamp, options.Format)
}

func (se *SnapshotExporter) exportToCSV(snapshots []models.Snapshot, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, s := range snapshots {
		if err := writer.Write(snapshotCSV(s)); err != nil {
			return fmt.Errorf("failed to write snapshot: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func (se *SnapshotExporter) exportToJSON(snapshots []models.Snapshot, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	exportData := struct {
		ExportTime    time.Time         `json:"export_time"`
		SnapshotCount int               `json:"snapshot_count"`
		Summary       ExportSummary     `json:"summary"`
		Snapshots     []models.Snapshot `json:"snapshots"`
	}{
		ExportTime:    se.now(),
		SnapshotCount: len(snapshots),
		Summary:       Summarize(snapshots),
		Snapshots:     snapshots,
	}

	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// TokenSummary aggregates one token's snapshots.
type TokenSummary struct {
	Symbol          string  `json:"symbol"`
	Snapshots       int     `json:"snapshots"`
	MinCost         int64   `json:"min_cost"`
	MaxCost         int64   `json:"max_cost"`
	CostSteps       int     `json:"cost_steps"`
	MinMargin       float64 `json:"min_margin"`
	MaxMargin       float64 `json:"max_margin"`
	AvgMargin       float64 `json:"avg_margin"`
	ProfitCount     int     `json:"profit_count"`
	BreakevenCount  int     `json:"breakeven_count"`
	LossCount       int     `json:"loss_count"`
	UnknownCount    int     `json:"unknown_count"`
	ProfitableShare float64 `json:"profitable_share"`
}

// ExportSummary contains summary statistics for exported snapshots
type ExportSummary struct {
	TotalSnapshots  int            `json:"total_snapshots"`
	UniqueTokens    int            `json:"unique_tokens"`
	ProfitableShare float64        `json:"profitable_share"`
	StartDate       time.Time      `json:"start_date"`
	EndDate         time.Time      `json:"end_date"`
	Tokens          []TokenSummary `json:"tokens"`
}

// Summarize computes cost and profitability statistics. Margins of
// snapshots with unknown status are left out of the margin figures.
// snapshots must be sorted by time for CostSteps to be meaningful.
func Summarize(snapshots []models.Snapshot) ExportSummary {
	summary := ExportSummary{TotalSnapshots: len(snapshots)}
	if len(snapshots) == 0 {
		return summary
	}

	summary.StartDate = snapshots[0].CreatedAt
	summary.EndDate = snapshots[len(snapshots)-1].CreatedAt

	type acc struct {
		TokenSummary
		marginSum   float64
		marginCount int
		lastCost    int64
	}
	byToken := make(map[string]*acc)
	var order []string
	profitable := 0

	for _, s := range snapshots {
		a, ok := byToken[s.Symbol]
		if !ok {
			a = &acc{TokenSummary: TokenSummary{
				Symbol:    s.Symbol,
				MinCost:   math.MaxInt64,
				MinMargin: math.Inf(1),
				MaxMargin: math.Inf(-1),
			}}
			byToken[s.Symbol] = a
			order = append(order, s.Symbol)
		}

		a.Snapshots++
		a.MinCost = min(a.MinCost, s.CurrentCost)
		a.MaxCost = max(a.MaxCost, s.CurrentCost)
		if a.lastCost != 0 && s.CurrentCost != a.lastCost {
			a.CostSteps++
		}
		a.lastCost = s.CurrentCost

		switch minting.Status(s.Status) {
		case minting.StatusProfit:
			a.ProfitCount++
			profitable++
		case minting.StatusBreakeven:
			a.BreakevenCount++
		case minting.StatusLoss:
			a.LossCount++
		default:
			a.UnknownCount++
			continue
		}
		a.MinMargin = math.Min(a.MinMargin, s.ProfitMargin)
		a.MaxMargin = math.Max(a.MaxMargin, s.ProfitMargin)
		a.marginSum += s.ProfitMargin
		a.marginCount++
	}

	sort.Strings(order)
	for _, sym := range order {
		a := byToken[sym]
		if a.marginCount > 0 {
			a.AvgMargin = a.marginSum / float64(a.marginCount)
		} else {
			a.MinMargin, a.MaxMargin = 0, 0
		}
		a.ProfitableShare = float64(a.ProfitCount) / float64(a.Snapshots) * 100
		summary.Tokens = append(summary.Tokens, a.TokenSummary)
	}

	summary.UniqueTokens = len(order)
	summary.ProfitableShare = float64(profitable) / float64(len(snapshots)) * 100
	return summary
}

// DailyReport represents one day of snapshot history.
type DailyReport struct {
	Date            time.Time         `json:"date"`
	SnapshotCount   int               `json:"snapshot_count"`
	Summary         ExportSummary     `json:"summary"`
	HourlyBreakdown []HourlyStats     `json:"hourly_breakdown"`
	Snapshots       []models.Snapshot `json:"snapshots"`
}

// HourlyStats represents snapshot statistics for an hour
type HourlyStats struct {
	Hour        int     `json:"hour"`
	Snapshots   int     `json:"snapshots"`
	ProfitCount int     `json:"profit_count"`
	MaxCost     int64   `json:"max_cost"`
	AvgMargin   float64 `json:"avg_margin"`
}

// ExportDailyReport writes a JSON report for the day containing date. An
// empty day writes nothing and returns "".
func (se *SnapshotExporter) ExportDailyReport(snapshots []models.Snapshot, date time.Time, outputDir string) (string, error) {
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	endOfDay := startOfDay.Add(24 * time.Hour).Add(-time.Nanosecond)

	filtered := se.filterSnapshots(snapshots, ExportOptions{StartTime: startOfDay, EndTime: endOfDay})
	if len(filtered) == 0 {
		se.logger.Info("No snapshots for daily report", zap.Time("date", startOfDay))
		return "", nil
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
	})

	report := DailyReport{
		Date:            startOfDay,
		SnapshotCount:   len(filtered),
		Summary:         Summarize(filtered),
		HourlyBreakdown: calculateHourlyBreakdown(filtered),
		Snapshots:       filtered,
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(outputDir, fmt.Sprintf("daily_report_%s.json", startOfDay.Format("20060102")))
	file, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	se.logger.Info("Daily report exported",
		zap.String("file", outputPath),
		zap.Time("date", startOfDay),
		zap.Int("snapshots", len(filtered)))

	return outputPath, nil
}

func calculateHourlyBreakdown(snapshots []models.Snapshot) []HourlyStats {
	hourlyMap := make(map[int]*HourlyStats)
	marginCount := make(map[int]int)

	for _, s := range snapshots {
		hour := s.CreatedAt.Hour()

		stats, exists := hourlyMap[hour]
		if !exists {
			stats = &HourlyStats{Hour: hour}
			hourlyMap[hour] = stats
		}

		stats.Snapshots++
		stats.MaxCost = max(stats.MaxCost, s.CurrentCost)
		if s.Status == string(minting.StatusProfit) {
			stats.ProfitCount++
		}
		if s.Status != string(minting.StatusUnknown) && s.Status != "" {
			stats.AvgMargin += s.ProfitMargin
			marginCount[hour]++
		}
	}

	var breakdown []HourlyStats
	for hour := 0; hour < 24; hour++ {
		if stats, exists := hourlyMap[hour]; exists {
			if n := marginCount[hour]; n > 0 {
				stats.AvgMargin /= float64(n)
			}
			breakdown = append(breakdown, *stats)
		}
	}

	return breakdown
}
