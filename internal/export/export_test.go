package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rovshanmuradov/pubprinter/internal/storage/models"
	"go.uber.org/zap"
)

var baseTime = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

func generateTestSnapshots() []models.Snapshot {
	return []models.Snapshot{
		{Symbol: "EOE", TotalSupply: 2219, CurrentCost: 2, Remaining: 3, NextStep: 2222, MintedPriceUSD: "0.003", ParentPriceUSD: "0.001", ProfitMargin: 50, Status: "profit", CreatedAt: baseTime},
		{Symbol: "BTB", TotalSupply: 900, CurrentCost: 3, Remaining: 360, NextStep: 1260, MintedPriceUSD: "", ParentPriceUSD: "0.002", Status: "unknown", CreatedAt: baseTime.Add(time.Minute)},
		{Symbol: "EOE", TotalSupply: 2230, CurrentCost: 3, Remaining: 1103, NextStep: 3333, MintedPriceUSD: "0.003", ParentPriceUSD: "0.001", ProfitMargin: 0, Status: "breakeven", CreatedAt: baseTime.Add(time.Hour)},
		{Symbol: "EOE", TotalSupply: 2240, CurrentCost: 3, Remaining: 1093, NextStep: 3333, MintedPriceUSD: "0.002", ParentPriceUSD: "0.001", ProfitMargin: -33.33, Status: "loss", CreatedAt: baseTime.Add(2 * time.Hour)},
		{Symbol: "BTB", TotalSupply: 950, CurrentCost: 3, Remaining: 310, NextStep: 1260, MintedPriceUSD: "0.01", ParentPriceUSD: "0.002", ProfitMargin: 66.67, Status: "profit", CreatedAt: baseTime.Add(24 * time.Hour)},
	}
}

func newTestExporter() *SnapshotExporter {
	se := NewSnapshotExporter(zap.NewNop())
	se.now = func() time.Time { return baseTime }
	return se
}

func TestSnapshotExportCSV(t *testing.T) {
	exporter := newTestExporter()
	tempDir := t.TempDir()

	outputPath, err := exporter.ExportSnapshots(generateTestSnapshots(), ExportOptions{
		Format:    FormatCSV,
		OutputDir: tempDir,
		Symbol:    "eoe",
	})
	if err != nil {
		t.Fatalf("Failed to export snapshots: %v", err)
	}

	if filepath.Base(outputPath) != "snapshots_eoe_20260510_090000.csv" {
		t.Errorf("Unexpected filename %s", filepath.Base(outputPath))
	}

	f, err := os.Open(outputPath)
	if err != nil {
		t.Fatalf("Failed to open export: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read CSV: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("Expected header + 3 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(CSVHeaders(), ",") {
		t.Errorf("Unexpected header %v", rows[0])
	}
	want := []string{"2026-05-10T09:00:00Z", "EOE", "2219", "2", "3", "2222", "0.003", "0.001", "50.00", "profit"}
	if strings.Join(rows[1], ",") != strings.Join(want, ",") {
		t.Errorf("Unexpected first row %v", rows[1])
	}
}

func TestSnapshotExportJSON(t *testing.T) {
	exporter := newTestExporter()

	outputPath, err := exporter.ExportSnapshots(generateTestSnapshots(), ExportOptions{
		Format:    FormatJSON,
		OutputDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Failed to export snapshots: %v", err)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("Failed to read export: %v", err)
	}

	var decoded struct {
		SnapshotCount int               `json:"snapshot_count"`
		Summary       ExportSummary     `json:"summary"`
		Snapshots     []models.Snapshot `json:"snapshots"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}

	if decoded.SnapshotCount != 5 || len(decoded.Snapshots) != 5 {
		t.Errorf("Expected 5 snapshots, got %d", decoded.SnapshotCount)
	}
	if decoded.Summary.UniqueTokens != 2 {
		t.Errorf("Expected 2 tokens, got %d", decoded.Summary.UniqueTokens)
	}
}

func TestSnapshotExportFilters(t *testing.T) {
	exporter := newTestExporter()
	snapshots := generateTestSnapshots()

	tests := []struct {
		name     string
		options  ExportOptions
		expected int
	}{
		{name: "all", options: ExportOptions{}, expected: 5},
		{name: "symbol", options: ExportOptions{Symbol: "BTB"}, expected: 2},
		{name: "profitable", options: ExportOptions{OnlyProfitable: true}, expected: 2},
		{name: "time window", options: ExportOptions{StartTime: baseTime.Add(30 * time.Minute), EndTime: baseTime.Add(3 * time.Hour)}, expected: 2},
		{name: "nothing", options: ExportOptions{Symbol: "A1A"}, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := exporter.filterSnapshots(snapshots, tt.options)
			if len(got) != tt.expected {
				t.Errorf("Expected %d snapshots, got %d", tt.expected, len(got))
			}
		})
	}

	_, err := exporter.ExportSnapshots(snapshots, ExportOptions{Format: FormatCSV, Symbol: "A1A", OutputDir: t.TempDir()})
	if !errors.Is(err, ErrNothingToExport) {
		t.Errorf("Expected ErrNothingToExport, got %v", err)
	}

	_, err = exporter.ExportSnapshots(snapshots, ExportOptions{Format: "xml", OutputDir: t.TempDir()})
	if err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestSummarize(t *testing.T) {
	summary := Summarize(generateTestSnapshots())

	if summary.TotalSnapshots != 5 {
		t.Errorf("Expected 5 snapshots, got %d", summary.TotalSnapshots)
	}
	if summary.ProfitableShare != 40 {
		t.Errorf("Expected 40%% profitable, got %.2f", summary.ProfitableShare)
	}
	if len(summary.Tokens) != 2 || summary.Tokens[0].Symbol != "BTB" || summary.Tokens[1].Symbol != "EOE" {
		t.Fatalf("Unexpected token summaries %+v", summary.Tokens)
	}

	eoe := summary.Tokens[1]
	if eoe.Snapshots != 3 || eoe.MinCost != 2 || eoe.MaxCost != 3 || eoe.CostSteps != 1 {
		t.Errorf("Unexpected EOE costs %+v", eoe)
	}
	if eoe.ProfitCount != 1 || eoe.BreakevenCount != 1 || eoe.LossCount != 1 {
		t.Errorf("Unexpected EOE status counts %+v", eoe)
	}
	if eoe.MaxMargin != 50 || eoe.MinMargin != -33.33 {
		t.Errorf("Unexpected EOE margins %+v", eoe)
	}

	btb := summary.Tokens[0]
	// The unknown snapshot is excluded from margins.
	if btb.UnknownCount != 1 || btb.MinMargin != 66.67 || btb.AvgMargin != 66.67 {
		t.Errorf("Unexpected BTB summary %+v", btb)
	}
	if btb.ProfitableShare != 50 {
		t.Errorf("Expected 50%% BTB profitable, got %.2f", btb.ProfitableShare)
	}

	if empty := Summarize(nil); empty.TotalSnapshots != 0 || empty.Tokens != nil {
		t.Errorf("Expected empty summary, got %+v", empty)
	}
}

func TestDailyReportExport(t *testing.T) {
	exporter := newTestExporter()
	tempDir := t.TempDir()

	outputPath, err := exporter.ExportDailyReport(generateTestSnapshots(), baseTime, tempDir)
	if err != nil {
		t.Fatalf("Failed to export daily report: %v", err)
	}
	if filepath.Base(outputPath) != "daily_report_20260510.json" {
		t.Errorf("Unexpected report name %s", outputPath)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("Failed to read report: %v", err)
	}
	var report DailyReport
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("Invalid report: %v", err)
	}
	if report.SnapshotCount != 4 {
		t.Errorf("Expected 4 snapshots, got %d", report.SnapshotCount)
	}
	if len(report.HourlyBreakdown) != 3 {
		t.Fatalf("Expected 3 hours, got %d", len(report.HourlyBreakdown))
	}
	first := report.HourlyBreakdown[0]
	if first.Hour != 9 || first.Snapshots != 2 || first.ProfitCount != 1 || first.AvgMargin != 50 {
		t.Errorf("Unexpected first hour %+v", first)
	}

	empty, err := exporter.ExportDailyReport(generateTestSnapshots(), baseTime.Add(-48*time.Hour), tempDir)
	if err != nil || empty != "" {
		t.Errorf("Expected no report for an empty day, got %q, %v", empty, err)
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(" CSV "); err != nil || f != FormatCSV {
		t.Errorf("Expected csv, got %q, %v", f, err)
	}
	if _, err := ParseFormat("xlsx"); err == nil {
		t.Error("Expected error for xlsx")
	}
}
