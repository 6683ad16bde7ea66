package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/rovshanmuradov/pubprinter/internal/minting"
	"github.com/rovshanmuradov/pubprinter/internal/monitor"
)

const logPaneLines = 8

func formatInt(n int64) string {
	return humanize.Comma(n)
}

func formatSupply(v float64) string {
	return humanize.CommafWithDigits(v, 2)
}

func formatPrice(p string) string {
	if p == "" {
		return "n/a"
	}
	if v, ok := minting.ParsePriceUSD(p); ok {
		return fmt.Sprintf("%.6g", v)
	}
	return p
}

func statusLabel(s minting.Status) string {
	switch s {
	case minting.StatusProfit:
		return "▲ profit"
	case minting.StatusBreakeven:
		return "● breakeven"
	case minting.StatusLoss:
		return "▼ loss"
	default:
		return "? unknown"
	}
}

func snapshotRow(s monitor.Snapshot) table.Row {
	symbol := s.Token.Symbol
	if s.Stale {
		symbol += "*"
	}
	row := table.Row{symbol, formatSupply(s.TotalSupply), "-", "-", "-", formatPrice(s.MintedPriceUSD), "-", "-", "-"}
	if s.Info == nil {
		return row
	}

	row[2] = fmt.Sprintf("%d", s.Info.CurrentCost)
	row[3] = formatInt(s.Info.RemainingAtCurrentCost)
	row[4] = formatInt(s.Info.NextMintingStep)
	row[6] = formatPrice(s.ParentPriceUSD)
	status := s.Status()
	if status != minting.StatusUnknown && s.Profitability != nil {
		row[7] = fmt.Sprintf("%+.2f%%", s.Profitability.ProfitMargin)
	}
	row[8] = statusLabel(status)
	return row
}

func (d *Dashboard) statusStyle(s minting.Status) lipgloss.Style {
	switch s {
	case minting.StatusProfit:
		return d.styles.Profit
	case minting.StatusBreakeven:
		return d.styles.Breakeven
	case minting.StatusLoss:
		return d.styles.Loss
	default:
		return d.styles.Unknown
	}
}

// marginStyle colours the gas-adjusted margin.
func (d *Dashboard) marginStyle(m float64) lipgloss.Style {
	switch {
	case m > 0:
		return d.styles.Profit
	case m > -minting.DefaultBreakevenBand*5:
		return d.styles.Breakeven
	default:
		return d.styles.Loss
	}
}

func (d *Dashboard) View() string {
	var b strings.Builder

	title := d.styles.Title.Render("PulseChain mint dashboard")
	theme := d.styles.Muted.Render(d.styles.Palette.Name)
	updated := ""
	if !d.lastUpdate.IsZero() {
		updated = d.styles.Muted.Render("updated " + d.lastUpdate.Format("15:04:05"))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, title, " ", updated, " ", theme))
	b.WriteString("\n\n")

	b.WriteString(d.table.View())
	b.WriteString("\n")

	if stale := d.cache.Stale(); len(stale) > 0 {
		b.WriteString(d.styles.Warning.Render("* stale: " + strings.Join(stale, ", ")))
		b.WriteString("\n")
	}

	b.WriteString(d.detailView())

	if d.calcOpen {
		b.WriteString("\n")
		b.WriteString(d.calculatorView())
	}

	if notices := d.cache.Notices(3); len(notices) > 0 {
		b.WriteString("\n")
		for _, n := range notices {
			b.WriteString(d.styles.Warning.Render(fmt.Sprintf("%s %s", n.At.Format("15:04:05"), n.Message)))
			b.WriteString("\n")
		}
	}

	if d.showLogs {
		b.WriteString("\n")
		b.WriteString(d.logView())
	}

	if d.status != "" {
		b.WriteString("\n")
		b.WriteString(d.styles.Muted.Render(d.status))
	}
	b.WriteString("\n")
	b.WriteString(d.help.View(d.keys))
	return b.String()
}

func (d *Dashboard) detailView() string {
	s, ok := d.Selected()
	if !ok {
		return d.styles.Muted.Render("waiting for the first refresh...")
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("%s (%s)  supply %s", s.Token.Name, s.Token.Symbol, s.SupplyText))
	if s.Info == nil {
		lines = append(lines, d.styles.Muted.Render("not mintable from the dashboard"))
	} else {
		lines = append(lines, fmt.Sprintf("mint cost %d %s  ·  %s left until %s",
			s.Info.CurrentCost, s.Token.Parent,
			formatInt(s.Info.RemainingAtCurrentCost), formatInt(s.Info.NextMintingStep)))

		status := s.Status()
		verdict := statusLabel(status)
		if status != minting.StatusUnknown && s.Profitability != nil {
			verdict = fmt.Sprintf("%s  %+.2f%%", verdict, s.Profitability.ProfitMargin)
		}
		line := d.statusStyle(status).Render(verdict)
		if s.UnitCostUSD > 0 {
			line += d.styles.Muted.Render(fmt.Sprintf("  unit cost $%.6g", s.UnitCostUSD))
		}
		if s.GasMargin != nil {
			line += "  " + d.marginStyle(*s.GasMargin).Render(fmt.Sprintf("after gas %+.2f%%", *s.GasMargin))
		}
		lines = append(lines, line)
	}
	if s.LastError != "" {
		lines = append(lines, d.styles.Error.Render("last error: "+s.LastError))
	}
	return d.styles.Panel.Render(strings.Join(lines, "\n"))
}

func (d *Dashboard) calculatorView() string {
	var lines []string
	header := "Batch cost"
	if s, ok := d.Selected(); ok {
		header += " for " + s.Token.Symbol
	}
	lines = append(lines, d.styles.Title.Render(header), d.input.View())
	if d.calcErr != "" {
		lines = append(lines, d.styles.Error.Render(d.calcErr))
	}
	if d.calcResult != "" {
		lines = append(lines, d.calcResult)
	}
	return d.styles.Panel.Render(strings.Join(lines, "\n"))
}

func (d *Dashboard) logView() string {
	if d.logs == nil {
		return d.styles.Muted.Render("log buffer disabled")
	}
	entries := d.logs.GetRecentLogs(logPaneLines)
	if len(entries) == 0 {
		return d.styles.Panel.Render(d.styles.Muted.Render("no log entries"))
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		level := strings.ToUpper(e.Level)
		st := d.styles.Muted
		switch e.Level {
		case "warn":
			st = d.styles.Warning
		case "error", "fatal", "panic":
			st = d.styles.Error
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", e.Timestamp.Format("15:04:05"), st.Render(fmt.Sprintf("%-5s", level)), e.Message))
	}
	return d.styles.Panel.Render(strings.Join(lines, "\n"))
}
