package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rovshanmuradov/pubprinter/internal/logger"
	"github.com/rovshanmuradov/pubprinter/internal/minting"
	"github.com/rovshanmuradov/pubprinter/internal/monitor"
	"github.com/rovshanmuradov/pubprinter/internal/ui/state"
	"github.com/rovshanmuradov/pubprinter/internal/ui/style"
	"go.uber.org/zap"
)

// SnapshotSource is the monitor side the dashboard reads.
type SnapshotSource interface {
	Snapshots() []monitor.Snapshot
	Refresh(ctx context.Context) error
}

// LogSource supplies recent log lines for the log pane.
type LogSource interface {
	GetRecentLogs(limit int) []logger.LogEntry
}

type Options struct {
	Source   SnapshotSource
	Logs     LogSource      // optional
	Messages <-chan tea.Msg // optional, usually Bridge.Messages()
	Light    bool           // start with the light palette
	Logger   *zap.Logger
}

// Dashboard is the root bubbletea model.
type Dashboard struct {
	source SnapshotSource
	logs   LogSource
	msgs   <-chan tea.Msg
	cache  *state.SnapshotCache
	logger *zap.Logger

	keys   KeyMap
	help   help.Model
	table  table.Model
	input  textinput.Model
	styles style.Styles
	dark   bool

	calcOpen   bool
	calcResult string
	calcErr    string
	showLogs   bool
	refreshing bool
	status     string
	lastUpdate time.Time

	width  int
	height int
}

var columns = []table.Column{
	{Title: "Token", Width: 6},
	{Title: "Supply", Width: 16},
	{Title: "Cost", Width: 6},
	{Title: "Left", Width: 8},
	{Title: "Next step", Width: 10},
	{Title: "Price $", Width: 12},
	{Title: "Parent $", Width: 12},
	{Title: "Margin", Width: 10},
	{Title: "Status", Width: 11},
}

func NewDashboard(opts Options) *Dashboard {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	input := textinput.New()
	input.Placeholder = "units to mint"
	input.CharLimit = 12
	input.Width = 14

	d := &Dashboard{
		source: opts.Source,
		logs:   opts.Logs,
		msgs:   opts.Messages,
		cache:  state.NewSnapshotCache(20, opts.Logger),
		logger: opts.Logger.Named("ui"),
		keys:   DefaultKeyMap(),
		help:   help.New(),
		input:  input,
		dark:   !opts.Light,
	}
	d.table = table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(6),
	)
	d.applyTheme()
	d.reload()
	return d
}

func (d *Dashboard) applyTheme() {
	p := style.DarkPalette()
	if !d.dark {
		p = style.LightPalette()
	}
	d.styles = style.NewStyles(p)

	ts := table.DefaultStyles()
	ts.Header = d.styles.Header
	ts.Selected = d.styles.Selected
	ts.Cell = d.styles.Cell
	d.table.SetStyles(ts)

	d.input.PromptStyle = lipgloss.NewStyle().Foreground(p.Primary)
	d.input.TextStyle = lipgloss.NewStyle().Foreground(p.Text)
}

func (d *Dashboard) Init() tea.Cmd {
	cmds := []tea.Cmd{tick(time.Second)}
	if d.msgs != nil {
		cmds = append(cmds, waitForMsg(d.msgs))
	}
	return tea.Batch(cmds...)
}

func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width, d.height = msg.Width, msg.Height
		d.help.Width = msg.Width
		d.table.SetHeight(max(4, min(len(d.table.Rows())+3, msg.Height/2)))
		return d, nil

	case SnapshotsChangedMsg:
		d.reload()
		return d, d.listen()

	case AlertMsg:
		d.cache.AddNotice(state.Notice{Symbol: msg.Symbol, Kind: msg.Kind, Message: msg.Message})
		d.status = msg.Message
		return d, d.listen()

	case RefreshDoneMsg:
		d.refreshing = false
		d.reload()
		if msg.Err != nil {
			d.status = "refresh: " + msg.Err.Error()
		} else {
			d.status = "refreshed"
		}
		return d, nil

	case TickMsg:
		d.cache.CleanupNotices(time.Hour)
		return d, tick(time.Second)

	case tea.KeyMsg:
		if d.calcOpen {
			return d.updateCalculator(msg)
		}
		return d.updateKeys(msg)
	}
	return d, nil
}

func (d *Dashboard) listen() tea.Cmd {
	if d.msgs == nil {
		return nil
	}
	return waitForMsg(d.msgs)
}

func (d *Dashboard) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, d.keys.Quit):
		return d, tea.Quit
	case key.Matches(msg, d.keys.Help):
		d.help.ShowAll = !d.help.ShowAll
		return d, nil
	case key.Matches(msg, d.keys.ToggleTheme):
		d.dark = !d.dark
		d.applyTheme()
		return d, nil
	case key.Matches(msg, d.keys.ToggleLogs):
		d.showLogs = !d.showLogs
		return d, nil
	case key.Matches(msg, d.keys.Calculator):
		d.calcOpen = true
		d.calcErr, d.calcResult = "", ""
		d.input.SetValue("")
		return d, d.input.Focus()
	case key.Matches(msg, d.keys.Refresh):
		if d.refreshing || d.source == nil {
			return d, nil
		}
		d.refreshing = true
		d.status = "refreshing..."
		return d, d.refresh()
	}

	var cmd tea.Cmd
	d.table, cmd = d.table.Update(msg)
	return d, cmd
}

func (d *Dashboard) updateCalculator(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, d.keys.Cancel):
		d.calcOpen = false
		d.input.Blur()
		return d, nil
	case key.Matches(msg, d.keys.Submit):
		d.calculate()
		return d, nil
	}

	var cmd tea.Cmd
	d.input, cmd = d.input.Update(msg)
	return d, cmd
}

func (d *Dashboard) refresh() tea.Cmd {
	src := d.source
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return RefreshDoneMsg{Err: src.Refresh(ctx)}
	}
}

// reload pulls snapshots from the source into the cache and table.
func (d *Dashboard) reload() {
	if d.source == nil {
		return
	}
	d.cache.Replace(d.source.Snapshots())
	d.lastUpdate = time.Now()

	snaps := d.cache.All()
	rows := make([]table.Row, 0, len(snaps))
	for _, s := range snaps {
		rows = append(rows, snapshotRow(s))
	}
	d.table.SetRows(rows)
	if d.table.Cursor() >= len(rows) && len(rows) > 0 {
		d.table.SetCursor(len(rows) - 1)
	}
}

// Selected returns the snapshot under the cursor.
func (d *Dashboard) Selected() (monitor.Snapshot, bool) {
	return d.cache.At(d.table.Cursor())
}

// calculate runs the batch calculator for the selected token.
func (d *Dashboard) calculate() {
	d.calcErr, d.calcResult = "", ""

	snap, ok := d.Selected()
	if !ok {
		d.calcErr = "no token selected"
		return
	}
	sched, err := snap.Token.MintSchedule()
	if err != nil {
		d.calcErr = fmt.Sprintf("%s cannot be minted", snap.Token.Symbol)
		return
	}
	amount, err := strconv.ParseInt(strings.TrimSpace(d.input.Value()), 10, 64)
	if err != nil || amount <= 0 {
		d.calcErr = "amount must be a positive whole number"
		return
	}
	if amount > minting.MaxBatchAmount {
		d.calcErr = fmt.Sprintf("amount must not exceed %s", formatInt(minting.MaxBatchAmount))
		return
	}

	res := sched.BatchCost(snap.TotalSupply, amount)
	tiers := make([]string, 0, len(res.Breakdown))
	for _, t := range res.Breakdown {
		tiers = append(tiers, fmt.Sprintf("%s×%d", formatInt(t.Count), t.Cost))
	}
	d.calcResult = fmt.Sprintf("%s %s = %s %s  [%s]  avg %.3f",
		formatInt(amount), snap.Token.Symbol,
		formatInt(res.TotalCost), snap.Token.Parent,
		strings.Join(tiers, " + "), res.AverageCost())

	if snap.Info != nil && minting.CrossesStep(*snap.Info, float64(amount)) {
		d.calcResult += fmt.Sprintf("\ncrosses the step at %s: only %s left at cost %d",
			formatInt(snap.Info.NextMintingStep), formatInt(snap.Info.RemainingAtCurrentCost), snap.Info.CurrentCost)
	}
	d.logger.Debug("Batch cost calculated",
		zap.String("symbol", snap.Token.Symbol),
		zap.Int64("amount", amount),
		zap.Int64("total", res.TotalCost))
}

// Dark reports whether the dark palette is active.
func (d *Dashboard) Dark() bool { return d.dark }

// CalculatorResult returns the last calculator output and error.
func (d *Dashboard) CalculatorResult() (string, string) { return d.calcResult, d.calcErr }
