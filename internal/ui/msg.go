package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Tea message types for UI communication

// SnapshotsChangedMsg signals that the monitor holds new snapshots.
type SnapshotsChangedMsg struct {
	At time.Time
}

// AlertMsg carries an alert raised by the monitor.
type AlertMsg struct {
	Symbol  string
	Kind    string
	Message string
}

// RefreshDoneMsg is the result of a manual refresh.
type RefreshDoneMsg struct {
	Err error
}

// TickMsg drives periodic redraws of the log pane and clock.
type TickMsg time.Time

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// waitForMsg blocks on ch and delivers the next message to the program.
func waitForMsg(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}
