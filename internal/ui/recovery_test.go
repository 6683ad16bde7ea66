package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type panickyModel struct {
	updates int
}

func (m *panickyModel) Init() tea.Cmd { return nil }

func (m *panickyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(string); ok {
		panic("boom")
	}
	m.updates++
	return m, nil
}

func (m *panickyModel) View() string {
	if m.updates > 1 {
		panic("view boom")
	}
	return "ok"
}

func TestSafeUIWrapperRecovers(t *testing.T) {
	inner := &panickyModel{}
	w := NewSafeUIWrapper(inner, zap.NewNop())

	model, cmd := w.Update("explode")
	assert.Same(t, w, model)
	assert.Nil(t, cmd)

	model, _ = w.Update(TickMsg{})
	assert.Same(t, w, model)
	assert.Equal(t, 1, inner.updates)
	assert.Equal(t, "ok", w.View())

	w.Update(TickMsg{})
	assert.Contains(t, w.View(), "UI Error")
}
