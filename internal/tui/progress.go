package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pgblast/internal/stats"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
	warnStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
)

type snapshotMsg stats.Snapshot

type finishedMsg struct{}

// Model is the live progress view shown during single-process runs.
type Model struct {
	bar      progress.Model
	snap     stats.Snapshot
	expected int
	start    time.Time
	stopping bool
	cancel   func()
}

func newModel(expected int, cancel func()) Model {
	return Model{
		bar:      progress.New(progress.WithDefaultGradient()),
		expected: expected,
		start:    time.Now(),
		cancel:   cancel,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.stopping = true
			m.cancel()
		}
	case snapshotMsg:
		m.snap = stats.Snapshot(msg)
	case finishedMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	pct := 0.0
	if m.expected > 0 {
		pct = float64(m.snap.Transactions) / float64(m.expected)
		if pct > 1 {
			pct = 1
		}
	}
	elapsed := time.Since(m.start).Round(time.Second)

	s := titleStyle.Render("pgblast") + dimStyle.Render("  "+elapsed.String()) + "\n\n"
	s += m.bar.ViewAs(pct) + "\n\n"
	s += fmt.Sprintf("  transactions: %d/%d   ok: %d   failed: %d\n",
		m.snap.Transactions, m.expected, m.snap.Success, m.snap.Fail)
	s += fmt.Sprintf("  latency ms   p50: %.2f   p95: %.2f   p99: %.2f   mean: %.2f\n",
		m.snap.P50Ms, m.snap.P95Ms, m.snap.P99Ms, m.snap.MeanMs)
	if m.stopping {
		s += "\n" + warnStyle.Render("stopping: finishing in-flight transactions...") + "\n"
	}
	return s
}

// Run drives the live view until done closes, forwarding snapshots into
// the program. cancel is invoked when the user interrupts from the view.
func Run(updates stats.SnapshotChan, expected int, done <-chan struct{}, cancel func()) error {
	p := tea.NewProgram(newModel(expected, cancel))
	go func() {
		for {
			select {
			case snap := <-updates:
				p.Send(snapshotMsg(snap))
			case <-done:
				p.Send(finishedMsg{})
				return
			}
		}
	}()
	_, err := p.Run()
	return err
}
