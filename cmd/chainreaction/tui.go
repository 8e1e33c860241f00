package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/chainreaction/runner"
)

type progressModel struct {
	status   *runner.Status
	agents   []string
	finished <-chan struct{}

	startTime time.Time
	snap      runner.Snapshot
	stopping  bool
	done      bool
}

func newProgressModel(status *runner.Status, agents []string, finished <-chan struct{}) progressModel {
	return progressModel{
		status:    status,
		agents:    agents,
		finished:  finished,
		startTime: time.Now(),
		snap:      status.Snapshot(),
	}
}

type tickMsg time.Time

type batchDoneMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForBatch(finished <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-finished
		return batchDoneMsg{}
	}
}

func (m progressModel) Init() tea.Cmd {
	return tea.Batch(tickCmd(), waitForBatch(m.finished))
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.stopping {
				// Second press: leave the view, the batch still finishes its game.
				return m, tea.Quit
			}
			m.status.RequestStop()
			m.stopping = true
		}
	case tickMsg:
		m.snap = m.status.Snapshot()
		return m, tickCmd()
	case batchDoneMsg:
		m.snap = m.status.Snapshot()
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m progressModel) View() string {
	var b strings.Builder

	elapsed := time.Since(m.startTime)
	gamesPerSec := 0.0
	if elapsed >= time.Second {
		gamesPerSec = float64(m.snap.LastGame) / elapsed.Seconds()
	}

	fmt.Fprintf(&b, "Games:     %d / %d  %s\n", m.snap.LastGame, m.snap.Total, bar(m.snap.LastGame, m.snap.Total, 30))
	fmt.Fprintf(&b, "Moves:     %d\n", m.snap.Moves)
	fmt.Fprintf(&b, "Duration:  %s\n", elapsed.Round(time.Second))
	fmt.Fprintf(&b, "Games/Sec: %.2f\n\n", gamesPerSec)

	for seat, wins := range m.snap.Wins {
		name := "?"
		if seat < len(m.agents) {
			name = m.agents[seat]
		}
		fmt.Fprintf(&b, "player %d %-13s %6d  %s\n", seat, name, wins, percent(wins, m.snap.LastGame))
	}

	switch {
	case m.done:
		b.WriteString("\nBatch finished.\n")
	case m.stopping:
		b.WriteString("\nStopping after the current game... (q again to leave)\n")
	default:
		b.WriteString("\nPress q to stop.\n")
	}
	return b.String()
}

func bar(n, total, width int) string {
	if total <= 0 {
		return ""
	}
	filled := min(width, n*width/total)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

// runProgressTUI shows live progress until finished is closed or the user
// leaves the view.
func runProgressTUI(status *runner.Status, agents []string, finished <-chan struct{}) error {
	p := tea.NewProgram(newProgressModel(status, agents, finished))
	_, err := p.Run()
	return err
}
