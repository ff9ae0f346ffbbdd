// Package ui renders the session status in the terminal using bubbletea.
package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vpnkeep/vpnkeep"
)

// Lipgloss colors
const (
	colorTitle   = "14"  // cyan
	colorHelp    = "245" // grey
	colorActive  = "10"  // green
	colorWaiting = "11"  // yellow
	colorError   = "9"   // red
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorTitle))
	labelStyle  = lipgloss.NewStyle().Width(12).Foreground(lipgloss.Color(colorHelp))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(colorHelp))
	activeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorActive))
	waitStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(colorWaiting))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorError))
)

// SnapshotMsg delivers a new session snapshot to the model.
type SnapshotMsg vpnkeep.Snapshot

// Model is the bubbletea model for the status display.
type Model struct {
	snap  vpnkeep.Snapshot
	ready bool
	width int
}

// NewModel creates an empty status model.
func NewModel() Model {
	return Model{}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case SnapshotMsg:
		m.snap = vpnkeep.Snapshot(msg)
		m.ready = true
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	s := titleStyle.Render("vpnkeep") + "\n\n"

	if !m.ready {
		s += waitStyle.Render("starting...") + "\n"
		return s + "\n" + helpStyle.Render("q: Quit")
	}

	s += labelStyle.Render("Status") + statusText(m.snap) + "\n"
	s += labelStyle.Render("Port") + portText(m.snap.Port) + "\n"
	s += labelStyle.Render("Interface") + orDash(m.snap.Interface) + "\n"
	s += labelStyle.Render("Firewall") + firewallText(m.snap.FirewallOK) + "\n"
	if m.snap.Failures > 0 {
		s += labelStyle.Render("Failures") + errorStyle.Render(fmt.Sprintf("%d", m.snap.Failures)) + "\n"
	}
	if m.snap.LastEvent != "" {
		s += labelStyle.Render("Last event") + m.snap.LastEvent + "\n"
	}
	s += labelStyle.Render("Updated") + m.snap.When.Format("15:04:05") + "\n"

	return s + "\n" + helpStyle.Render("q: Quit")
}

func statusText(snap vpnkeep.Snapshot) string {
	switch snap.Status {
	case vpnkeep.StatusActive:
		return activeStyle.Render("ACTIVE")
	case vpnkeep.StatusGatewayError:
		return errorStyle.Render("GATEWAY ERROR")
	default:
		return waitStyle.Render("WAITING")
	}
}

func portText(port int) string {
	if port == 0 {
		return "-"
	}
	return activeStyle.Render(fmt.Sprintf("%d", port))
}

func firewallText(ok bool) string {
	if ok {
		return "managed"
	}
	return waitStyle.Render("unmanaged")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Reporter forwards snapshots into a running bubbletea program. It
// implements vpnkeep.StatusReporter.
type Reporter struct {
	prog *tea.Program
}

// NewReporter wraps the program.
func NewReporter(prog *tea.Program) *Reporter {
	return &Reporter{prog: prog}
}

// Report sends the snapshot to the UI. Program.Send is safe from other
// goroutines and never blocks on a stopped program.
func (r *Reporter) Report(s vpnkeep.Snapshot) {
	r.prog.Send(SnapshotMsg(s))
}
