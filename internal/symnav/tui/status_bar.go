package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// StatusBar renders workspace/module/panel metadata plus the search state.
type StatusBar struct {
	workspace string
	module    string
	panel     string
	state     string
	matches   int
	ancestors int
	filtered  bool
	running   bool
}

func (s StatusBar) with(m Model, p *Panel) StatusBar {
	s.module = "-"
	if m.module != nil {
		s.module = m.module.Name
	}
	s.panel = p.id.String()
	s.state = p.ctrl.State().String()
	s.matches = p.summary.Matches
	s.ancestors = p.summary.Ancestors
	s.filtered = p.filtered
	s.running = p.running
	return s
}

func (s StatusBar) View(width int) string {
	left := fmt.Sprintf("📁 %s | 📦 %s | %s",
		truncate(s.workspace, 20),
		truncate(s.module, 32),
		s.panel,
	)
	right := s.state
	if s.running {
		right = "searching"
	}
	if s.filtered {
		right = fmt.Sprintf("%d matches · %d parents | %s", s.matches, s.ancestors, right)
	}
	padding := width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 0 {
		padding = 0
	}
	return statusStyle.Render(left + strings.Repeat(" ", padding) + right)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:1]
	}
	return s[:n-1] + "…"
}
