package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View composes the panel tabs, symbol tree, notice, prompt bar, and status
// bar.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	header := m.renderHeader()
	body := m.view.View()
	notice := ""
	if m.notice != "" {
		notice = noticeStyle.Render(m.notice)
	}
	prompt := m.renderPromptBar()
	status := m.statusBar.View(m.width)

	return lipgloss.JoinVertical(lipgloss.Left, header, body, notice, prompt, status)
}

func (m Model) renderHeader() string {
	apiLabel := "API"
	if m.module != nil {
		apiLabel = "API: " + m.module.DisplayTitle()
	}
	tabs := []string{apiLabel, "Modules"}
	parts := make([]string, 0, len(tabs)+2)
	for i, label := range tabs {
		if PanelID(i) == m.active {
			parts = append(parts, activeTabStyle.Render(label))
		} else {
			parts = append(parts, tabStyle.Render(label))
		}
	}
	p := m.activePanel()
	if p.filtered {
		parts = append(parts, filteredBadgeStyle.Render("filtered"))
	}
	if p.running || p.loading {
		parts = append(parts, m.spinner.View())
	}
	return strings.Join(parts, " ")
}

func (m Model) renderPromptBar() string {
	p := m.activePanel()
	hint := dimStyle.Render(" " + p.ctrl.CancelKey() + " cancel | enter open | tab switch panel")
	return promptBarStyle.Width(m.width).Render(p.input.View() + hint)
}
