package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lexcodex/symnav/framework/search"
	"github.com/lexcodex/symnav/framework/source"
	"github.com/lexcodex/symnav/framework/symbols"
)

// renderPanel draws the visible rows of p and returns the content plus the
// line the cursor sits on.
func (m Model) renderPanel(p *Panel) (string, int) {
	if p.tree == nil {
		switch {
		case p.loading:
			return welcomeStyle.Render("Loading..."), 0
		case p.id == PanelAPI:
			return welcomeStyle.Render("No module loaded. Press tab to pick one from the module list."), 0
		default:
			return welcomeStyle.Render("No modules indexed. Run `symnav index` first."), 0
		}
	}
	rows := p.rows()
	prefixes := symbols.TreePrefixes(p.units, rows)
	lines := make([]string, 0, len(rows))
	cursorLine := 0
	for i, row := range rows {
		item := p.item(row)
		selected := i == p.cursor
		if selected {
			cursorLine = len(lines)
		}
		lines = append(lines, renderRow(p, row, item, prefixes[row], selected))
		if p.open[item.FQN] {
			lines = append(lines, renderCode(p.code[item.FQN], codeIndent(p, row))...)
		}
	}
	if p.filtered && len(rows) == 1 {
		lines = append(lines, dimStyle.Render("  no symbol matches "+strconv.Quote(p.query)))
	}
	return strings.Join(lines, "\n"), cursorLine
}

func renderRow(p *Panel, row int, item *symbols.Item, prefix string, selected bool) string {
	marker := "  "
	if selected {
		marker = headerStyle.Render("› ")
	}
	if row == rootRow {
		return marker + glyphFor(symbols.KindModule) + " " + headerStyle.Render(item.Name)
	}

	label := item.Label() + subscript(item.Overload())
	if p.filtered {
		switch p.units[row].Class() {
		case search.Match:
			label = matchStyle.Render(label)
		case search.AncestorOfMatch:
			label = ancestorStyle.Render(label)
		}
	}
	if selected {
		label = cursorStyle.Render(label)
	}
	line := marker + dimStyle.Render(prefix) + glyphFor(item.Kind) + " " + label
	if item.HasLines() {
		line += dimStyle.Render(fmt.Sprintf("  L%d-%d", item.BeginLine, item.EndLine))
	}
	return line
}

func codeIndent(p *Panel, row int) int {
	if row == rootRow {
		return 4
	}
	return 4 * (p.units[row].Depth + 2)
}

// renderCode draws lines with a right-aligned line-number gutter.
func renderCode(lines []source.Line, indent int) []string {
	if len(lines) == 0 {
		return []string{strings.Repeat(" ", indent) + dimStyle.Render("(empty)")}
	}
	width := len(strconv.Itoa(lines[len(lines)-1].Number))
	body := make([]string, len(lines))
	for i, line := range lines {
		num := gutterStyle.Width(width).Render(strconv.Itoa(line.Number))
		body[i] = num + " " + strings.ReplaceAll(line.Content, "\t", "    ")
	}
	block := codeBoxStyle.MarginLeft(indent).Render(strings.Join(body, "\n"))
	return strings.Split(block, "\n")
}

var subscriptDigits = []rune("₀₁₂₃₄₅₆₇₈₉")

// subscript renders an overload index such as "2" as "₂".
func subscript(index string) string {
	if index == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range index {
		if r >= '0' && r <= '9' {
			b.WriteRune(subscriptDigits[r-'0'])
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
