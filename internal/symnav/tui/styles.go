package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/lexcodex/symnav/framework/symbols"
)

var (
	colorPrimary   = lipgloss.Color("39")
	colorSecondary = lipgloss.Color("86")
	colorSuccess   = lipgloss.Color("42")
	colorWarning   = lipgloss.Color("220")
	colorError     = lipgloss.Color("196")
	colorDim       = lipgloss.Color("241")
	colorMagenta   = lipgloss.Color("170")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	tabStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			Underline(true).
			Padding(0, 1)

	filteredBadgeStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("0")).
				Background(colorWarning).
				Padding(0, 1)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	matchStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorSuccess)

	ancestorStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			Faint(true)

	cursorStyle = lipgloss.NewStyle().
			Reverse(true)

	gutterStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			Align(lipgloss.Right)

	codeBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(colorDim).
			PaddingLeft(1)

	noticeStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Italic(true).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	promptBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("237")).
			Padding(0, 1)

	welcomeStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			Italic(true)
)

// glyphs keyed by Kind.Icon().
var glyphs = map[symbols.Kind]string{
	symbols.KindModule:    "◇",
	symbols.KindPackage:   "▣",
	symbols.KindClass:     "C",
	symbols.KindStruct:    "S",
	symbols.KindInterface: "I",
	symbols.KindUnion:     "U",
	symbols.KindEnum:      "E",
	symbols.KindEnumMem:   "e",
	symbols.KindFunction:  "ƒ",
	symbols.KindVariable:  "v",
	symbols.KindConstant:  "c",
	symbols.KindField:     "·",
	symbols.KindAlias:     "=",
	symbols.KindTypedef:   "T",
	symbols.KindTemplate:  "‹›",
	symbols.KindProperty:  "p",
	symbols.KindSection:   "§",
}

var glyphColors = map[symbols.Kind]lipgloss.Color{
	symbols.KindModule:    colorPrimary,
	symbols.KindPackage:   colorPrimary,
	symbols.KindClass:     colorSecondary,
	symbols.KindStruct:    colorSecondary,
	symbols.KindInterface: colorSecondary,
	symbols.KindFunction:  colorMagenta,
	symbols.KindConstant:  colorWarning,
	symbols.KindSection:   colorSecondary,
}

func glyphFor(kind symbols.Kind) string {
	icon := kind.Icon()
	g, ok := glyphs[icon]
	if !ok {
		g = "?"
	}
	if c, ok := glyphColors[icon]; ok {
		return lipgloss.NewStyle().Foreground(c).Render(g)
	}
	return dimStyle.Render(g)
}
