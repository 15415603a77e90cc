package tui

import (
	"github.com/charmbracelet/bubbles/textinput"

	"github.com/lexcodex/symnav/framework/search"
	"github.com/lexcodex/symnav/framework/source"
	"github.com/lexcodex/symnav/framework/symbols"
)

// PanelID names one of the two symbol trees.
type PanelID int

const (
	PanelAPI PanelID = iota
	PanelModules
)

func (p PanelID) String() string {
	if p == PanelModules {
		return "modules"
	}
	return "api"
}

// rootRow is the row index of the tree root in Panel.rows.
const rootRow = -1

// Panel is one symbol tree with its own filter input and search state.
type Panel struct {
	id    PanelID
	ctrl  *search.Controller
	input textinput.Model

	tree  *symbols.Tree
	units []*symbols.Unit

	// filtered is true while the last completed pass had a non-empty query.
	filtered bool
	query    string
	summary  search.Summary
	// requested is the query of the latest pass asked for, applied or not.
	// A tree that arrives later re-runs it.
	requested string

	// passSeq identifies the most recently started pass.
	passSeq uint64
	running bool

	cursor int
	offset int
	// open holds the FQNs whose code is shown; code caches loaded lines.
	open map[string]bool
	code map[string][]source.Line

	built   bool
	loading bool
}

func newPanel(id PanelID, cfg search.ControllerConfig) *Panel {
	ctrl := search.NewController(cfg)
	input := textinput.New()
	input.Prompt = "🔍 "
	input.SetValue(ctrl.InitialText())
	input.Focus()
	return &Panel{
		id:    id,
		ctrl:  ctrl,
		input: input,
		open:  make(map[string]bool),
		code:  make(map[string][]source.Line),
	}
}

// setTree replaces the panel contents. Filter text and search state are
// kept; the caller re-runs the pass if a query is active.
func (p *Panel) setTree(tree *symbols.Tree) {
	p.tree = tree
	p.units = tree.Flatten()
	p.filtered = false
	p.summary = search.Summary{}
	p.cursor = 0
	p.open = make(map[string]bool)
	p.code = make(map[string][]source.Line)
	p.passSeq++
	p.running = false
	p.built = true
	p.loading = false
}

// rows lists the visible rows: the root followed by every unit, or only the
// marked units while a filter is active.
func (p *Panel) rows() []int {
	if p.tree == nil {
		return nil
	}
	rows := make([]int, 0, len(p.units)+1)
	rows = append(rows, rootRow)
	for i, u := range p.units {
		if p.filtered && u.Class() == search.Unmarked {
			continue
		}
		rows = append(rows, i)
	}
	return rows
}

// item returns the symbol shown at row.
func (p *Panel) item(row int) *symbols.Item {
	if row == rootRow {
		return p.tree.Root
	}
	return p.units[row].Item
}

// selected returns the item under the cursor.
func (p *Panel) selected() (*symbols.Item, bool) {
	rows := p.rows()
	if len(rows) == 0 {
		return nil, false
	}
	if p.cursor >= len(rows) {
		p.cursor = len(rows) - 1
	}
	return p.item(rows[p.cursor]), true
}

func (p *Panel) move(delta int) {
	n := len(p.rows())
	if n == 0 {
		p.cursor = 0
		return
	}
	p.cursor += delta
	if p.cursor < 0 {
		p.cursor = 0
	}
	if p.cursor >= n {
		p.cursor = n - 1
	}
}

// applyResult writes a finished pass back and keeps the cursor on the same
// symbol when it is still visible.
func (p *Panel) applyResult(classes []search.Class, outcome search.Outcome, query string) {
	var keep string
	if item, ok := p.selected(); ok {
		keep = item.FQN
	}
	symbols.ApplyClasses(p.units, classes)
	p.filtered = outcome == search.Completed
	p.query = query
	p.summary = search.Count(p.units)
	p.cursor = 0
	for i, row := range p.rows() {
		if p.item(row).FQN == keep {
			p.cursor = i
			break
		}
	}
}

// toggle flips the code block of fqn. It returns true when the code must be
// loaded first.
func (p *Panel) toggle(fqn string) bool {
	if p.open[fqn] {
		delete(p.open, fqn)
		return false
	}
	if _, ok := p.code[fqn]; ok {
		p.open[fqn] = true
		return false
	}
	return true
}
