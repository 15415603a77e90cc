package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lexcodex/symnav/framework"
	"github.com/lexcodex/symnav/framework/ast"
	"github.com/lexcodex/symnav/framework/search"
	"github.com/lexcodex/symnav/framework/source"
	"github.com/lexcodex/symnav/framework/symbols"
	"github.com/lexcodex/symnav/internal/symnav/runtime"
)

// noticeTTL is how long an error notice stays on screen.
const noticeTTL = 4 * time.Second

// Backend supplies the trees the browser displays.
type Backend interface {
	LoadTree(ctx context.Context, name string) (*ast.Module, *symbols.Tree, error)
	ModuleTree(ctx context.Context) (*symbols.Tree, error)
}

// Options configures a Model.
type Options struct {
	Backend   Backend
	Sources   *source.Cache
	Telemetry framework.Telemetry
	Search    search.ControllerConfig
	Workspace string
	// Module is loaded into the API panel on start. When empty the browser
	// opens on the module list.
	Module string
}

// Run starts the browser on rt and blocks until the user quits.
func Run(ctx context.Context, rt *runtime.Runtime, module string) error {
	if rt == nil {
		return fmt.Errorf("runtime is required")
	}
	model := NewModel(ctx, Options{
		Backend:   rt,
		Sources:   rt.Sources,
		Telemetry: rt.Telemetry,
		Search:    rt.Config.Search,
		Workspace: rt.Config.Workspace,
		Module:    module,
	})
	program := tea.NewProgram(
		model,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
	)
	_, err := program.Run()
	return err
}

// Model is the two-panel symbol browser.
type Model struct {
	ctx       context.Context
	backend   Backend
	sources   *source.Cache
	telemetry framework.Telemetry

	panels [2]*Panel
	active PanelID

	module *ast.Module
	start  string

	view    viewport.Model
	spinner spinner.Model

	statusBar StatusBar

	notice    string
	noticeGen uint64

	width  int
	height int
	ready  bool
}

// NewModel builds a browser model. ctx bounds backend calls.
func NewModel(ctx context.Context, opts Options) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	telemetry := opts.Telemetry
	if telemetry == nil {
		telemetry = framework.NopTelemetry{}
	}
	sources := opts.Sources
	if sources == nil {
		sources = source.NewCache()
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = dimStyle

	m := Model{
		ctx:       ctx,
		backend:   opts.Backend,
		sources:   sources,
		telemetry: telemetry,
		start:     opts.Module,
		spinner:   sp,
		statusBar: StatusBar{workspace: filepath.Base(opts.Workspace)},
	}
	m.panels[PanelAPI] = newPanel(PanelAPI, opts.Search)
	m.panels[PanelModules] = newPanel(PanelModules, opts.Search)
	if opts.Module == "" {
		m.active = PanelModules
	}
	return m
}

func (m Model) panel(id PanelID) *Panel { return m.panels[id] }

func (m Model) activePanel() *Panel { return m.panels[m.active] }

// Message types driving the browser.

type searchTimerMsg struct {
	panel      PanelID
	generation uint64
}

type searchResultMsg struct {
	panel   PanelID
	seq     uint64
	query   string
	outcome search.Outcome
	classes []search.Class
	elapsed time.Duration
}

type moduleLoadedMsg struct {
	name   string
	module *ast.Module
	tree   *symbols.Tree
	err    error
}

type moduleTreeMsg struct {
	tree *symbols.Tree
	err  error
}

type codeLoadedMsg struct {
	panel  PanelID
	module string
	fqn    string
	lines  []source.Line
	err    error
}

type noticeExpiredMsg struct {
	generation uint64
}

func scheduleSearch(panel PanelID, generation uint64, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return searchTimerMsg{panel: panel, generation: generation}
	})
}

// runPass classifies a snapshot of units off the UI loop. The live rows are
// only touched when the result message is applied.
func runPass(panel PanelID, seq uint64, units []*symbols.Unit, query string, cancelled func() bool) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		outcome := search.Classify(units, query, cancelled)
		return searchResultMsg{
			panel:   panel,
			seq:     seq,
			query:   query,
			outcome: outcome,
			classes: symbols.Classes(units),
			elapsed: time.Since(start),
		}
	}
}

func (m Model) loadModule(name string) tea.Cmd {
	backend, ctx := m.backend, m.ctx
	return func() tea.Msg {
		if backend == nil {
			return moduleLoadedMsg{name: name, err: fmt.Errorf("no backend")}
		}
		mod, tree, err := backend.LoadTree(ctx, name)
		return moduleLoadedMsg{name: name, module: mod, tree: tree, err: err}
	}
}

func (m Model) loadModuleTree() tea.Cmd {
	backend, ctx := m.backend, m.ctx
	return func() tea.Msg {
		if backend == nil {
			return moduleTreeMsg{err: fmt.Errorf("no backend")}
		}
		tree, err := backend.ModuleTree(ctx)
		return moduleTreeMsg{tree: tree, err: err}
	}
}

func (m Model) loadCode(panel PanelID, mod *ast.Module, item *symbols.Item) tea.Cmd {
	sources := m.sources
	name, path := mod.Name, mod.Path
	return func() tea.Msg {
		lines, err := sources.Symbol(path, item)
		return codeLoadedMsg{panel: panel, module: name, fqn: item.FQN, lines: lines, err: err}
	}
}

func (m Model) emit(event framework.Event) {
	if event.Module == "" && m.module != nil {
		event.Module = m.module.Name
	}
	m.telemetry.Emit(event)
}
