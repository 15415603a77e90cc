package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lexcodex/symnav/framework"
	"github.com/lexcodex/symnav/framework/search"
	"github.com/lexcodex/symnav/framework/symbols"
)

// Init loads the start module, or the module list when none was given.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spinner.Tick}
	if m.start != "" {
		m.panel(PanelAPI).loading = true
		cmds = append(cmds, m.loadModule(m.start))
	} else {
		m.panel(PanelModules).loading = true
		cmds = append(cmds, m.loadModuleTree())
	}
	return tea.Batch(cmds...)
}

// Update applies incoming Bubble Tea messages to mutate the Model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	return next.syncView(), cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	case searchTimerMsg:
		return m.handleSearchTimer(msg)
	case searchResultMsg:
		return m.handleSearchResult(msg)
	case moduleLoadedMsg:
		return m.handleModuleLoaded(msg)
	case moduleTreeMsg:
		return m.handleModuleTree(msg)
	case codeLoadedMsg:
		return m.handleCodeLoaded(msg)
	case noticeExpiredMsg:
		if msg.generation == m.noticeGen {
			m.notice = ""
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleResize adjusts the tree/input layout on terminal resize events.
func (m Model) handleResize(msg tea.WindowSizeMsg) (Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	// header, notice, prompt bar and status bar take one line each.
	bodyHeight := max(1, msg.Height-4)
	if !m.ready {
		m.view = viewport.New(msg.Width, bodyHeight)
		m.ready = true
	} else {
		m.view.Width = msg.Width
		m.view.Height = bodyHeight
	}
	for _, p := range m.panels {
		p.input.Width = max(10, msg.Width-40)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	p := m.activePanel()
	key := msg.String()
	switch key {
	case "ctrl+c", "ctrl+d":
		return m, tea.Quit
	case "tab", "shift+tab":
		p.ctrl.HandleKey(key, p.input.Value())
		return m.switchPanel()
	case "enter":
		p.ctrl.HandleKey(key, p.input.Value())
		return m.activate()
	case "up", "ctrl+p":
		p.move(-1)
	case "down", "ctrl+n":
		p.move(1)
	case "pgup":
		p.move(-m.pageSize())
	case "pgdown":
		p.move(m.pageSize())
	default:
		return m.handleFilterKey(msg)
	}
	return m, nil
}

// handleFilterKey feeds the filter input and arms the debounce timer.
func (m Model) handleFilterKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	p := m.activePanel()
	key := msg.String()
	if key == p.ctrl.CancelKey() {
		p.ctrl.HandleKey(key, p.input.Value())
		return m, nil
	}
	if p.ctrl.Focus() {
		p.input.SetValue("")
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	action := p.ctrl.HandleKey(key, p.input.Value())
	if !action.Schedule {
		return m, cmd
	}
	return m, tea.Batch(cmd, scheduleSearch(p.id, action.Generation, action.Delay))
}

func (m Model) handleSearchTimer(msg searchTimerMsg) (Model, tea.Cmd) {
	p := m.panel(msg.panel)
	query, ok := p.ctrl.Expire(msg.generation)
	if !ok {
		return m, nil
	}
	return m.startPass(p, query)
}

func (m Model) startPass(p *Panel, query string) (Model, tea.Cmd) {
	p.requested = query
	if p.tree == nil {
		return m, nil
	}
	p.passSeq++
	p.running = true
	m.emit(framework.Event{Type: framework.EventSearchPassStart, Panel: p.id.String(), Message: query})
	return m, runPass(p.id, p.passSeq, symbols.Snapshot(p.units), query, p.ctrl.CancelWatch())
}

// rerun applies the requested query to a freshly loaded tree.
func (m Model) rerun(p *Panel) (Model, tea.Cmd) {
	if strings.TrimSpace(p.requested) == "" {
		return m, nil
	}
	return m.startPass(p, p.requested)
}

func (m Model) handleSearchResult(msg searchResultMsg) (Model, tea.Cmd) {
	p := m.panel(msg.panel)
	if msg.seq != p.passSeq {
		m.emit(framework.Event{
			Type:     framework.EventSearchPassCancel,
			Panel:    p.id.String(),
			Message:  msg.query,
			Metadata: map[string]interface{}{"reason": "superseded"},
		})
		return m, nil
	}
	p.running = false
	if msg.outcome == search.Cancelled {
		m.emit(framework.Event{
			Type:     framework.EventSearchPassCancel,
			Panel:    p.id.String(),
			Message:  msg.query,
			Metadata: map[string]interface{}{"reason": "cancel key"},
		})
		return m, nil
	}
	p.applyResult(msg.classes, msg.outcome, msg.query)
	eventType := framework.EventSearchPassFinish
	if msg.outcome == search.Unfiltered {
		eventType = framework.EventSearchPassClear
	}
	m.emit(framework.Event{
		Type:    eventType,
		Panel:   p.id.String(),
		Message: msg.query,
		Metadata: map[string]interface{}{
			"matches":   p.summary.Matches,
			"ancestors": p.summary.Ancestors,
			"elapsed":   msg.elapsed.String(),
		},
	})
	return m, nil
}

func (m Model) switchPanel() (Model, tea.Cmd) {
	if m.active == PanelAPI {
		m.active = PanelModules
	} else {
		m.active = PanelAPI
	}
	p := m.activePanel()
	if p.id == PanelModules && !p.built && !p.loading {
		p.loading = true
		return m, m.loadModuleTree()
	}
	return m, nil
}

// activate opens the module under the cursor, or toggles the code of the
// symbol under the cursor.
func (m Model) activate() (Model, tea.Cmd) {
	p := m.activePanel()
	item, ok := p.selected()
	if !ok {
		return m, nil
	}
	if p.id == PanelModules {
		if item.Kind != symbols.KindModule {
			return m, nil
		}
		m.panel(PanelAPI).loading = true
		return m, m.loadModule(item.FQN)
	}
	if m.module == nil || !p.toggle(item.FQN) {
		return m, nil
	}
	return m, m.loadCode(p.id, m.module, item)
}

func (m Model) handleModuleLoaded(msg moduleLoadedMsg) (Model, tea.Cmd) {
	api := m.panel(PanelAPI)
	api.loading = false
	if msg.err != nil {
		return m.showNotice(fmt.Sprintf("load %s: %v", msg.name, msg.err))
	}
	m.module = msg.module
	api.setTree(msg.tree)
	m.active = PanelAPI
	return m.rerun(api)
}

func (m Model) handleModuleTree(msg moduleTreeMsg) (Model, tea.Cmd) {
	p := m.panel(PanelModules)
	p.loading = false
	if msg.err != nil {
		return m.showNotice(fmt.Sprintf("list modules: %v", msg.err))
	}
	p.setTree(msg.tree)
	return m.rerun(p)
}

func (m Model) handleCodeLoaded(msg codeLoadedMsg) (Model, tea.Cmd) {
	if m.module == nil || msg.module != m.module.Name {
		return m, nil
	}
	if msg.err != nil {
		m.emit(framework.Event{Type: framework.EventSourceLoadError, Panel: msg.panel.String(), Message: msg.err.Error()})
		return m.showNotice(fmt.Sprintf("cannot show %s: %v", displayFQN(msg.fqn), msg.err))
	}
	p := m.panel(msg.panel)
	p.code[msg.fqn] = msg.lines
	p.open[msg.fqn] = true
	m.emit(framework.Event{Type: framework.EventSourceLoad, Panel: msg.panel.String(), Message: displayFQN(msg.fqn)})
	return m, nil
}

// showNotice displays text until a newer notice replaces it or it expires.
func (m Model) showNotice(text string) (Model, tea.Cmd) {
	m.noticeGen++
	m.notice = text
	gen := m.noticeGen
	return m, tea.Tick(noticeTTL, func(time.Time) tea.Msg {
		return noticeExpiredMsg{generation: gen}
	})
}

func (m Model) pageSize() int {
	if m.ready && m.view.Height > 1 {
		return m.view.Height - 1
	}
	return 10
}

// syncView renders the active panel into the viewport and scrolls so the
// cursor stays visible.
func (m Model) syncView() Model {
	p := m.activePanel()
	m.statusBar = m.statusBar.with(m, p)
	if !m.ready {
		return m
	}
	content, cursorLine := m.renderPanel(p)
	m.view.SetContent(content)
	m.view.SetYOffset(p.offset)
	switch {
	case cursorLine < m.view.YOffset:
		m.view.SetYOffset(cursorLine)
	case cursorLine >= m.view.YOffset+m.view.Height:
		m.view.SetYOffset(cursorLine - m.view.Height + 1)
	}
	p.offset = m.view.YOffset
	return m
}

func displayFQN(fqn string) string {
	if fqn == "" {
		return "module"
	}
	return fqn
}
