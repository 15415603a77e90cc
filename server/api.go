package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/lexcodex/symnav/framework"
	"github.com/lexcodex/symnav/framework/ast"
	"github.com/lexcodex/symnav/framework/search"
	"github.com/lexcodex/symnav/framework/source"
	"github.com/lexcodex/symnav/framework/symbols"
	"github.com/lexcodex/symnav/persistence"
)

// ModuleStore is the read side of the symbol store.
type ModuleStore interface {
	ModuleNames(ctx context.Context) ([]string, error)
	LoadModule(ctx context.Context, name string) (*ast.Module, error)
}

// APIServer exposes the indexed modules over HTTP.
type APIServer struct {
	Store     ModuleStore
	Sources   *source.Cache
	Telemetry framework.Telemetry
	Logger    *log.Logger
}

// SymbolNode is one node of the nested tree returned by /api/symbols.
type SymbolNode struct {
	Name     string        `json:"name"`
	Text     string        `json:"text"`
	Kind     symbols.Kind  `json:"kind"`
	Icon     symbols.Kind  `json:"icon"`
	FQN      string        `json:"fqn"`
	Begin    int           `json:"begin,omitempty"`
	End      int           `json:"end,omitempty"`
	Class    string        `json:"class,omitempty"`
	Children []*SymbolNode `json:"children,omitempty"`
}

// SymbolsResponse is the payload of /api/symbols.
type SymbolsResponse struct {
	Module    string      `json:"module"`
	Query     string      `json:"query,omitempty"`
	Filtered  bool        `json:"filtered"`
	Matches   int         `json:"matches"`
	Ancestors int         `json:"ancestors"`
	Root      *SymbolNode `json:"root"`
}

// SourceResponse is the payload of /api/source.
type SourceResponse struct {
	Module string        `json:"module"`
	FQN    string        `json:"fqn"`
	Path   string        `json:"path"`
	Lines  []source.Line `json:"lines"`
}

// Serve starts listening on the provided address.
func (s *APIServer) Serve(addr string) error {
	return s.ServeContext(context.Background(), addr)
}

// ServeContext allows the caller to control shutdown via context cancellation.
func (s *APIServer) ServeContext(ctx context.Context, addr string) error {
	server := s.newHTTPServer(addr)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	s.logf("API listening on %s", addr)
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Handler returns the API routes.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/modules", s.handleModules)
	mux.HandleFunc("/api/symbols", s.handleSymbols)
	mux.HandleFunc("/api/source", s.handleSource)
	return mux
}

func (s *APIServer) newHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
}

func (s *APIServer) handleModules(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	names, err := s.Store.ModuleNames(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, names)
}

func (s *APIServer) handleSymbols(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	name := r.URL.Query().Get("module")
	query := r.URL.Query().Get("q")
	mod, tree, ok := s.loadTree(w, r, name)
	if !ok {
		return
	}

	units := tree.Flatten()
	start := time.Now()
	s.emit(framework.Event{Type: framework.EventSearchPassStart, Module: mod.Name, Panel: "http", Message: query})
	outcome := search.Classify(units, query, func() bool { return r.Context().Err() != nil })
	if outcome == search.Cancelled {
		s.emit(framework.Event{Type: framework.EventSearchPassCancel, Module: mod.Name, Panel: "http", Message: query})
		return
	}
	summary := search.Count(units)
	eventType := framework.EventSearchPassFinish
	if outcome == search.Unfiltered {
		eventType = framework.EventSearchPassClear
	}
	s.emit(framework.Event{
		Type:    eventType,
		Module:  mod.Name,
		Panel:   "http",
		Message: query,
		Metadata: map[string]interface{}{
			"matches":   summary.Matches,
			"ancestors": summary.Ancestors,
			"elapsed":   time.Since(start).String(),
		},
	})

	writeJSON(w, SymbolsResponse{
		Module:    mod.Name,
		Query:     query,
		Filtered:  outcome == search.Completed,
		Matches:   summary.Matches,
		Ancestors: summary.Ancestors,
		Root:      nestUnits(tree.Root, units),
	})
}

func (s *APIServer) handleSource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	name := r.URL.Query().Get("module")
	fqn := r.URL.Query().Get("fqn")
	mod, tree, ok := s.loadTree(w, r, name)
	if !ok {
		return
	}
	item, found := tree.Lookup(fqn)
	if !found {
		http.Error(w, "symbol not found: "+fqn, http.StatusNotFound)
		return
	}
	path := source.SymbolPath(mod.Path, item)
	lines, err := s.Sources.Symbol(mod.Path, item)
	if err != nil {
		s.emit(framework.Event{Type: framework.EventSourceLoadError, Module: mod.Name, Panel: "http", Message: err.Error()})
		switch {
		case errors.Is(err, source.ErrNoSource), errors.Is(err, source.ErrRange):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			s.fail(w, err)
		}
		return
	}
	s.emit(framework.Event{Type: framework.EventSourceLoad, Module: mod.Name, Panel: "http", Message: path})
	writeJSON(w, SourceResponse{Module: mod.Name, FQN: fqn, Path: path, Lines: lines})
}

func (s *APIServer) loadTree(w http.ResponseWriter, r *http.Request, name string) (*ast.Module, *symbols.Tree, bool) {
	if name == "" {
		http.Error(w, "module parameter required", http.StatusBadRequest)
		return nil, nil, false
	}
	mod, err := s.Store.LoadModule(r.Context(), name)
	if err != nil {
		if errors.Is(err, persistence.ErrModuleNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
		} else {
			s.fail(w, err)
		}
		return nil, nil, false
	}
	tree, err := mod.Tree()
	if err != nil {
		s.fail(w, err)
		return nil, nil, false
	}
	return mod, tree, true
}

// nestUnits rebuilds the nested tree from a classified flattening.
func nestUnits(root *symbols.Item, units []*symbols.Unit) *SymbolNode {
	top := &SymbolNode{Name: root.Name, Text: root.DisplayText(), Kind: root.Kind, Icon: root.Kind.Icon()}
	nodes := make([]*SymbolNode, len(units))
	for i, u := range units {
		node := &SymbolNode{
			Name:  u.Item.Name,
			Text:  u.Item.DisplayText(),
			Kind:  u.Item.Kind,
			Icon:  u.Item.Kind.Icon(),
			FQN:   u.Item.FQN,
			Begin: u.Item.BeginLine,
			End:   u.Item.EndLine,
			Class: u.Class().String(),
		}
		nodes[i] = node
		parent := top
		if u.Parent >= 0 {
			parent = nodes[u.Parent]
		}
		parent.Children = append(parent.Children, node)
	}
	return top
}

func (s *APIServer) fail(w http.ResponseWriter, err error) {
	s.logf("api error: %v", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func (s *APIServer) logf(format string, args ...interface{}) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}

func (s *APIServer) emit(event framework.Event) {
	if s.Telemetry != nil {
		s.Telemetry.Emit(event)
	}
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
