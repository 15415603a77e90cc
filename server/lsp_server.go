package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/sourcegraph/jsonrpc2"
	"go.lsp.dev/protocol"

	"github.com/lexcodex/symnav/framework"
	"github.com/lexcodex/symnav/framework/ast"
	"github.com/lexcodex/symnav/framework/search"
	"github.com/lexcodex/symnav/framework/source"
	"github.com/lexcodex/symnav/framework/symbols"
)

// maxWorkspaceSymbols caps a workspace/symbol reply.
const maxWorkspaceSymbols = 500

// LSPServer answers symbol requests from editors out of the symbol store. It
// speaks LSP over a single stream.
type LSPServer struct {
	Store     ModuleStore
	Telemetry framework.Telemetry
	Logger    *log.Logger
}

// NewLSPServer builds a server instance.
func NewLSPServer(store ModuleStore, telemetry framework.Telemetry, logger *log.Logger) *LSPServer {
	if logger == nil {
		logger = log.Default()
	}
	if telemetry == nil {
		telemetry = framework.NopTelemetry{}
	}
	return &LSPServer{Store: store, Telemetry: telemetry, Logger: logger}
}

// ServeStream handles requests on rwc until the client disconnects or ctx is
// done.
func (s *LSPServer) ServeStream(ctx context.Context, rwc io.ReadWriteCloser) error {
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.HandlerWithError(s.handle))
	select {
	case <-ctx.Done():
		conn.Close()
		return ctx.Err()
	case <-conn.DisconnectNotify():
		return nil
	}
}

func (s *LSPServer) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	switch req.Method {
	case protocol.MethodInitialize:
		return s.Initialize(), nil
	case protocol.MethodInitialized, protocol.MethodTextDocumentDidOpen,
		protocol.MethodTextDocumentDidChange, protocol.MethodTextDocumentDidClose:
		return nil, nil
	case protocol.MethodWorkspaceSymbol:
		var params protocol.WorkspaceSymbolParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		return s.WorkspaceSymbol(ctx, params.Query)
	case protocol.MethodTextDocumentDocumentSymbol:
		var params protocol.DocumentSymbolParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		return s.DocumentSymbol(ctx, ast.URIToPath(params.TextDocument.URI))
	case protocol.MethodShutdown:
		return nil, nil
	case protocol.MethodExit:
		return nil, conn.Close()
	}
	return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: fmt.Sprintf("method %s not supported", req.Method)}
}

func unmarshalParams(req *jsonrpc2.Request, v interface{}) error {
	if req.Params == nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "missing params"}
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
	}
	return nil
}

// Initialize advertises the symbol providers.
func (s *LSPServer) Initialize() *protocol.InitializeResult {
	s.Logger.Printf("LSP initialize")
	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			DocumentSymbolProvider:  true,
			WorkspaceSymbolProvider: true,
		},
		ServerInfo: &protocol.ServerInfo{Name: "symnav"},
	}
}

// WorkspaceSymbol runs one quick-search pass per module and reports the
// matches. An empty query reports nothing.
func (s *LSPServer) WorkspaceSymbol(ctx context.Context, query string) ([]protocol.SymbolInformation, error) {
	names, err := s.Store.ModuleNames(ctx)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	s.Telemetry.Emit(framework.Event{Type: framework.EventSearchPassStart, Panel: "lsp", Message: query})
	out := []protocol.SymbolInformation{}
	truncated := false
collect:
	for _, name := range names {
		mod, err := s.Store.LoadModule(ctx, name)
		if err != nil {
			return nil, err
		}
		tree, err := mod.Tree()
		if err != nil {
			s.Logger.Printf("skip module %s: %v", name, err)
			continue
		}
		units := tree.Flatten()
		switch search.Classify(units, query, func() bool { return ctx.Err() != nil }) {
		case search.Cancelled:
			s.Telemetry.Emit(framework.Event{Type: framework.EventSearchPassCancel, Panel: "lsp", Message: query})
			return nil, ctx.Err()
		case search.Unfiltered:
			s.Telemetry.Emit(framework.Event{Type: framework.EventSearchPassClear, Panel: "lsp", Message: query})
			return out, nil
		}
		for _, u := range units {
			if u.Class() != search.Match || !u.Item.HasLines() {
				continue
			}
			out = append(out, protocol.SymbolInformation{
				Name:          u.Item.DisplayText(),
				Kind:          ast.LSPKind(u.Item.Kind),
				ContainerName: containerName(mod, u.Item),
				Location: protocol.Location{
					URI:   ast.PathToURI(source.SymbolPath(mod.Path, u.Item)),
					Range: itemRange(u.Item),
				},
			})
			if len(out) >= maxWorkspaceSymbols {
				truncated = true
				break collect
			}
		}
	}
	s.Telemetry.Emit(framework.Event{
		Type:    framework.EventSearchPassFinish,
		Panel:   "lsp",
		Message: query,
		Metadata: map[string]interface{}{
			"matches":   len(out),
			"truncated": truncated,
			"elapsed":   time.Since(start).String(),
		},
	})
	return out, nil
}

// DocumentSymbol returns the nested symbols declared in path across every
// module that covers it.
func (s *LSPServer) DocumentSymbol(ctx context.Context, path string) ([]protocol.DocumentSymbol, error) {
	names, err := s.Store.ModuleNames(ctx)
	if err != nil {
		return nil, err
	}
	path = filepath.Clean(path)
	out := []protocol.DocumentSymbol{}
	for _, name := range names {
		mod, err := s.Store.LoadModule(ctx, name)
		if err != nil {
			return nil, err
		}
		tree, err := mod.Tree()
		if err != nil {
			continue
		}
		out = append(out, documentSymbols(tree.Root.Children, mod.Path, path)...)
	}
	return out, nil
}

// documentSymbols keeps the items declared in path. Children of a dropped
// item are lifted to its level.
func documentSymbols(items []*symbols.Item, modulePath, path string) []protocol.DocumentSymbol {
	var out []protocol.DocumentSymbol
	for _, item := range items {
		children := documentSymbols(item.Children, modulePath, path)
		if !item.HasLines() || filepath.Clean(source.SymbolPath(modulePath, item)) != path {
			out = append(out, children...)
			continue
		}
		r := itemRange(item)
		out = append(out, protocol.DocumentSymbol{
			Name:           item.DisplayText(),
			Detail:         item.FQN,
			Kind:           ast.LSPKind(item.Kind),
			Range:          r,
			SelectionRange: r,
			Children:       children,
		})
	}
	return out
}

func containerName(mod *ast.Module, item *symbols.Item) string {
	if parent := symbols.ParentFQN(item.FQN); parent != "" {
		return mod.Name + "." + parent
	}
	return mod.Name
}

// itemRange converts 1-based inclusive lines into an LSP range covering whole
// lines.
func itemRange(item *symbols.Item) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: uint32(item.BeginLine - 1)},
		End:   protocol.Position{Line: uint32(item.EndLine)},
	}
}
