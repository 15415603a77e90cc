package ast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/sourcegraph/jsonrpc2"
	"go.lsp.dev/protocol"

	"github.com/lexcodex/symnav/framework/symbols"
)

// LSPServerConfig describes a language server launched over stdio.
type LSPServerConfig struct {
	Language   string   `yaml:"language"`
	Command    string   `yaml:"command"`
	Args       []string `yaml:"args,omitempty"`
	Extensions []string `yaml:"extensions,omitempty"`
}

// DefaultLSPServers are the servers symnav knows how to start.
func DefaultLSPServers() []LSPServerConfig {
	return []LSPServerConfig{
		{Language: "rust", Command: "rust-analyzer", Extensions: []string{".rs"}},
		{Language: "c", Command: "clangd", Extensions: []string{".c", ".h", ".cpp", ".hpp", ".cc"}},
		{Language: "typescript", Command: "typescript-language-server", Args: []string{"--stdio"}, Extensions: []string{".ts", ".tsx", ".js"}},
		{Language: "python", Command: "pylsp", Extensions: []string{".py"}},
		{Language: "lua", Command: "lua-language-server", Extensions: []string{".lua"}},
		{Language: "d", Command: "serve-d", Extensions: []string{".d", ".di"}},
	}
}

// LSPSource lists document symbols through a language server. The server is
// started on the first Extract and kept until Close.
type LSPSource struct {
	cfg  LSPServerConfig
	root string

	mu     sync.Mutex
	cmd    *exec.Cmd
	conn   *jsonrpc2.Conn
	cancel context.CancelFunc
	opened map[protocol.DocumentURI]bool
}

// NewLSPSource prepares a source for cfg rooted at root.
func NewLSPSource(cfg LSPServerConfig, root string) *LSPSource {
	return &LSPSource{cfg: cfg, root: root, opened: make(map[protocol.DocumentURI]bool)}
}

func (s *LSPSource) Language() string { return s.cfg.Language }

// Extract asks the server for the document symbols of path.
func (s *LSPSource) Extract(ctx context.Context, path string) (*Module, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	conn, err := s.connect()
	if err != nil {
		return nil, err
	}
	if err := s.ensureOpen(ctx, conn, abs, data); err != nil {
		return nil, err
	}
	params := protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: PathToURI(abs)},
	}
	var raw json.RawMessage
	if err := conn.Call(ctx, "textDocument/documentSymbol", params, &raw); err != nil {
		return nil, fmt.Errorf("documentSymbol: %w", err)
	}
	entries, err := decodeDocumentSymbols(raw)
	if err != nil {
		return nil, err
	}
	name := ModuleName(s.root, abs)
	if name == "" {
		name = Segment(filepath.Base(abs))
	}
	return &Module{
		Name:        name,
		Path:        abs,
		Language:    s.cfg.Language,
		ContentHash: HashContent(string(data)),
		Entries:     entries,
	}, nil
}

func (s *LSPSource) connect() (*jsonrpc2.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return s.conn, nil
	}
	if s.cfg.Command == "" {
		return nil, errors.New("command is required for LSP source")
	}
	root := s.root
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, s.cfg.Command, s.cfg.Args...)
	cmd.Dir = absRoot
	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	cmd.Stderr = io.Discard

	stream := jsonrpc2.NewBufferedStream(&stdioReadWriteCloser{reader: stdout, writer: stdin}, jsonrpc2.VSCodeObjectCodec{})
	// Server notifications (diagnostics, progress) are not needed here.
	handler := jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
		if !req.Notif {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not handled"}
		}
		return nil, nil
	})
	conn := jsonrpc2.NewConn(ctx, stream, handler)

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start %s: %w", s.cfg.Command, err)
	}
	if err := initialize(ctx, conn, absRoot); err != nil {
		cancel()
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("initialize %s: %w", s.cfg.Command, err)
	}
	s.cmd = cmd
	s.conn = conn
	s.cancel = cancel
	return conn, nil
}

func initialize(ctx context.Context, conn *jsonrpc2.Conn, root string) error {
	params := &protocol.InitializeParams{
		ProcessID: int32(os.Getpid()),
		RootURI:   PathToURI(root),
		ClientInfo: &protocol.ClientInfo{
			Name:    "symnav",
			Version: "0.1",
		},
		Capabilities: protocol.ClientCapabilities{
			TextDocument: &protocol.TextDocumentClientCapabilities{
				DocumentSymbol: &protocol.DocumentSymbolClientCapabilities{
					HierarchicalDocumentSymbolSupport: true,
				},
			},
		},
	}
	var result protocol.InitializeResult
	if err := conn.Call(ctx, "initialize", params, &result); err != nil {
		return err
	}
	return conn.Notify(ctx, "initialized", &protocol.InitializedParams{})
}

func (s *LSPSource) ensureOpen(ctx context.Context, conn *jsonrpc2.Conn, file string, data []byte) error {
	uri := PathToURI(file)
	s.mu.Lock()
	if s.opened[uri] {
		s.mu.Unlock()
		return nil
	}
	s.opened[uri] = true
	s.mu.Unlock()

	params := protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        uri,
			LanguageID: protocol.LanguageIdentifier(s.cfg.Language),
			Version:    1,
			Text:       string(data),
		},
	}
	return conn.Notify(ctx, "textDocument/didOpen", params)
}

// Close shuts the language server down.
func (s *LSPSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		_ = s.conn.Notify(context.Background(), "exit", nil)
		_ = s.conn.Close()
		s.conn = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
		_, _ = s.cmd.Process.Wait()
		s.cmd = nil
	}
	return nil
}

// decodeDocumentSymbols accepts both response shapes of documentSymbol:
// the hierarchical DocumentSymbol tree and flat SymbolInformation records.
func decodeDocumentSymbols(raw json.RawMessage) ([]symbols.Entry, error) {
	alloc := newFQNAllocator()
	var entries []symbols.Entry
	var docSymbols []protocol.DocumentSymbol
	if err := json.Unmarshal(raw, &docSymbols); err == nil && hasRanges(docSymbols) {
		convertDocumentSymbols(&entries, alloc, "", docSymbols)
		return entries, nil
	}
	var infos []protocol.SymbolInformation
	if err := json.Unmarshal(raw, &infos); err != nil {
		return nil, errors.New("document symbol response not understood")
	}
	containers := make(map[string]string)
	for _, info := range infos {
		parent := containers[info.ContainerName]
		fqn := alloc.next(parent, info.Name)
		containers[info.Name] = fqn
		entries = append(entries, symbols.Entry{
			Name:      info.Name,
			Kind:      KindFromLSP(info.Kind),
			FQN:       fqn,
			BeginLine: int(info.Location.Range.Start.Line) + 1,
			EndLine:   int(info.Location.Range.End.Line) + 1,
		})
	}
	return entries, nil
}

// hasRanges distinguishes DocumentSymbol from SymbolInformation, which both
// decode without error into either type.
func hasRanges(syms []protocol.DocumentSymbol) bool {
	for _, sym := range syms {
		if sym.Range.End.Line > 0 || sym.Range.End.Character > 0 || sym.SelectionRange.End.Character > 0 {
			return true
		}
	}
	return false
}

func convertDocumentSymbols(dst *[]symbols.Entry, alloc *fqnAllocator, parent string, syms []protocol.DocumentSymbol) {
	for _, sym := range syms {
		fqn := alloc.next(parent, sym.Name)
		*dst = append(*dst, symbols.Entry{
			Name:      sym.Name,
			Kind:      KindFromLSP(sym.Kind),
			FQN:       fqn,
			BeginLine: int(sym.Range.Start.Line) + 1,
			EndLine:   int(sym.Range.End.Line) + 1,
		})
		if len(sym.Children) > 0 {
			convertDocumentSymbols(dst, alloc, fqn, sym.Children)
		}
	}
}

var lspKinds = map[protocol.SymbolKind]symbols.Kind{
	protocol.SymbolKindFile:          symbols.KindModule,
	protocol.SymbolKindModule:        symbols.KindModule,
	protocol.SymbolKindNamespace:     symbols.KindPackage,
	protocol.SymbolKindPackage:       symbols.KindPackage,
	protocol.SymbolKindClass:         symbols.KindClass,
	protocol.SymbolKindMethod:        symbols.KindMethod,
	protocol.SymbolKindProperty:      symbols.KindProperty,
	protocol.SymbolKindField:         symbols.KindField,
	protocol.SymbolKindConstructor:   symbols.KindCtor,
	protocol.SymbolKindEnum:          symbols.KindEnum,
	protocol.SymbolKindInterface:     symbols.KindInterface,
	protocol.SymbolKindFunction:      symbols.KindFunction,
	protocol.SymbolKindVariable:      symbols.KindVariable,
	protocol.SymbolKindConstant:      symbols.KindConstant,
	protocol.SymbolKindEnumMember:    symbols.KindEnumMem,
	protocol.SymbolKindStruct:        symbols.KindStruct,
	protocol.SymbolKindOperator:      symbols.KindFunction,
	protocol.SymbolKindTypeParameter: symbols.KindTemplate,
}

// KindFromLSP maps an LSP symbol kind onto a symbol Kind. Unknown kinds
// become variables.
func KindFromLSP(kind protocol.SymbolKind) symbols.Kind {
	if k, ok := lspKinds[kind]; ok {
		return k
	}
	return symbols.KindVariable
}

// editorKinds maps symbol kinds onto the LSP kinds reported to editors.
var editorKinds = map[symbols.Kind]protocol.SymbolKind{
	symbols.KindModule:    protocol.SymbolKindModule,
	symbols.KindPackage:   protocol.SymbolKindPackage,
	symbols.KindClass:     protocol.SymbolKindClass,
	symbols.KindStruct:    protocol.SymbolKindStruct,
	symbols.KindInterface: protocol.SymbolKindInterface,
	symbols.KindUnion:     protocol.SymbolKindStruct,
	symbols.KindEnum:      protocol.SymbolKindEnum,
	symbols.KindEnumMem:   protocol.SymbolKindEnumMember,
	symbols.KindFunction:  protocol.SymbolKindFunction,
	symbols.KindMethod:    protocol.SymbolKindMethod,
	symbols.KindCtor:      protocol.SymbolKindConstructor,
	symbols.KindVariable:  protocol.SymbolKindVariable,
	symbols.KindConstant:  protocol.SymbolKindConstant,
	symbols.KindField:     protocol.SymbolKindField,
	symbols.KindAlias:     protocol.SymbolKindTypeParameter,
	symbols.KindTypedef:   protocol.SymbolKindTypeParameter,
	symbols.KindTemplate:  protocol.SymbolKindTypeParameter,
	symbols.KindProperty:  protocol.SymbolKindProperty,
	symbols.KindSection:   protocol.SymbolKindNamespace,
}

// LSPKind maps a symbol Kind onto the closest LSP symbol kind.
func LSPKind(kind symbols.Kind) protocol.SymbolKind {
	if k, ok := editorKinds[kind]; ok {
		return k
	}
	if kind.Icon() == symbols.KindFunction {
		return protocol.SymbolKindFunction
	}
	return protocol.SymbolKindVariable
}

// PathToURI converts a local path into a file URI.
func PathToURI(path string) protocol.DocumentURI {
	return protocol.DocumentURI(pathToURI(path))
}

// URIToPath converts a file URI back into a local path.
func URIToPath(u protocol.DocumentURI) string {
	raw := strings.TrimPrefix(string(u), "file://")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	if runtime.GOOS == "windows" {
		raw = strings.TrimPrefix(raw, "/")
	}
	return filepath.FromSlash(raw)
}

type stdioReadWriteCloser struct {
	reader io.ReadCloser
	writer io.WriteCloser
}

func (s *stdioReadWriteCloser) Read(p []byte) (int, error)  { return s.reader.Read(p) }
func (s *stdioReadWriteCloser) Write(p []byte) (int, error) { return s.writer.Write(p) }
func (s *stdioReadWriteCloser) Close() error {
	_ = s.reader.Close()
	return s.writer.Close()
}

func pathToURI(path string) string {
	path = filepath.Clean(path)
	if runtime.GOOS == "windows" {
		path = strings.ReplaceAll(path, "\\", "/")
		return "file:///" + strings.ReplaceAll(path, ":", "%3A")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return "file://" + path
}
