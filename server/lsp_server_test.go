package server

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"testing"
	"time"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"

	"github.com/lexcodex/symnav/framework"
	"github.com/lexcodex/symnav/framework/ast"
	"github.com/lexcodex/symnav/framework/symbols"
)

func newLSPClient(t *testing.T) (*jsonrpc2.Conn, string, *recordingTelemetry) {
	t.Helper()
	api, telemetry := newTestAPI(t)
	mod, err := api.Store.LoadModule(context.Background(), "calc")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	serverSide, clientSide := net.Pipe()
	srv := NewLSPServer(api.Store, telemetry, log.New(io.Discard, "", 0))
	done := make(chan error, 1)
	go func() { done <- srv.ServeStream(ctx, serverSide) }()

	noop := jsonrpc2.HandlerWithError(func(context.Context, *jsonrpc2.Conn, *jsonrpc2.Request) (interface{}, error) {
		return nil, nil
	})
	client := jsonrpc2.NewConn(ctx, jsonrpc2.NewBufferedStream(clientSide, jsonrpc2.VSCodeObjectCodec{}), noop)
	t.Cleanup(func() {
		client.Close()
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Errorf("lsp server did not stop")
		}
	})
	return client, mod.Path, telemetry
}

func TestLSPServerInitialize(t *testing.T) {
	client, _, _ := newLSPClient(t)
	var result protocol.InitializeResult
	require.NoError(t, client.Call(context.Background(), protocol.MethodInitialize, &protocol.InitializeParams{}, &result))
	require.NotNil(t, result.ServerInfo)
	assert.Equal(t, "symnav", result.ServerInfo.Name)
	assert.Equal(t, true, result.Capabilities.WorkspaceSymbolProvider)
}

func TestLSPServerWorkspaceSymbol(t *testing.T) {
	client, path, telemetry := newLSPClient(t)
	ctx := context.Background()

	var infos []protocol.SymbolInformation
	require.NoError(t, client.Call(ctx, protocol.MethodWorkspaceSymbol, &protocol.WorkspaceSymbolParams{Query: "add"}, &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "Add", infos[0].Name)
	assert.Equal(t, protocol.SymbolKindMethod, infos[0].Kind)
	assert.Equal(t, "calc.Calc", infos[0].ContainerName)
	assert.Equal(t, path, ast.URIToPath(infos[0].Location.URI))
	assert.Equal(t, uint32(6), infos[0].Location.Range.Start.Line)
	assert.Equal(t, framework.EventSearchPassFinish, telemetry.events[len(telemetry.events)-1].Type)

	// Ghost matches but has no lines to jump to.
	require.NoError(t, client.Call(ctx, protocol.MethodWorkspaceSymbol, &protocol.WorkspaceSymbolParams{Query: "ghost"}, &infos))
	assert.Empty(t, infos)

	require.NoError(t, client.Call(ctx, protocol.MethodWorkspaceSymbol, &protocol.WorkspaceSymbolParams{Query: "  "}, &infos))
	assert.Empty(t, infos)
	assert.Equal(t, framework.EventSearchPassClear, telemetry.events[len(telemetry.events)-1].Type)
}

func TestLSPServerDocumentSymbol(t *testing.T) {
	client, path, _ := newLSPClient(t)
	var syms []protocol.DocumentSymbol
	params := &protocol.DocumentSymbolParams{TextDocument: protocol.TextDocumentIdentifier{URI: ast.PathToURI(path)}}
	require.NoError(t, client.Call(context.Background(), protocol.MethodTextDocumentDocumentSymbol, params, &syms))
	require.Len(t, syms, 1)
	assert.Equal(t, "Calc", syms[0].Name)
	assert.Equal(t, protocol.SymbolKindStruct, syms[0].Kind)
	require.Len(t, syms[0].Children, 2)
	assert.Equal(t, "Calc.Add", syms[0].Children[1].Detail)

	params.TextDocument.URI = ast.PathToURI("/elsewhere.go")
	require.NoError(t, client.Call(context.Background(), protocol.MethodTextDocumentDocumentSymbol, params, &syms))
	assert.Empty(t, syms)
}

func TestLSPServerUnknownMethod(t *testing.T) {
	client, _, _ := newLSPClient(t)
	err := client.Call(context.Background(), "textDocument/hover", map[string]string{}, nil)
	require.Error(t, err)
	var rpcErr *jsonrpc2.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, int64(jsonrpc2.CodeMethodNotFound), rpcErr.Code)
}

type memoryStore map[string]*ast.Module

func (m memoryStore) ModuleNames(context.Context) ([]string, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	return names, nil
}

func (m memoryStore) LoadModule(_ context.Context, name string) (*ast.Module, error) {
	return m[name], nil
}

func TestLSPServerWorkspaceSymbolCap(t *testing.T) {
	mod := &ast.Module{Name: "big", Path: "/src/big.go", Language: "go"}
	for i := 0; i < maxWorkspaceSymbols+20; i++ {
		name := fmt.Sprintf("Handler%d", i)
		mod.Entries = append(mod.Entries, symbols.Entry{Name: name, Kind: symbols.KindFunction, FQN: name, BeginLine: i + 1, EndLine: i + 1})
	}
	telemetry := &recordingTelemetry{}
	srv := NewLSPServer(memoryStore{"big": mod}, telemetry, log.New(io.Discard, "", 0))

	out, err := srv.WorkspaceSymbol(context.Background(), "handler")
	require.NoError(t, err)
	assert.Len(t, out, maxWorkspaceSymbols)

	require.Len(t, telemetry.events, 2)
	finish := telemetry.events[1]
	assert.Equal(t, framework.EventSearchPassFinish, finish.Type)
	assert.Equal(t, maxWorkspaceSymbols, finish.Metadata["matches"])
	assert.Equal(t, true, finish.Metadata["truncated"])
}
