package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/symnav/framework"
	"github.com/lexcodex/symnav/framework/ast"
	"github.com/lexcodex/symnav/framework/source"
	"github.com/lexcodex/symnav/framework/symbols"
	"github.com/lexcodex/symnav/persistence"
)

type recordingTelemetry struct {
	events []framework.Event
}

func (r *recordingTelemetry) Emit(e framework.Event) { r.events = append(r.events, e) }

func newTestAPI(t *testing.T) (*APIServer, *recordingTelemetry) {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "calc.go")
	require.NoError(t, os.WriteFile(src, []byte("package calc\n\ntype Calc struct {\n\tTotal int\n}\n\nfunc (c *Calc) Add(n int) {\n\tc.Total += n\n}\n"), 0o644))

	store, err := persistence.NewSymbolStore(filepath.Join(dir, "symbols.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.SaveModule(context.Background(), &ast.Module{
		Name:     "calc",
		Path:     src,
		Language: "go",
		Entries: []symbols.Entry{
			{Name: "Calc", Kind: symbols.KindStruct, FQN: "Calc", BeginLine: 3, EndLine: 5},
			{Name: "Total", Kind: symbols.KindField, FQN: "Calc.Total", BeginLine: 4, EndLine: 4},
			{Name: "Add", Kind: symbols.KindMethod, FQN: "Calc.Add", BeginLine: 7, EndLine: 9},
			{Name: "Ghost", Kind: symbols.KindVariable, FQN: "Ghost"},
		},
	}))

	telemetry := &recordingTelemetry{}
	return &APIServer{
		Store:     store,
		Sources:   source.NewCache(),
		Telemetry: telemetry,
		Logger:    log.New(io.Discard, "", 0),
	}, telemetry
}

func get(t *testing.T, api *APIServer, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	return rec
}

func TestAPIServerModules(t *testing.T) {
	api, _ := newTestAPI(t)
	rec := get(t, api, "/api/modules")
	assert.Equal(t, http.StatusOK, rec.Code)
	var names []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &names))
	assert.Equal(t, []string{"calc"}, names)
}

func TestAPIServerSymbolsFiltered(t *testing.T) {
	api, telemetry := newTestAPI(t)
	rec := get(t, api, "/api/symbols?module=calc&q=add")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SymbolsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Filtered)
	assert.Equal(t, 1, resp.Matches)
	assert.Equal(t, 1, resp.Ancestors)
	require.Len(t, resp.Root.Children, 2)

	calc := resp.Root.Children[0]
	assert.Equal(t, "parent_of_match", calc.Class)
	require.Len(t, calc.Children, 2)
	assert.Equal(t, "", calc.Children[0].Class)
	assert.Equal(t, "match", calc.Children[1].Class)
	assert.Equal(t, symbols.KindFunction, calc.Children[1].Icon)

	require.Len(t, telemetry.events, 2)
	assert.Equal(t, framework.EventSearchPassStart, telemetry.events[0].Type)
	assert.Equal(t, framework.EventSearchPassFinish, telemetry.events[1].Type)
}

func TestAPIServerSymbolsEmptyQuery(t *testing.T) {
	api, telemetry := newTestAPI(t)
	rec := get(t, api, "/api/symbols?module=calc&q=%20%20")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SymbolsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Filtered)
	assert.Equal(t, 0, resp.Matches)
	assert.Equal(t, "calc", resp.Root.Name)
	assert.Equal(t, framework.EventSearchPassClear, telemetry.events[len(telemetry.events)-1].Type)
}

func TestAPIServerSymbolsErrors(t *testing.T) {
	api, _ := newTestAPI(t)
	assert.Equal(t, http.StatusBadRequest, get(t, api, "/api/symbols").Code)
	assert.Equal(t, http.StatusNotFound, get(t, api, "/api/symbols?module=nope").Code)

	req := httptest.NewRequest(http.MethodPost, "/api/symbols?module=calc", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAPIServerSource(t *testing.T) {
	api, telemetry := newTestAPI(t)
	rec := get(t, api, "/api/source?module=calc&fqn=Calc.Add")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SourceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Lines, 3)
	assert.Equal(t, 7, resp.Lines[0].Number)
	assert.Equal(t, "func (c *Calc) Add(n int) {", resp.Lines[0].Content)
	assert.Equal(t, framework.EventSourceLoad, telemetry.events[len(telemetry.events)-1].Type)

	rec = get(t, api, "/api/source?module=calc&fqn=")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Lines, 9)

	assert.Equal(t, http.StatusNotFound, get(t, api, "/api/source?module=calc&fqn=Missing").Code)
	assert.Equal(t, http.StatusNotFound, get(t, api, "/api/source?module=calc&fqn=Ghost").Code)
	assert.Equal(t, framework.EventSourceLoadError, telemetry.events[len(telemetry.events)-1].Type)
}
