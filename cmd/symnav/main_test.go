package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const calcSource = "package calc\n\ntype Calc struct {\n\tTotal int\n}\n\nfunc (c *Calc) Add(n int) {\n\tc.Total += n\n}\n\nfunc New() *Calc {\n\treturn &Calc{}\n}\n"

func newWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "calc"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "calc", "calc.go"), []byte(calcSource), 0o644))
	return dir
}

func run(t *testing.T, dir, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--workspace", dir}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestIndexAndList(t *testing.T) {
	dir := newWorkspace(t)
	out, err := run(t, dir, "", "index")
	require.NoError(t, err)
	assert.Contains(t, out, "indexed calc (4 symbols)")

	out, err = run(t, dir, "", "index")
	require.NoError(t, err)
	assert.Contains(t, out, "skipped calc")

	out, err = run(t, dir, "", "modules")
	require.NoError(t, err)
	assert.Contains(t, out, "MODULE")
	assert.Contains(t, out, "calc")
	assert.Contains(t, out, "go")

	out, err = run(t, dir, "", "remove", "calc")
	require.NoError(t, err)
	assert.Contains(t, out, "removed calc")
	_, err = run(t, dir, "", "remove", "calc")
	require.Error(t, err)
}

func TestIndexExclude(t *testing.T) {
	dir := newWorkspace(t)
	out, err := run(t, dir, "", "index", "--exclude", "calc")
	require.NoError(t, err)
	assert.NotContains(t, out, "calc")
}

func TestIndexReportsFailures(t *testing.T) {
	dir := newWorkspace(t)
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("symbols:\n  - {name: m, kind: method, fqn: C.m}\n"), 0o644))
	out, err := run(t, dir, "", "index", bad)
	require.Error(t, err)
	require.ErrorIs(t, err, errIndexFailed)
	assert.Contains(t, out, "error")
}

func TestTreeAndFilter(t *testing.T) {
	dir := newWorkspace(t)
	_, err := run(t, dir, "", "index")
	require.NoError(t, err)

	out, err := run(t, dir, "", "tree", "calc")
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"calc",
		"├── Calc  [struct L3-5]",
		"│   ├── Total  [field L4-4]",
		"│   └── Add  [method L7-9]",
		"└── New  [function L11-13]",
	}, "\n")+"\n", out)

	out, err = run(t, dir, "", "filter", "calc", "add")
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"calc",
		"└── Calc  [struct L3-5]",
		"    └── Add  [method L7-9] *",
		"1 matches, 1 parents",
	}, "\n")+"\n", out)

	_, err = run(t, dir, "", "tree", "nope")
	require.Error(t, err)
}

func TestFilterWatchDebouncesLines(t *testing.T) {
	dir := newWorkspace(t)
	_, err := run(t, dir, "", "index")
	require.NoError(t, err)

	out, err := run(t, dir, "ad\nadd\n", "--search-delay", "20ms", "filter", "--watch", "calc")
	require.NoError(t, err)
	assert.Contains(t, out, `-- "add"`)
	assert.NotContains(t, out, `-- "ad"`+"\n")
	assert.Equal(t, 1, strings.Count(out, "-- "))
}

func TestFilterWatchCancel(t *testing.T) {
	dir := newWorkspace(t)
	_, err := run(t, dir, "", "index")
	require.NoError(t, err)

	out, err := run(t, dir, "add\n:cancel\n", "--search-delay", "50ms", "filter", "--watch", "calc")
	require.NoError(t, err)
	assert.NotContains(t, out, "-- ")
}

func TestInitWritesConfig(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, dir, "", "init")
	require.NoError(t, err)
	path := filepath.Join(dir, ".symnav", "config.yaml")
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	_, err = run(t, dir, "", "init")
	require.Error(t, err)
	_, err = run(t, dir, "", "init", "--force")
	require.NoError(t, err)
}

func TestLSPCommandAnswersInitialize(t *testing.T) {
	dir := newWorkspace(t)
	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`
	frame := fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(body), body)
	out, err := run(t, dir, frame, "lsp")
	require.NoError(t, err)
	assert.Contains(t, out, `"name":"symnav"`)

	_, err = run(t, dir, "", "--verbose", "lsp")
	require.Error(t, err)
}
