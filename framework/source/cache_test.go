package source

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/symnav/framework/symbols"
)

func TestCacheLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "calc.go")
	require.NoError(t, os.WriteFile(path, []byte("package calc\n\nfunc Add(a, b int) int {\r\n\treturn a + b\n}\n"), 0o644))

	c := NewCache()
	assert.False(t, c.Loaded(path))

	lines, err := c.Lines(path, 3, 5)
	require.NoError(t, err)
	assert.True(t, c.Loaded(path))
	require.Len(t, lines, 3)
	assert.Equal(t, Line{Number: 3, Content: "func Add(a, b int) int {"}, lines[0])
	assert.Equal(t, Line{Number: 5, Content: "}"}, lines[2])

	all, err := c.All(path)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	_, err = c.Lines(path, 4, 9)
	assert.True(t, errors.Is(err, ErrRange))
}

func TestCacheLoadsOnce(t *testing.T) {
	reads := 0
	c := NewCache()
	c.read = func(string) ([]byte, error) {
		reads++
		return []byte("a\nb\n"), nil
	}
	for i := 0; i < 3; i++ {
		n, err := c.Load("x.go")
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	}
	assert.Equal(t, 1, reads)

	c.Forget("x.go")
	assert.False(t, c.Loaded("x.go"))
	_, err := c.Load("x.go")
	require.NoError(t, err)
	assert.Equal(t, 2, reads)
}

func TestCacheFailedLoadIsNotCached(t *testing.T) {
	c := NewCache()
	_, err := c.Lines(filepath.Join(t.TempDir(), "missing.go"), 1, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.False(t, c.Loaded("missing.go"))
}

func TestCacheHTMLSource(t *testing.T) {
	page := `<html><body><pre class="sourcecode">
<span class="kw">module</span> foo;
int x = 1 &lt; 2;
</pre></body></html>`
	c := NewCache()
	c.read = func(string) ([]byte, error) { return []byte(page), nil }

	lines, err := c.All("htmlsrc/foo.html")
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "module foo;", lines[0].Content)
	assert.Equal(t, "int x = 1 < 2;", lines[1].Content)
}

func TestCacheSymbol(t *testing.T) {
	c := NewCache()
	c.read = func(path string) ([]byte, error) {
		switch path {
		case "mod.go":
			return []byte("package mod\n\ntype T struct{}\n\nfunc (T) M() {}\n"), nil
		case "other.go":
			return []byte("package mod\n\nfunc F() {}\n"), nil
		}
		return nil, os.ErrNotExist
	}

	root := &symbols.Item{Name: "mod", Kind: symbols.KindModule}
	all, err := c.Symbol("mod.go", root)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	m := &symbols.Item{Name: "M", FQN: "T.M", BeginLine: 5, EndLine: 5}
	lines, err := c.Symbol("mod.go", m)
	require.NoError(t, err)
	assert.Equal(t, []Line{{Number: 5, Content: "func (T) M() {}"}}, lines)

	f := &symbols.Item{Name: "F", FQN: "F", BeginLine: 3, EndLine: 3, File: "other.go"}
	lines, err = c.Symbol("mod.go", f)
	require.NoError(t, err)
	assert.Equal(t, "func F() {}", lines[0].Content)

	_, err = c.Symbol("mod.go", &symbols.Item{Name: "x", FQN: "x"})
	assert.True(t, errors.Is(err, ErrNoSource))
	_, err = c.Symbol("", m)
	assert.True(t, errors.Is(err, ErrNoSource))
}
