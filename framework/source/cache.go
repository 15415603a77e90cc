// Package source loads the source text behind symbols so views can display
// the code of a declaration.
package source

import (
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// Line is one numbered line of source.
type Line struct {
	Number  int    `json:"number"`
	Content string `json:"content"`
}

// ErrRange is returned for line ranges outside the loaded file.
var ErrRange = errors.New("line range out of bounds")

var (
	preSplit   = regexp.MustCompile(`<pre class="sourcecode">|</pre>`)
	lineBreaks = regexp.MustCompile("\r\n?|\n|\u2028|\u2029")
)

// Cache holds the lines of every file loaded during a session. A path is
// either not loaded or fully loaded; failed loads are not cached so the
// next request retries.
type Cache struct {
	mu    sync.RWMutex
	files map[string][]string
	read  func(string) ([]byte, error)
}

// NewCache returns an empty cache reading from the local filesystem.
func NewCache() *Cache {
	return &Cache{
		files: make(map[string][]string),
		read:  os.ReadFile,
	}
}

// Loaded reports whether path has been loaded.
func (c *Cache) Loaded(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.files[path]
	return ok
}

// Load reads path into the cache unless it is already present and returns
// the number of lines. Highlighted HTML source pages are reduced to the
// contents of their sourcecode block.
func (c *Cache) Load(path string) (int, error) {
	c.mu.RLock()
	lines, ok := c.files[path]
	c.mu.RUnlock()
	if ok {
		return len(lines), nil
	}
	data, err := c.read(path)
	if err != nil {
		return 0, fmt.Errorf("load source %s: %w", path, err)
	}
	lines = splitLines(string(data), isHTML(path))
	c.mu.Lock()
	c.files[path] = lines
	c.mu.Unlock()
	return len(lines), nil
}

// Forget drops path so the next Load reads it again.
func (c *Cache) Forget(path string) {
	c.mu.Lock()
	delete(c.files, path)
	c.mu.Unlock()
}

// Lines returns lines begin..end (1-based, inclusive) of path, loading the
// file on first use.
func (c *Cache) Lines(path string, begin, end int) ([]Line, error) {
	if _, err := c.Load(path); err != nil {
		return nil, err
	}
	c.mu.RLock()
	all := c.files[path]
	c.mu.RUnlock()
	if begin < 1 || end < begin || end > len(all) {
		return nil, fmt.Errorf("%s lines %d-%d of %d: %w", path, begin, end, len(all), ErrRange)
	}
	out := make([]Line, 0, end-begin+1)
	for n := begin; n <= end; n++ {
		out = append(out, Line{Number: n, Content: all[n-1]})
	}
	return out, nil
}

// All returns every line of path.
func (c *Cache) All(path string) ([]Line, error) {
	n, err := c.Load(path)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	return c.Lines(path, 1, n)
}

func isHTML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return true
	}
	return false
}

func splitLines(text string, fromHTML bool) []string {
	if fromHTML {
		parts := preSplit.Split(text, -1)
		if len(parts) == 3 {
			text = stripTags(parts[1])
			text = strings.TrimPrefix(text, "\n")
		}
	}
	text = strings.TrimRight(text, "\r\n")
	if text == "" {
		return []string{}
	}
	return lineBreaks.Split(text, -1)
}

var tags = regexp.MustCompile(`<[^>]*>`)

func stripTags(s string) string {
	return html.UnescapeString(tags.ReplaceAllString(s, ""))
}
