package source

import (
	"errors"

	"github.com/lexcodex/symnav/framework/symbols"
)

// ErrNoSource is returned for symbols that carry no file or line range.
var ErrNoSource = errors.New("symbol has no source")

// SymbolPath is the file holding item's code: its own File when set,
// otherwise the module source.
func SymbolPath(modulePath string, item *symbols.Item) string {
	if item != nil && item.File != "" {
		return item.File
	}
	return modulePath
}

// Symbol returns the code lines of item. The root item shows the whole
// module source.
func (c *Cache) Symbol(modulePath string, item *symbols.Item) ([]Line, error) {
	path := SymbolPath(modulePath, item)
	if item == nil || path == "" {
		return nil, ErrNoSource
	}
	if item.IsRoot() {
		return c.All(path)
	}
	if !item.HasLines() {
		return nil, ErrNoSource
	}
	return c.Lines(path, item.BeginLine, item.EndLine)
}
