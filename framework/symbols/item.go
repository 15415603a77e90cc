package symbols

import "strings"

// Entry is one record of the flat symbol listing produced by an extractor or
// a documentation generator. Entries must arrive parent-first.
type Entry struct {
	Name      string `json:"name" yaml:"name"`
	Kind      Kind   `json:"kind" yaml:"kind"`
	FQN       string `json:"fqn" yaml:"fqn"`
	BeginLine int    `json:"begin,omitempty" yaml:"begin,omitempty"`
	EndLine   int    `json:"end,omitempty" yaml:"end,omitempty"`
	// File overrides the module source for symbols declared elsewhere.
	File string `json:"file,omitempty" yaml:"file,omitempty"`
}

// Item is a node of the symbol tree.
type Item struct {
	Name      string
	Kind      Kind
	FQN       string
	BeginLine int
	EndLine   int
	File      string
	Children  []*Item
}

// IsRoot reports whether the item is the synthetic tree root.
func (it *Item) IsRoot() bool {
	return it != nil && it.FQN == ""
}

// Overload returns the disambiguation suffix of the FQN, if any.
func (it *Item) Overload() string {
	_, index := SplitOverload(it.FQN)
	return index
}

// Label is the text rendered for the item, without the overload suffix.
func (it *Item) Label() string {
	return it.Name
}

// DisplayText is the label followed by the overload index. It is the text
// matched by the quick search.
func (it *Item) DisplayText() string {
	if idx := it.Overload(); idx != "" {
		return it.Name + idx
	}
	return it.Name
}

// HasLines reports whether the item carries a source range.
func (it *Item) HasLines() bool {
	return it.BeginLine > 0 && it.EndLine >= it.BeginLine
}

// rpartition splits s at the last sep into (head, tail). When sep is absent
// head is empty and tail is s.
func rpartition(s, sep string) (string, string) {
	pos := strings.LastIndex(s, sep)
	if pos == -1 {
		return "", s
	}
	return s[:pos], s[pos+len(sep):]
}

// ParentFQN returns the FQN of the symbol that owns fqn. Top-level symbols
// are owned by the root, whose FQN is the empty string.
func ParentFQN(fqn string) string {
	parent, _ := rpartition(fqn, ".")
	return parent
}

// SplitOverload separates an overload index such as "pkg.f:2" into
// ("pkg.f", "2"). FQNs without a colon return an empty index.
func SplitOverload(fqn string) (string, string) {
	base, index := rpartition(fqn, ":")
	if base == "" || strings.Contains(index, ".") {
		return fqn, ""
	}
	return base, index
}
