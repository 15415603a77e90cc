package symbols

import "fmt"

// MissingParentError reports an entry whose parent FQN was not inserted
// before it.
type MissingParentError struct {
	Index     int
	FQN       string
	ParentFQN string
}

func (e *MissingParentError) Error() string {
	return fmt.Sprintf("symbol %d (%q): parent %q not defined before it", e.Index, e.FQN, e.ParentFQN)
}

// DuplicateSymbolError reports an FQN that appears more than once.
type DuplicateSymbolError struct {
	Index int
	FQN   string
}

func (e *DuplicateSymbolError) Error() string {
	return fmt.Sprintf("symbol %d: duplicate fqn %q", e.Index, e.FQN)
}

// Tree is an immutable symbol hierarchy plus its FQN table.
type Tree struct {
	Root  *Item
	table map[string]*Item
}

// Build constructs the tree for entries. title names the root item. Every
// entry's parent must appear earlier in the slice; the build stops at the
// first entry that violates this.
func Build(title string, entries []Entry) (*Tree, error) {
	root := &Item{Name: title, Kind: KindModule}
	table := make(map[string]*Item, len(entries)+1)
	table[""] = root
	for i, e := range entries {
		if e.FQN == "" {
			return nil, &DuplicateSymbolError{Index: i, FQN: e.FQN}
		}
		if _, exists := table[e.FQN]; exists {
			return nil, &DuplicateSymbolError{Index: i, FQN: e.FQN}
		}
		parentFQN := ParentFQN(e.FQN)
		parent, ok := table[parentFQN]
		if !ok {
			return nil, &MissingParentError{Index: i, FQN: e.FQN, ParentFQN: parentFQN}
		}
		item := &Item{
			Name:      e.Name,
			Kind:      e.Kind,
			FQN:       e.FQN,
			BeginLine: e.BeginLine,
			EndLine:   e.EndLine,
			File:      e.File,
		}
		parent.Children = append(parent.Children, item)
		table[e.FQN] = item
	}
	return &Tree{Root: root, table: table}, nil
}

// Lookup returns the item stored under fqn. The empty string yields the root.
func (t *Tree) Lookup(fqn string) (*Item, bool) {
	if t == nil {
		return nil, false
	}
	item, ok := t.table[fqn]
	return item, ok
}

// Len counts every node, root included.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.table)
}

// Walk visits the tree in document order, root first. Returning false from
// fn skips the item's children.
func (t *Tree) Walk(fn func(item *Item, depth int) bool) {
	if t == nil || t.Root == nil {
		return
	}
	walk(t.Root, 0, fn)
}

func walk(item *Item, depth int, fn func(*Item, int) bool) {
	if !fn(item, depth) {
		return
	}
	for _, child := range item.Children {
		walk(child, depth+1, fn)
	}
}

// Ancestors returns the chain of items from the root's first-level child down
// to the parent of fqn.
func (t *Tree) Ancestors(fqn string) []*Item {
	var chain []*Item
	for p := ParentFQN(fqn); p != ""; p = ParentFQN(p) {
		item, ok := t.Lookup(p)
		if !ok {
			break
		}
		chain = append([]*Item{item}, chain...)
	}
	return chain
}
