package symbols

import (
	"sort"
	"strings"
)

// BuildModuleTree arranges dotted module names into a package hierarchy.
// Missing intermediate packages are synthesised so the parent-first rule of
// Build holds for any input order.
func BuildModuleTree(title string, modules []string) (*Tree, error) {
	names := append([]string(nil), modules...)
	sort.Strings(names)

	isModule := make(map[string]bool, len(names))
	for _, name := range names {
		isModule[name] = true
	}

	seen := make(map[string]bool)
	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		parts := strings.Split(name, ".")
		for i := range parts {
			fqn := strings.Join(parts[:i+1], ".")
			if seen[fqn] {
				continue
			}
			seen[fqn] = true
			kind := KindPackage
			if isModule[fqn] && i == len(parts)-1 {
				kind = KindModule
			}
			entries = append(entries, Entry{Name: parts[i], Kind: kind, FQN: fqn})
		}
	}
	return Build(title, entries)
}
