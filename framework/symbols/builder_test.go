package symbols

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntries() []Entry {
	return []Entry{
		{Name: "pkg", Kind: KindModule, FQN: "pkg"},
		{Name: "Reader", Kind: KindInterface, FQN: "pkg.Reader"},
		{Name: "Read", Kind: KindFunction, FQN: "pkg.Reader.Read"},
		{Name: "foo", Kind: KindFunction, FQN: "pkg.foo"},
		{Name: "foo", Kind: KindFunction, FQN: "pkg.foo:2"},
		{Name: "bar", Kind: KindFunction, FQN: "pkg.bar"},
	}
}

func TestBuildShape(t *testing.T) {
	entries := sampleEntries()
	tree, err := Build("pkg", entries)
	require.NoError(t, err)
	assert.Equal(t, len(entries)+1, tree.Len())

	var count int
	var path []string
	tree.Walk(func(item *Item, depth int) bool {
		count++
		if item.IsRoot() {
			return true
		}
		path = append(path[:depth-1], lastSegment(item.FQN))
		assert.Equal(t, item.FQN, strings.Join(path, "."), "ancestor path of %s", item.FQN)
		return true
	})
	assert.Equal(t, len(entries)+1, count)

	pkg := tree.Root.Children[0]
	require.Len(t, pkg.Children, 4)
	assert.Equal(t, []string{"pkg.Reader", "pkg.foo", "pkg.foo:2", "pkg.bar"},
		[]string{pkg.Children[0].FQN, pkg.Children[1].FQN, pkg.Children[2].FQN, pkg.Children[3].FQN})
}

func lastSegment(fqn string) string {
	_, tail := rpartition(fqn, ".")
	return tail
}

func TestBuildLookupCompleteness(t *testing.T) {
	entries := sampleEntries()
	tree, err := Build("pkg", entries)
	require.NoError(t, err)

	root, ok := tree.Lookup("")
	require.True(t, ok)
	assert.Same(t, tree.Root, root)

	for _, e := range entries {
		item, ok := tree.Lookup(e.FQN)
		require.True(t, ok, e.FQN)
		assert.Equal(t, e.Name, item.Name)
		assert.Equal(t, e.Kind, item.Kind)
		parent, _ := tree.Lookup(ParentFQN(e.FQN))
		assert.Contains(t, parent.Children, item)
	}
}

func TestBuildMissingParent(t *testing.T) {
	_, err := Build("pkg", []Entry{
		{Name: "foo", Kind: KindFunction, FQN: "pkg.foo"},
		{Name: "pkg", Kind: KindModule, FQN: "pkg"},
	})
	var missing *MissingParentError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, 0, missing.Index)
	assert.Equal(t, "pkg", missing.ParentFQN)
}

func TestBuildDuplicate(t *testing.T) {
	_, err := Build("pkg", []Entry{
		{Name: "pkg", Kind: KindModule, FQN: "pkg"},
		{Name: "pkg", Kind: KindModule, FQN: "pkg"},
	})
	var dup *DuplicateSymbolError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, 1, dup.Index)

	_, err = Build("pkg", []Entry{{Name: "root", FQN: ""}})
	require.Error(t, err)
}

func TestOverloadLabels(t *testing.T) {
	tree, err := Build("pkg", sampleEntries())
	require.NoError(t, err)

	item, ok := tree.Lookup("pkg.foo:2")
	require.True(t, ok)
	assert.Equal(t, "foo", item.Label())
	assert.Equal(t, "2", item.Overload())
	assert.Equal(t, "foo2", item.DisplayText())

	base, index := SplitOverload("pkg.foo:2")
	assert.Equal(t, "pkg.foo", base)
	assert.Equal(t, "2", index)

	base, index = SplitOverload("pkg.foo")
	assert.Equal(t, "pkg.foo", base)
	assert.Empty(t, index)

	base, index = SplitOverload("pkg.foo:2.inner")
	assert.Equal(t, "pkg.foo:2.inner", base)
	assert.Empty(t, index)
}

func TestOverloadChildren(t *testing.T) {
	tree, err := Build("m", []Entry{
		{Name: "m", Kind: KindModule, FQN: "m"},
		{Name: "S", Kind: KindStruct, FQN: "m.S:1"},
		{Name: "x", Kind: KindField, FQN: "m.S:1.x"},
	})
	require.NoError(t, err)
	item, ok := tree.Lookup("m.S:1.x")
	require.True(t, ok)
	chain := tree.Ancestors(item.FQN)
	require.Len(t, chain, 2)
	assert.Equal(t, "m", chain[0].FQN)
	assert.Equal(t, "m.S:1", chain[1].FQN)
}

func TestFlattenParents(t *testing.T) {
	tree, err := Build("pkg", sampleEntries())
	require.NoError(t, err)
	units := tree.Flatten()
	require.Len(t, units, tree.Len()-1)

	for i, u := range units {
		assert.Less(t, u.Parent, i)
		if u.Parent == -1 {
			assert.Equal(t, "", ParentFQN(u.Item.FQN))
			assert.Equal(t, 0, u.Depth)
			continue
		}
		parent := units[u.Parent]
		assert.Equal(t, parent.Item.FQN, ParentFQN(u.Item.FQN))
		assert.Equal(t, parent.Depth+1, u.Depth)
	}
}

func TestKindIcon(t *testing.T) {
	assert.Equal(t, KindFunction, KindCtor.Icon())
	assert.Equal(t, KindFunction, KindUnittest.Icon())
	assert.Equal(t, KindStruct, KindStruct.Icon())
	assert.Equal(t, Kind("mixin"), Kind("mixin").Icon())
	assert.True(t, KindClass.IsContainer())
	assert.False(t, KindVariable.IsContainer())
}

func TestBuildModuleTree(t *testing.T) {
	tree, err := BuildModuleTree("Modules", []string{"std.io.file", "app", "std.string", "std.io"})
	require.NoError(t, err)

	std, ok := tree.Lookup("std")
	require.True(t, ok)
	assert.Equal(t, KindPackage, std.Kind)

	io, ok := tree.Lookup("std.io")
	require.True(t, ok)
	assert.Equal(t, KindModule, io.Kind)
	require.Len(t, io.Children, 1)
	assert.Equal(t, "file", io.Children[0].Name)

	app, ok := tree.Lookup("app")
	require.True(t, ok)
	assert.Equal(t, KindModule, app.Kind)
	assert.Equal(t, 6, tree.Len())
}
