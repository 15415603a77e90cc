package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/symnav/framework/search"
)

func classOf(t *testing.T, units []*Unit, fqn string) search.Class {
	t.Helper()
	for _, u := range units {
		if u.Item.FQN == fqn {
			return u.Class()
		}
	}
	t.Fatalf("unit %s not found", fqn)
	return search.Unmarked
}

func TestFlattenClassifyExample(t *testing.T) {
	tree, err := Build("", []Entry{
		{Name: "pkg", Kind: KindModule, FQN: "pkg"},
		{Name: "foo", Kind: KindFunction, FQN: "pkg.foo"},
		{Name: "bar", Kind: KindFunction, FQN: "pkg.bar"},
	})
	require.NoError(t, err)
	units := tree.Flatten()

	require.Equal(t, search.Completed, search.Classify(units, "foo", nil))
	assert.Equal(t, search.AncestorOfMatch, classOf(t, units, "pkg"))
	assert.Equal(t, search.Match, classOf(t, units, "pkg.foo"))
	assert.Equal(t, search.Unmarked, classOf(t, units, "pkg.bar"))

	require.Equal(t, search.Unfiltered, search.Classify(units, "", nil))
	for _, u := range units {
		assert.Equal(t, search.Unmarked, u.Class())
	}

	require.Equal(t, search.Completed, search.Classify(units, "  FOO   bar ", nil))
	assert.Equal(t, search.AncestorOfMatch, classOf(t, units, "pkg"))
	assert.Equal(t, search.Match, classOf(t, units, "pkg.foo"))
	assert.Equal(t, search.Match, classOf(t, units, "pkg.bar"))
}

func TestSnapshotIsolation(t *testing.T) {
	tree, err := Build("", sampleEntries())
	require.NoError(t, err)
	units := tree.Flatten()
	snap := Snapshot(units)

	search.Classify(snap, "read", nil)
	for _, u := range units {
		assert.Equal(t, search.Unmarked, u.Class())
	}

	ApplyClasses(units, Classes(snap))
	assert.Equal(t, search.Match, classOf(t, units, "pkg.Reader.Read"))
	assert.Equal(t, search.Match, classOf(t, units, "pkg.Reader"))
	assert.Equal(t, search.AncestorOfMatch, classOf(t, units, "pkg"))
}

func TestTreePrefixes(t *testing.T) {
	tree, err := Build("", []Entry{
		{Name: "a", Kind: KindClass, FQN: "a"},
		{Name: "x", Kind: KindMethod, FQN: "a.x"},
		{Name: "y", Kind: KindMethod, FQN: "a.y"},
		{Name: "b", Kind: KindFunction, FQN: "b"},
	})
	require.NoError(t, err)
	units := tree.Flatten()

	all := TreePrefixes(units, []int{-1, 0, 1, 2, 3})
	assert.Equal(t, map[int]string{
		0: "├── ",
		1: "│   ├── ",
		2: "│   └── ",
		3: "└── ",
	}, all)

	subset := TreePrefixes(units, []int{-1, 0, 1})
	assert.Equal(t, "└── ", subset[0])
	assert.Equal(t, "    └── ", subset[1])
}
