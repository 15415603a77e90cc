package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	text   string
	parent int
	class  Class
}

func (r *row) Text() string     { return r.text }
func (r *row) ParentIndex() int { return r.parent }
func (r *row) Class() Class     { return r.class }
func (r *row) SetClass(c Class) { r.class = c }

// pkg
//   foo
//   bar
func pkgRows() []*row {
	return []*row{
		{text: "pkg", parent: -1},
		{text: "foo", parent: 0},
		{text: "bar", parent: 0},
	}
}

func classes(rows []*row) []Class {
	out := make([]Class, len(rows))
	for i, r := range rows {
		out[i] = r.class
	}
	return out
}

func TestParseQuery(t *testing.T) {
	q := ParseQuery("  FOO   bar ")
	assert.Equal(t, []string{"foo", "bar"}, q.Fragments())
	assert.Equal(t, "FOO   bar", q.String())
	assert.False(t, q.Empty())
	assert.True(t, ParseQuery(" \t ").Empty())
	assert.True(t, q.Matches("xBARx"))
	assert.False(t, q.Matches("baz"))
}

func TestClassifySingleFragment(t *testing.T) {
	rows := pkgRows()
	out := Classify(rows, "foo", nil)
	assert.Equal(t, Completed, out)
	assert.Equal(t, []Class{AncestorOfMatch, Match, Unmarked}, classes(rows))
}

func TestClassifyMixedCaseFragments(t *testing.T) {
	rows := pkgRows()
	out := Classify(rows, "  FOO   bar ", nil)
	assert.Equal(t, Completed, out)
	assert.Equal(t, []Class{AncestorOfMatch, Match, Match}, classes(rows))
}

func TestClassifyEmptyQueryClears(t *testing.T) {
	rows := pkgRows()
	Classify(rows, "foo", nil)
	out := Classify(rows, "   ", nil)
	assert.Equal(t, Unfiltered, out)
	assert.Equal(t, []Class{Unmarked, Unmarked, Unmarked}, classes(rows))
}

func TestClassifyDeepAncestors(t *testing.T) {
	// a
	//   b
	//     c
	//       needle
	//   d
	// e
	rows := []*row{
		{text: "a", parent: -1},
		{text: "b", parent: 0},
		{text: "c", parent: 1},
		{text: "needle", parent: 2},
		{text: "d", parent: 0},
		{text: "e", parent: -1},
	}
	require.Equal(t, Completed, Classify(rows, "NEEDLE", nil))
	assert.Equal(t, []Class{AncestorOfMatch, AncestorOfMatch, AncestorOfMatch, Match, Unmarked, Unmarked}, classes(rows))
	assert.Equal(t, Summary{Matches: 1, Ancestors: 3}, Count(rows))
}

func TestClassifyMatchingAncestorStaysMatch(t *testing.T) {
	rows := []*row{
		{text: "foo", parent: -1},
		{text: "foobar", parent: 0},
	}
	Classify(rows, "foo", nil)
	assert.Equal(t, []Class{Match, Match}, classes(rows))
}

func TestClassifyRecomputesFromScratch(t *testing.T) {
	rows := pkgRows()
	Classify(rows, "foo", nil)
	Classify(rows, "bar", nil)
	assert.Equal(t, []Class{AncestorOfMatch, Unmarked, Match}, classes(rows))
}

func TestClassifyCancelLeavesUnvisitedRows(t *testing.T) {
	rows := []*row{
		{text: "pkg", parent: -1},
		{text: "alpha", parent: 0},
		{text: "beta", parent: 0},
		{text: "gamma", parent: 0},
	}
	// Prior state from an earlier pass.
	rows[0].class = Unmarked
	rows[1].class = Match

	polls := 0
	out := Classify(rows, "gamma", func() bool {
		polls++
		return polls > 2 // visit gamma and beta, then stop
	})
	assert.Equal(t, Cancelled, out)
	assert.Equal(t, Match, rows[3].class)
	assert.Equal(t, Unmarked, rows[2].class)
	// alpha and pkg were never visited: they keep the prior pass' classes
	// even though gamma's ancestor mark was pending for pkg.
	assert.Equal(t, Match, rows[1].class)
	assert.Equal(t, Unmarked, rows[0].class)
}

func TestClassifyCancelledBeforeStart(t *testing.T) {
	rows := pkgRows()
	out := Classify(rows, "foo", func() bool { return true })
	assert.Equal(t, Cancelled, out)
	assert.Equal(t, []Class{Unmarked, Unmarked, Unmarked}, classes(rows))
}

func TestClassString(t *testing.T) {
	assert.Equal(t, "match", Match.String())
	assert.Equal(t, "parent_of_match", AncestorOfMatch.String())
	assert.Equal(t, "", Unmarked.String())
	assert.Equal(t, "cancelled", Cancelled.String())
}
