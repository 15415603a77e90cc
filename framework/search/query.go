package search

import "strings"

// Query is a parsed filter string: lower-cased, whitespace-separated
// fragments.
type Query struct {
	raw       string
	fragments []string
}

// ParseQuery trims raw, lower-cases it and splits it on runs of whitespace.
func ParseQuery(raw string) Query {
	trimmed := strings.TrimSpace(raw)
	return Query{
		raw:       trimmed,
		fragments: strings.Fields(strings.ToLower(trimmed)),
	}
}

// Empty reports whether the query has no fragments.
func (q Query) Empty() bool { return len(q.fragments) == 0 }

// Fragments returns the query words.
func (q Query) Fragments() []string { return q.fragments }

// String returns the trimmed query as typed.
func (q Query) String() string { return q.raw }

// Matches reports whether text contains at least one fragment.
func (q Query) Matches(text string) bool {
	lower := strings.ToLower(text)
	for _, f := range q.fragments {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}
