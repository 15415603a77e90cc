package search

// Class is the per-row outcome of a search pass.
type Class int

const (
	Unmarked Class = iota
	Match
	AncestorOfMatch
)

func (c Class) String() string {
	switch c {
	case Match:
		return "match"
	case AncestorOfMatch:
		return "parent_of_match"
	default:
		return ""
	}
}

// Outcome tells the caller how a pass ended.
type Outcome int

const (
	// Completed means every unit was classified.
	Completed Outcome = iota
	// Unfiltered means the query was empty and every unit was cleared.
	Unfiltered
	// Cancelled means the pass stopped early; unvisited units keep the
	// classification left by the previous pass.
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Unfiltered:
		return "unfiltered"
	case Cancelled:
		return "cancelled"
	default:
		return "completed"
	}
}

// Unit is a classifiable row in document order.
type Unit interface {
	Text() string
	// ParentIndex is the position of the owning row, or -1.
	ParentIndex() int
	Class() Class
	SetClass(Class)
}

// Classify runs one pass of query over units. Rows are visited in reverse
// document order so every descendant is settled before its ancestors, which
// lets ancestor marks travel upward in a single sweep. cancelled is polled
// before each row; a nil func never cancels.
func Classify[U Unit](units []U, query string, cancelled func() bool) Outcome {
	q := ParseQuery(query)
	if q.Empty() {
		for _, u := range units {
			u.SetClass(Unmarked)
		}
		return Unfiltered
	}

	// pending[i] is set when a descendant of row i matched. It is only
	// written to the row once the row itself is visited.
	pending := make([]bool, len(units))
	for i := len(units) - 1; i >= 0; i-- {
		if cancelled != nil && cancelled() {
			return Cancelled
		}
		u := units[i]
		parent := u.ParentIndex()
		switch {
		case q.Matches(u.Text()):
			u.SetClass(Match)
			markPending(pending, parent)
		case pending[i]:
			u.SetClass(AncestorOfMatch)
			markPending(pending, parent)
		default:
			u.SetClass(Unmarked)
		}
	}
	return Completed
}

func markPending(pending []bool, parent int) {
	if parent >= 0 && parent < len(pending) {
		pending[parent] = true
	}
}

// Summary counts classified rows.
type Summary struct {
	Matches   int `json:"matches"`
	Ancestors int `json:"ancestors"`
}

// Count tallies the classes currently held by units.
func Count[U Unit](units []U) Summary {
	var s Summary
	for _, u := range units {
		switch u.Class() {
		case Match:
			s.Matches++
		case AncestorOfMatch:
			s.Ancestors++
		}
	}
	return s
}
