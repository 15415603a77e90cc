package symbols

import "strings"

// TreePrefixes builds the box-drawing prefix of every unit listed in rows.
// Negative rows stand for the root and get no prefix. A unit is drawn as the
// last child when no later row shares its parent, so a filtered subset of
// rows renders as a well-formed tree as long as every ancestor of a listed
// unit is listed too.
func TreePrefixes(units []*Unit, rows []int) map[int]string {
	last := make(map[int]bool, len(rows))
	seen := make(map[int]bool)
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		if row < 0 {
			continue
		}
		parent := units[row].Parent
		if !seen[parent] {
			seen[parent] = true
			last[row] = true
		}
	}

	prefixes := make(map[int]string, len(rows))
	for _, row := range rows {
		if row < 0 {
			continue
		}
		u := units[row]
		parts := make([]string, u.Depth+1)
		if last[row] {
			parts[u.Depth] = "└── "
		} else {
			parts[u.Depth] = "├── "
		}
		for a := u.Parent; a >= 0; a = units[a].Parent {
			if last[a] {
				parts[units[a].Depth] = "    "
			} else {
				parts[units[a].Depth] = "│   "
			}
		}
		prefixes[row] = strings.Join(parts, "")
	}
	return prefixes
}
