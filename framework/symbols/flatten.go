package symbols

import "github.com/lexcodex/symnav/framework/search"

// Unit is one row of the tree in document order. Parent is the index of the
// owning row, or -1 for children of the root.
type Unit struct {
	Item   *Item
	Parent int
	Depth  int

	class search.Class
}

// Text implements search.Unit.
func (u *Unit) Text() string { return u.Item.DisplayText() }

// ParentIndex implements search.Unit.
func (u *Unit) ParentIndex() int { return u.Parent }

// Class implements search.Unit.
func (u *Unit) Class() search.Class { return u.class }

// SetClass implements search.Unit.
func (u *Unit) SetClass(c search.Class) { u.class = c }

// Flatten lists every item except the root in document order with explicit
// parent links.
func (t *Tree) Flatten() []*Unit {
	if t == nil || t.Root == nil {
		return nil
	}
	units := make([]*Unit, 0, t.Len()-1)
	var visit func(item *Item, parent, depth int)
	visit = func(item *Item, parent, depth int) {
		for _, child := range item.Children {
			units = append(units, &Unit{Item: child, Parent: parent, Depth: depth})
			visit(child, len(units)-1, depth+1)
		}
	}
	visit(t.Root, -1, 0)
	return units
}

// Snapshot copies units so a search pass can classify them without touching
// the rows a view is rendering.
func Snapshot(units []*Unit) []*Unit {
	out := make([]*Unit, len(units))
	for i, u := range units {
		cp := *u
		out[i] = &cp
	}
	return out
}

// Classes extracts the classification of every unit.
func Classes(units []*Unit) []search.Class {
	out := make([]search.Class, len(units))
	for i, u := range units {
		out[i] = u.class
	}
	return out
}

// ApplyClasses writes classes back onto units of the same flattening.
func ApplyClasses(units []*Unit, classes []search.Class) {
	for i := range units {
		if i < len(classes) {
			units[i].class = classes[i]
		}
	}
}
