package symbols

// Kind tags the category of a symbol. Values not listed below are kept
// verbatim so generators can introduce their own kinds.
type Kind string

const (
	KindModule    Kind = "module"
	KindPackage   Kind = "package"
	KindClass     Kind = "class"
	KindStruct    Kind = "struct"
	KindInterface Kind = "interface"
	KindUnion     Kind = "union"
	KindEnum      Kind = "enum"
	KindEnumMem   Kind = "enummem"
	KindFunction  Kind = "function"
	KindMethod    Kind = "method"
	KindCtor      Kind = "ctor"
	KindDtor      Kind = "dtor"
	KindSCtor     Kind = "sctor"
	KindSDtor     Kind = "sdtor"
	KindNew       Kind = "new"
	KindDelete    Kind = "delete"
	KindUnittest  Kind = "unittest"
	KindInvariant Kind = "invariant"
	KindVariable  Kind = "variable"
	KindConstant  Kind = "constant"
	KindField     Kind = "field"
	KindAlias     Kind = "alias"
	KindTypedef   Kind = "typedef"
	KindTemplate  Kind = "template"
	KindProperty  Kind = "property"
	KindSection   Kind = "section"
)

// functionLike kinds share the function glyph.
var functionLike = map[Kind]bool{
	KindFunction:  true,
	KindMethod:    true,
	KindUnittest:  true,
	KindInvariant: true,
	KindNew:       true,
	KindDelete:    true,
	KindCtor:      true,
	KindDtor:      true,
	KindSCtor:     true,
	KindSDtor:     true,
}

// Icon returns the kind used to pick a glyph.
func (k Kind) Icon() Kind {
	if functionLike[k] {
		return KindFunction
	}
	return k
}

// IsContainer reports whether symbols of this kind usually own members.
func (k Kind) IsContainer() bool {
	switch k {
	case KindModule, KindPackage, KindClass, KindStruct, KindInterface,
		KindUnion, KindEnum, KindTemplate, KindSection:
		return true
	}
	return false
}
