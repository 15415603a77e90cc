package ast

import (
	"context"
	"fmt"
	goast "go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lexcodex/symnav/framework/symbols"
)

// GoExtractor lists the declarations of a Go package using go/parser. Each
// type comes first, followed by its fields or interface methods and then its
// methods. Functions, variables and constants follow.
type GoExtractor struct {
	// Root is used to derive dotted module names from directories.
	Root string
	// IncludeTests adds _test.go files.
	IncludeTests bool
}

// NewGoExtractor returns an extractor naming modules relative to root.
func NewGoExtractor(root string) *GoExtractor {
	return &GoExtractor{Root: root}
}

func (ge *GoExtractor) Language() string { return "go" }

type goType struct {
	name    string
	spec    *goast.TypeSpec
	decl    *goast.GenDecl
	file    string
	methods []*goast.FuncDecl
	mfiles  []string
}

// Extract parses path, which may be a package directory or a single file.
func (ge *GoExtractor) Extract(ctx context.Context, path string) (*Module, error) {
	files, err := ge.sourceFiles(path)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no go files in %s", path)
	}

	fset := token.NewFileSet()
	var (
		pkgName  string
		contents strings.Builder
		consts   []symbols.Entry
		vars     []symbols.Entry
		funcs    []*goast.FuncDecl
		ffiles   []string
		types    []*goType
		byName   = make(map[string]*goType)
		pending  []*goast.FuncDecl
		pfiles   []string
		position = func(n goast.Node) (int, int) {
			return fset.Position(n.Pos()).Line, fset.Position(n.End()).Line
		}
	)

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		contents.Write(src)
		parsed, err := parser.ParseFile(fset, file, src, parser.SkipObjectResolution)
		if err != nil {
			return nil, err
		}
		if pkgName == "" {
			pkgName = parsed.Name.Name
		}
		for _, decl := range parsed.Decls {
			switch d := decl.(type) {
			case *goast.FuncDecl:
				if d.Recv != nil && len(d.Recv.List) > 0 {
					pending = append(pending, d)
					pfiles = append(pfiles, file)
					continue
				}
				funcs = append(funcs, d)
				ffiles = append(ffiles, file)
			case *goast.GenDecl:
				for _, spec := range d.Specs {
					switch s := spec.(type) {
					case *goast.TypeSpec:
						t := &goType{name: s.Name.Name, spec: s, decl: d, file: file}
						types = append(types, t)
						byName[t.name] = t
					case *goast.ValueSpec:
						begin, end := position(s)
						if !d.Lparen.IsValid() {
							begin, end = position(d)
						}
						kind := symbols.KindVariable
						if d.Tok == token.CONST {
							kind = symbols.KindConstant
						}
						for _, name := range s.Names {
							if name.Name == "_" {
								continue
							}
							e := symbols.Entry{Name: name.Name, Kind: kind, BeginLine: begin, EndLine: end, File: file}
							if kind == symbols.KindConstant {
								consts = append(consts, e)
							} else {
								vars = append(vars, e)
							}
						}
					}
				}
			}
		}
	}

	for i, fn := range pending {
		recv := receiverName(fn.Recv.List[0].Type)
		if t, ok := byName[recv]; ok {
			t.methods = append(t.methods, fn)
			t.mfiles = append(t.mfiles, pfiles[i])
		}
	}

	alloc := newFQNAllocator()
	entries := make([]symbols.Entry, 0, len(consts)+len(vars)+len(funcs)+len(types))
	add := func(parent string, e symbols.Entry) string {
		e.FQN = alloc.next(parent, e.Name)
		entries = append(entries, e)
		return e.FQN
	}
	for _, t := range types {
		begin, end := position(t.spec)
		if !t.decl.Lparen.IsValid() {
			begin, end = position(t.decl)
		}
		fqn := add("", symbols.Entry{Name: t.name, Kind: typeKind(t.spec), BeginLine: begin, EndLine: end, File: t.file})
		for _, member := range typeMembers(t.spec, position) {
			member.File = t.file
			add(fqn, member)
		}
		for i, m := range t.methods {
			mb, me := position(m)
			add(fqn, symbols.Entry{Name: m.Name.Name, Kind: symbols.KindMethod, BeginLine: mb, EndLine: me, File: t.mfiles[i]})
		}
	}
	for _, e := range consts {
		add("", e)
	}
	for _, e := range vars {
		add("", e)
	}
	for i, fn := range funcs {
		begin, end := position(fn)
		add("", symbols.Entry{Name: fn.Name.Name, Kind: symbols.KindFunction, BeginLine: begin, EndLine: end, File: ffiles[i]})
	}

	name := ModuleName(ge.Root, moduleDir(path))
	if name == "" {
		name = pkgName
	}
	return &Module{
		Name:        name,
		Path:        path,
		Language:    "go",
		ContentHash: HashContent(contents.String()),
		Entries:     entries,
	}, nil
}

func (ge *GoExtractor) sourceFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	dirents, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, d := range dirents {
		name := d.Name()
		if d.IsDir() || !strings.HasSuffix(name, ".go") {
			continue
		}
		if !ge.IncludeTests && strings.HasSuffix(name, "_test.go") {
			continue
		}
		files = append(files, filepath.Join(path, name))
	}
	sort.Strings(files)
	return files, nil
}

func moduleDir(path string) string {
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return filepath.Dir(path)
	}
	return path
}

func typeKind(spec *goast.TypeSpec) symbols.Kind {
	if spec.Assign.IsValid() {
		return symbols.KindAlias
	}
	switch spec.Type.(type) {
	case *goast.StructType:
		return symbols.KindStruct
	case *goast.InterfaceType:
		return symbols.KindInterface
	default:
		return symbols.KindTypedef
	}
}

func typeMembers(spec *goast.TypeSpec, position func(goast.Node) (int, int)) []symbols.Entry {
	var list *goast.FieldList
	kind := symbols.KindField
	switch t := spec.Type.(type) {
	case *goast.StructType:
		list = t.Fields
	case *goast.InterfaceType:
		list = t.Methods
		kind = symbols.KindMethod
	}
	if list == nil {
		return nil
	}
	var out []symbols.Entry
	for _, field := range list.List {
		begin, end := position(field)
		if len(field.Names) == 0 {
			// Embedded field or interface.
			out = append(out, symbols.Entry{Name: exprName(field.Type), Kind: symbols.KindField, BeginLine: begin, EndLine: end})
			continue
		}
		for _, name := range field.Names {
			if name.Name == "_" {
				continue
			}
			out = append(out, symbols.Entry{Name: name.Name, Kind: kind, BeginLine: begin, EndLine: end})
		}
	}
	return out
}

func receiverName(expr goast.Expr) string {
	switch t := expr.(type) {
	case *goast.StarExpr:
		return receiverName(t.X)
	case *goast.IndexExpr:
		return receiverName(t.X)
	case *goast.IndexListExpr:
		return receiverName(t.X)
	case *goast.ParenExpr:
		return receiverName(t.X)
	case *goast.Ident:
		return t.Name
	}
	return ""
}

func exprName(expr goast.Expr) string {
	switch t := expr.(type) {
	case *goast.Ident:
		return t.Name
	case *goast.StarExpr:
		return "*" + exprName(t.X)
	case *goast.SelectorExpr:
		return exprName(t.X) + "." + t.Sel.Name
	case *goast.IndexExpr:
		return exprName(t.X)
	case *goast.IndexListExpr:
		return exprName(t.X)
	}
	return fmt.Sprintf("%T", expr)
}
