package ast

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lexcodex/symnav/framework/symbols"
)

// Module is the flat symbol listing of one documented unit (a Go package,
// a Markdown page, a source file seen through a language server, or a
// manifest emitted by a documentation generator).
type Module struct {
	Name        string
	Title       string // root label; Name when empty
	Path        string
	Language    string
	ContentHash string
	Entries     []symbols.Entry
}

// DisplayTitle returns the text shown for the module's root symbol.
func (m *Module) DisplayTitle() string {
	if m.Title != "" {
		return m.Title
	}
	return m.Name
}

// Tree builds the symbol tree of the module.
func (m *Module) Tree() (*symbols.Tree, error) {
	return symbols.Build(m.DisplayTitle(), m.Entries)
}

// Extractor turns a path into a Module. Entries must be parent-first.
type Extractor interface {
	Extract(ctx context.Context, path string) (*Module, error)
	Language() string
}

// Registry keeps extractor implementations keyed by language.
type Registry struct {
	extractors map[string]Extractor
	detector   *LanguageDetector
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make(map[string]Extractor),
		detector:   NewLanguageDetector(),
	}
}

// Register adds an extractor keyed by its Language.
func (r *Registry) Register(extractor Extractor) {
	if extractor == nil {
		return
	}
	r.extractors[extractor.Language()] = extractor
}

// Detector exposes the language detector so extra extensions can be routed.
func (r *Registry) Detector() *LanguageDetector {
	return r.detector
}

// Get retrieves an extractor by language identifier.
func (r *Registry) Get(language string) (Extractor, bool) {
	extractor, ok := r.extractors[language]
	return extractor, ok
}

// SupportedLanguages returns all registered languages in sorted order.
func (r *Registry) SupportedLanguages() []string {
	langs := make([]string, 0, len(r.extractors))
	for lang := range r.extractors {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Extract detects the language of path and runs the matching extractor.
// Directories are read as Go packages.
func (r *Registry) Extract(ctx context.Context, path string) (*Module, error) {
	lang := r.detector.Detect(path)
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		lang = "go"
	}
	extractor, ok := r.extractors[lang]
	if !ok {
		return nil, fmt.Errorf("no extractor for %s (language %s)", path, lang)
	}
	mod, err := extractor.Extract(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}
	return mod, nil
}

// ModuleName derives a dotted module name for path relative to root, e.g.
// root/framework/search -> framework.search. Extensions are dropped.
func ModuleName(root, path string) string {
	rel := path
	if root != "" {
		if r, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(r, "..") {
			rel = r
		}
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	rel = filepath.ToSlash(rel)
	rel = strings.Trim(rel, "/")
	if rel == "" || rel == "." {
		return ""
	}
	parts := strings.Split(rel, "/")
	for i, p := range parts {
		parts[i] = Segment(p)
	}
	return strings.Join(parts, ".")
}

// Segment makes name safe to use as one FQN component.
func Segment(name string) string {
	name = strings.TrimSpace(name)
	return strings.NewReplacer(".", "_", ":", "_", " ", "_").Replace(name)
}

// fqnAllocator hands out unique FQNs, adding overload suffixes (":2",
// ":3", ...) to repeated names.
type fqnAllocator struct {
	seen map[string]int
}

func newFQNAllocator() *fqnAllocator {
	return &fqnAllocator{seen: make(map[string]int)}
}

func (a *fqnAllocator) next(parent, name string) string {
	fqn := Segment(name)
	if parent != "" {
		fqn = parent + "." + fqn
	}
	a.seen[fqn]++
	if n := a.seen[fqn]; n > 1 {
		return fmt.Sprintf("%s:%d", fqn, n)
	}
	return fqn
}
