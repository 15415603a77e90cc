package ast

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/lexcodex/symnav/framework/symbols"
)

// MarkdownExtractor turns the heading outline of a Markdown page into
// section symbols. A section spans from its heading to the line before the
// next heading of the same or a higher level.
type MarkdownExtractor struct {
	Root    string
	heading *regexp.Regexp
	fence   *regexp.Regexp
}

// NewMarkdownExtractor creates an extractor naming modules relative to root.
func NewMarkdownExtractor(root string) *MarkdownExtractor {
	return &MarkdownExtractor{
		Root:    root,
		heading: regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*\s*$`),
		fence:   regexp.MustCompile("^\\s*(```|~~~)"),
	}
}

func (me *MarkdownExtractor) Language() string { return "markdown" }

type openSection struct {
	level int
	index int
	fqn   string
}

// Extract reads path and lists its sections.
func (me *MarkdownExtractor) Extract(ctx context.Context, path string) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content := string(data)
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")

	alloc := newFQNAllocator()
	var (
		entries []symbols.Entry
		stack   []openSection
		inFence bool
	)
	closeTo := func(level, line int) {
		for len(stack) > 0 && stack[len(stack)-1].level >= level {
			top := stack[len(stack)-1]
			entries[top.index].EndLine = line
			stack = stack[:len(stack)-1]
		}
	}
	for idx, line := range lines {
		if me.fence.MatchString(line) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		match := me.heading.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		level := len(match[1])
		closeTo(level, idx)
		parent := ""
		if len(stack) > 0 {
			parent = stack[len(stack)-1].fqn
		}
		title := strings.TrimSpace(match[2])
		fqn := alloc.next(parent, title)
		entries = append(entries, symbols.Entry{
			Name:      title,
			Kind:      symbols.KindSection,
			FQN:       fqn,
			BeginLine: idx + 1,
			EndLine:   idx + 1,
		})
		stack = append(stack, openSection{level: level, index: len(entries) - 1, fqn: fqn})
	}
	closeTo(1, len(lines))

	name := ModuleName(me.Root, path)
	if name == "" {
		name = Segment(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	}
	return &Module{
		Name:        name,
		Path:        path,
		Language:    "markdown",
		ContentHash: HashContent(content),
		Entries:     entries,
	}, nil
}
