package ast

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lexcodex/symnav/framework/symbols"
)

// Manifest is the symbol listing a documentation generator writes next to
// its output. YAML and JSON share the same field names.
type Manifest struct {
	Module  string          `yaml:"module" json:"module"`
	Title   string          `yaml:"title" json:"title"`
	Source  string          `yaml:"source" json:"source"`
	Symbols []symbols.Entry `yaml:"symbols" json:"symbols"`
}

// LoadManifest decodes a manifest file. Files ending in .json are decoded
// with encoding/json, everything else as YAML.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &m)
	} else {
		err = yaml.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	return &m, nil
}

// ManifestExtractor reads manifests produced by external generators.
type ManifestExtractor struct {
	Root     string
	language string
}

// NewManifestExtractor returns an extractor registered under language
// ("yaml" or "json").
func NewManifestExtractor(root, language string) *ManifestExtractor {
	return &ManifestExtractor{Root: root, language: language}
}

func (me *ManifestExtractor) Language() string { return me.language }

// Extract loads the manifest and checks that its symbols form a valid tree.
func (me *ManifestExtractor) Extract(ctx context.Context, path string) (*Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := LoadManifest(path)
	if err != nil {
		return nil, err
	}
	if _, err := symbols.Build(m.Title, m.Symbols); err != nil {
		return nil, err
	}
	name := m.Module
	if name == "" {
		name = ModuleName(me.Root, path)
	}
	source := m.Source
	if source != "" && !filepath.IsAbs(source) {
		source = filepath.Join(filepath.Dir(path), source)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Module{
		Name:        name,
		Title:       m.Title,
		Path:        source,
		Language:    me.language,
		ContentHash: HashContent(string(raw)),
		Entries:     m.Symbols,
	}, nil
}
