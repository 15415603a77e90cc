package ast

import (
	"path/filepath"
	"strings"
)

// LanguageDetector maps filenames and extensions to extractor languages.
type LanguageDetector struct {
	extensionMap map[string]string
}

// NewLanguageDetector seeds the languages handled without a language server.
func NewLanguageDetector() *LanguageDetector {
	ld := &LanguageDetector{
		extensionMap: make(map[string]string),
	}
	ld.extensionMap[".go"] = "go"
	ld.extensionMap[".md"] = "markdown"
	ld.extensionMap[".markdown"] = "markdown"
	ld.extensionMap[".yaml"] = "yaml"
	ld.extensionMap[".yml"] = "yaml"
	ld.extensionMap[".json"] = "json"
	return ld
}

// AddExtension routes files ending in ext to language. Later calls win.
func (ld *LanguageDetector) AddExtension(ext, language string) {
	if ext == "" || language == "" {
		return
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	ld.extensionMap[strings.ToLower(ext)] = language
}

// Detect returns the best-effort language identifier.
func (ld *LanguageDetector) Detect(path string) string {
	if path == "" {
		return "unknown"
	}
	ext := strings.ToLower(filepath.Ext(filepath.Base(path)))
	if lang, ok := ld.extensionMap[ext]; ok {
		return lang
	}
	return "unknown"
}
