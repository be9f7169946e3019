package loader

import (
	"strings"

	"finitefield.org/docs-web/internal/nav"
)

// Languages lists the content language directories.
type Languages struct {
	Supported []string
	Default   string
}

// DefaultLanguages returns en-US and zh-CN with en-US as fallback.
func DefaultLanguages() Languages {
	return Languages{Supported: []string{"en-US", "zh-CN"}, Default: "en-US"}
}

// Segment returns the directory for lang, or the default when lang is not
// supported.
func (l Languages) Segment(lang string) string {
	for _, s := range l.Supported {
		if strings.EqualFold(s, lang) {
			return s
		}
	}
	if l.Default != "" {
		return l.Default
	}
	if len(l.Supported) > 0 {
		return l.Supported[0]
	}
	return lang
}

// MarkdownPath inserts the language directory between the directory and the
// base name of path and strips the extension:
// "/modelar/docs/intro" becomes "/modelar/docs/en-US/intro".
// A path ending in '/' maps to its index document.
func MarkdownPath(path, segment string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	start := strings.LastIndexByte(path, '/') + 1
	dir, base := path[:start], path[start:]
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	if base == "" {
		base = "index"
	}
	return dir + segment + "/" + base
}

// VisiblePath removes the language directory from a markdown path, giving
// the address shown to the reader.
func VisiblePath(markdownPath, segment string) string {
	markdownPath = strings.TrimSuffix(markdownPath, ".md")
	dir := "/" + segment + "/"
	i := strings.LastIndex(markdownPath, dir)
	if i < 0 {
		return markdownPath
	}
	return markdownPath[:i] + "/" + markdownPath[i+len(dir):]
}

// VisibleURL returns the address shown for path, keeping the lang query when
// the reader selected a language explicitly.
func VisibleURL(path, queryLang string) string {
	return nav.Location{Path: path, Lang: queryLang}.String()
}
