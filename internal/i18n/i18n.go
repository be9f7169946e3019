// Package i18n holds the UI strings of the site and negotiates the reader's
// language.
package i18n

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"
)

// Bundle maps language tags to translated UI strings.
type Bundle struct {
	dict      map[string]map[string]string
	fallback  string
	supported []string
	matcher   language.Matcher
}

// Load reads <dir>/<lang>.json for every supported language. The fallback
// locale must be present.
func Load(dir string, fallback string, supported []string) (*Bundle, error) {
	if len(supported) == 0 {
		supported = []string{"en-US", "zh-CN"}
	}
	if fallback == "" {
		fallback = supported[0]
	}
	b := &Bundle{
		dict:     map[string]map[string]string{},
		fallback: fallback,
	}
	// matcher falls back to its first tag
	tags := []language.Tag{language.Make(fallback)}
	b.supported = []string{fallback}
	for _, l := range supported {
		if l != fallback {
			tags = append(tags, language.Make(l))
			b.supported = append(b.supported, l)
		}
	}
	b.matcher = language.NewMatcher(tags)

	for _, l := range b.supported {
		raw, err := os.ReadFile(filepath.Join(dir, l+".json"))
		if err != nil {
			// allow missing file for non-default locales
			if l == fallback {
				return nil, fmt.Errorf("load locale %s: %w", l, err)
			}
			continue
		}
		var m map[string]string
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", l, err)
		}
		b.dict[l] = m
	}
	return b, nil
}

// Supported returns the supported languages, fallback first.
func (b *Bundle) Supported() []string {
	out := make([]string, len(b.supported))
	copy(out, b.supported)
	return out
}

// Fallback returns the configured fallback language.
func (b *Bundle) Fallback() string { return b.fallback }

// T returns translation for key in lang, falling back to default and finally key.
func (b *Bundle) T(lang, key string) string {
	if m, ok := b.dict[b.Canonical(lang)]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if m, ok := b.dict[b.fallback]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return key
}

// Canonical returns the supported spelling of lang, or "" when lang is not
// supported verbatim.
func (b *Bundle) Canonical(lang string) string {
	for _, s := range b.supported {
		if strings.EqualFold(s, lang) {
			return s
		}
	}
	return ""
}

// Resolve chooses best language from Accept-Language header.
func (b *Bundle) Resolve(acceptLang string) string {
	if strings.TrimSpace(acceptLang) == "" {
		return b.fallback
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLang)
	if err != nil || len(tags) == 0 {
		return b.fallback
	}
	return b.match(tags...)
}

func (b *Bundle) match(tags ...language.Tag) string {
	_, idx, conf := b.matcher.Match(tags...)
	if conf == language.No || idx < 0 || idx >= len(b.supported) {
		return b.fallback
	}
	return b.supported[idx]
}
