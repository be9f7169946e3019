// Package site loads the description of the documented modules: their
// languages, menus, home page copy and docs pages.
package site

import (
	"errors"
	"fmt"
	"html/template"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"finitefield.org/docs-web/internal/nav"
)

// ErrUnknownModule is returned when no module has the requested name.
var ErrUnknownModule = errors.New("site: unknown module")

// Text is a string localized by language tag.
type Text map[string]string

// In returns the text for lang, then fallback, then any value.
func (t Text) In(lang, fallback string) string {
	if v, ok := t[lang]; ok && v != "" {
		return v
	}
	for k, v := range t {
		if strings.EqualFold(k, lang) && v != "" {
			return v
		}
	}
	if v, ok := t[fallback]; ok && v != "" {
		return v
	}
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if t[k] != "" {
			return t[k]
		}
	}
	return ""
}

// Exact returns the text for lang only.
func (t Text) Exact(lang string) string {
	for k, v := range t {
		if strings.EqualFold(k, lang) {
			return v
		}
	}
	return ""
}

// Link is a navbar entry.
type Link struct {
	Href  string `yaml:"href"`
	Label Text   `yaml:"label"`
}

// Page is a docs page listed in the sidebar. Slug is the file name of its
// markdown without extension.
type Page struct {
	Slug  string `yaml:"slug"`
	Label Text   `yaml:"label"`
}

// Feature is a highlight on the module home page. Body may carry inline
// HTML.
type Feature struct {
	Title Text `yaml:"title"`
	Body  Text `yaml:"body"`
}

// Module is one documented library.
type Module struct {
	Module      string    `yaml:"module"`
	Name        string    `yaml:"name"`
	Description Text      `yaml:"description"`
	Install     string    `yaml:"install"`
	Repository  string    `yaml:"repository"`
	Features    []Feature `yaml:"features"`
	Navbar      []Link    `yaml:"navbar"`
	Sidebar     []Page    `yaml:"sidebar"`
	FooterNote  Text      `yaml:"footer_note"`
}

// Site is the root of site.yaml.
type Site struct {
	Languages       []string          `yaml:"languages"`
	DefaultLanguage string            `yaml:"default_language"`
	LanguageLabels  map[string]string `yaml:"language_labels"`
	Modules         []Module          `yaml:"modules"`
}

// Load reads and validates a site file.
func Load(path string) (*Site, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("site: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes and validates site YAML.
func Parse(raw []byte) (*Site, error) {
	var s Site
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("site: decode: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Site) validate() error {
	if len(s.Languages) == 0 {
		s.Languages = []string{"en-US", "zh-CN"}
	}
	if s.DefaultLanguage == "" {
		s.DefaultLanguage = s.Languages[0]
	}
	if !s.Supports(s.DefaultLanguage) {
		return fmt.Errorf("site: default language %q is not listed", s.DefaultLanguage)
	}
	if len(s.Modules) == 0 {
		return errors.New("site: no modules")
	}
	seen := map[string]bool{}
	for i := range s.Modules {
		m := &s.Modules[i]
		if m.Module == "" || strings.ContainsAny(m.Module, "/?#") {
			return fmt.Errorf("site: module %d: invalid name %q", i, m.Module)
		}
		if seen[m.Module] {
			return fmt.Errorf("site: duplicate module %q", m.Module)
		}
		seen[m.Module] = true
		if m.Name == "" {
			m.Name = m.Module
		}
		for _, p := range m.Sidebar {
			if p.Slug == "" || strings.Contains(p.Slug, "/") {
				return fmt.Errorf("site: module %s: invalid page slug %q", m.Module, p.Slug)
			}
		}
	}
	return nil
}

// Supports reports whether lang is one of the site languages.
func (s *Site) Supports(lang string) bool {
	for _, l := range s.Languages {
		if strings.EqualFold(l, lang) {
			return true
		}
	}
	return false
}

// Module returns the module called name.
func (s *Site) Module(name string) (*Module, error) {
	for i := range s.Modules {
		if s.Modules[i].Module == name {
			return &s.Modules[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownModule, name)
}

// First returns the first module, the site's landing page.
func (s *Site) First() *Module {
	return &s.Modules[0]
}

// LanguageSwitch returns the query and label of the language following lang
// in the site list.
func (s *Site) LanguageSwitch(lang string) (string, string) {
	next := s.Languages[0]
	for i, l := range s.Languages {
		if strings.EqualFold(l, lang) {
			next = s.Languages[(i+1)%len(s.Languages)]
			break
		}
	}
	label := s.LanguageLabels[next]
	if label == "" {
		label = next
	}
	return "?lang=" + next, label
}

// HomeHref is the module home page.
func (m *Module) HomeHref() string { return "/" + m.Module + "/" }

// DocsHref is the docs landing page.
func (m *Module) DocsHref() string { return "/" + m.Module + "/docs/" }

// PageHref is the visible address of a docs page.
func (m *Module) PageHref(slug string) string { return m.DocsHref() + slug }

// Page returns the sidebar page with slug.
func (m *Module) Page(slug string) (Page, bool) {
	for _, p := range m.Sidebar {
		if p.Slug == slug {
			return p, true
		}
	}
	return Page{}, false
}

// FirstPage returns the first sidebar page.
func (m *Module) FirstPage() (Page, bool) {
	if len(m.Sidebar) == 0 {
		return Page{}, false
	}
	return m.Sidebar[0], true
}

// PageTitle is the document title of a docs page.
func (m *Module) PageTitle(p Page, lang, fallback string) string {
	return p.Label.In(lang, fallback) + " | " + m.Name
}

// NavbarEntries builds the navbar menu in lang.
func (m *Module) NavbarEntries(lang, fallback string) []nav.Entry {
	out := make([]nav.Entry, 0, len(m.Navbar))
	for _, l := range m.Navbar {
		label := l.Label.In(lang, fallback)
		out = append(out, nav.Entry{Href: l.Href, Label: label, Title: label})
	}
	return out
}

// SidebarEntries builds the sidebar menu in lang.
func (m *Module) SidebarEntries(lang, fallback string) []nav.Entry {
	out := make([]nav.Entry, 0, len(m.Sidebar))
	for _, p := range m.Sidebar {
		out = append(out, nav.Entry{
			Href:  m.PageHref(p.Slug),
			Label: p.Label.In(lang, fallback),
			Title: m.PageTitle(p, lang, fallback),
		})
	}
	return out
}

// Menus returns fresh navbar and sidebar menus in lang.
func (m *Module) Menus(lang, fallback string) *nav.Synchronizer {
	return &nav.Synchronizer{
		Navbar:  nav.NewMenu(nav.Navbar, m.NavbarEntries(lang, fallback)),
		Sidebar: nav.NewMenu(nav.Sidebar, m.SidebarEntries(lang, fallback)),
	}
}

// FeatureView is a feature rendered in one language.
type FeatureView struct {
	Title string
	Body  template.HTML
}

// FeaturesIn renders the module features in lang. Bodies come from site.yaml
// and are trusted.
func (m *Module) FeaturesIn(lang, fallback string) []FeatureView {
	out := make([]FeatureView, 0, len(m.Features))
	for _, f := range m.Features {
		out = append(out, FeatureView{
			Title: f.Title.In(lang, fallback),
			Body:  template.HTML(f.Body.In(lang, fallback)),
		})
	}
	return out
}
