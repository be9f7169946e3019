// Package seo builds the head metadata and schema.org payloads of pages.
package seo

import (
	"html/template"
	"net/url"
)

type OpenGraph struct {
	Title       string
	Description string
	Image       string
	Type        string
	URL         string
	SiteName    string
	Locale      string
}

type Twitter struct {
	Card  string
	Site  string
	Image string
}

// Alternate is a language variant of the page.
type Alternate struct {
	Href     string
	Hreflang string
}

type Meta struct {
	Title       string
	Description string
	Canonical   string
	Robots      string
	OG          OpenGraph
	Twitter     Twitter
	Alternates  []Alternate
	JSONLD      []template.JS
}

// NewMeta fills the common fields from a title, description and absolute
// page URL.
func NewMeta(title, description, canonical, siteName, lang string) Meta {
	m := Meta{
		Title:       title,
		Description: description,
		Canonical:   canonical,
	}
	m.OG = OpenGraph{
		Title:       title,
		Description: description,
		Type:        "website",
		URL:         canonical,
		SiteName:    siteName,
		Locale:      ogLocale(lang),
	}
	m.Twitter.Card = "summary"
	return m
}

// AddJSONLD appends a schema.org payload. Payloads that fail to encode are
// skipped.
func (m *Meta) AddJSONLD(v any) {
	if s := JSON(v); s != "" {
		m.JSONLD = append(m.JSONLD, template.JS(s))
	}
}

// Alternates lists the page address in every language, replacing the lang
// query of pageURL.
func Alternates(pageURL string, langs []string) []Alternate {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	out := make([]Alternate, 0, len(langs))
	for _, l := range langs {
		v := *u
		q := v.Query()
		q.Set("lang", l)
		v.RawQuery = q.Encode()
		v.Fragment = ""
		out = append(out, Alternate{Href: v.String(), Hreflang: l})
	}
	return out
}

func ogLocale(lang string) string {
	b := []byte(lang)
	for i, c := range b {
		if c == '-' {
			b[i] = '_'
		}
	}
	return string(b)
}
