// Package links rewrites in-page links so they carry the selected language.
package links

import (
	"bytes"
	"html/template"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// RewriteHref returns href with its query replaced by lang=<lang>. Anchors,
// external links, javascript: links and bare language switchers are returned
// unchanged, as is every href when lang is empty.
func RewriteHref(href, lang string) string {
	if lang == "" || !Eligible(href) {
		return href
	}
	if i := strings.IndexByte(href, '?'); i >= 0 {
		href = href[:i]
	}
	return href + "?lang=" + lang
}

// Eligible reports whether href should carry the language query.
func Eligible(href string) bool {
	switch {
	case strings.HasPrefix(href, "javascript:"):
		return false
	case strings.HasPrefix(href, "http"):
		return false
	case strings.HasPrefix(href, "#"):
		return false
	case strings.HasPrefix(href, "?lang=") && !strings.ContainsAny(href[len("?lang="):], "&#"):
		return false
	}
	return true
}

// Rewrite applies RewriteHref to every anchor of an HTML fragment.
func Rewrite(fragment template.HTML, lang string) (template.HTML, error) {
	if lang == "" {
		return fragment, nil
	}
	nodes, err := parseFragment(fragment)
	if err != nil {
		return fragment, err
	}
	for _, n := range nodes {
		walk(n, func(el *html.Node) bool {
			if el.DataAtom != atom.A {
				return true
			}
			for i, attr := range el.Attr {
				if attr.Namespace == "" && attr.Key == "href" {
					el.Attr[i].Val = RewriteHref(attr.Val, lang)
				}
			}
			return true
		})
	}
	var buf bytes.Buffer
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return fragment, err
		}
	}
	return template.HTML(buf.String()), nil
}

// FindAnchor returns the href of the first anchor whose href equals hash.
// Both sides are compared percent-decoded, so "#%E5%BF%AB" matches "#快".
func FindAnchor(fragment template.HTML, hash string) (string, bool) {
	if hash == "" || hash == "#" {
		return "", false
	}
	want := unescape(hash)
	nodes, err := parseFragment(fragment)
	if err != nil {
		return "", false
	}
	var found string
	for _, n := range nodes {
		walk(n, func(el *html.Node) bool {
			if found != "" {
				return false
			}
			if el.DataAtom == atom.A {
				for _, attr := range el.Attr {
					if attr.Key == "href" && strings.HasPrefix(attr.Val, "#") && unescape(attr.Val) == want {
						found = attr.Val
						return false
					}
				}
			}
			return true
		})
		if found != "" {
			return found, true
		}
	}
	return "", false
}

func unescape(s string) string {
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}

func parseFragment(fragment template.HTML) ([]*html.Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	return html.ParseFragment(strings.NewReader(string(fragment)), ctx)
}

// walk visits element nodes depth first until fn returns false.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if n.Type == html.ElementNode && !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}
