package markdown

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"finitefield.org/docs-web/internal/slug"
)

// restoreAnchors points every heading anchor back at its heading id. The
// sanitizer percent-encodes fragments, which turns "#快速-上手" into an href
// that no longer equals the id.
func restoreAnchors(src []byte) ([]byte, error) {
	if !bytes.Contains(src, []byte(slug.AnchorClass)) {
		return src, nil
	}
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(bytes.NewReader(src), ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		fixAnchors(n)
	}
	var buf bytes.Buffer
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func fixAnchors(n *html.Node) {
	if n.Type == html.ElementNode && isHeading(n.DataAtom) {
		if id := attr(n, "id"); id != "" {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.DataAtom == atom.A && hasClass(c, slug.AnchorClass) {
					setAttr(c, "href", "#"+id)
				}
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		fixAnchors(c)
	}
}

func isHeading(a atom.Atom) bool {
	switch a {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return true
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
