// Package markdown renders documentation markdown into HTML with anchored
// headings and highlighted code blocks.
package markdown

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

const defaultStyle = "github"

// Renderer converts markdown documents to HTML. It is safe for concurrent use.
type Renderer struct {
	md        goldmark.Markdown
	policy    *bluemonday.Policy
	highlight *Highlighter
}

type options struct {
	unique   bool
	sanitize bool
	style    string
}

// Option configures a Renderer.
type Option func(*options)

// WithUniqueIDs suffixes repeated heading ids with -1, -2, ... Without it two
// headings with the same text share an id.
func WithUniqueIDs() Option {
	return func(o *options) { o.unique = true }
}

// WithoutSanitize skips the HTML sanitizer. Only use it for trusted sources.
func WithoutSanitize() Option {
	return func(o *options) { o.sanitize = false }
}

// WithStyle selects the chroma style used for the highlight stylesheet.
func WithStyle(name string) Option {
	return func(o *options) {
		if name != "" {
			o.style = name
		}
	}
}

// New builds a Renderer with GFM extensions, heading anchors and code
// highlighting.
func New(opts ...Option) *Renderer {
	o := options{sanitize: true, style: defaultStyle}
	for _, opt := range opts {
		opt(&o)
	}
	hl := NewHighlighter(o.style)
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithASTTransformers(util.Prioritized(&headingIDs{unique: o.unique}, 100)),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
			renderer.WithNodeRenderers(util.Prioritized(&nodeRenderer{highlight: hl}, 100)),
		),
	)
	r := &Renderer{md: md, highlight: hl}
	if o.sanitize {
		r.policy = newPolicy()
	}
	return r
}

// Render converts src to HTML.
func (r *Renderer) Render(src []byte) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("markdown render: %w", err)
	}
	if r.policy != nil {
		out, err := restoreAnchors(r.policy.SanitizeBytes(buf.Bytes()))
		if err != nil {
			return "", fmt.Errorf("markdown render: %w", err)
		}
		return template.HTML(out), nil
	}
	return template.HTML(buf.String()), nil
}

// Highlighter exposes the code highlighter, e.g. to serve its stylesheet.
func (r *Renderer) Highlighter() *Highlighter { return r.highlight }

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(false)
	p.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowAttrs("class").OnElements("a", "pre", "code", "span", "div")
	p.AllowElements("svg", "path")
	p.AllowAttrs("aria-hidden", "height", "width", "version", "viewbox").OnElements("svg")
	p.AllowAttrs("d", "fill-rule").OnElements("path")
	return p
}
