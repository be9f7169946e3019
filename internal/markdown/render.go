package markdown

import (
	"bytes"
	"html"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"

	"finitefield.org/docs-web/internal/slug"
)

// nodeRenderer overrides goldmark's heading and code block output.
type nodeRenderer struct {
	highlight *Highlighter
}

func (r *nodeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindHeading, r.renderHeading)
	reg.Register(ast.KindFencedCodeBlock, r.renderCode)
	reg.Register(ast.KindCodeBlock, r.renderCode)
}

func (r *nodeRenderer) renderHeading(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	h := node.(*ast.Heading)
	if entering {
		_, _ = w.WriteString(slug.OpenHeading(headingID(h), h.Level))
	} else {
		_, _ = w.WriteString(slug.CloseHeading(h.Level))
	}
	return ast.WalkContinue, nil
}

func (r *nodeRenderer) renderCode(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	var lang string
	if fenced, ok := node.(*ast.FencedCodeBlock); ok {
		lang = string(fenced.Language(source))
	}
	var code bytes.Buffer
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		code.Write(seg.Value(source))
	}

	class := "hljs"
	if lang != "" {
		class = "lang-" + html.EscapeString(lang) + " hljs"
	}
	_, _ = w.WriteString(`<pre><code class="` + class + `">`)
	if err := r.highlight.Highlight(w, code.String(), lang); err != nil {
		_, _ = w.WriteString(html.EscapeString(code.String()))
	}
	_, _ = w.WriteString("</code></pre>\n")
	return ast.WalkSkipChildren, nil
}
