package markdown

import (
	"bytes"
	"io"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Highlighter colours source code with chroma using CSS classes.
type Highlighter struct {
	formatter *chromahtml.Formatter
	style     *chroma.Style
}

// NewHighlighter returns a Highlighter for the named chroma style, falling
// back to chroma's default style for unknown names.
func NewHighlighter(style string) *Highlighter {
	return &Highlighter{
		formatter: chromahtml.New(chromahtml.WithClasses(true), chromahtml.PreventSurroundingPre(true)),
		style:     styles.Get(style),
	}
}

// Highlight writes highlighted code to w. The lexer is picked by language
// name, then by analysing the code. Code no lexer claims is written escaped.
func (h *Highlighter) Highlight(w io.Writer, code, lang string) error {
	var lexer chroma.Lexer
	if lang != "" {
		lexer = lexers.Get(lang)
	}
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	it, err := chroma.Coalesce(lexer).Tokenise(nil, code)
	if err != nil {
		return err
	}
	// format into a buffer so a failure leaves w untouched
	var buf bytes.Buffer
	if err := h.formatter.Format(&buf, h.style, it); err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// WriteCSS writes the stylesheet for the highlighter's classes.
func (h *Highlighter) WriteCSS(w io.Writer) error {
	return h.formatter.WriteCSS(w, h.style)
}
