// Package loader implements soft navigation: it fetches the markdown behind a
// page, renders it and swaps it into the page's content region, then updates
// history and navigation state without a full page load.
package loader

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"finitefield.org/docs-web/internal/cms"
	"finitefield.org/docs-web/internal/links"
	"finitefield.org/docs-web/internal/nav"
)

// ErrSuperseded is returned by Load when a newer Load was issued before this
// one finished. Its result is discarded.
var ErrSuperseded = errors.New("loader: superseded by a newer load")

// Fetcher retrieves markdown documents by site path.
type Fetcher interface {
	GetDocument(ctx context.Context, path string) (cms.Document, error)
}

// Renderer turns markdown into HTML.
type Renderer interface {
	Render(src []byte) (template.HTML, error)
}

// ErrorPanel renders the content shown when a load fails.
type ErrorPanel func(err error, lang string) template.HTML

// Result describes a completed load.
type Result struct {
	Title string
	// URL is the visible address, including the lang query when present.
	URL string
	// Path is the visible path without query.
	Path string
	// Markdown is the site path of the fetched document.
	Markdown string
	Content  template.HTML
	Document cms.Document
	// Anchor is the in-page link matching the hash the page was opened
	// with, if any.
	Anchor string
}

// Loader swaps rendered documents into a single content region. Loads may
// overlap; only the most recently issued one is applied.
type Loader struct {
	fetch   Fetcher
	render  Renderer
	nav     *nav.Context
	region  Region
	history History
	menus   *nav.Synchronizer
	langs   Languages
	panel   ErrorPanel
	logger  *zap.Logger
	tracer  trace.Tracer

	seq atomic.Uint64
	mu  sync.Mutex
}

// Option configures a Loader.
type Option func(*Loader)

// WithSynchronizer re-synchronizes menus after every swap.
func WithSynchronizer(s *nav.Synchronizer) Option {
	return func(l *Loader) { l.menus = s }
}

// WithLanguages sets the content languages. The default is en-US and zh-CN
// with en-US as fallback.
func WithLanguages(langs Languages) Option {
	return func(l *Loader) { l.langs = langs }
}

// WithErrorPanel overrides the content shown on failed loads.
func WithErrorPanel(p ErrorPanel) Option {
	return func(l *Loader) {
		if p != nil {
			l.panel = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New builds a Loader for one page.
func New(fetch Fetcher, render Renderer, navCtx *nav.Context, region Region, history History, opts ...Option) *Loader {
	l := &Loader{
		fetch:   fetch,
		render:  render,
		nav:     navCtx,
		region:  region,
		history: history,
		langs:   DefaultLanguages(),
		panel:   DefaultErrorPanel,
		logger:  zap.NewNop(),
		tracer:  otel.Tracer("finitefield.org/docs-web/internal/loader"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches and displays the document behind path. title becomes the
// document title; when empty the document's own title is used.
func (l *Loader) Load(ctx context.Context, path, title string) (Result, error) {
	token := l.seq.Add(1)
	ctx, span := l.tracer.Start(ctx, "loader.Load", trace.WithAttributes(attribute.String("docs.path", path)))
	defer span.End()

	if !l.begin(token) {
		span.SetAttributes(attribute.Bool("docs.superseded", true))
		return Result{}, ErrSuperseded
	}

	segment := l.langs.Segment(l.nav.Lang())
	md := MarkdownPath(path, segment) + ".md"
	span.SetAttributes(attribute.String("docs.markdown", md))

	doc, err := l.fetch.GetDocument(ctx, md)
	var content template.HTML
	if err == nil {
		content, err = l.render.Render(doc.Body)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return Result{}, l.fail(token, md, err)
	}

	queryLang := l.nav.Location().Lang
	if queryLang != "" {
		rewritten, rerr := links.Rewrite(content, queryLang)
		if rerr != nil {
			l.logger.Warn("loader: rewrite links", zap.String("markdown", md), zap.Error(rerr))
		} else {
			content = rewritten
		}
	}

	visible := VisiblePath(MarkdownPath(path, segment), segment)
	loc := nav.Location{Path: visible, Lang: queryLang}
	if title == "" {
		title = doc.Title
	}
	res := Result{
		Title:    title,
		URL:      VisibleURL(visible, queryLang),
		Path:     visible,
		Markdown: md,
		Content:  content,
		Document: doc,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.latest(token) {
		span.SetAttributes(attribute.Bool("docs.superseded", true))
		return Result{}, ErrSuperseded
	}
	hash := l.nav.TakeHash()
	l.region.Swap(content)
	l.region.SetState(StateLoaded)
	l.history.ReplaceState(title, res.URL)
	l.nav.Transition(loc)
	l.menus.Sync(loc)
	if anchor, ok := links.FindAnchor(content, hash); ok {
		res.Anchor = anchor
	}
	return res, nil
}

func (l *Loader) fail(token uint64, md string, err error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.latest(token) {
		return ErrSuperseded
	}
	l.logger.Info("loader: load failed", zap.String("markdown", md), zap.Error(err))
	l.region.Swap(l.panel(err, l.nav.Lang()))
	l.region.SetState(StateFailed)
	return fmt.Errorf("loader: load %s: %w", md, err)
}

// begin marks the region loading unless a newer load already started.
func (l *Loader) begin(token uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.latest(token) {
		return false
	}
	l.region.SetState(StateLoading)
	return true
}

func (l *Loader) latest(token uint64) bool {
	return l.seq.Load() == token
}

// DefaultErrorPanel renders a short English notice.
func DefaultErrorPanel(err error, _ string) template.HTML {
	msg := "This page failed to load. Please try again later."
	if errors.Is(err, cms.ErrNotFound) {
		msg = "This page could not be found."
	}
	return template.HTML(`<div class="load-error" role="alert"><p>` + template.HTMLEscapeString(msg) + `</p></div>`)
}
