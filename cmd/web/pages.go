package main

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finitefield.org/docs-web/internal/cms"
	"finitefield.org/docs-web/internal/format"
	handlersPkg "finitefield.org/docs-web/internal/handlers"
	"finitefield.org/docs-web/internal/links"
	"finitefield.org/docs-web/internal/loader"
	mw "finitefield.org/docs-web/internal/middleware"
	"finitefield.org/docs-web/internal/nav"
	"finitefield.org/docs-web/internal/observability"
	"finitefield.org/docs-web/internal/seo"
	"finitefield.org/docs-web/internal/site"
)

// rootRedirect sends visitors to the first module's home page.
func (s *server) rootRedirect(w http.ResponseWriter, r *http.Request) {
	target := s.site.First().HomeHref()
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// module resolves the {module} segment. Unknown names are handed to the
// static resolver since they may be plain directories under public.
func (s *server) module(w http.ResponseWriter, r *http.Request) (*site.Module, bool) {
	m, err := s.site.Module(chi.URLParam(r, "module"))
	if err != nil {
		s.files.ServeHTTP(w, r)
		return nil, false
	}
	return m, true
}

// moduleHome renders the landing page of a module.
func (s *server) moduleHome(w http.ResponseWriter, r *http.Request) {
	m, ok := s.module(w, r)
	if !ok {
		return
	}
	lang := mw.Lang(r)
	loc := nav.LocationFromURL(r.URL)
	menus := m.Menus(lang, s.site.DefaultLanguage)
	menus.Sync(loc)

	home := handlersPkg.BuildHomeData(m, lang, s.site.DefaultLanguage)
	vm := s.pageData(r, m, lang, loc.Path, menus)
	vm.Page = "home"
	vm.Home = &home
	vm.Title = m.Name
	vm.Breadcrumbs = nav.Breadcrumbs(loc.Path, s.crumbLabels(m, lang, nil))

	canonical := absoluteURL(r, loader.VisibleURL(loc.Path, vm.QueryLang))
	vm.SEO = seo.NewMeta(m.Name, home.Description, canonical, m.Name, lang)
	vm.SEO.Alternates = seo.Alternates(canonical, s.site.Languages)
	vm.SEO.AddJSONLD(seo.WebSite(m.Name, canonical, home.Description))
	vm.SEO.AddJSONLD(seo.SoftwareSourceCode(m.Name, home.Description, m.Repository, lang))

	renderPage(w, r, http.StatusOK, vm)
}

// docsIndex shows the first sidebar page of a module.
func (s *server) docsIndex(w http.ResponseWriter, r *http.Request) {
	m, ok := s.module(w, r)
	if !ok {
		return
	}
	first, ok := m.FirstPage()
	if !ok {
		s.files.ServeHTTP(w, r)
		return
	}
	s.renderDocs(w, r, m, first)
}

// docsPage shows one docs page. Pages missing from the sidebar still load;
// their title comes from the document.
func (s *server) docsPage(w http.ResponseWriter, r *http.Request) {
	m, ok := s.module(w, r)
	if !ok {
		return
	}
	slug := chi.URLParam(r, "page")
	slug = strings.TrimSuffix(slug, path.Ext(slug))
	p, ok := m.Page(slug)
	if !ok {
		p = site.Page{Slug: slug}
	}
	s.renderDocs(w, r, m, p)
}

// renderDocs loads the page through the soft navigation loader. htmx
// requests get only the content fragment and the address to push.
func (s *server) renderDocs(w http.ResponseWriter, r *http.Request, m *site.Module, p site.Page) {
	lang := mw.Lang(r)
	queryLang := mw.QueryLang(r)
	logger := observability.FromContext(r.Context())

	loc := nav.LocationFromURL(r.URL)
	menus := m.Menus(lang, s.site.DefaultLanguage)
	menus.Sync(loc)
	navCtx := nav.NewContext(loc, lang)
	region := &loader.Buffer{}
	history := &loader.Recorder{}
	ld := loader.New(s.docs, s.md, navCtx, region, history,
		loader.WithSynchronizer(menus),
		loader.WithLanguages(loader.Languages{Supported: s.site.Languages, Default: s.site.DefaultLanguage}),
		loader.WithErrorPanel(s.errorPanel(m, queryLang)),
		loader.WithLogger(logger),
	)

	title := ""
	if p.Label != nil {
		title = m.PageTitle(p, lang, s.site.DefaultLanguage)
	}
	res, err := ld.Load(r.Context(), m.PageHref(p.Slug), title)

	status := http.StatusOK
	view := &handlersPkg.DocsView{
		Content:    region.Content(),
		StateClass: region.State().Class(),
	}
	if err != nil {
		status = http.StatusBadGateway
		if errors.Is(err, cms.ErrNotFound) {
			status = http.StatusNotFound
		}
		view.Title = m.Name
		if status == http.StatusBadGateway {
			logger.Warn("docs: load failed", zap.String("page", p.Slug), zap.Error(err))
		}
	} else {
		view.Title = res.Title
		view.Markdown = res.Markdown
		view.URL = res.URL
		view.Anchor = res.Anchor
		view.Updated = format.FmtDate(res.Document.UpdatedAt, lang)
	}

	current := navCtx.Location()
	vm := s.pageData(r, m, lang, current.Path, menus)
	vm.Page = "docs"
	vm.Docs = view
	vm.Title = view.Title

	if mw.IsHTMX(r.Context()) {
		mw.Retarget(w, "#content")
		if err == nil {
			mw.PushURL(w, res.URL)
		}
		renderTemplate(w, r, status, "docs_fragment", vm)
		return
	}

	pageLabel := ""
	if err == nil {
		pageLabel = p.Label.In(lang, s.site.DefaultLanguage)
		if pageLabel == "" {
			pageLabel = res.Document.Title
		}
	}
	labels := map[string]string{}
	if pageLabel != "" {
		labels[current.Path] = pageLabel
	}
	vm.Breadcrumbs = nav.Breadcrumbs(current.Path, s.crumbLabels(m, lang, labels))

	canonical := absoluteURL(r, loader.VisibleURL(current.Path, queryLang))
	desc := m.Description.In(lang, s.site.DefaultLanguage)
	if err == nil && res.Document.Summary != "" {
		desc = res.Document.Summary
	}
	vm.SEO = seo.NewMeta(view.Title, desc, canonical, m.Name, lang)
	vm.SEO.OG.Type = "article"
	vm.SEO.Alternates = seo.Alternates(canonical, s.site.Languages)
	if err != nil {
		vm.SEO.Robots = "noindex"
	} else {
		vm.SEO.AddJSONLD(seo.TechArticle(view.Title, canonical, desc, lang, format.ISODate(res.Document.UpdatedAt)))
	}
	crumbs := make([]seo.BreadcrumbItem, 0, len(vm.Breadcrumbs))
	for _, c := range vm.Breadcrumbs {
		crumbs = append(crumbs, seo.BreadcrumbItem{Name: c.Label, Item: absoluteURL(r, c.Href)})
	}
	vm.SEO.AddJSONLD(seo.BreadcrumbList(crumbs))

	renderPage(w, r, status, vm)
}

func (s *server) pageData(r *http.Request, m *site.Module, lang, p string, menus *nav.Synchronizer) handlersPkg.PageData {
	vm := handlersPkg.BuildPageData(s.site, m, lang, p, menus)
	vm.QueryLang = mw.QueryLang(r)
	vm.Analytics = handlersPkg.LoadAnalyticsFromEnv()
	vm.LiveReload = s.cfg.Dev
	return vm
}

// crumbLabels names the module and docs crumbs; extra overrides them.
func (s *server) crumbLabels(m *site.Module, lang string, extra map[string]string) map[string]string {
	labels := map[string]string{}
	for _, href := range []string{m.HomeHref(), strings.TrimSuffix(m.HomeHref(), "/")} {
		labels[href] = m.Name
	}
	docs := s.bundle.T(lang, "nav.docs")
	for _, href := range []string{m.DocsHref(), strings.TrimSuffix(m.DocsHref(), "/")} {
		labels[href] = docs
	}
	for k, v := range extra {
		labels[k] = v
	}
	return labels
}

// errorPanel renders the localized notice shown when a page fails to load.
func (s *server) errorPanel(m *site.Module, queryLang string) loader.ErrorPanel {
	return func(err error, lang string) template.HTML {
		key := "error.failed"
		if errors.Is(err, cms.ErrNotFound) {
			key = "error.not_found"
		}
		var b bytes.Buffer
		b.WriteString(`<div class="load-error" role="alert"><p>`)
		template.HTMLEscape(&b, []byte(s.bundle.T(lang, key)))
		b.WriteString(`</p><p><a href="`)
		template.HTMLEscape(&b, []byte(links.RewriteHref(m.DocsHref(), queryLang)))
		b.WriteString(`">`)
		template.HTMLEscape(&b, []byte(s.bundle.T(lang, "error.back")))
		b.WriteString(`</a></p></div>`)
		return template.HTML(b.String())
	}
}

// highlightCSS serves the stylesheet for highlighted code blocks.
func (s *server) highlightCSS(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.md.Highlighter().WriteCSS(&buf); err != nil {
		mw.WriteError(w, r, http.StatusInternalServerError, "highlight stylesheet unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = buf.WriteTo(w)
}

// absoluteURL joins the request origin with p.
func absoluteURL(r *http.Request, p string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if xf := r.Header.Get("X-Forwarded-Proto"); xf != "" {
		scheme = strings.TrimSpace(strings.Split(xf, ",")[0])
	}
	return scheme + "://" + r.Host + p
}
