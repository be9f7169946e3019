package handlers

import (
	"html/template"

	"finitefield.org/docs-web/internal/nav"
	"finitefield.org/docs-web/internal/seo"
	"finitefield.org/docs-web/internal/site"
)

// PageData is the view model shared by every page using the base layout.
type PageData struct {
	Title string
	Lang  string
	// QueryLang is the lang query of the request; links carry it when set.
	QueryLang string
	SEO       seo.Meta
	Analytics Analytics

	Path        string
	Module      string
	ModuleName  string
	Navbar      []nav.Entry
	Sidebar     []nav.Entry
	Breadcrumbs []nav.Crumb

	// LangSwitch links to the same page in the next site language.
	LangSwitchHref  string
	LangSwitchLabel string
	FooterNote      string
	// LiveReload adds the dev mode reload socket.
	LiveReload bool

	// Page is "home" or "docs"; it selects the content template.
	Page string
	Home *HomeView
	Docs *DocsView
}

// BuildPageData fills the layout fields for module m in lang.
func BuildPageData(s *site.Site, m *site.Module, lang, path string, menus *nav.Synchronizer) PageData {
	href, label := s.LanguageSwitch(lang)
	pd := PageData{
		Lang:            lang,
		Path:            path,
		Module:          m.Module,
		ModuleName:      m.Name,
		LangSwitchHref:  href,
		LangSwitchLabel: label,
		FooterNote:      m.FooterNote.Exact(lang),
	}
	if menus != nil {
		pd.Navbar = menus.Navbar.Entries
		if menus.Sidebar != nil {
			pd.Sidebar = menus.Sidebar.Entries
		}
	}
	return pd
}

// DocsView is the content region of a docs page.
type DocsView struct {
	Title   string
	Content template.HTML
	// Markdown is the site path of the source document.
	Markdown string
	// URL is the visible address pushed to history.
	URL     string
	Updated string
	// StateClass drives the content transition.
	StateClass string
	// Anchor is the heading link to scroll to after the swap.
	Anchor string
}
