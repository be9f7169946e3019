package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func testConfig() config {
	return config{
		Addr:         ":0",
		PublicDir:    "../../public",
		TemplatesDir: "../../templates",
		LocalesDir:   "../../locales",
		SiteFile:     "../../site.yaml",
		Dev:          true,
		LogLevel:     "error",
	}
}

// newTestRouter builds the same router as the server, reparsing templates
// on each request.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	s, err := newServer(testConfig(), nil)
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	if _, err := parseTemplates(); err != nil {
		t.Fatalf("parseTemplates failed: %v", err)
	}
	return s.routes()
}

func get(t *testing.T, h http.Handler, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Accept-Language", "en")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func parseHTML(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rec.Body.String()))
	require.NoError(t, err)
	return doc
}

func TestHealthzOK(t *testing.T) {
	srv := newTestRouter(t)
	rec := get(t, srv, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body=%s", rec.Code, rec.Body.String())
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "ok" {
		t.Fatalf("expected body 'ok', got %q", got)
	}
}

func TestRootRedirectsToFirstModule(t *testing.T) {
	srv := newTestRouter(t)
	rec := get(t, srv, "/?lang=zh-CN", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/modelar/?lang=zh-CN" {
		t.Fatalf("unexpected Location %q", got)
	}
}

func TestModuleHomeRenders(t *testing.T) {
	srv := newTestRouter(t)
	rec := get(t, srv, "/modelar/", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	doc := parseHTML(t, rec)
	require.Equal(t, "Modelar", strings.TrimSpace(doc.Find(".jumbotron h1").Text()))
	require.Equal(t, 3, doc.Find(".feature").Length())
	frames, ok := doc.Find(".command").Attr("data-frames")
	require.True(t, ok)
	require.Contains(t, frames, "npm i modelar --save")
	require.Equal(t, "Home", strings.TrimSpace(doc.Find(".navbar-menu li.active a").Text()))
	require.Equal(t, 2, doc.Find(`script[type="application/ld+json"]`).Length())
	require.Contains(t, rec.Body.String(), `/assets/js/live.js`)
}

func TestModuleHomeLocalized(t *testing.T) {
	srv := newTestRouter(t)
	rec := get(t, srv, "/sfn/", map[string]string{"Accept-Language": "zh-CN,zh;q=0.9"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "zh-CN", rec.Header().Get("Content-Language"))

	doc := parseHTML(t, rec)
	lang, _ := doc.Find("html").Attr("lang")
	require.Equal(t, "zh-CN", lang)
	require.Equal(t, "桂ICP备15001693号", strings.TrimSpace(doc.Find("#icp").Text()))
}

func TestFooterNoteOnlyInItsLanguage(t *testing.T) {
	srv := newTestRouter(t)
	rec := get(t, srv, "/sfn/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Zero(t, parseHTML(t, rec).Find("#icp").Length())
}

func TestDocsPageMarksSidebarAndNavbar(t *testing.T) {
	srv := newTestRouter(t)
	rec := get(t, srv, "/modelar/docs/intro", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	doc := parseHTML(t, rec)
	active := doc.Find("#sidebar li.active")
	require.Equal(t, 1, active.Length())
	require.Equal(t, "Introduction", strings.TrimSpace(active.Text()))
	require.Equal(t, "Documentation", strings.TrimSpace(doc.Find(".navbar-menu li.active a").Text()))
	// a newer sidebar click aborts the request still in flight
	menu := doc.Find("#sidebar .sidebar-menu")
	sync, _ := menu.Attr("hx-sync")
	require.Equal(t, "closest .docs:replace", sync)
	require.Equal(t, 9, menu.Find("a[hx-get]").Length())

	content := doc.Find("#content")
	require.True(t, content.HasClass("fadeIn"))
	require.Equal(t, 1, content.Find("h2#Hello_World a.heading-anchor").Length())
	require.Equal(t, 1, content.Find("pre code.lang-javascript").Length())
	require.Equal(t, "Introduction | Modelar", doc.Find("title").Text())
	require.Contains(t, rec.Body.String(), `"@type":"TechArticle"`)
}

func TestDocsIndexShowsFirstPage(t *testing.T) {
	srv := newTestRouter(t)
	rec := get(t, srv, "/modelar/docs/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	doc := parseHTML(t, rec)
	require.Equal(t, "Introduction", strings.TrimSpace(doc.Find("#sidebar li.active").Text()))
	require.Equal(t, 1, doc.Find("#content h2#Hello_World").Length())
}

func TestDocsFragmentForHTMX(t *testing.T) {
	srv := newTestRouter(t)
	rec := get(t, srv, "/modelar/docs/DB", map[string]string{"HX-Request": "true"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body=%s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("HX-Push-Url"); got != "/modelar/docs/DB" {
		t.Fatalf("expected HX-Push-Url /modelar/docs/DB, got %q", got)
	}
	body := rec.Body.String()
	if strings.Contains(body, "<html") {
		t.Fatalf("expected a fragment, got a full page")
	}
	if !strings.Contains(body, "<title>The DB class | Modelar</title>") {
		t.Fatalf("expected title in fragment; body=%s", body)
	}
	if !strings.Contains(body, `hx-swap-oob="true"`) {
		t.Fatalf("expected out of band sidebar in fragment")
	}
	if !strings.Contains(body, `id="DB_Class"`) {
		t.Fatalf("expected heading id DB_Class; body=%s", body)
	}
}

func TestDocsQueryLangRewritesLinks(t *testing.T) {
	srv := newTestRouter(t)
	rec := get(t, srv, "/modelar/docs/intro?lang=zh-CN", map[string]string{"HX-Request": "true"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "/modelar/docs/intro?lang=zh-CN", rec.Header().Get("HX-Push-Url"))

	body := rec.Body.String()
	require.Contains(t, body, `id="你好-世界"`)
	require.Contains(t, body, `href="/modelar/docs/DB?lang=zh-CN"`)
	require.Contains(t, body, "<title>简介 | Modelar</title>")
}

func TestDocsUnsupportedQueryLangFallsBack(t *testing.T) {
	srv := newTestRouter(t)
	rec := get(t, srv, "/modelar/docs/intro?lang=fr", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "en-US", rec.Header().Get("Content-Language"))
	require.Equal(t, 1, parseHTML(t, rec).Find("#content h2#Hello_World").Length())
}

func TestDocsMissingDocumentShowsPanel(t *testing.T) {
	srv := newTestRouter(t)
	rec := get(t, srv, "/modelar/docs/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	doc := parseHTML(t, rec)
	content := doc.Find("#content")
	require.True(t, content.HasClass("load-failed"))
	require.Contains(t, content.Find(".load-error").Text(), "could not be found")
	href, _ := content.Find(".load-error a").Attr("href")
	require.Equal(t, "/modelar/docs/", href)
	robots, _ := doc.Find(`meta[name="robots"]`).Attr("content")
	require.Equal(t, "noindex", robots)
}

func TestDocsMissingFragmentDoesNotPush(t *testing.T) {
	srv := newTestRouter(t)
	rec := get(t, srv, "/modelar/docs/missing?lang=zh-CN", map[string]string{"HX-Request": "true"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Empty(t, rec.Header().Get("HX-Push-Url"))
	require.Contains(t, rec.Body.String(), "load-failed")
	require.Contains(t, rec.Body.String(), `href="/modelar/docs/?lang=zh-CN"`)
}

func TestStaticFiles(t *testing.T) {
	srv := newTestRouter(t)
	cases := []struct {
		name     string
		target   string
		code     int
		location string
		contains string
	}{
		{name: "file", target: "/robots.txt", code: http.StatusOK, contains: "User-agent"},
		{name: "raw markdown", target: "/modelar/docs/en-US/intro.md", code: http.StatusOK, contains: "## Hello World"},
		{name: "directory redirect", target: "/examples?x=1", code: http.StatusFound, location: "/examples/?x=1"},
		{name: "directory index", target: "/examples/", code: http.StatusOK, contains: "<h1>Examples</h1>"},
		{name: "html completion", target: "/examples/chat", code: http.StatusOK, contains: "<h1>Chat</h1>"},
		{name: "missing", target: "/nope.txt", code: http.StatusNotFound, contains: "404"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := get(t, srv, tc.target, nil)
			if rec.Code != tc.code {
				t.Fatalf("%s: expected %d, got %d; body=%s", tc.target, tc.code, rec.Code, rec.Body.String())
			}
			if tc.location != "" && rec.Header().Get("Location") != tc.location {
				t.Fatalf("%s: expected Location %q, got %q", tc.target, tc.location, rec.Header().Get("Location"))
			}
			if tc.contains != "" && !strings.Contains(rec.Body.String(), tc.contains) {
				t.Fatalf("%s: expected body to contain %q; body=%s", tc.target, tc.contains, rec.Body.String())
			}
		})
	}
}

func TestAssetsServed(t *testing.T) {
	srv := newTestRouter(t)
	rec := get(t, srv, "/assets/css/site.css", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	rec = get(t, srv, "/assets/highlight.css", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/css")
	require.NotEmpty(t, rec.Body.String())
}

func TestSiteScriptReplaysHash(t *testing.T) {
	srv := newTestRouter(t)
	rec := get(t, srv, "/assets/js/site.js", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	js := rec.Body.String()
	require.Contains(t, js, "history.replaceState")
	require.Contains(t, js, `a[href^="#"]`)
	require.Contains(t, js, "replay(pendingHash)")
	require.Contains(t, js, "RESTART_DELAY = 1500")
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DOCS_WEB_LOG_LEVEL", "debug")
	t.Setenv("DOCS_WEB_CACHE_TTL", "1m")
	t.Setenv("DOCS_WEB_CONTENT_BASE_URL", "https://docs.example.com")
	t.Setenv("DEV", "1")
	t.Setenv("DOCS_WEB_OTEL_ENDPOINT", "http://collector:4318")

	v := viper.New()
	if err := bindFlags(&cobra.Command{}, v); err != nil {
		t.Fatalf("bindFlags: %v", err)
	}
	cfg, err := loadConfig(v)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, time.Minute, cfg.CacheTTL)
	require.Equal(t, "https://docs.example.com", cfg.ContentBaseURL)
	require.True(t, cfg.Dev)
	require.Equal(t, "http://collector:4318", cfg.OTelEndpoint)
	require.Equal(t, "public", cfg.PublicDir)
}

func TestDefaultAddr(t *testing.T) {
	t.Setenv("DOCS_WEB_PORT", "")
	t.Setenv("PORT", "9090")
	require.Equal(t, ":9090", defaultAddr())
	t.Setenv("DOCS_WEB_PORT", "7070")
	require.Equal(t, ":7070", defaultAddr())
}

func TestRunRenderLocal(t *testing.T) {
	var out, errOut bytes.Buffer
	cfg := testConfig()
	err := runRender(context.Background(), &out, &errOut, cfg, "", "/modelar/docs/intro#Hello_World")
	require.NoError(t, err)
	require.Contains(t, out.String(), `id="Hello_World"`)

	summary := errOut.String()
	require.Contains(t, summary, "title: Introduction | Modelar")
	require.Contains(t, summary, "url: /modelar/docs/intro")
	require.Contains(t, summary, "anchor: #Hello_World")
	require.Contains(t, summary, "sidebar: Introduction")
	require.Contains(t, summary, "navbar: Documentation")
}

func TestRunRenderResolvesWideHeadingHash(t *testing.T) {
	var out, errOut bytes.Buffer
	err := runRender(context.Background(), &out, &errOut, testConfig(), "", "/modelar/docs/intro?lang=zh-CN#你好-世界")
	require.NoError(t, err)
	require.Contains(t, out.String(), `href="#你好-世界"`)
	require.Contains(t, errOut.String(), "anchor: #你好-世界")
}

func TestRunRenderRemote(t *testing.T) {
	upstream := httptest.NewServer(http.FileServer(http.Dir("../../public")))
	defer upstream.Close()

	var out, errOut bytes.Buffer
	cfg := testConfig()
	cfg.PublicDir = t.TempDir()
	cfg.ContentBaseURL = upstream.URL
	err := runRender(context.Background(), &out, &errOut, cfg, "zh-CN", "/sfn/docs/getting-started")
	require.NoError(t, err)
	require.Contains(t, out.String(), `id="安装"`)
	require.Contains(t, errOut.String(), "url: /sfn/docs/getting-started?lang=zh-CN")
	require.Contains(t, errOut.String(), "sidebar: 起步")
}

func TestRunRenderMissing(t *testing.T) {
	var out, errOut bytes.Buffer
	err := runRender(context.Background(), &out, &errOut, testConfig(), "", "/modelar/docs/missing")
	require.Error(t, err)
	require.Empty(t, out.String())
}
