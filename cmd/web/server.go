package main

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"finitefield.org/docs-web/internal/cms"
	"finitefield.org/docs-web/internal/i18n"
	"finitefield.org/docs-web/internal/live"
	"finitefield.org/docs-web/internal/markdown"
	mw "finitefield.org/docs-web/internal/middleware"
	"finitefield.org/docs-web/internal/observability"
	"finitefield.org/docs-web/internal/site"
	"finitefield.org/docs-web/internal/static"
)

type server struct {
	cfg    config
	logger *zap.Logger
	site   *site.Site
	bundle *i18n.Bundle
	docs   *cms.Client
	md     *markdown.Renderer
	files  *static.Resolver
	hub    *live.Hub
}

func newServer(cfg config, logger *zap.Logger) (*server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	st, err := site.Load(cfg.SiteFile)
	if err != nil {
		return nil, err
	}
	bundle, err := i18n.Load(cfg.LocalesDir, st.DefaultLanguage, st.Languages)
	if err != nil {
		return nil, err
	}

	docs := cms.NewClient(cfg.ContentBaseURL)
	docs.SetContentDir(cfg.PublicDir)
	docs.SetLogger(logger.Named("cms"))
	docs.SetCacheDuration(cfg.CacheTTL)

	files := static.New(os.DirFS(cfg.PublicDir))
	files.SetLogger(logger.Named("static"))

	templatesDir = cfg.TemplatesDir
	devMode = cfg.Dev
	i18nBundle = bundle
	if !devMode {
		// Parse templates once in production
		tc, err := parseTemplates()
		if err != nil {
			return nil, err
		}
		tmplCache = tc
	}

	return &server{
		cfg:    cfg,
		logger: logger,
		site:   st,
		bundle: bundle,
		docs:   docs,
		md:     markdown.New(),
		files:  files,
		hub:    live.NewHub(logger.Named("live")),
	}, nil
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	// If deployed behind a trusted reverse proxy/load balancer, RealIP will use
	// X-Forwarded-For to determine the client IP.
	r.Use(chimw.RealIP)
	r.Use(observability.TraceMiddleware(s.logger))
	r.Use(mw.HTMX)
	r.Use(mw.Locale(s.bundle))
	r.Use(mw.VaryLocale)
	r.Use(mw.Logger(s.logger))
	r.Use(chimw.Recoverer)

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/assets/highlight.css", s.highlightCSS)
	assets := http.StripPrefix("/assets", mw.AssetsWithCache(os.DirFS(filepath.Join(s.cfg.PublicDir, "assets")), s.cfg.Dev))
	r.Handle("/assets/*", assets)

	if s.cfg.Dev {
		r.Handle("/_live", s.hub)
	}

	r.Group(func(r chi.Router) {
		r.Use(chimw.Compress(5))
		r.Get("/", s.rootRedirect)
		r.Get("/{module}/", s.moduleHome)
		r.Get("/{module}/docs/", s.docsIndex)
		r.Get("/{module}/docs/{page}", s.docsPage)
	})

	// Everything else is a file under the public directory
	r.NotFound(s.files.ServeHTTP)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		mw.WriteError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}
