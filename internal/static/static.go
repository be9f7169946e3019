// Package static serves files from a directory tree, redirecting directories
// to their slash form, serving index.html for directories and trying a .html
// extension for missing paths.
package static

import (
	"io"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Kind is the outcome of resolving a request path.
type Kind int

const (
	NotFound Kind = iota
	File
	Redirect
)

func (k Kind) String() string {
	switch k {
	case File:
		return "file"
	case Redirect:
		return "redirect"
	default:
		return "not_found"
	}
}

// Resolution says how a request path is answered.
type Resolution struct {
	Kind Kind
	// Name is the file to serve, relative to the root.
	Name string
	// Location is the redirect target.
	Location string
}

// Resolver maps request paths onto a file system.
type Resolver struct {
	root   fs.FS
	logger *zap.Logger
	tracer trace.Tracer
}

// New returns a resolver over root.
func New(root fs.FS) *Resolver {
	return &Resolver{
		root:   root,
		logger: zap.NewNop(),
		tracer: otel.Tracer("finitefield.org/docs-web/internal/static"),
	}
}

// SetLogger sets the logger used for read failures.
func (r *Resolver) SetLogger(l *zap.Logger) {
	if l != nil {
		r.logger = l
	}
}

// Resolve decides how u is answered. It only inspects the file system.
func (r *Resolver) Resolve(u *url.URL) Resolution {
	name, slash := fsName(u.Path)
	info, err := fs.Stat(r.root, name)
	if err == nil {
		if !info.IsDir() {
			return Resolution{Kind: File, Name: name}
		}
		if !slash {
			loc := u.EscapedPath() + "/"
			if u.RawQuery != "" {
				loc += "?" + u.RawQuery
			}
			return Resolution{Kind: Redirect, Location: loc}
		}
		index := path.Join(name, "index.html")
		if isFile(r.root, index) {
			return Resolution{Kind: File, Name: index}
		}
		return Resolution{Kind: NotFound}
	}
	if !slash && name != "." {
		if alt := name + ".html"; isFile(r.root, alt) {
			return Resolution{Kind: File, Name: alt}
		}
	}
	return Resolution{Kind: NotFound}
}

// ServeHTTP answers the request from the file system.
func (r *Resolver) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	_, span := r.tracer.Start(req.Context(), "static.Serve", trace.WithAttributes(attribute.String("http.path", req.URL.Path)))
	defer span.End()

	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	res := r.Resolve(req.URL)
	span.SetAttributes(attribute.String("static.kind", res.Kind.String()))
	switch res.Kind {
	case Redirect:
		http.Redirect(w, req, res.Location, http.StatusFound)
	case File:
		if err := r.serveFile(w, req, res.Name); err != nil {
			r.logger.Warn("static: serve file", zap.String("name", res.Name), zap.Error(err))
			notFound(w)
		}
	default:
		notFound(w)
	}
}

func (r *Resolver) serveFile(w http.ResponseWriter, req *http.Request, name string) error {
	f, err := r.root.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if rs, ok := f.(io.ReadSeeker); ok {
		http.ServeContent(w, req, info.Name(), info.ModTime(), rs)
		return nil
	}
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(http.StatusOK)
	if req.Method != http.MethodHead {
		_, _ = io.Copy(w, f)
	}
	return nil
}

func notFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = io.WriteString(w, "404")
}

// fsName cleans a request path into an fs.FS name and reports whether it
// ended with a slash.
func fsName(p string) (string, bool) {
	slash := strings.HasSuffix(p, "/")
	clean := strings.TrimPrefix(path.Clean("/"+p), "/")
	if clean == "" {
		return ".", true
	}
	return clean, slash
}

func isFile(root fs.FS, name string) bool {
	info, err := fs.Stat(root, name)
	return err == nil && info.Mode().IsRegular()
}
