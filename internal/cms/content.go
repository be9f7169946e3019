// Package cms reads the markdown documents behind documentation pages.
package cms

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/adrg/frontmatter"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a document cannot be located.
var ErrNotFound = errors.New("cms: not found")

// Document is a markdown source file with its optional front matter.
type Document struct {
	Path      string
	Title     string
	Summary   string
	Body      []byte
	UpdatedAt time.Time
}

type documentFrontMatter struct {
	Title     string `yaml:"title" toml:"title" json:"title"`
	Summary   string `yaml:"summary" toml:"summary" json:"summary"`
	UpdatedAt string `yaml:"updated_at" toml:"updated_at" json:"updated_at"`
}

const (
	defaultContentDir = "public"
	maxDocumentSize   = 4 << 20
)

// Client reads markdown documents from a remote site over HTTP GET when a base
// URL is configured, and from a local directory otherwise. Remote failures
// other than 404 fall back to the local directory.
type Client struct {
	baseURL    string
	http       *http.Client
	contentDir string
	logger     *zap.Logger

	mu       sync.RWMutex
	cache    map[string]cacheEntry
	cacheTTL time.Duration
}

type cacheEntry struct {
	doc     Document
	expires time.Time
}

// NewClient constructs a Client with the provided base URL. An empty base URL
// reads documents from the content directory only.
func NewClient(baseURL string) *Client {
	baseURL = strings.TrimSpace(baseURL)
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: 5 * time.Second},
		contentDir: defaultContentDir,
		logger:     zap.NewNop(),
		cache:      map[string]cacheEntry{},
		cacheTTL:   5 * time.Minute,
	}
}

// SetContentDir configures the local directory documents are read from.
func (c *Client) SetContentDir(dir string) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = defaultContentDir
	}
	c.contentDir = dir
}

// ContentDir returns the configured local directory.
func (c *Client) ContentDir() string { return c.contentDir }

// SetLogger sets the logger used for remote failures.
func (c *Client) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	c.logger = l
}

// SetCacheDuration overrides the in-memory cache duration. Non-positive values
// disable caching.
func (c *Client) SetCacheDuration(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheTTL = d
}

// Invalidate drops every cached document.
func (c *Client) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = map[string]cacheEntry{}
}

// GetDocument fetches the document at the site path p, e.g.
// "/modelar/docs/en-US/intro.md".
func (c *Client) GetDocument(ctx context.Context, p string) (Document, error) {
	p, ok := cleanPath(p)
	if !ok {
		return Document{}, ErrNotFound
	}
	if doc, ok := c.cached(p); ok {
		return doc, nil
	}
	doc, err := c.fetch(ctx, p)
	if err != nil {
		return Document{}, err
	}
	c.store(p, doc)
	return cloneDocument(doc), nil
}

func (c *Client) fetch(ctx context.Context, p string) (Document, error) {
	if c.baseURL == "" {
		return c.readLocal(p)
	}
	doc, err := c.fetchRemote(ctx, p)
	if err == nil || errors.Is(err, ErrNotFound) {
		return doc, err
	}
	c.logger.Warn("cms: remote document fetch failed", zap.String("path", p), zap.Error(err))
	if local, lerr := c.readLocal(p); lerr == nil {
		return local, nil
	}
	return Document{}, err
}

func (c *Client) fetchRemote(ctx context.Context, p string) (Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+p, nil)
	if err != nil {
		return Document{}, err
	}
	req.Header.Set("Accept", "text/markdown, text/plain;q=0.9, */*;q=0.1")
	resp, err := c.http.Do(req)
	if err != nil {
		return Document{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return Document{}, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return Document{}, fmt.Errorf("cms: remote status %d for %s", resp.StatusCode, p)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return Document{}, err
	}
	var updated time.Time
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		updated, _ = http.ParseTime(lm)
	}
	return parseDocument(p, data, updated)
}

func (c *Client) readLocal(p string) (Document, error) {
	fsys := os.DirFS(c.contentDir)
	name := strings.TrimPrefix(p, "/")
	info, err := fs.Stat(fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	if !info.Mode().IsRegular() {
		return Document{}, ErrNotFound
	}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return Document{}, err
	}
	return parseDocument(p, data, info.ModTime())
}

func parseDocument(p string, data []byte, modTime time.Time) (Document, error) {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	var front documentFrontMatter
	body, err := frontmatter.Parse(bytes.NewReader(data), &front)
	if err != nil {
		return Document{}, fmt.Errorf("cms: parse front matter %s: %w", p, err)
	}
	doc := Document{
		Path:      p,
		Title:     strings.TrimSpace(front.Title),
		Summary:   strings.TrimSpace(front.Summary),
		Body:      body,
		UpdatedAt: parseContentDate(front.UpdatedAt),
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = modTime
	}
	if doc.Title == "" {
		base := path.Base(p)
		doc.Title = prettifySlug(strings.TrimSuffix(base, path.Ext(base)))
	}
	return doc, nil
}

// cleanPath normalizes p to a rooted slash path and rejects traversal.
func cleanPath(p string) (string, bool) {
	p = strings.TrimSpace(p)
	if p == "" || strings.Contains(p, "\x00") {
		return "", false
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", false
		}
	}
	p = path.Clean("/" + p)
	if p == "/" {
		return "", false
	}
	return p, fs.ValidPath(strings.TrimPrefix(p, "/"))
}

func parseContentDate(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"2006/01/02",
		"2006-1-2",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func prettifySlug(slug string) string {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return slug
	}
	parts := strings.Split(slug, "-")
	for i, part := range parts {
		if part == "" {
			continue
		}
		runes := []rune(part)
		runes[0] = asciiUpper(runes[0])
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}

func (c *Client) cached(key string) (Document, bool) {
	now := time.Now()
	c.mu.RLock()
	entry, ok := c.cache[key]
	c.mu.RUnlock()
	if !ok || now.After(entry.expires) {
		return Document{}, false
	}
	return cloneDocument(entry.doc), true
}

func (c *Client) store(key string, doc Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cacheTTL <= 0 {
		return
	}
	c.cache[key] = cacheEntry{
		doc:     cloneDocument(doc),
		expires: time.Now().Add(c.cacheTTL),
	}
}

func cloneDocument(src Document) Document {
	cp := src
	cp.Body = append([]byte(nil), src.Body...)
	return cp
}

func asciiUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}
