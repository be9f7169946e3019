package loader

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finitefield.org/docs-web/internal/cms"
	"finitefield.org/docs-web/internal/markdown"
	"finitefield.org/docs-web/internal/nav"
)

type stubFetcher struct {
	mu      sync.Mutex
	docs    map[string]cms.Document
	gates   map[string]chan struct{}
	started chan string
	calls   []string
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{docs: map[string]cms.Document{}, gates: map[string]chan struct{}{}}
}

func (f *stubFetcher) add(path, body string) {
	f.docs[path] = cms.Document{Path: path, Title: "Doc " + path, Body: []byte(body)}
}

func (f *stubFetcher) GetDocument(ctx context.Context, path string) (cms.Document, error) {
	f.mu.Lock()
	f.calls = append(f.calls, path)
	gate := f.gates[path]
	started := f.started
	f.mu.Unlock()
	if started != nil {
		started <- path
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return cms.Document{}, ctx.Err()
		}
	}
	doc, ok := f.docs[path]
	if !ok {
		return cms.Document{}, fmt.Errorf("stub: %s: %w", path, cms.ErrNotFound)
	}
	return doc, nil
}

type fixture struct {
	fetch   *stubFetcher
	region  *Buffer
	history *Recorder
	nav     *nav.Context
	menus   *nav.Synchronizer
	loader  *Loader
}

func newFixture(t *testing.T, start string) *fixture {
	t.Helper()
	loc, err := nav.ParseLocation(start)
	require.NoError(t, err)
	f := &fixture{
		fetch:   newStubFetcher(),
		region:  &Buffer{},
		history: &Recorder{},
		nav:     nav.NewContext(loc, "en-US"),
		menus: &nav.Synchronizer{
			Navbar: nav.NewMenu(nav.Navbar, []nav.Entry{
				{Href: "/modelar/", Label: "Home"},
				{Href: "/modelar/docs/", Label: "Docs"},
			}),
			Sidebar: nav.NewMenu(nav.Sidebar, []nav.Entry{
				{Href: "/modelar/docs/intro", Label: "Introduction"},
				{Href: "/modelar/docs/setup", Label: "Setup"},
			}),
		},
	}
	f.loader = New(f.fetch, markdown.New(), f.nav, f.region, f.history, WithSynchronizer(f.menus))
	return f
}

func TestMarkdownPath(t *testing.T) {
	cases := []struct {
		path, segment, want string
	}{
		{"/modelar/docs/intro", "en-US", "/modelar/docs/en-US/intro"},
		{"/modelar/docs/intro.html", "zh-CN", "/modelar/docs/zh-CN/intro"},
		{"/modelar/docs/intro?lang=zh-CN", "zh-CN", "/modelar/docs/zh-CN/intro"},
		{"/modelar/docs/", "en-US", "/modelar/docs/en-US/index"},
		{"/v1.2/guide", "en-US", "/v1.2/en-US/guide"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, MarkdownPath(tc.path, tc.segment), tc.path)
	}
}

func TestVisiblePath(t *testing.T) {
	require.Equal(t, "/modelar/docs/intro", VisiblePath("/modelar/docs/en-US/intro.md", "en-US"))
	require.Equal(t, "/modelar/docs/intro", VisiblePath("/modelar/docs/zh-CN/intro", "zh-CN"))
	require.Equal(t, "/other/intro", VisiblePath("/other/intro", "en-US"))
	require.Equal(t, "/modelar/docs/intro?lang=zh-CN", VisibleURL("/modelar/docs/intro", "zh-CN"))
	require.Equal(t, "/modelar/docs/intro", VisibleURL("/modelar/docs/intro", ""))
}

func TestLanguagesSegment(t *testing.T) {
	langs := DefaultLanguages()
	require.Equal(t, "zh-CN", langs.Segment("zh-cn"))
	require.Equal(t, "en-US", langs.Segment("en-US"))
	require.Equal(t, "en-US", langs.Segment("fr"))
	require.Equal(t, "en-US", langs.Segment(""))
}

func TestLoadSwapsContentAndUpdatesState(t *testing.T) {
	f := newFixture(t, "/modelar/")
	f.fetch.add("/modelar/docs/en-US/intro.md", "## Hello World\n\nSee [setup](/modelar/docs/setup).\n")

	res, err := f.loader.Load(context.Background(), "/modelar/docs/intro", "Introduction | Modelar")
	require.NoError(t, err)

	require.Equal(t, "/modelar/docs/intro", res.URL)
	require.Equal(t, "/modelar/docs/en-US/intro.md", res.Markdown)
	require.Contains(t, string(f.region.Content()), `id="Hello_World"`)
	require.Equal(t, StateLoaded, f.region.State())
	require.Equal(t, "fadeIn", f.region.State().Class())

	last, ok := f.history.Last()
	require.True(t, ok)
	require.Equal(t, Entry{Title: "Introduction | Modelar", URL: "/modelar/docs/intro"}, last)
	require.Equal(t, "/modelar/docs/intro", f.nav.Location().Path)

	active, ok := f.menus.Navbar.ActiveEntry()
	require.True(t, ok)
	require.Equal(t, "/modelar/docs/", active.Href)
	active, ok = f.menus.Sidebar.ActiveEntry()
	require.True(t, ok)
	require.Equal(t, "/modelar/docs/intro", active.Href)
}

func TestLoadUsesDocumentTitleWhenEmpty(t *testing.T) {
	f := newFixture(t, "/modelar/docs/")
	f.fetch.add("/modelar/docs/en-US/setup.md", "# Setup\n")

	res, err := f.loader.Load(context.Background(), "/modelar/docs/setup", "")
	require.NoError(t, err)
	require.Equal(t, "Doc /modelar/docs/en-US/setup.md", res.Title)
}

func TestLoadWithQueryLanguage(t *testing.T) {
	f := newFixture(t, "/modelar/docs/intro?lang=zh-CN")
	f.fetch.add("/modelar/docs/zh-CN/setup.md", "## 安装\n\n[介绍](/modelar/docs/intro?x=1) [顶部](#top) [外部](https://example.com)\n")

	res, err := f.loader.Load(context.Background(), "/modelar/docs/setup", "安装")
	require.NoError(t, err)
	require.Equal(t, "/modelar/docs/setup?lang=zh-CN", res.URL)

	content := string(f.region.Content())
	require.Contains(t, content, `href="/modelar/docs/intro?lang=zh-CN"`)
	require.Contains(t, content, `href="#top"`)
	require.Contains(t, content, `href="https://example.com"`)
	require.Equal(t, "zh-CN", f.nav.Location().Lang)
}

func TestLoadResolvesPendingHashOnce(t *testing.T) {
	f := newFixture(t, "/modelar/docs/intro#Hello_World")
	f.fetch.add("/modelar/docs/en-US/intro.md", "## Hello World\n")

	res, err := f.loader.Load(context.Background(), "/modelar/docs/intro", "")
	require.NoError(t, err)
	require.Equal(t, "#Hello_World", res.Anchor)
	require.Empty(t, f.nav.Location().Hash)

	res, err = f.loader.Load(context.Background(), "/modelar/docs/intro", "")
	require.NoError(t, err)
	require.Empty(t, res.Anchor)
}

func TestLoadResolvesWideHeadingHash(t *testing.T) {
	f := newFixture(t, "/modelar/docs/intro?lang=zh-CN#快速-上手")
	f.fetch.add("/modelar/docs/zh-CN/intro.md", "## 快速 上手\n")

	res, err := f.loader.Load(context.Background(), "/modelar/docs/intro", "")
	require.NoError(t, err)
	require.Equal(t, "#快速-上手", res.Anchor)
}

func TestLoadFailureShowsErrorPanel(t *testing.T) {
	f := newFixture(t, "/modelar/docs/intro")

	_, err := f.loader.Load(context.Background(), "/modelar/docs/missing", "Missing")
	require.Error(t, err)
	require.True(t, errors.Is(err, cms.ErrNotFound))

	require.Equal(t, StateFailed, f.region.State())
	require.Contains(t, string(f.region.Content()), "could not be found")
	_, ok := f.history.Last()
	require.False(t, ok)
	require.Equal(t, "/modelar/docs/intro", f.nav.Location().Path)
	require.Len(t, f.fetch.calls, 1)
}

func TestLoadFailureUsesCustomPanel(t *testing.T) {
	f := newFixture(t, "/modelar/docs/intro")
	f.loader = New(f.fetch, markdown.New(), f.nav, f.region, f.history,
		WithErrorPanel(func(err error, lang string) template.HTML {
			return template.HTML("<p>failed in " + lang + "</p>")
		}))

	_, err := f.loader.Load(context.Background(), "/modelar/docs/missing", "")
	require.Error(t, err)
	require.Equal(t, "<p>failed in en-US</p>", string(f.region.Content()))
}

func TestNewerLoadSupersedesOlder(t *testing.T) {
	f := newFixture(t, "/modelar/docs/intro")
	f.fetch.add("/modelar/docs/en-US/intro.md", "# Intro\n")
	f.fetch.add("/modelar/docs/en-US/setup.md", "# Setup\n")
	gate := make(chan struct{})
	f.fetch.gates["/modelar/docs/en-US/intro.md"] = gate
	f.fetch.started = make(chan string, 2)

	errc := make(chan error, 1)
	go func() {
		_, err := f.loader.Load(context.Background(), "/modelar/docs/intro", "Intro")
		errc <- err
	}()
	require.Equal(t, "/modelar/docs/en-US/intro.md", <-f.fetch.started)

	res, err := f.loader.Load(context.Background(), "/modelar/docs/setup", "Setup")
	require.NoError(t, err)
	require.Equal(t, "/modelar/docs/setup", res.URL)

	close(gate)
	require.ErrorIs(t, <-errc, ErrSuperseded)

	require.True(t, strings.Contains(string(f.region.Content()), `id="Setup"`))
	require.Equal(t, 1, f.region.Swaps())
	last, _ := f.history.Last()
	require.Equal(t, "Setup", last.Title)
	require.Equal(t, "/modelar/docs/setup", f.nav.Location().Path)
}

// holdingRegion blocks the first loading transition until release is closed.
type holdingRegion struct {
	*Buffer
	held    atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (r *holdingRegion) SetState(s State) {
	if s == StateLoading && r.held.CompareAndSwap(false, true) {
		close(r.entered)
		<-r.release
	}
	r.Buffer.SetState(s)
}

func TestStaleLoadCannotFadeOutNewerContent(t *testing.T) {
	f := newFixture(t, "/modelar/docs/intro")
	f.fetch.add("/modelar/docs/en-US/intro.md", "# Intro\n")
	f.fetch.add("/modelar/docs/en-US/setup.md", "# Setup\n")
	region := &holdingRegion{Buffer: f.region, entered: make(chan struct{}), release: make(chan struct{})}
	f.loader = New(f.fetch, markdown.New(), f.nav, region, f.history, WithSynchronizer(f.menus))

	older := make(chan error, 1)
	go func() {
		_, err := f.loader.Load(context.Background(), "/modelar/docs/intro", "Intro")
		older <- err
	}()
	<-region.entered

	newer := make(chan error, 1)
	go func() {
		_, err := f.loader.Load(context.Background(), "/modelar/docs/setup", "Setup")
		newer <- err
	}()
	require.Eventually(t, func() bool { return f.loader.seq.Load() == 2 }, time.Second, time.Millisecond)
	close(region.release)

	require.NoError(t, <-newer)
	require.ErrorIs(t, <-older, ErrSuperseded)
	require.Equal(t, StateLoaded, f.region.State())
	require.Contains(t, string(f.region.Content()), `id="Setup"`)
}

func TestLoadSkipsFetchWhenAlreadySuperseded(t *testing.T) {
	f := newFixture(t, "/modelar/docs/intro")
	f.fetch.add("/modelar/docs/en-US/intro.md", "# Intro\n")
	token := f.loader.seq.Add(1)
	f.loader.seq.Add(1)

	require.False(t, f.loader.begin(token))
	require.Equal(t, StateIdle, f.region.State())
	require.Empty(t, f.fetch.calls)
}

func TestStateClasses(t *testing.T) {
	require.Equal(t, "fadeOut", StateLoading.Class())
	require.Equal(t, "fadeIn", StateLoaded.Class())
	require.Equal(t, "", StateIdle.Class())
}
