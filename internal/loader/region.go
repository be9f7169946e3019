package loader

import (
	"html/template"
	"sync"
)

// State is the display state of a content region.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateLoaded
	StateFailed
)

// Class returns the CSS class driving the region's transition.
func (s State) Class() string {
	switch s {
	case StateLoading:
		return "fadeOut"
	case StateLoaded:
		return "fadeIn"
	case StateFailed:
		return "fadeIn load-failed"
	default:
		return ""
	}
}

// Region is the page area rendered documents are swapped into. Content is
// always replaced as a whole.
type Region interface {
	Swap(content template.HTML)
	SetState(State)
}

// History receives address and title updates.
type History interface {
	ReplaceState(title, url string)
}

// Buffer is an in-memory Region.
type Buffer struct {
	mu      sync.RWMutex
	content template.HTML
	state   State
	swaps   int
}

func (b *Buffer) Swap(content template.HTML) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.content = content
	b.swaps++
}

func (b *Buffer) SetState(s State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = s
}

// Content returns the current content.
func (b *Buffer) Content() template.HTML {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.content
}

// State returns the current display state.
func (b *Buffer) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Swaps returns how many times the content was replaced.
func (b *Buffer) Swaps() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.swaps
}

// Entry is one history update.
type Entry struct {
	Title string
	URL   string
}

// Recorder is an in-memory History.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func (r *Recorder) ReplaceState(title, url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Title: title, URL: url})
}

// Last returns the latest update.
func (r *Recorder) Last() (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return Entry{}, false
	}
	return r.entries[len(r.entries)-1], true
}
