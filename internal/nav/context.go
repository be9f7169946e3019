// Package nav tracks the navigation state of a page: the current location and
// which navbar and sidebar entries are active.
package nav

import (
	"net/url"
	"sync"
)

// Location is the part of the address the site reacts to.
type Location struct {
	Path string
	// Lang is the lang query value, empty when the address carries none.
	Lang string
	Hash string
}

// ParseLocation extracts a Location from a URL or request URI.
func ParseLocation(raw string) (Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, err
	}
	return LocationFromURL(u), nil
}

// LocationFromURL extracts a Location from u.
func LocationFromURL(u *url.URL) Location {
	loc := Location{Path: u.Path, Lang: u.Query().Get("lang")}
	if u.Fragment != "" {
		loc.Hash = "#" + u.Fragment
	}
	if loc.Path == "" {
		loc.Path = "/"
	}
	return loc
}

// String renders the location as an address.
func (l Location) String() string {
	s := l.Path
	if l.Lang != "" {
		s += "?lang=" + url.QueryEscape(l.Lang)
	}
	return s + l.Hash
}

// Context holds the location of one page. All updates go through Transition
// and TakeHash.
type Context struct {
	mu       sync.RWMutex
	loc      Location
	fallback string
}

// NewContext starts a context at loc. fallbackLang is used when the location
// has no lang query, typically the browser's preferred language.
func NewContext(loc Location, fallbackLang string) *Context {
	return &Context{loc: loc, fallback: fallbackLang}
}

// Location returns the current location.
func (c *Context) Location() Location {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loc
}

// Lang returns the effective language of the page.
func (c *Context) Lang() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.loc.Lang != "" {
		return c.loc.Lang
	}
	return c.fallback
}

// Transition moves the context to loc and returns the previous location.
func (c *Context) Transition(loc Location) Location {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.loc
	if loc.Path == "" {
		loc.Path = "/"
	}
	c.loc = loc
	return prev
}

// TakeHash clears the hash from the location and returns it.
func (c *Context) TakeHash() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.loc.Hash
	c.loc.Hash = ""
	return h
}
