package nav

import (
	"net/url"
	"path"
	"strings"
)

// MenuKind selects how a menu matches the current location.
type MenuKind int

const (
	// Navbar entries match on the directory part of the path.
	Navbar MenuKind = iota
	// Sidebar entries match the path exactly.
	Sidebar
)

// Entry is a menu link. Href may carry a query string.
type Entry struct {
	Href   string
	Label  string
	Title  string
	Active bool
}

// Menu is an ordered list of entries of one kind.
type Menu struct {
	Kind    MenuKind
	Entries []Entry
}

// NewMenu copies entries into a menu with no active entry.
func NewMenu(kind MenuKind, entries []Entry) *Menu {
	m := &Menu{Kind: kind, Entries: make([]Entry, len(entries))}
	copy(m.Entries, entries)
	for i := range m.Entries {
		m.Entries[i].Active = false
	}
	return m
}

// Sync marks the entry matching loc as active and clears the others. When
// several entries match, the last one in declaration order wins.
func (m *Menu) Sync(loc Location) {
	if m == nil {
		return
	}
	match := -1
	for i, e := range m.Entries {
		if m.matches(e.Href, loc.Path) {
			match = i
		}
	}
	for i := range m.Entries {
		m.Entries[i].Active = i == match
	}
}

// ActiveEntry returns the active entry, if any.
func (m *Menu) ActiveEntry() (Entry, bool) {
	if m == nil {
		return Entry{}, false
	}
	for _, e := range m.Entries {
		if e.Active {
			return e, true
		}
	}
	return Entry{}, false
}

func (m *Menu) matches(href, current string) bool {
	p, ok := localPath(href)
	if !ok {
		return false
	}
	switch m.Kind {
	case Navbar:
		return Dir(p) == Dir(current)
	default:
		return p == current
	}
}

// Dir keeps everything up to and including the last '/'. Paths without a
// slash are returned unchanged.
func Dir(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[:i+1]
	}
	return p
}

// localPath returns the path of a same-site href. External links report false.
func localPath(href string) (string, bool) {
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if u.Scheme != "" || u.Host != "" || u.Opaque != "" {
		return "", false
	}
	if u.Path == "" {
		return "", false
	}
	return u.Path, true
}

// Synchronizer keeps the navbar and sidebar in step with the location.
type Synchronizer struct {
	Navbar  *Menu
	Sidebar *Menu
}

// Sync marks the active entry of every menu.
func (s *Synchronizer) Sync(loc Location) {
	if s == nil {
		return
	}
	s.Navbar.Sync(loc)
	s.Sidebar.Sync(loc)
}

// Crumb represents a breadcrumb entry.
type Crumb struct {
	Href   string
	Label  string
	Active bool
}

// Breadcrumbs builds breadcrumb entries from the current path. Segments found
// in labels use that label, the rest a prettified segment.
func Breadcrumbs(currentPath string, labels map[string]string) []Crumb {
	if currentPath == "" {
		currentPath = "/"
	}
	clean := path.Clean(currentPath)
	if clean == "." || clean == "/" {
		return []Crumb{{Href: "/", Label: labelFor(labels, "/", "Home"), Active: true}}
	}
	parts := strings.Split(strings.TrimPrefix(clean, "/"), "/")
	crumbs := make([]Crumb, 0, len(parts))
	href := ""
	for i, seg := range parts {
		href += "/" + seg
		target := href
		if i < len(parts)-1 {
			target += "/"
		}
		crumbs = append(crumbs, Crumb{
			Href:   target,
			Label:  labelFor(labels, target, titleFromSegment(seg)),
			Active: i == len(parts)-1,
		})
	}
	return crumbs
}

func labelFor(labels map[string]string, href, fallback string) string {
	if l, ok := labels[href]; ok && l != "" {
		return l
	}
	return fallback
}

func titleFromSegment(seg string) string {
	if seg == "" {
		return seg
	}
	// replace hyphens/underscores with spaces and capitalize first letter
	s := strings.ReplaceAll(seg, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")
	r := []rune(s)
	r[0] = toUpper(r[0])
	return string(r)
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}
