// Package slug derives in-page anchor ids from heading text.
package slug

import (
	"fmt"
	"html"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Pin is the link icon placed inside every heading anchor.
const Pin = `<svg aria-hidden="true" height="16" version="1.1" viewBox="0 0 16 16" width="16"><path fill-rule="evenodd" d="M4 9h1v1H4c-1.5 0-3-1.69-3-3.5S2.55 3 4 3h4c1.45 0 3 1.69 3 3.5 0 1.41-.91 2.72-2 3.25V8.59c.58-.45 1-1.27 1-2.09C10 5.22 8.98 4 8 4H4c-.98 0-2 1.22-2 2.5S3 9 4 9zm9-3h-1v1h1c1 0 2 1.22 2 2.5S13.98 12 13 12H9c-.98 0-2-1.22-2-2.5 0-.83.42-1.64 1-2.09V6.25c-1.09.53-2 1.84-2 3.25C6 11.31 7.55 13 9 13h4c1.45 0 3-1.69 3-3.5S14.5 6 13 6z"></path></svg>`

// AnchorClass is the class attribute of the anchor rendered inside headings.
const AnchorClass = "heading-anchor"

const punctuation = "~`!@#$%^&*()+={}[]|:\"'<>,.?/"

// ByteLength counts runes above U+00FF as two bytes and everything else as one.
func ByteLength(s string) int {
	n := 0
	for _, r := range s {
		if r > 255 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// IsLatin reports whether s holds no wide characters.
func IsLatin(s string) bool {
	return ByteLength(s) == utf8.RuneCountInString(s)
}

// Slugify converts heading text into an anchor id.
//
// Latin text keeps the runs of ASCII letters, digits, '-' and '_' (whitespace
// maps to '_') joined by '_'. Text containing wide characters keeps them and
// only maps whitespace to '-' and punctuation to '_'.
func Slugify(text string) string {
	var id string
	if IsLatin(text) {
		spaced := replaceSpace(text, '_')
		if runs := latinRuns(spaced); len(runs) > 0 {
			id = strings.Join(runs, "_")
		} else {
			id = replacePunct(spaced)
		}
	} else {
		id = replacePunct(replaceSpace(text, '-'))
	}
	return strings.Trim(id, "_")
}

// Heading renders a heading element whose id is derived from text. The text is
// expected to be already escaped HTML.
func Heading(text string, level int) (string, string) {
	id := Slugify(text)
	return id, OpenHeading(id, level) + text + CloseHeading(level)
}

// OpenHeading returns the start tag of a level heading followed by the anchor
// pointing at id. An empty id gives a bare start tag.
func OpenHeading(id string, level int) string {
	level = clampLevel(level)
	if id == "" {
		return fmt.Sprintf("<h%d>", level)
	}
	return fmt.Sprintf("<h%d id=\"%s\">%s", level, html.EscapeString(id), Anchor(id))
}

// CloseHeading returns the end tag matching OpenHeading.
func CloseHeading(level int) string {
	return fmt.Sprintf("</h%d>\n", clampLevel(level))
}

func clampLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > 6 {
		return 6
	}
	return level
}

// Anchor returns the pin link pointing at id.
func Anchor(id string) string {
	return `<a class="` + AnchorClass + `" href="#` + html.EscapeString(id) + `">` + Pin + `</a>`
}

func replaceSpace(s string, with rune) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return with
		}
		return r
	}, s)
}

func replacePunct(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return '_'
		}
		return r
	}, s)
}

// latinRuns returns the maximal runs of id bytes. Runs made only of '_' carry
// no text and are dropped.
func latinRuns(s string) []string {
	var (
		runs  []string
		start = -1
	)
	flush := func(end int) {
		if run := s[start:end]; strings.Trim(run, "_") != "" {
			runs = append(runs, run)
		}
		start = -1
	}
	for i := 0; i < len(s); i++ {
		if isRunByte(s[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			flush(i)
		}
	}
	if start >= 0 {
		flush(len(s))
	}
	return runs
}

func isRunByte(c byte) bool {
	switch {
	case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c == '-' || c == '_':
		return true
	}
	return false
}

// Tracker hands out unique ids within one document. The zero value is ready
// to use.
type Tracker struct {
	seen map[string]int
}

// Unique returns id the first time it is seen and id-N afterwards.
func (t *Tracker) Unique(id string) string {
	if t.seen == nil {
		t.seen = map[string]int{}
	}
	n, ok := t.seen[id]
	if !ok {
		t.seen[id] = 0
		return id
	}
	for {
		n++
		candidate := fmt.Sprintf("%s-%d", id, n)
		if _, taken := t.seen[candidate]; !taken {
			t.seen[id] = n
			t.seen[candidate] = 0
			return candidate
		}
	}
}
