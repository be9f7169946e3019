// Package typein precomputes the frames of the typing reveal shown for the
// install command on module home pages.
package typein

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultPlaceholder is the cursor shown on every other frame.
const DefaultPlaceholder = "_"

// Interval maps a named speed to the delay between frames. Unknown names
// use the normal speed.
func Interval(speed string) time.Duration {
	switch speed {
	case "slow":
		return 150 * time.Millisecond
	case "fast":
		return 50 * time.Millisecond
	default:
		return 100 * time.Millisecond
	}
}

// Frames returns the successive prefixes of html revealed one character at a
// time. A tag is revealed whole. Odd frames end with placeholder. The last
// frame is always the complete text.
func Frames(html, placeholder string) []string {
	html = strings.TrimSpace(html)
	if html == "" {
		return nil
	}
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}
	var frames []string
	for i, step := 0, 1; i < len(html); step++ {
		if html[i] == '<' {
			if end := strings.IndexByte(html[i:], '>'); end >= 0 {
				i += end + 1
			} else {
				i = len(html)
			}
		} else {
			_, size := utf8.DecodeRuneInString(html[i:])
			i += size
		}
		frame := html[:i]
		if step%2 == 1 && i < len(html) {
			frame += placeholder
		}
		frames = append(frames, frame)
	}
	return frames
}

// JSON encodes the frames for a data attribute.
func JSON(frames []string) string {
	b, err := json.Marshal(frames)
	if err != nil {
		return "[]"
	}
	return string(b)
}
