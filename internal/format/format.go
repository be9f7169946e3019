package format

import (
	"strings"
	"time"
)

// FmtDate formats time in a locale-friendly short form. The zero time
// formats as "".
func FmtDate(t time.Time, lang string) string {
	if t.IsZero() {
		return ""
	}
	switch {
	case strings.HasPrefix(strings.ToLower(lang), "zh"):
		return t.Format("2006年1月2日")
	default:
		return t.Format("Jan 2, 2006")
	}
}

// ISODate formats t as YYYY-MM-DD for machine-readable metadata.
func ISODate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
