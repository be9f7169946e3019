package middleware

import (
	"net/http"
	"strings"

	"finitefield.org/docs-web/internal/i18n"
)

// Locale resolves the page language from the lang query, falling back to
// Accept-Language. Nothing is persisted; the choice travels in the address.
func Locale(bundle *i18n.Bundle) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			query := strings.TrimSpace(r.URL.Query().Get("lang"))
			var lang string
			if query != "" {
				// an explicit choice must name a supported language exactly
				if lang = bundle.Canonical(query); lang == "" {
					lang = bundle.Fallback()
				}
			} else {
				lang = bundle.Resolve(r.Header.Get("Accept-Language"))
			}
			w.Header().Set("Content-Language", lang)
			r = r.WithContext(WithLang(r.Context(), lang, query))
			next.ServeHTTP(w, r)
		})
	}
}

// Lang returns the effective language of the request.
func Lang(r *http.Request) string {
	if v, ok := r.Context().Value(ctxKeyLang).(string); ok && v != "" {
		return v
	}
	return "en-US"
}

// QueryLang returns the lang query value, empty when the reader did not pick
// a language explicitly.
func QueryLang(r *http.Request) string {
	v, _ := r.Context().Value(ctxKeyQueryLang).(string)
	return v
}

// VaryLocale marks dynamic responses as depending on Accept-Language.
func VaryLocale(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Accept-Language")
		next.ServeHTTP(w, r)
	})
}
