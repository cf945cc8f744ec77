package i18n

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

// CookieName holds the visitor's explicit locale choice.
const CookieName = "NEXT_LOCALE"

// DefaultLocale is used when neither the cookie nor Accept-Language names a supported locale.
const DefaultLocale = "en"

// Locales is the set of site locales. Order is significant only for display.
var Locales = []string{
	"en", "ar", "hi", "zh", "ru", "ur", "fr", "de", "fa", "bn",
	"fil", "es", "tr", "it", "ja", "ko", "he", "pt", "nl", "pl",
	"sv", "th", "vi", "id", "ms", "cs", "el", "da", "no", "uk",
}

var rtl = map[string]bool{"ar": true, "ur": true, "fa": true, "he": true}

var supported = func() map[string]bool {
	m := make(map[string]bool, len(Locales))
	for _, l := range Locales {
		m[l] = true
	}
	return m
}()

func Supported(code string) bool { return supported[code] }

// Direction is "rtl" for right-to-left scripts and "ltr" otherwise.
func Direction(code string) string {
	if rtl[code] {
		return "rtl"
	}
	return "ltr"
}

// Resolver picks the locale for requests that do not carry one in the path.
type Resolver struct {
	def     string
	codes   []string // codes[i] corresponds to the matcher's i-th tag
	matcher language.Matcher
}

func NewResolver(def string) (*Resolver, error) {
	if def == "" {
		def = DefaultLocale
	}
	if !Supported(def) {
		return nil, fmt.Errorf("unsupported default locale %q", def)
	}
	// The matcher falls back to its first tag, so the default goes first.
	codes := []string{def}
	for _, l := range Locales {
		if l != def {
			codes = append(codes, l)
		}
	}
	tags := make([]language.Tag, len(codes))
	for i, c := range codes {
		tags[i] = language.Make(c)
	}
	return &Resolver{def: def, codes: codes, matcher: language.NewMatcher(tags)}, nil
}

func (r *Resolver) Default() string { return r.def }

// Resolve checks the NEXT_LOCALE cookie, then Accept-Language, then the default.
func (r *Resolver) Resolve(req *http.Request) string {
	if c, err := req.Cookie(CookieName); err == nil && Supported(c.Value) {
		return c.Value
	}
	if al := req.Header.Get("Accept-Language"); al != "" {
		if code, ok := r.match(al); ok {
			return code
		}
	}
	return r.def
}

func (r *Resolver) match(acceptLanguage string) (string, bool) {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return "", false
	}
	_, idx, conf := r.matcher.Match(tags...)
	if conf == language.No {
		return "", false
	}
	return r.codes[idx], true
}

// Excluded reports paths that bypass locale routing: API and framework prefixes,
// health and metrics endpoints, and anything whose last segment has a dot.
func Excluded(path string) bool {
	for _, p := range []string{"/api", "/_next", "/healthz", "/metrics"} {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	last := path[strings.LastIndex(path, "/")+1:]
	return strings.Contains(last, ".")
}

type ctxKey struct{}

func WithLocale(ctx context.Context, code string) context.Context {
	return context.WithValue(ctx, ctxKey{}, code)
}

// FromContext returns the locale Middleware attached to the request; ok is false
// for requests that bypassed locale routing.
func FromContext(ctx context.Context) (code string, ok bool) {
	code, ok = ctx.Value(ctxKey{}).(string)
	return code, ok && code != ""
}

// SplitPath returns the leading locale segment of path when it is supported.
func SplitPath(path string) (locale, rest string, ok bool) {
	trimmed := strings.TrimPrefix(path, "/")
	seg, after, _ := strings.Cut(trimmed, "/")
	if !Supported(seg) {
		return "", path, false
	}
	return seg, "/" + after, true
}

// Middleware serves locale-prefixed paths with the locale in context and redirects
// everything else (307) to the resolved locale prefix.
func Middleware(r *Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			path := req.URL.Path
			if path == "" {
				path = "/"
			}
			if Excluded(path) {
				next.ServeHTTP(w, req)
				return
			}
			if loc, _, ok := SplitPath(path); ok {
				next.ServeHTTP(w, req.WithContext(WithLocale(req.Context(), loc)))
				return
			}

			target := "/" + r.Resolve(req)
			if path != "/" {
				target += path
			}
			if req.URL.RawQuery != "" {
				target += "?" + req.URL.RawQuery
			}
			http.Redirect(w, req, target, http.StatusTemporaryRedirect)
		})
	}
}
