package locale

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

// DefaultSkip are path prefixes that are never locale-prefixed.
var DefaultSkip = []string{"/api", "/healthz", "/access", "/checkout"}

type Router struct {
	Supported []string
	Default   string
	Skip      []string

	matcher language.Matcher
	tags    []language.Tag
}

// New builds a Router; the default locale is always supported and is the
// fallback for the Accept-Language matcher.
func New(supported []string, def string) *Router {
	r := &Router{Default: def, Skip: DefaultSkip}
	seen := map[string]bool{}
	for _, l := range append([]string{def}, supported...) {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		r.Supported = append(r.Supported, l)
		r.tags = append(r.tags, language.Make(l))
	}
	r.matcher = language.NewMatcher(r.tags)
	return r
}

func (rt *Router) supported(l string) bool {
	for _, s := range rt.Supported {
		if s == l {
			return true
		}
	}
	return false
}

// FromPath returns the locale of the first path segment when it is supported.
func (rt *Router) FromPath(path string) (string, bool) {
	seg := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(seg, '/'); i >= 0 {
		seg = seg[:i]
	}
	seg = strings.ToLower(seg)
	if seg != "" && rt.supported(seg) {
		return seg, true
	}
	return "", false
}

// Negotiate picks the best supported locale for an Accept-Language header.
func (rt *Router) Negotiate(acceptLanguage string) string {
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return rt.Default
	}
	_, idx, conf := rt.matcher.Match(prefs...)
	if conf == language.No {
		return rt.Default
	}
	return rt.Supported[idx]
}

func (rt *Router) skipped(path string) bool {
	for _, p := range rt.Skip {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

type ctxKey struct{}

// From returns the request locale set by Middleware, or "".
func From(ctx context.Context) string {
	l, _ := ctx.Value(ctxKey{}).(string)
	return l
}

func With(ctx context.Context, l string) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// Middleware stores the path locale in the request context and redirects
// unprefixed page paths to /{negotiated}{path}.
func (rt *Router) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rt.skipped(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		if l, ok := rt.FromPath(r.URL.Path); ok {
			next.ServeHTTP(w, r.WithContext(With(r.Context(), l)))
			return
		}
		target := "/" + rt.Negotiate(r.Header.Get("Accept-Language"))
		if r.URL.Path != "/" {
			target += r.URL.Path
		}
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusTemporaryRedirect)
	})
}
