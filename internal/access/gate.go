package access

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	CookieName       = "store_access"
	CookieTTL        = 30 * 24 * time.Hour
	ErrorInvalidCode = "invalid_code"
	accessSubject    = "store-access"
)

// DefaultAllow are reachable without the access cookie. Payment callbacks and
// b2b clients carry their own credentials.
var DefaultAllow = []string{
	"/access",
	"/api/access",
	"/healthz",
	"/api/payments/flow/",
	"/api/b2b/",
}

// Result is the tagged outcome returned to the access form.
type Result struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Gate keeps a pre-launch store behind a shared access code.
type Gate struct {
	Enabled bool
	Code    string
	Secret  []byte
	Allow   []string
	Secure  bool
	Now     func() time.Time
}

func (g *Gate) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func (g *Gate) Validate(code string) Result {
	code = strings.TrimSpace(code)
	if g.Code == "" || code == "" || subtle.ConstantTimeCompare([]byte(code), []byte(g.Code)) != 1 {
		return Result{Error: ErrorInvalidCode}
	}
	return Result{OK: true}
}

// Grant sets the signed access cookie.
func (g *Gate) Grant(w http.ResponseWriter) error {
	now := g.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   accessSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(CookieTTL)),
	})
	signed, err := tok.SignedString(g.Secret)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		Expires:  now.Add(CookieTTL),
		MaxAge:   int(CookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   g.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Granted reports whether r carries a valid, unexpired access cookie.
func (g *Gate) Granted(r *http.Request) bool {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return false
	}
	claims := &jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(c.Value, claims, func(*jwt.Token) (any, error) {
		return g.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(g.now))
	return err == nil && tok.Valid && claims.Subject == accessSubject
}

func (g *Gate) allowed(path string) bool {
	allow := g.Allow
	if allow == nil {
		allow = DefaultAllow
	}
	for _, p := range allow {
		if path == p || (strings.HasSuffix(p, "/") && strings.HasPrefix(path, p)) || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Enabled || g.allowed(r.URL.Path) || g.Granted(r) {
			next.ServeHTTP(w, r)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "access_required"})
			return
		}
		http.Redirect(w, r, "/access?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusTemporaryRedirect)
	})
}
