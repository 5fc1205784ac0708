package b2b

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

type Authenticator interface {
	Authenticate(ctx context.Context, secret string) (Key, error)
}

type ctxKey struct{}

// ClientID returns the client authenticated by Middleware, or "".
func ClientID(ctx context.Context) string {
	k, _ := ctx.Value(ctxKey{}).(Key)
	return k.ClientID
}

func presentedSecret(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

// Middleware accepts "Authorization: Bearer <secret>" or "X-API-Key: <secret>".
func Middleware(auth Authenticator, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret := presentedSecret(r)
			if secret == "" {
				unauthorized(w, "missing api key")
				return
			}
			k, err := auth.Authenticate(r.Context(), secret)
			if errors.Is(err, ErrInvalidKey) {
				unauthorized(w, ErrInvalidKey.Error())
				return
			}
			if err != nil {
				log.Error().Err(err).Msg("authenticate b2b key")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "internal error"})
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, k)))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="b2b"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
