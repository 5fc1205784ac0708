package b2b

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type authFunc func(ctx context.Context, secret string) (Key, error)

func (f authFunc) Authenticate(ctx context.Context, secret string) (Key, error) { return f(ctx, secret) }

func TestMiddleware(t *testing.T) {
	auth := authFunc(func(_ context.Context, secret string) (Key, error) {
		switch secret {
		case "good":
			return Key{ID: "k1", ClientID: "acme"}, nil
		case "boom":
			return Key{}, errors.New("db down")
		}
		return Key{}, ErrInvalidKey
	})

	var seen string
	h := Middleware(auth, zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClientID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header [2]string
		code   int
		client string
	}{
		{"bearer", [2]string{"Authorization", "Bearer good"}, http.StatusNoContent, "acme"},
		{"x-api-key", [2]string{"X-API-Key", "good"}, http.StatusNoContent, "acme"},
		{"missing", [2]string{}, http.StatusUnauthorized, ""},
		{"basic scheme", [2]string{"Authorization", "Basic good"}, http.StatusUnauthorized, ""},
		{"invalid", [2]string{"X-API-Key", "bad"}, http.StatusUnauthorized, ""},
		{"store error", [2]string{"X-API-Key", "boom"}, http.StatusInternalServerError, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/api/b2b/products", nil)
			if tc.header[0] != "" {
				req.Header.Set(tc.header[0], tc.header[1])
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, tc.client, seen)
			if tc.code != http.StatusNoContent {
				assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			}
		})
	}
}
