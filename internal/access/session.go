package access

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const SessionCookie = "sid"

var (
	ErrNoSession   = errors.New("session not found")
	ErrMissingUser = errors.New("user id is required")
)

// Sessions stores sid -> user id in Redis with a sliding TTL.
type Sessions struct {
	RDB    redis.Cmdable
	TTL    time.Duration
	Secure bool
	Log    zerolog.Logger
}

func (s *Sessions) Create(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", ErrMissingUser
	}
	sid := uuid.NewString()
	if err := s.RDB.Set(ctx, redisx.SessionKey(sid), userID, s.TTL).Err(); err != nil {
		return "", err
	}
	return sid, nil
}

func (s *Sessions) Lookup(ctx context.Context, sid string) (string, error) {
	uid, err := s.RDB.Get(ctx, redisx.SessionKey(sid)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoSession
	}
	return uid, err
}

// Refresh pushes the expiry TTL into the future.
func (s *Sessions) Refresh(ctx context.Context, sid string) error {
	ok, err := s.RDB.Expire(ctx, redisx.SessionKey(sid), s.TTL).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoSession
	}
	return nil
}

func (s *Sessions) Delete(ctx context.Context, sid string) error {
	return s.RDB.Del(ctx, redisx.SessionKey(sid)).Err()
}

func (s *Sessions) SetCookie(w http.ResponseWriter, sid string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		MaxAge:   int(s.TTL.Seconds()),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Sessions) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

type userKey struct{}

// UserID returns the user of the current session, or "" for guests.
func UserID(ctx context.Context) string {
	uid, _ := ctx.Value(userKey{}).(string)
	return uid
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// Middleware never rejects: requests without a live session continue as
// guests and a stale cookie is cleared.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(SessionCookie)
		if err != nil || c.Value == "" {
			next.ServeHTTP(w, r)
			return
		}
		uid, err := s.Lookup(r.Context(), c.Value)
		switch {
		case errors.Is(err, ErrNoSession):
			s.ClearCookie(w)
			next.ServeHTTP(w, r)
			return
		case err != nil:
			s.Log.Warn().Err(err).Msg("session lookup")
			next.ServeHTTP(w, r)
			return
		}
		if err := s.Refresh(r.Context(), c.Value); err != nil {
			s.Log.Warn().Err(err).Msg("session refresh")
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), uid)))
	})
}
