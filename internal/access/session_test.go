package access

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessions(t *testing.T) (*Sessions, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return &Sessions{RDB: rdb, TTL: time.Hour, Log: zerolog.Nop()}, mr
}

func TestSessions_Lifecycle(t *testing.T) {
	s, mr := newSessions(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "")
	assert.ErrorIs(t, err, ErrMissingUser)

	sid, err := s.Create(ctx, "u-1")
	require.NoError(t, err)
	uid, err := s.Lookup(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, "u-1", uid)

	mr.FastForward(50 * time.Minute)
	require.NoError(t, s.Refresh(ctx, sid))
	assert.Equal(t, time.Hour, mr.TTL(redisx.SessionKey(sid)))

	require.NoError(t, s.Delete(ctx, sid))
	_, err = s.Lookup(ctx, sid)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.ErrorIs(t, s.Refresh(ctx, sid), ErrNoSession)
}

func TestSessions_Expire(t *testing.T) {
	s, mr := newSessions(t)
	sid, err := s.Create(context.Background(), "u-1")
	require.NoError(t, err)

	mr.FastForward(time.Hour + time.Second)
	_, err = s.Lookup(context.Background(), sid)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessions_Middleware(t *testing.T) {
	s, mr := newSessions(t)
	sid, err := s.Create(context.Background(), "u-1")
	require.NoError(t, err)

	var seen string
	h := s.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserID(r.Context())
	}))

	t.Run("live session", func(t *testing.T) {
		mr.FastForward(30 * time.Minute)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sid})
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, "u-1", seen)
		assert.Equal(t, time.Hour, mr.TTL(redisx.SessionKey(sid)))
	})

	t.Run("guest", func(t *testing.T) {
		seen = "x"
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, "", seen)
	})

	t.Run("stale cookie cleared", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "gone"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "", seen)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, SessionCookie, cookies[0].Name)
		assert.Equal(t, -1, cookies[0].MaxAge)
	})
}
