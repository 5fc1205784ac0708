package b2b

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memRow struct {
	key  Key
	hash []byte
}

type memStore struct {
	mu      sync.Mutex
	rows    map[string]*memRow // by lookup
	touched []string
	findErr error
}

func newMemStore() *memStore { return &memStore{rows: map[string]*memRow{}} }

func (m *memStore) Insert(_ context.Context, k Key, lookup string, hash []byte) (Key, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k.CreatedAt = time.Now()
	m.rows[lookup] = &memRow{key: k, hash: hash}
	return k, nil
}

func (m *memStore) FindByLookup(_ context.Context, lookup string) (Key, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return Key{}, nil, m.findErr
	}
	r, ok := m.rows[lookup]
	if !ok {
		return Key{}, nil, ErrKeyNotFound
	}
	return r.key, r.hash, nil
}

func (m *memStore) Touch(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched = append(m.touched, id)
	return nil
}

func (m *memStore) Revoke(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.key.ID == id && r.key.RevokedAt == nil {
			now := time.Now()
			r.key.RevokedAt = &now
			return nil
		}
	}
	return ErrKeyNotFound
}

func (m *memStore) List(_ context.Context, clientID string) ([]Key, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Key
	for _, r := range m.rows {
		if clientID == "" || r.key.ClientID == clientID {
			out = append(out, r.key)
		}
	}
	return out, nil
}

func newService() (*Service, *memStore) {
	st := newMemStore()
	return &Service{Store: st, Cost: bcrypt.MinCost, Log: zerolog.Nop()}, st
}

func TestIssue_SecretShape(t *testing.T) {
	svc, st := newService()

	k, err := svc.Issue(context.Background(), " acme ")
	require.NoError(t, err)
	assert.Equal(t, "acme", k.ClientID)
	assert.True(t, strings.HasPrefix(k.Secret, "sk_"+k.Prefix+"_"))
	prefix, ok := parseSecret(k.Secret)
	assert.True(t, ok)
	assert.Equal(t, k.Prefix, prefix)

	row := st.rows[lookupHash(k.Secret)]
	require.NotNil(t, row)
	assert.NotContains(t, string(row.hash), k.Secret)
	assert.NoError(t, bcrypt.CompareHashAndPassword(row.hash, []byte(k.Secret)))
}

func TestIssue_RequiresClient(t *testing.T) {
	svc, _ := newService()
	_, err := svc.Issue(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrMissingClientID)

	for _, id := range []string{"acme:eu", "acme eu", strings.Repeat("a", 65)} {
		_, err = svc.Issue(context.Background(), id)
		assert.ErrorIs(t, err, ErrInvalidClientID, id)
	}
}

func TestAuthenticate(t *testing.T) {
	svc, st := newService()
	ctx := context.Background()
	k, err := svc.Issue(ctx, "acme")
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, k.Secret)
	require.NoError(t, err)
	assert.Equal(t, "acme", got.ClientID)
	assert.Equal(t, []string{k.ID}, st.touched)

	for name, secret := range map[string]string{
		"empty":     "",
		"malformed": "not-a-key",
		"unknown":   "sk_00000000_" + strings.Repeat("a", 48),
		"tampered":  k.Secret[:len(k.Secret)-1] + "x",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Authenticate(ctx, secret)
			assert.ErrorIs(t, err, ErrInvalidKey)
		})
	}
}

func TestAuthenticate_Revoked(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	k, err := svc.Issue(ctx, "acme")
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, k.ID))
	_, err = svc.Authenticate(ctx, k.Secret)
	assert.ErrorIs(t, err, ErrInvalidKey)

	assert.ErrorIs(t, svc.Revoke(ctx, k.ID), ErrKeyNotFound)
}

func TestAuthenticate_StoreError(t *testing.T) {
	svc, st := newService()
	k, err := svc.Issue(context.Background(), "acme")
	require.NoError(t, err)
	st.findErr = errors.New("db down")

	_, err = svc.Authenticate(context.Background(), k.Secret)
	assert.EqualError(t, err, "db down")
}

func TestList(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	for _, c := range []string{"acme", "acme", "globex"} {
		_, err := svc.Issue(ctx, c)
		require.NoError(t, err)
	}

	acme, err := svc.List(ctx, "acme")
	require.NoError(t, err)
	assert.Len(t, acme, 2)

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
