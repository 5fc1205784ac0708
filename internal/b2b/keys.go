package b2b

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidKey      = errors.New("invalid api key")
	ErrKeyNotFound     = errors.New("api key not found")
	ErrMissingClientID = errors.New("client id is required")
	ErrInvalidClientID = errors.New("client id must be at most 64 characters without ':' or spaces")
)

const secretPrefix = "sk_"

type Key struct {
	ID         string     `json:"id"`
	ClientID   string     `json:"client_id"`
	Prefix     string     `json:"prefix"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

func (k Key) Revoked() bool { return k.RevokedAt != nil }

// IssuedKey carries the plaintext secret. It is only ever returned by Issue.
type IssuedKey struct {
	Key
	Secret string `json:"secret"`
}

// newSecret returns sk_<prefix>_<random>. The prefix is shown in listings so
// operators can tell keys apart without the secret.
func newSecret() (secret, prefix string, err error) {
	b := make([]byte, 28)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	prefix = hex.EncodeToString(b[:4])
	return secretPrefix + prefix + "_" + hex.EncodeToString(b[4:]), prefix, nil
}

// parseSecret returns the prefix of a well-formed secret.
func parseSecret(secret string) (string, bool) {
	rest, ok := strings.CutPrefix(secret, secretPrefix)
	if !ok {
		return "", false
	}
	prefix, body, ok := strings.Cut(rest, "_")
	if !ok || len(prefix) != 8 || len(body) != 48 {
		return "", false
	}
	return prefix, true
}

// lookupHash is the indexed column used to find the row; the bcrypt hash is
// what actually authenticates.
func lookupHash(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
