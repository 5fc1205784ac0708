package b2b

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

type Store interface {
	Insert(ctx context.Context, k Key, lookup string, hash []byte) (Key, error)
	FindByLookup(ctx context.Context, lookup string) (Key, []byte, error)
	Touch(ctx context.Context, id string) error
	Revoke(ctx context.Context, id string) error
	List(ctx context.Context, clientID string) ([]Key, error)
}

type Service struct {
	Store Store
	Cost  int // bcrypt cost, 0 = bcrypt.DefaultCost
	Log   zerolog.Logger
}

func (s *Service) cost() int {
	if s.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return s.Cost
}

var validate = validator.New()

// Issue creates a key for clientID and returns its secret once.
func (s *Service) Issue(ctx context.Context, clientID string) (IssuedKey, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return IssuedKey{}, ErrMissingClientID
	}
	// ':' memisahkan client id di external id order b2b
	if err := validate.Var(clientID, "max=64,excludesall=: "); err != nil {
		return IssuedKey{}, ErrInvalidClientID
	}
	secret, prefix, err := newSecret()
	if err != nil {
		return IssuedKey{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.cost())
	if err != nil {
		return IssuedKey{}, err
	}
	k, err := s.Store.Insert(ctx, Key{ID: uuid.NewString(), ClientID: clientID, Prefix: prefix}, lookupHash(secret), hash)
	if err != nil {
		return IssuedKey{}, err
	}
	s.Log.Info().Str("client_id", clientID).Str("key_id", k.ID).Str("prefix", prefix).Msg("b2b key issued")
	return IssuedKey{Key: k, Secret: secret}, nil
}

// Authenticate resolves a presented secret to its key. Unknown, malformed,
// mismatched and revoked secrets all return ErrInvalidKey.
func (s *Service) Authenticate(ctx context.Context, secret string) (Key, error) {
	if _, ok := parseSecret(secret); !ok {
		return Key{}, ErrInvalidKey
	}
	k, hash, err := s.Store.FindByLookup(ctx, lookupHash(secret))
	if errors.Is(err, ErrKeyNotFound) {
		return Key{}, ErrInvalidKey
	}
	if err != nil {
		return Key{}, err
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(secret)); err != nil {
		return Key{}, ErrInvalidKey
	}
	if k.Revoked() {
		return Key{}, ErrInvalidKey
	}
	if err := s.Store.Touch(ctx, k.ID); err != nil {
		s.Log.Warn().Err(err).Str("key_id", k.ID).Msg("touch b2b key")
	}
	return k, nil
}

func (s *Service) Revoke(ctx context.Context, id string) error {
	if err := s.Store.Revoke(ctx, id); err != nil {
		return err
	}
	s.Log.Info().Str("key_id", id).Msg("b2b key revoked")
	return nil
}

func (s *Service) List(ctx context.Context, clientID string) ([]Key, error) {
	return s.Store.List(ctx, clientID)
}
