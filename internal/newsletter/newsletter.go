package newsletter

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type Status string

const (
	StatusSubscribed        Status = "subscribed"
	StatusAlreadySubscribed Status = "already_subscribed"
	StatusInvalidEmail      Status = "invalid_email"
	StatusError             Status = "error"
)

// Result is returned to the signup form as-is.
type Result struct {
	OK     bool   `json:"ok"`
	Status Status `json:"status"`
}

type Store interface {
	// Insert reports false when the email is already subscribed.
	Insert(ctx context.Context, id, email, locale string) (bool, error)
}

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Insert(ctx context.Context, id, email, locale string) (bool, error) {
	tag, err := r.DB.Exec(ctx, `
		INSERT INTO newsletter_subscribers(id, email, locale)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO NOTHING`, id, email, locale)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

type Service struct {
	Store Store
	Log   zerolog.Logger
}

var validate = validator.New()

func Normalize(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func (s *Service) Subscribe(ctx context.Context, email, locale string) Result {
	email = Normalize(email)
	if err := validate.Var(email, "required,email,max=254"); err != nil {
		return Result{Status: StatusInvalidEmail}
	}
	created, err := s.Store.Insert(ctx, uuid.NewString(), email, locale)
	if err != nil {
		s.Log.Error().Err(err).Msg("newsletter subscribe")
		return Result{Status: StatusError}
	}
	if !created {
		return Result{Status: StatusAlreadySubscribed}
	}
	s.Log.Info().Str("locale", locale).Msg("newsletter subscriber added")
	return Result{OK: true, Status: StatusSubscribed}
}
