package b2b

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

const keyColumns = `id, client_id, key_prefix, created_at, last_used_at, revoked_at`

func (r *Repo) Insert(ctx context.Context, k Key, lookup string, hash []byte) (Key, error) {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO b2b_api_keys(id, client_id, key_prefix, key_lookup, key_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`, k.ID, k.ClientID, k.Prefix, lookup, string(hash)).Scan(&k.CreatedAt)
	return k, err
}

func (r *Repo) FindByLookup(ctx context.Context, lookup string) (Key, []byte, error) {
	var (
		k    Key
		hash string
	)
	err := r.DB.QueryRow(ctx, `SELECT `+keyColumns+`, key_hash FROM b2b_api_keys WHERE key_lookup=$1`, lookup).
		Scan(&k.ID, &k.ClientID, &k.Prefix, &k.CreatedAt, &k.LastUsedAt, &k.RevokedAt, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return k, nil, ErrKeyNotFound
	}
	return k, []byte(hash), err
}

func (r *Repo) Touch(ctx context.Context, id string) error {
	_, err := r.DB.Exec(ctx, `UPDATE b2b_api_keys SET last_used_at=now() WHERE id=$1`, id)
	return err
}

// Revoke is one-way; revoking an already revoked key reports ErrKeyNotFound.
func (r *Repo) Revoke(ctx context.Context, id string) error {
	tag, err := r.DB.Exec(ctx, `UPDATE b2b_api_keys SET revoked_at=now() WHERE id=$1 AND revoked_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrKeyNotFound
	}
	return nil
}

// List returns every key when clientID is empty.
func (r *Repo) List(ctx context.Context, clientID string) ([]Key, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+keyColumns+` FROM b2b_api_keys
		WHERE $1 = '' OR client_id = $1
		ORDER BY created_at DESC`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Key
	for rows.Next() {
		var k Key
		if err := rows.Scan(&k.ID, &k.ClientID, &k.Prefix, &k.CreatedAt, &k.LastUsedAt, &k.RevokedAt); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}
