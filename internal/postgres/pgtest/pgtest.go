// Package pgtest opens a migrated Postgres pool for repository tests. Tests
// are skipped unless TEST_POSTGRES_DSN is set.
package pgtest

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func Open(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	db, err := postgres.ConnectWith(ctx, dsn, postgres.PoolOptions{MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	_, err = postgres.Migrate(ctx, db)
	require.NoError(t, err)
	return db
}

// Product inserts an active product with qty units of stock. The sku is
// random so tests can share one database.
func Product(t *testing.T, db *pgxpool.Pool, priceCents int64, qty int) (id, sku string) {
	t.Helper()
	ctx := context.Background()
	id = uuid.NewString()
	sku = "T-" + strings.ToUpper(id[:8])
	_, err := db.Exec(ctx, `
		INSERT INTO products(id, sku, slug, price_cents, currency, translations)
		VALUES ($1, $2, $3, $4, 'CLP', '{"es":{"name":"Producto de prueba"}}')`,
		id, sku, strings.ToLower(sku), priceCents)
	require.NoError(t, err)
	_, err = db.Exec(ctx, `INSERT INTO inventory(product_id, variant, quantity) VALUES ($1, '', $2)`, id, qty)
	require.NoError(t, err)
	return id, sku
}

// Stock returns quantity and reserved_quantity of the base variant.
func Stock(t *testing.T, db *pgxpool.Pool, productID string) (quantity, reserved int) {
	t.Helper()
	err := db.QueryRow(context.Background(), `
		SELECT quantity, reserved_quantity FROM inventory
		WHERE product_id=$1 AND variant=''`, productID).Scan(&quantity, &reserved)
	require.NoError(t, err)
	return quantity, reserved
}
