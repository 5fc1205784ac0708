package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

const productColumns = `id, sku, slug, price_cents, currency, translations, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Slug, &p.PriceCents, &p.Currency, &p.Translations, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, ErrProductNotFound
	}
	return p, err
}

func (r *Repo) ListActive(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productColumns+` FROM products WHERE is_active ORDER BY sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetBySlug only returns active products; it backs the storefront.
func (r *Repo) GetBySlug(ctx context.Context, s string) (Product, error) {
	return scanProduct(r.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE slug=$1 AND is_active`, s))
}

func (r *Repo) GetBySKU(ctx context.Context, sku string) (Product, error) {
	return scanProduct(r.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE sku=$1`, sku))
}

type NewProduct struct {
	SKU           string
	PriceCents    int64
	Currency      string
	DefaultLocale string
	Translations  map[string]Translation
	Quantity      int
}

// Create inserts the product and its inventory row. The slug is derived
// from the default-locale name.
func (r *Repo) Create(ctx context.Context, in NewProduct) (Product, error) {
	tr, ok := in.Translations[in.DefaultLocale]
	if !ok || strings.TrimSpace(tr.Name) == "" {
		return Product{}, ErrMissingName
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Product{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	s := slug.Make(tr.Name)
	p, err := scanProduct(tx.QueryRow(ctx, `
		INSERT INTO products(id, sku, slug, price_cents, currency, translations, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		RETURNING `+productColumns,
		uuid.NewString(), in.SKU, s, in.PriceCents, in.Currency, in.Translations))
	if err != nil {
		return Product{}, duplicateErr(err, in.SKU, s)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO inventory(product_id, variant, quantity) VALUES ($1, '', $2)`,
		p.ID, in.Quantity); err != nil {
		return Product{}, err
	}
	return p, tx.Commit(ctx)
}

func duplicateErr(err error, sku, s string) error {
	constraint, ok := postgres.UniqueConstraint(err)
	switch {
	case !ok:
		return err
	case constraint == "products_slug_key":
		return fmt.Errorf("%w: slug=%s", ErrDuplicateSlug, s)
	default:
		return fmt.Errorf("%w: sku=%s", ErrDuplicateSKU, sku)
	}
}

func (r *Repo) SetActive(ctx context.Context, sku string, active bool) error {
	ct, err := r.DB.Exec(ctx, `UPDATE products SET is_active=$2, updated_at=now() WHERE sku=$1`, sku, active)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// Availability returns quantity minus reserved for the base variant.
func (r *Repo) Availability(ctx context.Context, productID string) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx, `
		SELECT quantity - reserved_quantity FROM inventory
		WHERE product_id=$1 AND variant=''`, productID).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return n, err
}
