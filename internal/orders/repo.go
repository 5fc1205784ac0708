package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ItemInputSKU struct {
	SKU string `json:"sku" validate:"required"`
	Qty int    `json:"qty" validate:"gt=0"`
}

type CreateInput struct {
	ExternalID string
	UserID     string // kosong = guest checkout
	Email      string
	Items      []ItemInputSKU
}

type Created struct {
	OrderID    string
	TotalCents int64
	Currency   string
	Items      []ItemPrice
	Existed    bool
}

type Repo struct{ DB *pgxpool.Pool }

// CreateOrderBySKU is idempotent via external_id: when an order with that
// external id exists it is returned with Existed=true and nothing is written.
// Prices always come from the products table, never from the client.
func (r *Repo) CreateOrderBySKU(ctx context.Context, in CreateInput) (Created, error) {
	out, err := r.existing(ctx, in.ExternalID)
	if err == nil {
		return out, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return out, err
	}
	out, err = r.create(ctx, in)
	if postgres.IsUniqueViolation(err) {
		// request paralel dengan external_id sama menang duluan
		return r.existing(ctx, in.ExternalID)
	}
	return out, err
}

func (r *Repo) existing(ctx context.Context, externalID string) (Created, error) {
	out := Created{Existed: true}
	err := r.DB.QueryRow(ctx, `SELECT id, total_cents, currency FROM orders WHERE external_id=$1`, externalID).
		Scan(&out.OrderID, &out.TotalCents, &out.Currency)
	if err != nil {
		return out, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT product_id, qty, price_cents FROM order_items
		WHERE order_id=$1 ORDER BY id`, out.OrderID)
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		var it ItemPrice
		if err := rows.Scan(&it.ProductID, &it.Qty, &it.PriceCents); err != nil {
			return out, err
		}
		out.Items = append(out.Items, it)
	}
	return out, rows.Err()
}

// MergeItems folds repeated SKU lines into one line per SKU, keeping the
// order in which SKUs first appear.
func MergeItems(items []ItemInputSKU) []ItemInputSKU {
	out := make([]ItemInputSKU, 0, len(items))
	idx := make(map[string]int, len(items))
	for _, it := range items {
		if i, ok := idx[it.SKU]; ok {
			out[i].Qty += it.Qty
			continue
		}
		idx[it.SKU] = len(out)
		out = append(out, it)
	}
	return out
}

func (r *Repo) create(ctx context.Context, in CreateInput) (Created, error) {
	var out Created

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return out, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	in.Items = MergeItems(in.Items)
	skus := make([]string, 0, len(in.Items))
	for _, it := range in.Items {
		skus = append(skus, it.SKU)
	}
	rows, err := tx.Query(ctx, `SELECT id, sku, price_cents, currency FROM products WHERE sku = ANY($1) AND is_active`, skus)
	if err != nil {
		return out, err
	}
	type pp struct {
		id       string
		price    int64
		currency string
	}
	bySKU := map[string]pp{}
	for rows.Next() {
		var (
			p   pp
			sku string
		)
		if err := rows.Scan(&p.id, &sku, &p.price, &p.currency); err != nil {
			rows.Close()
			return out, err
		}
		bySKU[sku] = p
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return out, err
	}

	for _, it := range in.Items {
		p, ok := bySKU[it.SKU]
		if !ok {
			return out, fmt.Errorf("%w: sku=%s", ErrUnknownSKU, it.SKU)
		}
		if it.Qty <= 0 {
			return out, fmt.Errorf("%w: sku=%s", ErrInvalidQty, it.SKU)
		}
		if out.Currency == "" {
			out.Currency = p.currency
		} else if out.Currency != p.currency {
			return out, ErrMixedCurrency
		}
		out.TotalCents += p.price * int64(it.Qty)
		out.Items = append(out.Items, ItemPrice{ProductID: p.id, Qty: it.Qty, PriceCents: p.price})
	}

	out.OrderID = uuid.NewString()
	if _, err = tx.Exec(ctx, `
		INSERT INTO orders(id, external_id, user_id, email, status, total_cents, currency)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)`,
		out.OrderID, in.ExternalID, in.UserID, in.Email, StatusPending, out.TotalCents, out.Currency,
	); err != nil {
		return Created{}, err
	}
	for _, it := range out.Items {
		if _, err = tx.Exec(ctx, `
			INSERT INTO order_items(order_id, product_id, qty, price_cents)
			VALUES ($1, $2, $3, $4)`,
			out.OrderID, it.ProductID, it.Qty, it.PriceCents,
		); err != nil {
			return Created{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Created{}, err
	}
	return out, nil
}

func (r *Repo) GetOrderStatus(ctx context.Context, orderID string) (Status, error) {
	var s string
	err := r.DB.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, orderID).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrOrderNotFound
	}
	if err != nil {
		return "", err
	}
	return Status(s), nil
}

func (r *Repo) GetOrder(ctx context.Context, orderID string) (Order, error) {
	var (
		o      Order
		userID *string
	)
	err := r.DB.QueryRow(ctx, `
		SELECT id, external_id, user_id, email, status, total_cents, currency, created_at, updated_at
		FROM orders WHERE id=$1`, orderID).
		Scan(&o.ID, &o.ExternalID, &userID, &o.Email, &o.Status, &o.TotalCents, &o.Currency, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return o, ErrOrderNotFound
	}
	if err != nil {
		return o, err
	}
	if userID != nil {
		o.UserID = *userID
	}

	rows, err := r.DB.Query(ctx, `
		SELECT oi.product_id, p.sku, oi.qty, oi.price_cents
		FROM order_items oi JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id=$1 ORDER BY oi.id`, orderID)
	if err != nil {
		return o, err
	}
	defer rows.Close()
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ProductID, &it.SKU, &it.Qty, &it.PriceCents); err != nil {
			return o, err
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}

func (r *Repo) ListByUser(ctx context.Context, userID string, limit int) ([]Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, external_id, email, status, total_cents, currency, created_at, updated_at
		FROM orders WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o := Order{UserID: userID}
		if err := rows.Scan(&o.ID, &o.ExternalID, &o.Email, &o.Status, &o.TotalCents, &o.Currency, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
