package payments

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

const paymentColumns = `id, order_id, token, COALESCE(flow_order, 0), amount_cents, currency, status, provider_status, redirect_url, created_at, updated_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.Token, &p.FlowOrder, &p.AmountCents, &p.Currency, &p.Status, &p.ProviderStatus, &p.RedirectURL, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, ErrPaymentNotFound
	}
	return p, err
}

func (r *Repo) Create(ctx context.Context, p Payment) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO payments(id, order_id, token, flow_order, amount_cents, currency, status, redirect_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.OrderID, p.Token, p.FlowOrder, p.AmountCents, p.Currency, p.Status, p.RedirectURL)
	return err
}

// LatestForOrder returns the most recent payment attempt of an order.
func (r *Repo) LatestForOrder(ctx context.Context, orderID string) (Payment, error) {
	return scanPayment(r.DB.QueryRow(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE order_id=$1 ORDER BY created_at DESC LIMIT 1`, orderID))
}

// Settle writes the payment status and the order status in one transaction.
// The payment row is locked first; if it is already final nothing is written
// and the stored state comes back with Replayed=true. The order only moves
// out of pending, so a late failure cannot undo a paid order.
func (r *Repo) Settle(ctx context.Context, token string, payStatus Status, orderStatus orders.Status, providerStatus int) (Settlement, error) {
	var out Settlement

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return out, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	p, err := scanPayment(tx.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE token=$1 FOR UPDATE`, token))
	if err != nil {
		return out, err
	}
	out.Payment = p

	if p.Status.Final() {
		if err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, p.OrderID).Scan(&out.OrderStatus); err != nil {
			return out, err
		}
		out.Replayed = true
		return out, nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE payments SET status=$2, provider_status=$3, updated_at=now()
		WHERE id=$1`, p.ID, payStatus, providerStatus); err != nil {
		return out, err
	}
	out.Payment.Status = payStatus
	out.Payment.ProviderStatus = &providerStatus

	var current orders.Status
	if err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, p.OrderID).Scan(&current); err != nil {
		return out, err
	}
	out.OrderStatus = current
	if orders.CanTransition(current, orderStatus) {
		if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, p.OrderID, orderStatus); err != nil {
			return out, err
		}
		out.OrderStatus = orderStatus
	}
	// selain itu order sudah final dari payment lain; laporkan status aslinya

	return out, tx.Commit(ctx)
}
