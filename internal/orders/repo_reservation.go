package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReservationRepo holds stock for an order between checkout and payment.
// available = quantity - reserved_quantity.
type ReservationRepo struct{ DB *pgxpool.Pool }

// AlreadyReserved: idempotency short-circuit untuk redelivery order.created.
func (r *ReservationRepo) AlreadyReserved(ctx context.Context, orderID string, itemCount int) (bool, error) {
	var n int
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM reservations
		WHERE order_id = $1 AND status = $2`, orderID, ReservationReserved).Scan(&n)
	if err != nil {
		return false, err
	}
	return n == itemCount, nil
}

// ReserveAll locks every inventory row, bumps reserved_quantity and records a
// reservation. If any item is short nothing is committed.
func (r *ReservationRepo) ReserveAll(ctx context.Context, orderID string, items []ItemQty) (ok bool, details []StockRejectedDetail, err error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var rejects []StockRejectedDetail
	for _, it := range items {
		var available int
		err := tx.QueryRow(ctx, `
			SELECT quantity - reserved_quantity FROM inventory
			WHERE product_id=$1 AND variant='' FOR UPDATE`, it.ProductID).Scan(&available)
		if errors.Is(err, pgx.ErrNoRows) {
			available = 0
		} else if err != nil {
			return false, nil, err
		}
		if available < it.Qty {
			rejects = append(rejects, StockRejectedDetail{ProductID: it.ProductID, Required: it.Qty, Available: available})
			continue
		}

		if _, err := tx.Exec(ctx, `
			UPDATE inventory SET reserved_quantity = reserved_quantity + $2, updated_at = now()
			WHERE product_id=$1 AND variant=''`, it.ProductID, it.Qty); err != nil {
			return false, nil, err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO reservations(order_id, product_id, qty, status)
			VALUES ($1,$2,$3,$4)
			ON CONFLICT (order_id, product_id) DO NOTHING`,
			orderID, it.ProductID, it.Qty, ReservationReserved); err != nil {
			return false, nil, err
		}
	}

	if len(rejects) > 0 {
		return false, rejects, nil // rollback via defer
	}
	if err := tx.Commit(ctx); err != nil {
		return false, nil, err
	}
	return true, nil, nil
}

// CommitAll turns held stock into sold stock once the order is paid.
func (r *ReservationRepo) CommitAll(ctx context.Context, orderID string) (int, error) {
	return r.settle(ctx, orderID, ReservationCommitted, `
		UPDATE inventory
		SET quantity = quantity - $2, reserved_quantity = reserved_quantity - $2, updated_at = now()
		WHERE product_id=$1 AND variant=''`)
}

// ReleaseAll gives held stock back when payment fails.
func (r *ReservationRepo) ReleaseAll(ctx context.Context, orderID string) (int, error) {
	return r.settle(ctx, orderID, ReservationReleased, `
		UPDATE inventory
		SET reserved_quantity = reserved_quantity - $2, updated_at = now()
		WHERE product_id=$1 AND variant=''`)
}

func (r *ReservationRepo) settle(ctx context.Context, orderID, final, stockSQL string) (int, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT product_id, qty FROM reservations
		WHERE order_id=$1 AND status=$2 FOR UPDATE`, orderID, ReservationReserved)
	if err != nil {
		return 0, err
	}
	var recs []ItemQty
	for rows.Next() {
		var x ItemQty
		if err := rows.Scan(&x.ProductID, &x.Qty); err != nil {
			rows.Close()
			return 0, err
		}
		recs = append(recs, x)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, x := range recs {
		if _, err := tx.Exec(ctx, stockSQL, x.ProductID, x.Qty); err != nil {
			return 0, err
		}
	}
	if _, err := tx.Exec(ctx, `UPDATE reservations SET status=$3 WHERE order_id=$1 AND status=$2`,
		orderID, ReservationReserved, final); err != nil {
		return 0, err
	}
	return len(recs), tx.Commit(ctx)
}
