package orders

import (
	"context"
	"sync"
	"testing"

	"github.com/ariefcatur/go-storefront/internal/postgres/pgtest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepo_CreateOrderBySKU(t *testing.T) {
	db := pgtest.Open(t)
	ctx := context.Background()
	repo := &Repo{DB: db}
	pid, sku := pgtest.Product(t, db, 9990, 10)

	in := CreateInput{
		ExternalID: "web:user:u-1:" + uuid.NewString()[:8],
		UserID:     "u-1",
		Email:      "buyer@example.com",
		Items:      []ItemInputSKU{{SKU: sku, Qty: 1}, {SKU: sku, Qty: 2}},
	}
	created, err := repo.CreateOrderBySKU(ctx, in)
	require.NoError(t, err)
	assert.False(t, created.Existed)
	assert.Equal(t, int64(3*9990), created.TotalCents)
	assert.Equal(t, []ItemPrice{{ProductID: pid, Qty: 3, PriceCents: 9990}}, created.Items)

	o, err := repo.GetOrder(ctx, created.OrderID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status)
	require.Len(t, o.Items, 1, "repeated sku lines are stored as one item")
	assert.Equal(t, 3, o.Items[0].Qty)

	again, err := repo.CreateOrderBySKU(ctx, in)
	require.NoError(t, err)
	assert.True(t, again.Existed)
	assert.Equal(t, created.OrderID, again.OrderID)
	assert.Equal(t, created.Items, again.Items)

	_, err = repo.CreateOrderBySKU(ctx, CreateInput{ExternalID: uuid.NewString(), Items: []ItemInputSKU{{SKU: "NOPE", Qty: 1}}})
	assert.ErrorIs(t, err, ErrUnknownSKU)
}

func TestRepo_CreateOrderBySKU_Concurrent(t *testing.T) {
	db := pgtest.Open(t)
	repo := &Repo{DB: db}
	_, sku := pgtest.Product(t, db, 500, 10)
	in := CreateInput{ExternalID: "web:guest:" + uuid.NewString(), Items: []ItemInputSKU{{SKU: sku, Qty: 1}}}

	const n = 4
	var (
		wg   sync.WaitGroup
		ids  [n]string
		errs [n]error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := repo.CreateOrderBySKU(context.Background(), in)
			ids[i], errs[i] = c.OrderID, err
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	var count int
	require.NoError(t, db.QueryRow(context.Background(), `SELECT COUNT(*) FROM orders WHERE external_id=$1`, in.ExternalID).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestReservationRepo(t *testing.T) {
	db := pgtest.Open(t)
	ctx := context.Background()
	repo := &Repo{DB: db}
	res := &ReservationRepo{DB: db}
	pid, sku := pgtest.Product(t, db, 100, 5)

	place := func(qty int) Created {
		c, err := repo.CreateOrderBySKU(ctx, CreateInput{ExternalID: uuid.NewString(), Items: []ItemInputSKU{{SKU: sku, Qty: qty}}})
		require.NoError(t, err)
		return c
	}
	items := func(c Created) []ItemQty {
		out := make([]ItemQty, 0, len(c.Items))
		for _, it := range c.Items {
			out = append(out, ItemQty{ProductID: it.ProductID, Qty: it.Qty})
		}
		return out
	}

	paid := place(3)
	ok, _, err := res.ReserveAll(ctx, paid.OrderID, items(paid))
	require.NoError(t, err)
	require.True(t, ok)
	done, err := res.AlreadyReserved(ctx, paid.OrderID, len(paid.Items))
	require.NoError(t, err)
	assert.True(t, done)

	short := place(3)
	ok, details, err := res.ReserveAll(ctx, short.OrderID, items(short))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []StockRejectedDetail{{ProductID: pid, Required: 3, Available: 2}}, details)

	n, err := res.CommitAll(ctx, paid.OrderID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	q, r := pgtest.Stock(t, db, pid)
	assert.Equal(t, 2, q)
	assert.Equal(t, 0, r)

	failed := place(2)
	ok, _, err = res.ReserveAll(ctx, failed.OrderID, items(failed))
	require.NoError(t, err)
	require.True(t, ok)
	_, err = res.ReleaseAll(ctx, failed.OrderID)
	require.NoError(t, err)
	q, r = pgtest.Stock(t, db, pid)
	assert.Equal(t, 2, q)
	assert.Equal(t, 0, r)

	n, err = res.ReleaseAll(ctx, failed.OrderID)
	require.NoError(t, err)
	assert.Zero(t, n, "release is idempotent")
}
