package httpx

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ariefcatur/go-storefront/internal/access"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type OrderReader interface {
	GetOrderStatus(ctx context.Context, orderID string) (orders.Status, error)
	GetOrder(ctx context.Context, orderID string) (orders.Order, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]orders.Order, error)
}

type OrdersHandler struct {
	Orders OrderReader
	Redis  redis.Cmdable // optional
	Log    zerolog.Logger
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Get("/api/orders/{id}", h.getStatus)
	r.Get("/api/me/orders", h.mine)
}

func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "missing id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache
	if h.Redis != nil {
		s, ok, err := redisx.CachedOrderStatus(ctx, h.Redis, orderID)
		if err != nil {
			h.Log.Warn().Err(err).Msg("order status cache read")
		}
		if ok {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	// 2) fallback DB
	status, err := h.Orders.GetOrderStatus(ctx, orderID)
	if errors.Is(err, orders.ErrOrderNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		h.Log.Error().Err(err).Str("order_id", orderID).Msg("get order status")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if h.Redis != nil {
		if err := redisx.CacheOrderStatus(ctx, h.Redis, orderID, string(status)); err != nil {
			h.Log.Warn().Err(err).Msg("order status cache write")
		}
	}
	writeJSON(w, http.StatusOK, redisx.OrderStatus{OrderID: orderID, Status: string(status)})
}

func (h *OrdersHandler) mine(w http.ResponseWriter, r *http.Request) {
	uid := access.UserID(r.Context())
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "login required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Orders.ListByUser(ctx, uid, limit)
	if err != nil {
		h.Log.Error().Err(err).Msg("list user orders")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if list == nil {
		list = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, list)
}
