package httpx

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront/internal/access"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/payments"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type CheckoutStarter interface {
	Start(ctx context.Context, req payments.CheckoutRequest, traceID string) (payments.CheckoutResult, error)
}

type CheckoutHandler struct {
	Checkout CheckoutStarter
	Log      zerolog.Logger
}

func (h *CheckoutHandler) Register(r chi.Router) {
	r.Post("/api/checkout", h.create)
}

func (h *CheckoutHandler) create(w http.ResponseWriter, r *http.Request) {
	var req payments.CheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.UserID = access.UserID(r.Context())
	id, err := orders.WebExternalID(req.UserID, req.Email, req.ExternalID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.ExternalID = id

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.Checkout.Start(ctx, req, middleware.GetReqID(r.Context()))
	if err != nil {
		code, msg := checkoutError(err)
		if code >= http.StatusInternalServerError {
			h.Log.Error().Err(err).Str("external_id", req.ExternalID).Msg("checkout")
		}
		writeError(w, code, msg)
		return
	}
	code := http.StatusCreated
	if res.Idempotent {
		code = http.StatusOK
	}
	writeJSON(w, code, res)
}

func checkoutError(err error) (int, string) {
	switch {
	case errors.Is(err, payments.ErrInvalidCheckout),
		errors.Is(err, orders.ErrInvalidExternalID):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, orders.ErrUnknownSKU),
		errors.Is(err, orders.ErrInvalidQty),
		errors.Is(err, orders.ErrMixedCurrency):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, payments.ErrOrderClosed):
		return http.StatusConflict, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	}
	return http.StatusBadGateway, "checkout unavailable"
}
