package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/ariefcatur/go-storefront/internal/payments"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const (
	checkoutSuccessPath = "/checkout/success"
	checkoutErrorPath   = "/checkout/error"
)

type PaymentReconciler interface {
	Reconcile(ctx context.Context, token, traceID string) (payments.Outcome, error)
}

type PaymentsHandler struct {
	Reconciler PaymentReconciler
	Log        zerolog.Logger
}

func (h *PaymentsHandler) Register(r chi.Router) {
	r.Post("/api/payments/flow/result", h.result)
	r.Post("/api/payments/flow/confirm", h.confirm)
}

func (h *PaymentsHandler) reconcile(r *http.Request) (payments.Outcome, error) {
	token := r.FormValue("token")
	if token == "" {
		return payments.Outcome{}, payments.ErrMissingToken
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	return h.Reconciler.Reconcile(ctx, token, middleware.GetReqID(r.Context()))
}

// result is where the provider sends the buyer's browser back to.
func (h *PaymentsHandler) result(w http.ResponseWriter, r *http.Request) {
	out, err := h.reconcile(r)
	if err != nil {
		h.Log.Error().Err(err).Msg("payment result")
		http.Redirect(w, r, checkoutErrorPath, http.StatusSeeOther)
		return
	}
	if !out.Paid {
		http.Redirect(w, r, checkoutErrorPath, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, checkoutSuccessPath+"?orderId="+url.QueryEscape(out.OrderID), http.StatusSeeOther)
}

// confirm is the server-to-server notification. A 5xx asks the provider to
// retry; bad tokens are not retried. A provider outage during the status
// lookup is a 5xx too.
func (h *PaymentsHandler) confirm(w http.ResponseWriter, r *http.Request) {
	out, err := h.reconcile(r)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "order_id": out.OrderID, "paid": out.Paid})
	case errors.Is(err, payments.ErrMissingToken),
		errors.Is(err, payments.ErrPaymentNotFound),
		payments.ProviderRejected(err):
		h.Log.Warn().Err(err).Msg("payment confirmation rejected")
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.Log.Error().Err(err).Msg("payment confirmation")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
