package httpx

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront/internal/b2b"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/payments"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// B2BHandler serves the API-key authenticated catalog and order API. Orders
// placed by a client carry external id "b2b:<client>:<ref>" and are only
// visible to that client.
type B2BHandler struct {
	Auth          b2b.Authenticator
	Catalog       CatalogReader
	Orders        OrderReader
	Checkout      CheckoutStarter
	DefaultLocale string
	Log           zerolog.Logger
}

// Register mounts the routes on r, which callers may rate limit.
func (h *B2BHandler) Register(r chi.Router) {
	r.Route("/api/b2b", func(r chi.Router) {
		r.Use(b2b.Middleware(h.Auth, h.Log))
		r.Get("/products", h.listProducts)
		r.Get("/products/{sku}", h.getProduct)
		r.Post("/orders", h.createOrder)
		r.Get("/orders/{id}", h.getOrder)
	})
}

func (h *B2BHandler) locale(r *http.Request) string {
	if l := r.URL.Query().Get("locale"); l != "" {
		return l
	}
	return h.DefaultLocale
}

func (h *B2BHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ps, err := h.Catalog.ListActive(ctx)
	if err != nil {
		h.Log.Error().Err(err).Msg("b2b list products")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := catalog.LocalizeAll(ps, h.locale(r), h.DefaultLocale)
	for i := range out {
		n, err := h.Catalog.Availability(ctx, out[i].ID)
		if err != nil {
			h.Log.Error().Err(err).Msg("b2b availability")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		out[i].Available = &n
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *B2BHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Catalog.GetBySKU(ctx, chi.URLParam(r, "sku"))
	if errors.Is(err, catalog.ErrProductNotFound) || (err == nil && !p.Active) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		h.Log.Error().Err(err).Msg("b2b get product")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := catalog.Localize(p, h.locale(r), h.DefaultLocale)
	n, err := h.Catalog.Availability(ctx, p.ID)
	if err != nil {
		h.Log.Error().Err(err).Msg("b2b availability")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out.Available = &n
	writeJSON(w, http.StatusOK, out)
}

func (h *B2BHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req payments.CheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	client := b2b.ClientID(r.Context())
	id, err := orders.B2BExternalID(client, req.ExternalID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.ExternalID = id
	req.UserID = ""

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.Checkout.Start(ctx, req, middleware.GetReqID(r.Context()))
	if err != nil {
		code, msg := checkoutError(err)
		if code >= http.StatusInternalServerError {
			h.Log.Error().Err(err).Str("client_id", client).Msg("b2b checkout")
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

func (h *B2BHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Orders.GetOrder(ctx, chi.URLParam(r, "id"))
	if err == nil {
		if owner, ok := orders.B2BClient(o.ExternalID); !ok || owner != b2b.ClientID(r.Context()) {
			err = orders.ErrOrderNotFound
		}
	}
	if errors.Is(err, orders.ErrOrderNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		h.Log.Error().Err(err).Msg("b2b get order")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, o)
}
