package httpx

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/locale"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type CatalogReader interface {
	ListActive(ctx context.Context) ([]catalog.Product, error)
	GetBySlug(ctx context.Context, slug string) (catalog.Product, error)
	GetBySKU(ctx context.Context, sku string) (catalog.Product, error)
	Availability(ctx context.Context, productID string) (int, error)
}

type CatalogHandler struct {
	Catalog       CatalogReader
	DefaultLocale string
	Log           zerolog.Logger
}

// Register mounts the storefront routes under a locale prefix.
func (h *CatalogHandler) Register(r chi.Router) {
	r.Get("/{locale}/products", h.list)
	r.Get("/{locale}/products/{slug}", h.get)
}

func (h *CatalogHandler) requestLocale(r *http.Request) string {
	if l := locale.From(r.Context()); l != "" {
		return l
	}
	return chi.URLParam(r, "locale")
}

func (h *CatalogHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Catalog.ListActive(ctx)
	if err != nil {
		h.Log.Error().Err(err).Msg("list products")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, catalog.LocalizeAll(ps, h.requestLocale(r), h.DefaultLocale))
}

func (h *CatalogHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Catalog.GetBySlug(ctx, chi.URLParam(r, "slug"))
	if errors.Is(err, catalog.ErrProductNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		h.Log.Error().Err(err).Msg("get product")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := catalog.Localize(p, h.requestLocale(r), h.DefaultLocale)
	if n, err := h.Catalog.Availability(ctx, p.ID); err == nil {
		out.Available = &n
	} else {
		h.Log.Warn().Err(err).Str("product_id", p.ID).Msg("availability")
	}
	writeJSON(w, http.StatusOK, out)
}
