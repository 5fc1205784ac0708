package httpx

import (
	"github.com/ariefcatur/go-storefront/internal/access"
	"github.com/ariefcatur/go-storefront/internal/b2b"
	"github.com/ariefcatur/go-storefront/internal/locale"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type Deps struct {
	Log        zerolog.Logger
	Catalog    CatalogReader
	Orders     OrderReader
	Checkout   CheckoutStarter
	Reconciler PaymentReconciler
	Newsletter Subscriber
	B2BAuth    b2b.Authenticator
	Gate       *access.Gate
	Sessions   *access.Sessions
	Locales    *locale.Router
	Redis      redis.Cmdable
	Limiter    *IPRateLimiter
}

// NewServer wires every route of the storefront API.
func NewServer(d Deps) *chi.Mux {
	r := NewRouter(d.Log, d.Gate.Middleware, d.Sessions.Middleware, d.Locales.Middleware)

	(&CatalogHandler{Catalog: d.Catalog, DefaultLocale: d.Locales.Default, Log: d.Log}).Register(r)
	(&CheckoutHandler{Checkout: d.Checkout, Log: d.Log}).Register(r)
	(&OrdersHandler{Orders: d.Orders, Redis: d.Redis, Log: d.Log}).Register(r)
	(&PaymentsHandler{Reconciler: d.Reconciler, Log: d.Log}).Register(r)

	r.Group(func(r chi.Router) {
		r.Use(d.Limiter.Middleware)
		(&NewsletterHandler{Newsletter: d.Newsletter, Locales: d.Locales}).Register(r)
		(&AccessHandler{Gate: d.Gate, Sessions: d.Sessions, Log: d.Log}).Register(r)
		(&B2BHandler{
			Auth:          d.B2BAuth,
			Catalog:       d.Catalog,
			Orders:        d.Orders,
			Checkout:      d.Checkout,
			DefaultLocale: d.Locales.Default,
			Log:           d.Log,
		}).Register(r)
	})
	return r
}
