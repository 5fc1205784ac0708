package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront/internal/locale"
	"github.com/ariefcatur/go-storefront/internal/newsletter"
	"github.com/go-chi/chi/v5"
)

type Subscriber interface {
	Subscribe(ctx context.Context, email, locale string) newsletter.Result
}

type NewsletterHandler struct {
	Newsletter Subscriber
	Locales    *locale.Router
}

type subscribeReq struct {
	Email  string `json:"email"`
	Locale string `json:"locale"`
}

func (h *NewsletterHandler) Register(r chi.Router) {
	r.Post("/api/newsletter", h.subscribe)
}

func (h *NewsletterHandler) subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, newsletter.Result{Status: newsletter.StatusInvalidEmail})
		return
	}
	l := req.Locale
	if _, ok := h.Locales.FromPath("/" + l); !ok {
		l = h.Locales.Negotiate(r.Header.Get("Accept-Language"))
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	res := h.Newsletter.Subscribe(ctx, req.Email, l)
	code := http.StatusOK
	switch res.Status {
	case newsletter.StatusSubscribed:
		code = http.StatusCreated
	case newsletter.StatusInvalidEmail:
		code = http.StatusBadRequest
	case newsletter.StatusError:
		code = http.StatusInternalServerError
	}
	writeJSON(w, code, res)
}
