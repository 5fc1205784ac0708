package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-storefront/internal/access"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type AccessHandler struct {
	Gate     *access.Gate
	Sessions *access.Sessions
	Log      zerolog.Logger
}

func (h *AccessHandler) Register(r chi.Router) {
	r.Post("/api/access", h.enter)
	r.Post("/api/session/logout", h.logout)
}

// enter sets the access cookie only when the code matches.
func (h *AccessHandler) enter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, access.Result{Error: access.ErrorInvalidCode})
		return
	}
	res := h.Gate.Validate(req.Code)
	if !res.OK {
		writeJSON(w, http.StatusUnauthorized, res)
		return
	}
	if err := h.Gate.Grant(w); err != nil {
		h.Log.Error().Err(err).Msg("grant access cookie")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *AccessHandler) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(access.SessionCookie); err == nil && c.Value != "" {
		if err := h.Sessions.Delete(r.Context(), c.Value); err != nil {
			h.Log.Warn().Err(err).Msg("delete session")
		}
	}
	h.Sessions.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
