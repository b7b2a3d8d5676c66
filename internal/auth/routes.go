package auth

import (
	"net/http"

	"github.com/EngCalc/calc-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// SetupRoutes mounts register, login, logout and me. limit wraps the two
// credential endpoints and may be nil.
func SetupRoutes(h *Handler, limit func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		if limit != nil {
			r.Use(limit)
		}
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
	})
	r.Post("/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionMiddleware(h.Store))
		r.Get("/me", h.Me)
	})

	return r
}
