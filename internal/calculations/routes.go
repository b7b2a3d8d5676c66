package calculations

import (
	"net/http"

	"github.com/EngCalc/calc-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
)

func SetupRoutes(h *Handler, fetcher middleware.SessionFetcher) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.SessionMiddleware(fetcher))

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)

	return r
}
