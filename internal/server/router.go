// Package server assembles the HTTP surface: middleware chain, route mounts
// and the backing store.
package server

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/EngCalc/calc-backend/internal/auth"
	"github.com/EngCalc/calc-backend/internal/calculations"
	"github.com/EngCalc/calc-backend/internal/config"
	"github.com/EngCalc/calc-backend/internal/middleware"
	"github.com/EngCalc/calc-backend/internal/projects"
	"github.com/EngCalc/calc-backend/internal/stats"
	"github.com/EngCalc/calc-backend/internal/storage"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "Server is up!")
}

// NewRouter wires every route against store. now feeds the stats endpoint
// and may be nil.
func NewRouter(cfg *config.Config, store storage.Store, now func() time.Time) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.PeerAddr)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))

	r.Get("/", RootHandler)

	proxies, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		log.Printf("[http] %v, forwarding headers ignored", err)
	}
	limiter := middleware.NewRateLimiter(cfg.Auth.RatePerMinute, cfg.Auth.RateBurst, middleware.TrustProxies(proxies))
	authHandler := &auth.Handler{
		Store:         store,
		BcryptCost:    cfg.Auth.BcryptCost,
		SecureCookies: cfg.IsProduction(),
	}

	r.Route("/api", func(r chi.Router) {
		r.Mount("/auth", auth.SetupRoutes(authHandler, limiter.Middleware))
		r.Mount("/calculations", calculations.SetupRoutes(&calculations.Handler{Store: store}, store))
		r.Mount("/projects", projects.SetupRoutes(&projects.Handler{Store: store}, store))
		r.Mount("/stats", stats.SetupRoutes(&stats.Handler{Store: store, Now: now}, store))
	})

	return r
}
