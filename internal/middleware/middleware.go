package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/EngCalc/calc-backend/internal/storage"
	"github.com/EngCalc/calc-backend/internal/utils"
)

// SessionCookie names the cookie carrying the session id.
const SessionCookie = "sessionId"

// SessionFetcher resolves a session id to its user. GetSession must report
// expired sessions as storage.ErrNotFound. storage.Store satisfies it.
type SessionFetcher interface {
	GetSession(ctx context.Context, id string) (*storage.Session, error)
	GetUser(ctx context.Context, id string) (*storage.User, error)
}

// ResolveUser maps the request's session cookie to a live user. On failure it
// returns the status and message to answer with.
func ResolveUser(r *http.Request, fetcher SessionFetcher) (*storage.User, int, string) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return nil, http.StatusUnauthorized, "Not authenticated"
	}

	session, err := fetcher.GetSession(r.Context(), cookie.Value)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, http.StatusUnauthorized, "Invalid session"
	}
	if err != nil {
		log.Printf("[auth] session lookup failed: %v", err)
		return nil, http.StatusInternalServerError, "Internal server error"
	}

	user, err := fetcher.GetUser(r.Context(), session.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, http.StatusUnauthorized, "User not found"
	}
	if err != nil {
		log.Printf("[auth] user lookup failed: %v", err)
		return nil, http.StatusInternalServerError, "Internal server error"
	}
	return user, http.StatusOK, ""
}

func SessionMiddleware(fetcher SessionFetcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, status, msg := ResolveUser(r, fetcher)
			if user == nil {
				utils.WriteError(w, status, msg)
				return
			}

			ctx := utils.WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			// Echo the origin back only if it's on our allow-list
			if _, ok := allowed[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods",
					"GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers",
					"Content-Type")
			}

			w.Header().Set("Access-Control-Expose-Headers", "Retry-After")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
