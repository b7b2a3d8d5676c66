package auth

import (
	"net/http"

	"github.com/EngCalc/calc-backend/internal/middleware"
	"github.com/EngCalc/calc-backend/internal/storage"
)

func setSessionCookie(w http.ResponseWriter, session *storage.Session, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    session.ID,
		Path:     "/",
		MaxAge:   int(storage.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie replaces the cookie with an expired, empty one.
func clearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
