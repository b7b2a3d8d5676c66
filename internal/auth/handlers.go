package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/EngCalc/calc-backend/internal/middleware"
	"github.com/EngCalc/calc-backend/internal/storage"
	"github.com/EngCalc/calc-backend/internal/utils"
)

type Handler struct {
	Store storage.Store

	// BcryptCost of zero means bcrypt.DefaultCost.
	BcryptCost int

	// SecureCookies marks the session cookie Secure. Set in production.
	SecureCookies bool

	dummyOnce sync.Once
	dummyHash string
}

// dummy returns a hash to compare against when the username is unknown, so a
// miss costs the same bcrypt work as a wrong password.
func (h *Handler) dummy() string {
	h.dummyOnce.Do(func() {
		hashed, err := HashPassword("not-a-real-password", h.BcryptCost)
		if err != nil {
			log.Printf("[auth] dummy hash: %v", err)
			return
		}
		h.dummyHash = hashed
	})
	return h.dummyHash
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, user *storage.User) bool {
	session, err := h.Store.CreateSession(r.Context(), user.ID)
	if err != nil {
		log.Printf("[auth] create session for %s: %v", user.ID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Failed to create session")
		return false
	}
	setSessionCookie(w, session, h.SecureCookies)
	return true
}

func (h *Handler) userExists(ctx context.Context, username, email string) (bool, error) {
	_, err := h.Store.GetUserByUsername(ctx, username)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return false, err
	}

	_, err = h.Store.GetUserByEmail(ctx, email)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return false, err
	}
	return false, nil
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid registration data")
		return
	}
	if err := utils.Validate(req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid registration data: "+err.Error())
		return
	}
	if len(req.Password) > MaxPasswordBytes {
		utils.WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid registration data: password must be at most %d bytes", MaxPasswordBytes))
		return
	}

	ctx := r.Context()

	// Check if username or email is taken
	taken, err := h.userExists(ctx, req.Username, req.Email)
	if err != nil {
		log.Printf("[auth] register lookup: %v", err)
		utils.WriteError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}
	if taken {
		utils.WriteError(w, http.StatusBadRequest, "User already exists")
		return
	}

	hashed, err := HashPassword(req.Password, h.BcryptCost)
	if err != nil {
		log.Printf("[auth] %v", err)
		utils.WriteError(w, http.StatusInternalServerError, "Server error hashing password")
		return
	}

	user, err := h.Store.CreateUser(ctx, storage.NewUser{
		Username:       req.Username,
		Email:          req.Email,
		HashedPassword: hashed,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Role:           req.Role,
	})
	// A concurrent registration can win between the lookup and the insert.
	if errors.Is(err, storage.ErrDuplicate) {
		utils.WriteError(w, http.StatusBadRequest, "User already exists")
		return
	}
	if err != nil {
		log.Printf("[auth] create user: %v", err)
		utils.WriteError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	session, err := h.Store.CreateSession(ctx, user.ID)
	if err != nil {
		// The account is kept. Logging in recovers, registering again does not.
		log.Printf("[auth] user %s registered but session creation failed: %v", user.ID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Account created but sign-in failed, please log in")
		return
	}
	setSessionCookie(w, session, h.SecureCookies)
	log.Printf("[auth] registered user %s", user.ID)
	utils.WriteJSON(w, http.StatusOK, UserResponse{User: user})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid login data")
		return
	}
	if err := utils.Validate(req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid login data: "+err.Error())
		return
	}

	user, err := h.Store.GetUserByUsername(r.Context(), req.Username)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Printf("[auth] login lookup: %v", err)
		utils.WriteError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	if user == nil {
		CheckPassword(h.dummy(), req.Password)
		utils.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if !CheckPassword(user.HashedPassword, req.Password) {
		utils.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if !h.startSession(w, r, user) {
		return
	}
	utils.WriteJSON(w, http.StatusOK, UserResponse{User: user})
}

// Logout always succeeds. A missing or stale cookie is simply cleared.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookie); err == nil && cookie.Value != "" {
		if _, err := h.Store.DeleteSession(r.Context(), cookie.Value); err != nil {
			log.Printf("[auth] delete session: %v", err)
		}
	}

	clearSessionCookie(w, h.SecureCookies)
	utils.WriteJSON(w, http.StatusOK, utils.MessageResponse{Message: "Logged out successfully"})
}

// Me runs behind SessionMiddleware.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := utils.GetUserFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	utils.WriteJSON(w, http.StatusOK, UserResponse{User: user})
}
