package auth

import "github.com/EngCalc/calc-backend/internal/storage"

type RegisterRequest struct {
	Username  string       `json:"username" validate:"required"`
	Email     string       `json:"email" validate:"required,email"`
	Password  string       `json:"password" validate:"required,min=6"`
	FirstName *string      `json:"firstName"`
	LastName  *string      `json:"lastName"`
	Role      storage.Role `json:"role" validate:"omitempty,oneof=student faculty admin"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UserResponse wraps a user for the auth endpoints. The password hash never
// leaves the server: storage.User does not serialize it.
type UserResponse struct {
	User *storage.User `json:"user"`
}
