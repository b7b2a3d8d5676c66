package utils

import (
	"context"

	"github.com/EngCalc/calc-backend/internal/storage"
)

type contextKey string

const ContextUserKey contextKey = "user"

// WithUser attaches the authenticated user to ctx.
func WithUser(ctx context.Context, u *storage.User) context.Context {
	return context.WithValue(ctx, ContextUserKey, u)
}

func GetUserFromContext(ctx context.Context) (*storage.User, bool) {
	u, ok := ctx.Value(ContextUserKey).(*storage.User)
	return u, ok && u != nil
}

func GetUserIDFromContext(ctx context.Context) (string, bool) {
	u, ok := GetUserFromContext(ctx)
	if !ok {
		return "", false
	}
	return u.ID, true
}
