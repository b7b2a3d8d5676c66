// Package seeds loads a demo account with sample calculations and a project.
package seeds

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/EngCalc/calc-backend/internal/auth"
	"github.com/EngCalc/calc-backend/internal/storage"
)

type Options struct {
	Username   string
	Email      string
	Password   string
	BcryptCost int
}

// SeedAll creates the demo user and its records. An existing demo user is
// left untouched, so running it twice is safe.
func SeedAll(ctx context.Context, store storage.Store, opts Options) error {
	user, created, err := SeedUser(ctx, store, opts)
	if err != nil {
		return err
	}
	if !created {
		log.Printf("⚠️ User exists, skipping: %s", user.Username)
		return nil
	}

	ids, err := SeedCalculations(ctx, store, user.ID)
	if err != nil {
		return err
	}
	return SeedProject(ctx, store, user.ID, ids)
}

func SeedUser(ctx context.Context, store storage.Store, opts Options) (*storage.User, bool, error) {
	existing, err := store.GetUserByUsername(ctx, opts.Username)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, fmt.Errorf("look up %s: %w", opts.Username, err)
	}

	hashed, err := auth.HashPassword(opts.Password, opts.BcryptCost)
	if err != nil {
		return nil, false, err
	}
	first, last := "Demo", "Student"
	user, err := store.CreateUser(ctx, storage.NewUser{
		Username:       opts.Username,
		Email:          opts.Email,
		HashedPassword: hashed,
		FirstName:      &first,
		LastName:       &last,
		Role:           storage.RoleStudent,
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to create user %s: %w", opts.Username, err)
	}

	log.Printf("✅ Seeded user %s", user.Username)
	return user, true, nil
}

func SeedProject(ctx context.Context, store storage.Store, userID string, calcIDs []string) error {
	desc := "Sample calculations for the demo account"
	if _, err := store.CreateProject(ctx, storage.NewProject{
		UserID:       &userID,
		Name:         "Demo project",
		Description:  &desc,
		Calculations: calcIDs,
	}); err != nil {
		return fmt.Errorf("failed to create demo project: %w", err)
	}

	log.Println("✅ Seeded demo project")
	return nil
}
