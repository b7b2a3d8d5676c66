package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/EngCalc/calc-backend/internal/config"
	"github.com/EngCalc/calc-backend/internal/seeds"
	"github.com/EngCalc/calc-backend/internal/server"
)

var openStore = server.OpenStore

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
}

// run seeds the configured store and closes it on every path.
func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	username := fs.String("username", "demo", "demo account username")
	email := fs.String("email", "demo@example.com", "demo account email")
	password := fs.String("password", "demo123", "demo account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Storage.Driver == config.DriverMemory {
		log.Println("⚠️ STORAGE_DRIVER=memory, seeded data is gone when this process exits")
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Printf("[storage] close: %v", err)
		}
	}()

	return seeds.SeedAll(ctx, store, seeds.Options{
		Username:   *username,
		Email:      *email,
		Password:   *password,
		BcryptCost: cfg.Auth.BcryptCost,
	})
}
