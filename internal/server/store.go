package server

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/EngCalc/calc-backend/internal/config"
	"github.com/EngCalc/calc-backend/internal/db"
	"github.com/EngCalc/calc-backend/internal/storage"
	"github.com/redis/go-redis/v9"
)

// OpenStore builds the store named by cfg. The returned close func releases
// every connection it opened.
func OpenStore(ctx context.Context, cfg *config.Config) (storage.Store, func() error, error) {
	var (
		store   storage.Store
		closers []func() error
	)
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	switch cfg.Storage.Driver {
	case config.DriverMemory:
		store = storage.NewMemoryStore()
		log.Println("[storage] using in-memory store")
	case config.DriverPostgres:
		gdb, err := db.Connect(cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("database handle: %w", err)
		}
		closers = append(closers, sqlDB.Close)

		if err := storage.Migrate(gdb.WithContext(ctx)); err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		store = storage.NewGormStore(gdb)
		log.Println("[storage] using postgres store")
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	if cfg.SessionDriver() == config.DriverRedis {
		opts, err := redis.ParseURL(cfg.Storage.RedisURL)
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		closers = append(closers, client.Close)

		if err := client.Ping(ctx).Err(); err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		store = storage.WithSessions(store, storage.NewRedisSessionStore(client))
		log.Println("[storage] sessions stored in redis")
	}

	return store, closeAll, nil
}
