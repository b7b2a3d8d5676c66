package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/EngCalc/calc-backend/internal/config"
	"github.com/EngCalc/calc-backend/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := server.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Printf("[storage] close: %v", err)
		}
	}()

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           server.NewRouter(cfg, store, nil),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("Server listening on port :%s (%s)...", cfg.Server.Port, cfg.App.Environment)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[http] %v", err)
		}
		return
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[http] shutdown: %v", err)
	}
}
