package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prospectwatch-client/infrastructure/config"
	"prospectwatch-client/interfaces/http/mockapi"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	addr := flag.String("addr", cfg.MockListenAddr, "listen address")
	fixture := flag.String("fixture", "", "path to a YAML fixture file")
	secret := flag.String("jwt-secret", "prospectwatch-mock", "HS256 signing secret for issued tokens")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}

	state := mockapi.NewState(*secret)
	if *fixture != "" {
		if err := state.LoadFixture(*fixture); err != nil {
			logger.Fatal("Failed to load fixture", zap.Error(err))
		}
		logger.Info("Loaded fixture", zap.String("path", *fixture))
	}

	srv := &http.Server{
		Addr:         *addr,
		Handler:      mockapi.NewServer(state, logger).Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting mock API", zap.String("address", *addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down mock API...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	_ = logger.Sync()
}
