package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/agenthands/supplychain/internal/app"
	"github.com/agenthands/supplychain/internal/config"
	"github.com/agenthands/supplychain/internal/logger"
	"github.com/agenthands/supplychain/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	cfg, err := config.LoadOrDefault("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	ctx := context.Background()
	a, err := app.New(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("Failed to initialize application", "error", err)
	}
	defer func() {
		if err := a.Close(ctx); err != nil {
			zl.Warn("Failed to close driver", "error", err)
		}
	}()

	srv := server.NewServer(a.Agent, a.Toolbox, zl)
	r := srv.SetupRouter()

	zl.Info("Starting server", "port", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		zl.Fatal("Server stopped", "error", err)
	}
}
