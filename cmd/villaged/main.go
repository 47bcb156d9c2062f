package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/lawnchairsociety/villagegen/internal/config"
	"github.com/lawnchairsociety/villagegen/internal/database"
	"github.com/lawnchairsociety/villagegen/internal/logger"
	"github.com/lawnchairsociety/villagegen/internal/playback"
	"github.com/lawnchairsociety/villagegen/internal/village"
)

func main() {
	configFile := flag.String("config", "village.yaml", "Path to village config YAML file")
	listen := flag.String("listen", "", "HTTP listen address (overrides playback.listen)")
	flag.Parse()

	// Initialize logger first (before any logging)
	logConfig, err := logger.LoadConfig(*configFile)
	if err != nil {
		log.Printf("Failed to load logging config, using defaults: %v", err)
	}
	if err := logger.Initialize(logConfig); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}

	logger.Info("Starting village playback server")

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *listen != "" {
		cfg.Playback.Listen = *listen
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	var journal village.Journal
	if cfg.Journal.Enabled {
		db, err := database.Open(cfg.Journal.Database())
		if err != nil {
			log.Fatalf("Failed to open run journal: %v", err)
		}
		defer db.Close()
		journal = db
		logger.Info("Run journal initialized", "driver", cfg.Journal.Driver)
	} else {
		logger.Info("Run journal disabled")
	}

	srv := playback.NewServer(cfg.Playback, village.NewService(cfg, journal))

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("Playback server stopped", "error", err)
		os.Exit(1)
	}

	logger.Info("Server shutdown complete")
}
