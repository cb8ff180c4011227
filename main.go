package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"showsync/api"
	"showsync/config"
	"showsync/handlers"
	"showsync/services/catalog"
	"showsync/services/scheduler"
)

func main() {
	portOverride := flag.Int("port", 0, "override server port from config")
	flag.Parse()

	fmt.Println("showsync starting...")

	// Determine config path (env or default)
	configPath := os.Getenv("SHOWSYNC_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("data", "settings.json")
	}

	// Init config manager and load settings (creates defaults if missing)
	cfgManager := config.NewManager(configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	// Set up file logging with rotation
	logWriter := io.Writer(os.Stdout)
	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			log.Printf("warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSize,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAge,
				Compress:   settings.Log.Compress,
			}
			logWriter = io.MultiWriter(os.Stdout, fileWriter)
			log.SetOutput(logWriter)
			log.Printf("logging to file: %s", settings.Log.File)
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, nil))
	slog.SetDefault(logger)

	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	if settings.Origin.APIKey == "" {
		log.Printf("warning: no origin API key configured; only cached data will be served")
	}

	// Open the catalog store and apply migrations
	if dir := filepath.Dir(settings.Database.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("failed to create database directory: %v", err)
		}
	}
	store, err := catalog.OpenStore(settings.Database.Path)
	if err != nil {
		log.Fatalf("failed to open catalog store: %v", err)
	}
	defer store.Close()

	// Wire the sync coordinator
	origin := catalog.NewOriginClient(settings.Origin.BaseURL, settings.Origin.APIKey, settings.Origin.Language, nil)
	catalogService := catalog.NewService(store, origin, logger.With("component", "catalog"))
	catalogService.SetMaxAge(time.Duration(settings.Cache.MaxAgeDays) * 24 * time.Hour)
	catalogService.SetPopulateTopN(settings.Cache.PopulateTopN)

	// Scheduled maintenance
	schedulerService := scheduler.NewService(cfgManager, catalogService, logger.With("component", "scheduler"))
	if settings.Maintenance.Enabled {
		if err := schedulerService.Start(context.Background()); err != nil {
			log.Printf("warning: failed to start maintenance scheduler: %v", err)
		}
	}

	// Register API routes
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	maintenanceHandler := handlers.NewMaintenanceHandler(catalogService)
	r := api.NewRouter(catalogHandler, maintenanceHandler)

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	fmt.Printf("server starting on %s\n", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Setup graceful shutdown
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("shutdown signal received, cleaning up...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := schedulerService.Stop(shutdownCtx); err != nil {
		log.Printf("scheduler shutdown error: %v", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	log.Println("shutdown complete")
}
