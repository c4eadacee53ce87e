package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"mamarr/internal/config"
	"mamarr/internal/core"
	"mamarr/internal/database"
	"mamarr/internal/handlers"
	"mamarr/internal/utils"
)

func main() {
	configPath := flag.String("config", "config.yml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Initialize logger
	logger := utils.NewLogger(cfg.App.Debug)

	// Initialize database and layer persisted overrides on top of the file
	db, err := database.NewSQLite(cfg.Database.Path)
	if err != nil {
		logger.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	settings, err := database.NewSettingsStore(db)
	if err != nil {
		logger.Fatal("Failed to initialize settings store:", err)
	}
	overrides, err := settings.Load()
	if err != nil {
		logger.Fatal("Failed to load persisted settings:", err)
	}
	if err := cfg.ApplyOverrides(overrides); err != nil {
		logger.Fatal("Persisted settings are invalid:", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration:", err)
	}

	// Create manager
	manager, err := core.NewManager(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize manager:", err)
	}
	manager.Start()

	// rebuild re-reads the config file, layers overrides and starts a fresh
	// manager; the server swaps it in
	rebuild := func(overrides map[string]string) (*core.Manager, error) {
		fresh, err := config.Load(*configPath)
		if err != nil {
			return nil, err
		}
		if err := fresh.ApplyOverrides(overrides); err != nil {
			return nil, err
		}
		if err := fresh.Validate(); err != nil {
			return nil, err
		}
		*cfg = *fresh
		replacement, err := core.NewManager(cfg, logger)
		if err != nil {
			return nil, err
		}
		replacement.Start()
		return replacement, nil
	}

	// Start web server
	server := handlers.NewServer(cfg, manager, settings, rebuild, logger)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start:", err)
		}
	}()

	go watchConfig(*configPath, settings, server, logger)

	logger.Info("mamarr started successfully on port", cfg.App.Port)

	// Wait for interrupt
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	logger.Info("Shutting down...")
	server.Manager().Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	server.Stop(ctx)
}

// watchConfig rebuilds the manager when the config file changes on disk.
// Editors replace files rather than write in place, so the parent directory
// is watched and events are debounced.
func watchConfig(configPath string, settings *database.SettingsStore, server *handlers.Server, logger *utils.Logger) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("Config watch disabled:", err)
		return
	}
	defer watcher.Close()

	dir := filepath.Dir(configPath)
	if err := watcher.Add(dir); err != nil {
		logger.Warn("Config watch disabled:", err)
		return
	}

	target := filepath.Clean(configPath)
	var lastReload time.Time
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if time.Since(lastReload) < time.Second {
				continue
			}
			lastReload = time.Now()

			logger.Info("Config file changed, reloading")
			overrides, err := settings.Load()
			if err != nil {
				logger.Error("Config reload failed:", err)
				continue
			}
			if err := server.ApplySettings(overrides); err != nil {
				logger.Error("Config reload failed:", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Config watcher error:", err)
		}
	}
}
