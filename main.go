package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"oriontv/api"
	"oriontv/config"
	"oriontv/handlers"
	"oriontv/services/probe"
	"oriontv/services/provider"
	"oriontv/services/search"
	"oriontv/services/store"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	portOverride := flag.Int("port", 0, "override server port from config")
	flag.Parse()

	// Determine config path (env or default)
	configPath := os.Getenv("ORIONTV_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("cache", "settings.json")
	}

	// Init config manager and load settings (creates defaults if missing)
	cfgManager := config.NewManager(configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	// Set up file logging with rotation
	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			log.Printf("Warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSize,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAge,
				Compress:   settings.Log.Compress,
			}
			// Redirect standard log to both console and file
			multiWriter := io.MultiWriter(os.Stdout, fileWriter)
			log.SetOutput(multiWriter)
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.Printf("Logging to file: %s", settings.Log.File)
		}
	}

	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	// Wire services
	storeService, err := store.NewService(afero.NewOsFs(), settings.Storage.Directory)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}
	providerClient := provider.NewClient(settings.API.BaseURL, &http.Client{
		Timeout: time.Duration(settings.API.TimeoutSeconds) * time.Second,
	})
	prober := probe.NewProber(&http.Client{
		Timeout: time.Duration(settings.Probe.TimeoutSeconds) * time.Second,
	}, int64(settings.Probe.SampleBytes))
	searchService := search.NewService(cfgManager, providerClient, prober, storeService)

	// Construct router and register API routes
	r := mux.NewRouter()
	searchHandler := handlers.NewSearchHandler(searchService, storeService)
	libraryHandler := handlers.NewLibraryHandler(storeService)
	settingsHandler := handlers.NewSettingsHandler(cfgManager)
	api.Register(r, searchHandler, libraryHandler, settingsHandler)

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("shutdown signal received, cleaning up...")

	// Abort any in-flight search before the server drains
	searchService.CancelActiveSearch()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("shutdown complete")
}
