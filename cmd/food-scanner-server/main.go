// cmd/food-scanner-server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"street-food-scanner/internal/config"
	"street-food-scanner/internal/extract"
	"street-food-scanner/internal/gemini"
	"street-food-scanner/internal/logger"
	"street-food-scanner/internal/scanner"
	"street-food-scanner/internal/server"
	"street-food-scanner/internal/storage"
)

var (
	configPath = flag.String("config", "", "Path to an optional YAML config file")
	version    = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Println("food-scanner-server version 1.0.0")
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logr := logger.NewStructured(cfg.Log.Level, cfg.Log.Format)
	defer logr.Sync()

	client, err := gemini.NewClient(gemini.Config{
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		BaseURL: cfg.Gemini.BaseURL,
		Timeout: cfg.Gemini.Timeout,
	}, logr)
	if err != nil {
		log.Fatalf("Failed to create Gemini client: %v", err)
	}
	logr.Info("gemini client ready", map[string]interface{}{"model": client.Model()})

	opts := []scanner.Option{scanner.WithRequestsPerMinute(cfg.Scanner.RequestsPerMinute)}
	if cfg.Scanner.StrictValidation {
		v, err := extract.NewValidator()
		if err != nil {
			log.Fatalf("Failed to build validator: %v", err)
		}
		opts = append(opts, scanner.WithExtractor(extract.New(extract.WithStrictValidation(v))))
	}

	// A nil lister keeps the history endpoints disabled.
	var history server.ScanLister
	if cfg.Storage.DBPath != "" {
		store, err := storage.NewSQLiteStorage(cfg.Storage.DBPath)
		if err != nil {
			log.Fatalf("Failed to initialize storage: %v", err)
		}
		defer store.Close()
		opts = append(opts, scanner.WithRecorder(store))
		history = store
	}

	sc, err := scanner.New(client, logr, opts...)
	if err != nil {
		log.Fatalf("Failed to create scanner: %v", err)
	}

	srv, err := server.NewFoodScannerServer(cfg.Server.Addr(), sc, history, logr)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-sigCh:
		logr.Info("received shutdown signal", nil)
	case err := <-errCh:
		logr.WithError(err).Error("server error", nil)
	}

	logr.Info("shutting down", nil)
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logr.WithError(err).Error("error during shutdown", nil)
	}
}
