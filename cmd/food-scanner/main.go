// cmd/food-scanner/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"street-food-scanner/internal/config"
	"street-food-scanner/internal/extract"
	"street-food-scanner/internal/gemini"
	"street-food-scanner/internal/imagedata"
	"street-food-scanner/internal/logger"
	"street-food-scanner/internal/scanner"
	"street-food-scanner/internal/storage"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitConfig = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("food-scanner", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to an optional YAML config file")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: food-scanner [-config file] <image-path> [language]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitFailed
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return exitFailed
	}
	imagePath := fs.Arg(0)
	language := scanner.DefaultLanguage
	if fs.NArg() > 1 {
		language = fs.Arg(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return exitConfig
	}

	zapLog, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return exitConfig
	}
	log := logger.NewZapAdapter(zapLog)
	defer log.Sync()

	img, err := imagedata.LoadFile(imagePath)
	if err != nil {
		if errors.Is(err, imagedata.ErrNotFound) {
			fmt.Fprintf(stderr, "Error: Image not found: %s\n", imagePath)
		} else {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return exitFailed
	}

	sc, closeStore, err := newScanner(cfg, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitConfig
	}
	defer closeStore()

	result := sc.Identify(ctx, img, scanner.Request{Language: language, Source: "cli"})

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to encode result: %v\n", err)
		return exitFailed
	}
	fmt.Fprintln(stdout, string(out))

	if !result.Success {
		return exitFailed
	}
	return exitOK
}

// newScanner wires the model client, extraction policy and optional scan history.
func newScanner(cfg *config.Config, log logger.Logger) (*scanner.Scanner, func(), error) {
	client, err := gemini.NewClient(gemini.Config{
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		BaseURL: cfg.Gemini.BaseURL,
		Timeout: cfg.Gemini.Timeout,
	}, log)
	if err != nil {
		return nil, nil, err
	}

	opts := []scanner.Option{scanner.WithRequestsPerMinute(cfg.Scanner.RequestsPerMinute)}
	if cfg.Scanner.StrictValidation {
		v, err := extract.NewValidator()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build validator: %w", err)
		}
		opts = append(opts, scanner.WithExtractor(extract.New(extract.WithStrictValidation(v))))
	}

	closeStore := func() {}
	if cfg.Storage.DBPath != "" {
		store, err := storage.NewSQLiteStorage(cfg.Storage.DBPath)
		if err != nil {
			log.WithError(err).Warn("scan history disabled", map[string]interface{}{"db_path": cfg.Storage.DBPath})
		} else {
			opts = append(opts, scanner.WithRecorder(store))
			closeStore = func() { store.Close() }
		}
	}

	sc, err := scanner.New(client, log, opts...)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return sc, closeStore, nil
}
