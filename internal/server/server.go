// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"street-food-scanner/internal/imagedata"
	"street-food-scanner/internal/logger"
	"street-food-scanner/internal/models"
	"street-food-scanner/internal/scanner"
)

const (
	maxImageBytes    = 10 << 20
	defaultScanLimit = 20
	maxScanLimit     = 100
)

// ScanLister reads scan history. A nil ScanLister disables the history endpoints.
type ScanLister interface {
	GetScans(ctx context.Context, outcome string, limit int) ([]*models.Scan, error)
}

type FoodScannerServer struct {
	info       protocol.Implementation
	httpServer *http.Server
	storage    ScanLister
	scanner    *scanner.Scanner
	templates  *template.Template
	logger     logger.Logger
	tools      map[string]toolHandler
}

func NewFoodScannerServer(addr string, sc *scanner.Scanner, store ScanLister, log logger.Logger) (*FoodScannerServer, error) {
	if sc == nil {
		return nil, scanner.ErrUnconfigured
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &FoodScannerServer{
		info: protocol.Implementation{
			Name:    "street-food-scanner",
			Version: "1.0.0",
		},
		storage:   store,
		scanner:   sc,
		templates: tmpl,
		logger:    log.With(map[string]interface{}{"component": "server"}),
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

func (s *FoodScannerServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/scan", s.handleScanForm)
	mux.HandleFunc("/api/identify", s.handleIdentify)
	mux.HandleFunc("/api/scans", s.handleListScans)
	mux.HandleFunc("/mcp", s.handleMCP)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *FoodScannerServer) Start(ctx context.Context) error {
	s.logger.Info("starting food scanner server", map[string]interface{}{"addr": s.httpServer.Addr})
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *FoodScannerServer) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// handleIdentify accepts {"image": <base64 or data URL>, "mimeType": ..., "language": ...}.
func (s *FoodScannerServer) handleIdentify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.ScanRequest
	body := http.MaxBytesReader(w, r.Body, maxImageBytes*2)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %v", err))
		return
	}

	img, err := imagedata.FromBase64(req.ImageBase64, req.MimeType)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := s.scanner.Identify(r.Context(), img, scanner.Request{Language: req.Language, Source: "http"})
	s.writeJSON(w, http.StatusOK, result)
}

func (s *FoodScannerServer) handleListScans(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.storage == nil {
		s.writeJSONError(w, http.StatusNotFound, "scan history is disabled")
		return
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	scans, err := s.storage.GetScans(r.Context(), r.URL.Query().Get("outcome"), limit)
	if err != nil {
		s.logger.WithError(err).Error("failed to list scans", nil)
		s.writeJSONError(w, http.StatusInternalServerError, "failed to retrieve scans")
		return
	}
	s.writeJSON(w, http.StatusOK, scans)
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultScanLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit: %q", raw)
	}
	if limit > maxScanLimit {
		limit = maxScanLimit
	}
	return limit, nil
}

func (s *FoodScannerServer) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Warn("failed to encode response", nil)
	}
}

func (s *FoodScannerServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func readUpload(r *http.Request) (*imagedata.Image, error) {
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		return nil, fmt.Errorf("invalid upload: %w", err)
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, fmt.Errorf("missing image: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(raw) > maxImageBytes {
		return nil, errors.New("image is larger than 10 MB")
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType != imagedata.MimePNG && mimeType != imagedata.MimeJPEG {
		mimeType = imagedata.MimeTypeFor(header.Filename)
	}
	return imagedata.FromBytes(raw, mimeType)
}
