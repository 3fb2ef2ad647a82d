// internal/scanner/scanner.go
package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"street-food-scanner/internal/extract"
	"street-food-scanner/internal/imagedata"
	"street-food-scanner/internal/logger"
	"street-food-scanner/internal/metrics"
	"street-food-scanner/internal/models"
	"street-food-scanner/internal/prompt"
)

const (
	DefaultLanguage = "en"
	tracerName      = "street-food-scanner/scanner"
)

var ErrUnconfigured = errors.New("scanner: model client is not configured")

// Generator is the upstream multimodal model call.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string, img *imagedata.Image) (string, error)
}

// modelNamer is implemented by generators that report which model they call.
type modelNamer interface {
	Model() string
}

// Recorder persists finished scans. Failures are logged and never change the result.
type Recorder interface {
	SaveScan(ctx context.Context, scan *models.Scan) error
}

type Scanner struct {
	generator Generator
	model     string
	extractor *extract.Extractor
	recorder  Recorder
	limiter   *rate.Limiter
	logger    logger.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

type Option func(*Scanner)

func WithExtractor(e *extract.Extractor) Option {
	return func(s *Scanner) {
		s.extractor = e
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Scanner) {
		s.recorder = r
	}
}

// WithTracerProvider overrides the global OpenTelemetry provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Scanner) {
		s.tracer = tp.Tracer(tracerName)
	}
}

// WithRequestsPerMinute paces outbound model calls. Zero or less disables pacing.
func WithRequestsPerMinute(rpm float64) Option {
	return func(s *Scanner) {
		if rpm > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(rpm/60), 1)
		}
	}
}

func New(gen Generator, log logger.Logger, opts ...Option) (*Scanner, error) {
	if gen == nil {
		return nil, ErrUnconfigured
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	s := &Scanner{
		generator: gen,
		extractor: extract.New(),
		logger:    log.With(map[string]interface{}{"component": "scanner"}),
		tracer:    otel.Tracer(tracerName),
		now:       time.Now,
	}
	if m, ok := gen.(modelNamer); ok {
		s.model = m.Model()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type Request struct {
	Language string
	Source   string
}

// Identify runs one scan: a single model call, extraction, and the mapping to the
// wire result. It never retries and always returns a result.
func (s *Scanner) Identify(ctx context.Context, img *imagedata.Image, req Request) *models.ScanResult {
	if req.Language == "" {
		req.Language = DefaultLanguage
	}
	start := s.now()
	log := s.logger.With(map[string]interface{}{
		"source":   req.Source,
		"language": req.Language,
		"model":    s.model,
	})

	ctx, span := s.tracer.Start(ctx, "scanner.Identify", trace.WithAttributes(
		attribute.String("scan.source", req.Source),
		attribute.String("scan.language", req.Language),
		attribute.String("scan.model", s.model),
	))
	defer span.End()

	result := s.identify(ctx, img, log)

	span.SetAttributes(attribute.String("scan.outcome", result.Code()))
	if result.Error != nil && result.Error.Code == models.ErrCodeAPIError {
		span.SetStatus(codes.Error, result.Error.Message)
	}

	metrics.ScansTotal.WithLabelValues(result.Code()).Inc()
	metrics.ScanDuration.WithLabelValues(req.Source).Observe(s.now().Sub(start).Seconds())

	s.record(ctx, img, req, result, log)
	return result
}

func (s *Scanner) identify(ctx context.Context, img *imagedata.Image, log logger.Logger) *models.ScanResult {
	if img == nil {
		return models.APIErrorResult(imagedata.ErrEmptyImage)
	}
	log.Info("identifying food", map[string]interface{}{
		"mime_type":   img.MimeType,
		"image_bytes": img.Size,
	})

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			log.WithError(err).Warn("rate limit wait aborted", nil)
			return models.APIErrorResult(fmt.Errorf("rate limit wait aborted: %w", err))
		}
	}

	text, err := s.generator.GenerateContent(ctx, prompt.Food, img)
	if err != nil {
		log.WithError(err).Error("model call failed", nil)
		return models.APIErrorResult(err)
	}

	out := s.extractor.Extract(text)
	log.Info("model reply extracted", map[string]interface{}{
		"outcome": out.Kind.String(),
	})

	switch out.Kind {
	case extract.KindSuccess:
		return models.SuccessResult(out.Record)
	case extract.KindNotFood:
		return models.NotFoodResult()
	default:
		log.Debug("malformed model reply", map[string]interface{}{
			"reason": out.Reason,
			"reply":  truncate(text, 500),
		})
		return models.APIErrorResult(out.Err())
	}
}

func (s *Scanner) record(ctx context.Context, img *imagedata.Image, req Request, result *models.ScanResult, log logger.Logger) {
	if s.recorder == nil {
		return
	}

	scan := &models.Scan{
		ID:        uuid.NewString(),
		Language:  req.Language,
		Source:    req.Source,
		Outcome:   result.Code(),
		Record:    result.Data,
		CreatedAt: s.now(),
	}
	if img != nil {
		scan.MimeType = img.MimeType
	}
	if result.Error != nil {
		scan.Message = result.Error.Message
	}

	// The request context may already be cancelled; history is still written.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.recorder.SaveScan(saveCtx, scan); err != nil {
		log.WithError(err).Warn("failed to save scan history", map[string]interface{}{"scan_id": scan.ID})
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
