// internal/gemini/client.go
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"street-food-scanner/internal/imagedata"
	"street-food-scanner/internal/logger"
	"street-food-scanner/internal/metrics"
)

var (
	ErrMissingAPIKey = errors.New("gemini: api key is required")
	ErrEmptyResponse = errors.New("gemini: response contained no text")
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.5-flash"
	defaultTimeout = 60 * time.Second
)

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client calls the generateContent endpoint. It never retries.
type Client struct {
	http    *resty.Client
	apiKey  string
	model   string
	baseURL string
	logger  logger.Logger
}

// NewClient is the only way to obtain a Client, so a missing key fails here and
// no request can be built without one.
func NewClient(cfg Config, log logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	client.SetRetryCount(0)

	return &Client{
		http:    client,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  log.With(map[string]interface{}{"component": "gemini", "model": cfg.Model}),
	}, nil
}

func (c *Client) Model() string {
	return c.model
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// GenerateContent sends the prompt and one inline image and returns the reply text,
// with all text parts of the first candidate joined.
func (c *Client) GenerateContent(ctx context.Context, prompt string, img *imagedata.Image) (string, error) {
	if img == nil {
		return "", imagedata.ErrEmptyImage
	}

	body := generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: prompt},
				{InlineData: &inlineData{MimeType: img.MimeType, Data: img.Data}},
			},
		}},
	}

	var result generateResponse
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-goog-api-key", c.apiKey).
		SetBody(body).
		SetResult(&result).
		Post(fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model))
	elapsed := time.Since(start)

	if err != nil {
		metrics.GeminiRequestsTotal.WithLabelValues("transport_error").Inc()
		c.logger.WithError(err).Warn("generateContent request failed", map[string]interface{}{
			"elapsed_ms": elapsed.Milliseconds(),
		})
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		metrics.GeminiRequestsTotal.WithLabelValues("http_error").Inc()
		c.logger.Warn("generateContent returned error status", map[string]interface{}{
			"status":     resp.StatusCode(),
			"elapsed_ms": elapsed.Milliseconds(),
		})
		return "", fmt.Errorf("gemini request failed with status %d: %s", resp.StatusCode(), errorMessage(resp.Body()))
	}

	text, err := result.text()
	if err != nil {
		metrics.GeminiRequestsTotal.WithLabelValues("empty").Inc()
		return "", err
	}

	metrics.GeminiRequestsTotal.WithLabelValues("ok").Inc()
	c.logger.Debug("generateContent succeeded", map[string]interface{}{
		"elapsed_ms": elapsed.Milliseconds(),
		"chars":      len(text),
	})
	return text, nil
}

func (r *generateResponse) text() (string, error) {
	if r.PromptFeedback != nil && r.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("gemini: prompt blocked: %s", r.PromptFeedback.BlockReason)
	}
	if len(r.Candidates) == 0 {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

// errorMessage prefers the structured Google error message over the raw body.
func errorMessage(body []byte) string {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "empty response body"
	}
	return msg
}
