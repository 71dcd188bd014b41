// Package recognition talks to the external reaction-recognition service.
// The service accepts a PDF upload and returns, per page, the reaction
// diagrams it recognized with their species identifiers.
package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/turtacn/ChemRoute-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/ChemRoute-Intelligence/pkg/errors"
)

const (
	extractEndpoint = "/v1/reactions/extract"
	healthEndpoint  = "/health"

	retryBaseDelay = 500 * time.Millisecond
)

// Recognizer is the interface the pipeline depends on; the HTTP client below
// is its production implementation.
type Recognizer interface {
	// ExtractReactions uploads the PDF at pdfPath and returns the per-page
	// recognition results for up to numPages pages.
	ExtractReactions(ctx context.Context, pdfPath string, numPages int) ([]FigureResult, error)

	// Health reports whether the service is reachable and ready.
	Health(ctx context.Context) error
}

// Config holds the connection parameters for the recognition service.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int

	// MolScribe requests per-species structure recognition; OCR requests
	// text recognition inside figures.
	MolScribe bool
	OCR       bool
}

type client struct {
	config     Config
	httpClient *http.Client
	logger     logging.Logger
}

// NewClient returns a Recognizer backed by the HTTP service at cfg.BaseURL.
func NewClient(cfg Config, logger logging.Logger) Recognizer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.Named("recognition"),
	}
}

func (c *client) ExtractReactions(ctx context.Context, pdfPath string, numPages int) ([]FigureResult, error) {
	payload, contentType, err := c.buildUpload(pdfPath, numPages)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		results, err := c.extractOnce(ctx, payload, contentType)
		if err == nil {
			return results, nil
		}
		lastErr = err
		if !apperrors.IsCode(err, apperrors.ErrCodeRecognitionUnavailable) {
			return nil, err
		}
		if attempt < c.config.MaxRetries {
			delay := retryBaseDelay * time.Duration(math.Pow(2, float64(attempt)))
			c.logger.Warn("recognition request failed, retrying",
				logging.Int("attempt", attempt+1),
				logging.Duration("delay", delay),
				logging.Err(err))
			select {
			case <-ctx.Done():
				return nil, apperrors.Wrap(ctx.Err(), apperrors.ErrCodeTimeout, "recognition request cancelled")
			case <-time.After(delay):
			}
		}
	}
	return nil, lastErr
}

func (c *client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+healthEndpoint, nil)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to build health request")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeRecognitionUnavailable, "recognition service unreachable")
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.New(apperrors.ErrCodeRecognitionUnavailable,
			fmt.Sprintf("recognition service unhealthy: status %d", resp.StatusCode))
	}
	return nil
}

// buildUpload assembles the multipart body once so retries do not re-read
// the file.
func (c *client) buildUpload(pdfPath string, numPages int) ([]byte, string, error) {
	fileContent, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, "", apperrors.Wrap(err, apperrors.ErrCodePDFOpenFailed,
			fmt.Sprintf("failed to read %s", filepath.Base(pdfPath)))
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	fileField, err := writer.CreateFormFile("file", filepath.Base(pdfPath))
	if err != nil {
		return nil, "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to build upload form")
	}
	if _, err := io.Copy(fileField, bytes.NewReader(fileContent)); err != nil {
		return nil, "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to build upload form")
	}

	fields := map[string]string{
		"num_pages": strconv.Itoa(numPages),
		"molscribe": strconv.FormatBool(c.config.MolScribe),
		"ocr":       strconv.FormatBool(c.config.OCR),
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to build upload form")
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to build upload form")
	}
	return body.Bytes(), writer.FormDataContentType(), nil
}

func (c *client) extractOnce(ctx context.Context, payload []byte, contentType string) ([]FigureResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+extractEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to build extraction request")
	}
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeRecognitionUnavailable, "recognition service unreachable")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, apperrors.New(apperrors.ErrCodeRecognitionUnavailable,
			fmt.Sprintf("recognition service returned status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, apperrors.New(apperrors.ErrCodeRecognitionFailed,
			fmt.Sprintf("recognition request rejected: status %d", resp.StatusCode)).
			WithDetail(string(detail))
	}

	var results []FigureResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeRecognitionBadResponse,
			"failed to decode recognition response")
	}

	c.logger.Debug("recognition completed",
		logging.Int("figures", len(results)),
		logging.Duration("elapsed", time.Since(start)))
	return results, nil
}
