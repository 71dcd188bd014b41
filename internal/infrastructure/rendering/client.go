// Package rendering talks to the external structure depiction service,
// which turns structure identifiers into raster images.  Depiction is an
// optional pipeline stage; callers probe Available before using it and fall
// back to text-only output when the service is absent.
package rendering

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/turtacn/ChemRoute-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/ChemRoute-Intelligence/pkg/errors"
)

const (
	depictEndpoint = "/v1/depict"
	parseEndpoint  = "/v1/parse"
	healthPath     = "/health"
)

// Renderer is the depiction interface the image stage depends on.
type Renderer interface {
	// Available reports whether the depiction service can be used at all.
	Available(ctx context.Context) bool

	// Parse validates a structure identifier without producing an image.
	// An unparsable identifier returns ErrCodeRenderUnparsable.
	Parse(ctx context.Context, smiles string) error

	// Depict renders the identifier to PNG bytes at the configured size.
	Depict(ctx context.Context, smiles string) ([]byte, error)
}

// Config holds the connection parameters for the depiction service.
type Config struct {
	BaseURL string
	Timeout time.Duration

	// Width and Height are the raster dimensions requested per structure.
	Width  int
	Height int
}

type client struct {
	config     Config
	httpClient *http.Client
	logger     logging.Logger
}

// NewClient returns a Renderer backed by the HTTP service at cfg.BaseURL.
func NewClient(cfg Config, logger logging.Logger) Renderer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.Named("rendering"),
	}
}

func (c *client) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+healthPath, nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("depiction service not reachable", logging.Err(err))
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (c *client) Parse(ctx context.Context, smiles string) error {
	resp, err := c.post(ctx, parseEndpoint, map[string]any{"smiles": smiles})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkStatus(resp, smiles)
}

func (c *client) Depict(ctx context.Context, smiles string) ([]byte, error) {
	resp, err := c.post(ctx, depictEndpoint, map[string]any{
		"smiles": smiles,
		"width":  c.config.Width,
		"height": c.config.Height,
		"format": "png",
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp, smiles); err != nil {
		return nil, err
	}

	image, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeRenderFailed, "failed to read depiction response")
	}
	if len(image) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeRenderFailed, "depiction service returned an empty image")
	}
	return image, nil
}

func (c *client) post(ctx context.Context, endpoint string, payload map[string]any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to encode depiction request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to build depiction request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeRenderUnavailable, "depiction service unreachable")
	}
	return resp, nil
}

// checkStatus maps service status codes onto pipeline error codes.  A 422
// means the identifier itself is bad; everything else non-2xx is a service
// fault.
func (c *client) checkStatus(resp *http.Response, smiles string) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return apperrors.New(apperrors.ErrCodeRenderUnparsable,
			fmt.Sprintf("structure identifier rejected: %s", truncateIdentifier(smiles)))
	case resp.StatusCode >= 500:
		return apperrors.New(apperrors.ErrCodeRenderUnavailable,
			fmt.Sprintf("depiction service returned status %d", resp.StatusCode))
	default:
		return apperrors.New(apperrors.ErrCodeRenderFailed,
			fmt.Sprintf("depiction request rejected: status %d", resp.StatusCode))
	}
}

func truncateIdentifier(s string) string {
	const max = 50
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
