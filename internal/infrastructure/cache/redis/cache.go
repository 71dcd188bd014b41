// Package redis caches recognition results so reprocessing a PDF does not
// re-run the expensive model call.  The cache is a decorator around the
// recognition client; cache faults degrade to a direct service call and are
// never fatal.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/turtacn/ChemRoute-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemRoute-Intelligence/internal/infrastructure/recognition"
	apperrors "github.com/turtacn/ChemRoute-Intelligence/pkg/errors"
)

// Config holds the cache connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Prefix   string
}

// CachingRecognizer wraps a Recognizer with a Redis-backed result cache.
type CachingRecognizer struct {
	inner  recognition.Recognizer
	rdb    *goredis.Client
	config Config
	logger logging.Logger
}

// NewCachingRecognizer returns a Recognizer that consults Redis before
// calling inner and stores successful results with the configured TTL.
func NewCachingRecognizer(inner recognition.Recognizer, cfg Config, logger logging.Logger) *CachingRecognizer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &CachingRecognizer{
		inner:  inner,
		rdb:    rdb,
		config: cfg,
		logger: logger.Named("recognition_cache"),
	}
}

// Ping verifies the Redis connection.
func (c *CachingRecognizer) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeCacheError, "redis ping failed")
	}
	return nil
}

// Close releases the Redis connection.
func (c *CachingRecognizer) Close() error {
	return c.rdb.Close()
}

func (c *CachingRecognizer) ExtractReactions(ctx context.Context, pdfPath string, numPages int) ([]recognition.FigureResult, error) {
	key, err := c.cacheKey(pdfPath, numPages)
	if err != nil {
		// Unreadable file; let the inner client produce the real error.
		return c.inner.ExtractReactions(ctx, pdfPath, numPages)
	}

	if cached, ok := c.lookup(ctx, key); ok {
		c.logger.Debug("recognition cache hit", logging.String("key", key))
		return cached, nil
	}

	results, err := c.inner.ExtractReactions(ctx, pdfPath, numPages)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, results)
	return results, nil
}

func (c *CachingRecognizer) Health(ctx context.Context) error {
	return c.inner.Health(ctx)
}

// cacheKey hashes the file content together with the request parameters, so
// a changed file or a different page budget never reuses a stale entry.
func (c *CachingRecognizer) cacheKey(pdfPath string, numPages int) (string, error) {
	content, err := os.ReadFile(pdfPath)
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256(content)
	return fmt.Sprintf("%srecognition:%s:%d", c.config.Prefix, hex.EncodeToString(digest[:]), numPages), nil
}

func (c *CachingRecognizer) lookup(ctx context.Context, key string) ([]recognition.FigureResult, bool) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.logger.Warn("cache lookup failed", logging.Err(err))
		}
		return nil, false
	}
	var results []recognition.FigureResult
	if err := json.Unmarshal(raw, &results); err != nil {
		c.logger.Warn("discarding undecodable cache entry", logging.String("key", key), logging.Err(err))
		return nil, false
	}
	return results, true
}

func (c *CachingRecognizer) store(ctx context.Context, key string, results []recognition.FigureResult) {
	raw, err := json.Marshal(results)
	if err != nil {
		c.logger.Warn("failed to encode cache entry", logging.Err(err))
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.config.TTL).Err(); err != nil {
		c.logger.Warn("cache store failed", logging.Err(err))
	}
}
