// Package config defines all configuration structures for the
// ChemRoute-Intelligence pipeline.  No I/O or parsing logic lives here — only
// plain data types and validation.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/ChemRoute-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemRoute-Intelligence/pkg/types/route"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// PipelineConfig holds the per-run processing parameters.  The CLI flags map
// onto this struct; flag values override file and environment settings.
type PipelineConfig struct {
	// OutputDir is the root under which per-document folders are created.
	OutputDir string `mapstructure:"output_dir"`

	// MaxPages bounds how many pages of each PDF are read and how many are
	// submitted to the recognition model.
	MaxPages int `mapstructure:"max_pages"`

	// GenerateImages toggles the rendering stage.  When false the stage is
	// skipped entirely and every record keeps images_generated=false.
	GenerateImages bool `mapstructure:"generate_images"`

	// IncludeSI includes supplementary-information files when scanning a
	// directory.  SIMarker is the filename substring that flags them.
	IncludeSI bool   `mapstructure:"include_si"`
	SIMarker  string `mapstructure:"si_marker"`

	// Language selects the document sections emitted: "en", "zh", or "both".
	Language string `mapstructure:"language"`

	// TemplatePath optionally seeds each assembled document from an existing
	// office document.
	TemplatePath string `mapstructure:"template_path"`

	// SaveRawData writes the per-document raw-data JSON artifact beside the
	// assembled document.
	SaveRawData bool `mapstructure:"save_raw_data"`
}

// ExtractorConfig holds the text-mining caps.  The fallback-line and
// description caps mirror the observed behaviour of the extraction heuristics
// and are deliberately configurable rather than hard-coded.
type ExtractorConfig struct {
	MaxFallbackLines        int `mapstructure:"max_fallback_lines"`
	MaxPhysicalProps        int `mapstructure:"max_physical_props"`
	MaxCompoundDescriptions int `mapstructure:"max_compound_descriptions"`
	DescriptionMaxChars     int `mapstructure:"description_max_chars"`
}

// RecognitionConfig holds connection parameters for the external
// reaction-recognition service.
type RecognitionConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`

	// MolScribe requests per-species structure recognition; OCR requests text
	// recognition inside figures.  Both are passed through to the service.
	MolScribe bool `mapstructure:"molscribe"`
	OCR       bool `mapstructure:"ocr"`
}

// RenderingConfig holds connection parameters for the external structure
// depiction service.
type RenderingConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`

	// Width and Height are the raster dimensions requested per structure.
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

// CacheConfig holds the optional Redis-backed recognition-result cache.
// Disabled by default; the pipeline is fully functional without it.
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
	Prefix   string        `mapstructure:"prefix"`
}

// StatusConfig holds the watch-mode status HTTP server settings.
type StatusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// WatchConfig holds watch-mode directory monitoring settings.
type WatchConfig struct {
	// Debounce is how long a newly seen file must stay unchanged before it is
	// queued, so partially copied PDFs are not processed.
	Debounce time.Duration `mapstructure:"debounce"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Config — top-level aggregate
// ─────────────────────────────────────────────────────────────────────────────

// Config is the full resolved configuration for one invocation.
type Config struct {
	Log         logging.LogConfig `mapstructure:"log"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline"`
	Extractor   ExtractorConfig   `mapstructure:"extractor"`
	Recognition RecognitionConfig `mapstructure:"recognition"`
	Rendering   RenderingConfig   `mapstructure:"rendering"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Status      StatusConfig      `mapstructure:"status"`
	Watch       WatchConfig       `mapstructure:"watch"`
}

// Validate checks cross-field consistency.  It is called after ApplyDefaults,
// so zero values that have defaults never reach it.
func (c *Config) Validate() error {
	if c.Pipeline.MaxPages <= 0 {
		return fmt.Errorf("pipeline.max_pages must be positive, got %d", c.Pipeline.MaxPages)
	}
	if !route.Language(c.Pipeline.Language).Valid() {
		return fmt.Errorf("pipeline.language must be one of en, zh, both; got %q", c.Pipeline.Language)
	}
	if c.Rendering.Width <= 0 || c.Rendering.Height <= 0 {
		return fmt.Errorf("rendering dimensions must be positive, got %dx%d", c.Rendering.Width, c.Rendering.Height)
	}
	if c.Extractor.MaxFallbackLines <= 0 {
		return fmt.Errorf("extractor.max_fallback_lines must be positive, got %d", c.Extractor.MaxFallbackLines)
	}
	if c.Extractor.MaxCompoundDescriptions < 0 {
		return fmt.Errorf("extractor.max_compound_descriptions must not be negative, got %d", c.Extractor.MaxCompoundDescriptions)
	}
	if c.Cache.Enabled && c.Cache.Addr == "" {
		return fmt.Errorf("cache.addr is required when the cache is enabled")
	}
	if c.Status.Enabled && c.Status.Addr == "" {
		return fmt.Errorf("status.addr is required when the status server is enabled")
	}
	return nil
}
