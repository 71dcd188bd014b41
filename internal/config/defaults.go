package config

import "time"

// Default value constants.  Explicit configuration always wins; these are
// applied only to zero-value fields.
const (
	DefaultOutputDir = "./results"
	DefaultMaxPages  = 5
	DefaultSIMarker  = "SI"
	DefaultLanguage  = "both"

	DefaultMaxFallbackLines        = 50
	DefaultMaxPhysicalProps        = 10
	DefaultMaxCompoundDescriptions = 5
	DefaultDescriptionMaxChars     = 200

	DefaultRecognitionURL     = "http://localhost:8501"
	DefaultRecognitionTimeout = 10 * time.Minute
	DefaultRecognitionRetries = 2

	DefaultRenderingURL     = "http://localhost:8601"
	DefaultRenderingTimeout = 30 * time.Second
	DefaultImageWidth       = 300
	DefaultImageHeight      = 300

	DefaultCacheAddr   = "localhost:6379"
	DefaultCacheTTL    = 24 * time.Hour
	DefaultCachePrefix = "chemroute:"

	DefaultStatusAddr = ":9090"

	DefaultWatchDebounce = 2 * time.Second

	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
)

// NewDefaultConfig returns a Config populated entirely from defaults.  It is
// what the CLI uses when no config file is found.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Pipeline.GenerateImages = true
	cfg.Recognition.MolScribe = true
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero-value field in cfg with the pipeline
// default.  It must be called after unmarshalling raw config data and before
// Validate() so that optional-but-defaulted fields are never seen as missing.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Logging ───────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Pipeline ──────────────────────────────────────────────────────────────
	if cfg.Pipeline.OutputDir == "" {
		cfg.Pipeline.OutputDir = DefaultOutputDir
	}
	if cfg.Pipeline.MaxPages == 0 {
		cfg.Pipeline.MaxPages = DefaultMaxPages
	}
	if cfg.Pipeline.SIMarker == "" {
		cfg.Pipeline.SIMarker = DefaultSIMarker
	}
	if cfg.Pipeline.Language == "" {
		cfg.Pipeline.Language = DefaultLanguage
	}

	// ── Extractor ─────────────────────────────────────────────────────────────
	if cfg.Extractor.MaxFallbackLines == 0 {
		cfg.Extractor.MaxFallbackLines = DefaultMaxFallbackLines
	}
	if cfg.Extractor.MaxPhysicalProps == 0 {
		cfg.Extractor.MaxPhysicalProps = DefaultMaxPhysicalProps
	}
	if cfg.Extractor.MaxCompoundDescriptions == 0 {
		cfg.Extractor.MaxCompoundDescriptions = DefaultMaxCompoundDescriptions
	}
	if cfg.Extractor.DescriptionMaxChars == 0 {
		cfg.Extractor.DescriptionMaxChars = DefaultDescriptionMaxChars
	}

	// ── Recognition ───────────────────────────────────────────────────────────
	if cfg.Recognition.BaseURL == "" {
		cfg.Recognition.BaseURL = DefaultRecognitionURL
	}
	if cfg.Recognition.Timeout == 0 {
		cfg.Recognition.Timeout = DefaultRecognitionTimeout
	}
	if cfg.Recognition.MaxRetries == 0 {
		cfg.Recognition.MaxRetries = DefaultRecognitionRetries
	}

	// ── Rendering ─────────────────────────────────────────────────────────────
	if cfg.Rendering.BaseURL == "" {
		cfg.Rendering.BaseURL = DefaultRenderingURL
	}
	if cfg.Rendering.Timeout == 0 {
		cfg.Rendering.Timeout = DefaultRenderingTimeout
	}
	if cfg.Rendering.Width == 0 {
		cfg.Rendering.Width = DefaultImageWidth
	}
	if cfg.Rendering.Height == 0 {
		cfg.Rendering.Height = DefaultImageHeight
	}

	// ── Cache ─────────────────────────────────────────────────────────────────
	if cfg.Cache.Addr == "" {
		cfg.Cache.Addr = DefaultCacheAddr
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Cache.Prefix == "" {
		cfg.Cache.Prefix = DefaultCachePrefix
	}

	// ── Status server ─────────────────────────────────────────────────────────
	if cfg.Status.Addr == "" {
		cfg.Status.Addr = DefaultStatusAddr
	}

	// ── Watch mode ────────────────────────────────────────────────────────────
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = DefaultWatchDebounce
	}
}
