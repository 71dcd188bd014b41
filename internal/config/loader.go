package config

// Loading strategy: flags (applied by the CLI layer) > CHEMROUTE_* env vars >
// config file > defaults.  Both YAML and JSON config files are accepted; the
// type is inferred from the file extension.

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all pipeline settings.
const envPrefix = "CHEMROUTE"

// newViper builds a pre-configured viper instance: CHEMROUTE_ env prefix,
// automatic env binding, and a key replacer mapping "." → "_" so that nested
// keys like "pipeline.max_pages" resolve to "CHEMROUTE_PIPELINE_MAX_PAGES".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	registerKeys(v)
	return v
}

// registerKeys declares every configuration key to viper.  Without this,
// environment-only overrides are invisible to Unmarshal: viper resolves env
// vars only for keys it already knows about.  The zero-value defaults set
// here are later replaced by ApplyDefaults.
func registerKeys(v *viper.Viper) {
	for _, key := range []string{
		"log.level", "log.format", "log.output_paths",
		"pipeline.output_dir", "pipeline.max_pages", "pipeline.generate_images",
		"pipeline.include_si", "pipeline.si_marker", "pipeline.language",
		"pipeline.template_path", "pipeline.save_raw_data",
		"extractor.max_fallback_lines", "extractor.max_physical_props",
		"extractor.max_compound_descriptions", "extractor.description_max_chars",
		"recognition.base_url", "recognition.timeout", "recognition.max_retries",
		"recognition.molscribe", "recognition.ocr",
		"rendering.base_url", "rendering.timeout", "rendering.width", "rendering.height",
		"cache.enabled", "cache.addr", "cache.password", "cache.db", "cache.ttl", "cache.prefix",
		"status.enabled", "status.addr",
		"watch.debounce",
	} {
		v.SetDefault(key, nil)
	}

	// Default-true booleans cannot go through ApplyDefaults, which would not
	// be able to tell an explicit false from an unset field.
	v.SetDefault("pipeline.generate_images", true)
	v.SetDefault("recognition.molscribe", true)
}

// configType maps a file extension to a viper config type, defaulting to yaml.
func configType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	default:
		return "yaml"
	}
}

// Load reads the config file at configPath, merges CHEMROUTE_* environment
// overrides, applies defaults for unset fields, and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)
	v.SetConfigType(configType(configPath))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from CHEMROUTE_* environment variables
// and defaults, with no config file required.
func LoadFromEnv() (*Config, error) {
	v := newViper()
	return unmarshalAndFinalize(v)
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath for changes and invokes onChange with the newly
// parsed Config whenever the file is modified on disk.  Watch mode uses this
// to hot-reload the log level between batches; a change that fails to parse
// or validate is dropped so the running process never enters a broken state.
//
// Watch is non-blocking; the watcher goroutine is managed by viper (fsnotify
// underneath).
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)
	v.SetConfigType(configType(configPath))

	// Initial read; callers are expected to have called Load first.
	_ = v.ReadInConfig()

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
}
