package recurrence

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EngineConfig holds configuration options for the recurrence engine
type EngineConfig struct {
	// Cache configuration
	CacheEnabled bool        `yaml:"cache_enabled"`
	CacheConfig  CacheConfig `yaml:"cache"`

	// MaxWindowDays bounds how many calendar days one calculation may scan.
	// Longer windows are truncated at the end.
	MaxWindowDays int `yaml:"max_window_days"`
}

// DefaultEngineConfig provides sensible defaults for production use
var DefaultEngineConfig = EngineConfig{
	CacheEnabled:  true,
	CacheConfig:   DefaultCacheConfig,
	MaxWindowDays: 366,
}

// HighPerformanceConfig is tuned for busy calendars that mostly render a month
var HighPerformanceConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:             30 * time.Minute,
		MaxEntries:      5000,
		CleanupInterval: 10 * time.Minute,
	},
	MaxWindowDays: 92,
}

// LowMemoryConfig is optimized for memory-constrained environments
var LowMemoryConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:             5 * time.Minute,
		MaxEntries:      100,
		CleanupInterval: 2 * time.Minute,
	},
	MaxWindowDays: 366,
}

// DisabledCacheConfig turns off caching entirely
var DisabledCacheConfig = EngineConfig{
	CacheEnabled:  false,
	CacheConfig:   CacheConfig{}, // Not used
	MaxWindowDays: 3660,
}

// Validate checks the config for values the engine cannot run with
func (c EngineConfig) Validate() error {
	if c.MaxWindowDays < 1 {
		return fmt.Errorf("max_window_days must be positive, got %d", c.MaxWindowDays)
	}
	if !c.CacheEnabled {
		return nil
	}
	if c.CacheConfig.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %s", c.CacheConfig.TTL)
	}
	if c.CacheConfig.MaxEntries < 1 {
		return fmt.Errorf("cache max_entries must be positive, got %d", c.CacheConfig.MaxEntries)
	}
	return nil
}

// LoadEngineConfig decodes YAML on top of DefaultEngineConfig.
// Durations use Go syntax, e.g. "15m".
func LoadEngineConfig(r io.Reader) (EngineConfig, error) {
	config := DefaultEngineConfig

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil && err != io.EOF {
		return EngineConfig{}, fmt.Errorf("failed to decode engine config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return EngineConfig{}, fmt.Errorf("invalid engine config: %w", err)
	}
	return config, nil
}

// LoadEngineConfigFile reads an engine config from a YAML file
func LoadEngineConfigFile(path string) (EngineConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("failed to open engine config: %w", err)
	}
	defer f.Close()

	return LoadEngineConfig(f)
}
