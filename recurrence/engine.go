package recurrence

import (
	"io"
	"log/slog"
	"time"
)

const (
	opOccurrences = "occurrences"
)

// Engine answers occurrence questions for calendar callers, memoising
// window calculations when caching is enabled.
type Engine struct {
	cache  *Cache
	config EngineConfig
	logger *slog.Logger
}

// Option represents a configuration option for the Engine
type Option func(*Engine)

// WithLogger sets the logger for the engine
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine with DefaultEngineConfig
func NewEngine(opts ...Option) *Engine {
	return NewEngineWithConfig(DefaultEngineConfig, opts...)
}

// NewEngineWithConfig creates a new recurrence engine with custom configuration
func NewEngineWithConfig(config EngineConfig, opts ...Option) *Engine {
	e := &Engine{
		config: config,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}

	if config.CacheEnabled {
		e.cache = NewCache(config.CacheConfig)
	}

	return e
}

// Config returns the configuration the engine was built with
func (e *Engine) Config() EngineConfig {
	return e.config
}

// IsOccurrence is the package-level IsOccurrence; it is never cached
func (e *Engine) IsOccurrence(anchor, candidate time.Time, rule Rule) bool {
	return IsOccurrence(anchor, candidate, rule)
}

// CalculateOccurrences lists occurrence days in [windowStart, windowEnd].
// Windows longer than MaxWindowDays are truncated.
func (e *Engine) CalculateOccurrences(rule Rule, anchor, windowStart, windowEnd time.Time) []time.Time {
	if rule.IsZero() || windowEnd.Before(windowStart) {
		return nil
	}

	if limit := e.config.MaxWindowDays; limit > 0 && WholeDaysBetween(windowStart, windowEnd) >= limit {
		truncated := DayOf(windowStart).AddDate(0, 0, limit-1)
		e.logger.Warn("occurrence window truncated",
			"rule", rule.String(),
			"window_start", windowStart.Format(DateLayout),
			"window_end", windowEnd.Format(DateLayout),
			"truncated_end", truncated.Format(DateLayout))
		windowEnd = truncated
	}

	if e.cache != nil {
		if cached, ok := e.cache.Get(opOccurrences, rule, anchor, windowStart, windowEnd); ok {
			e.logger.Debug("occurrence cache hit", "rule", rule.String())
			return cached
		}
	}

	result := Occurrences(rule, anchor, windowStart, windowEnd)

	if e.cache != nil {
		e.cache.Set(opOccurrences, rule, anchor, windowStart, windowEnd, result)
	}

	e.logger.Debug("calculated occurrences",
		"rule", rule.String(),
		"anchor", anchor.Format(DateLayout),
		"count", len(result))

	return result
}

// HasOccurrenceInRange reports whether any day of the window is an occurrence.
// It stops at the first match instead of building the full list.
func (e *Engine) HasOccurrenceInRange(rule Rule, anchor, windowStart, windowEnd time.Time) bool {
	if rule.IsZero() {
		return false
	}
	total := WholeDaysBetween(windowStart, windowEnd)
	if limit := e.config.MaxWindowDays; limit > 0 && total >= limit {
		total = limit - 1
	}
	first := DayOf(windowStart)
	for i := max(WholeDaysBetween(first, anchor), 0); i <= total; i++ {
		if IsOccurrence(anchor, first.AddDate(0, 0, i), rule) {
			return true
		}
	}
	return false
}

// CacheStats reports cache occupancy; zero when caching is disabled
func (e *Engine) CacheStats() CacheStats {
	if e.cache == nil {
		return CacheStats{}
	}
	return e.cache.Stats()
}

// Close releases the cache's cleanup goroutine
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}
