package config

import (
	"fmt"
	"strconv"

	"github.com/standardbeagle/ltix/internal/ltixerrors"
)

// Validate checks a Config for out-of-range tunables, returning the
// first violation found wrapped in a ltixerrors.ConfigError.
func Validate(cfg *Config) error {
	if cfg.CheckpointInterval <= 0 {
		return ltixerrors.NewConfigError("checkpoint-interval", strconv.Itoa(cfg.CheckpointInterval),
			fmt.Errorf("must be positive"))
	}
	if cfg.LineCacheEntries <= 0 {
		return ltixerrors.NewConfigError("cache.line-entries", strconv.Itoa(cfg.LineCacheEntries),
			fmt.Errorf("must be positive"))
	}
	if cfg.ParsedCacheEntries <= 0 {
		return ltixerrors.NewConfigError("cache.parsed-entries", strconv.Itoa(cfg.ParsedCacheEntries),
			fmt.Errorf("must be positive"))
	}
	if cfg.WatchDebounceMs < 0 {
		return ltixerrors.NewConfigError("watch.debounce-ms", strconv.Itoa(cfg.WatchDebounceMs),
			fmt.Errorf("cannot be negative"))
	}
	if cfg.FilterBatchSize <= 0 {
		return ltixerrors.NewConfigError("filter.batch-size", strconv.Itoa(cfg.FilterBatchSize),
			fmt.Errorf("must be positive"))
	}
	if cfg.FilterProgressEvery <= 0 {
		return ltixerrors.NewConfigError("filter.progress-interval", strconv.Itoa(cfg.FilterProgressEvery),
			fmt.Errorf("must be positive"))
	}
	return nil
}
