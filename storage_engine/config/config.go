package config

import (
	"fmt"

	"SlotDB/types"
)

// Config holds the knobs of the file-backed storage harness.
type Config struct {
	DataDir        string // directory holding .heap and .idx files
	PageCacheBytes int64  // ristretto MaxCost, one page costs types.PageSize
	CacheCounters  int64  // ristretto NumCounters, ~10x the number of cached pages
	LogLevel       string // debug, info, warn, error
}

func Default() Config {
	return Config{
		DataDir:        ".",
		PageCacheBytes: 256 * types.PageSize,
		CacheCounters:  2560,
		LogLevel:       "info",
	}
}

func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("config: data dir must be set")
	}
	if c.PageCacheBytes < types.PageSize {
		return fmt.Errorf("config: page cache must hold at least one page (%d bytes), got %d",
			types.PageSize, c.PageCacheBytes)
	}
	if c.CacheCounters <= 0 {
		return fmt.Errorf("config: cache counters must be positive, got %d", c.CacheCounters)
	}
	return nil
}

// CachedPages is the number of whole pages the cache budget covers.
func (c Config) CachedPages() int64 {
	return c.PageCacheBytes / types.PageSize
}
