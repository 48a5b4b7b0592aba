package config

import (
	"strings"
	"time"
)

// CacheConfig configures the anonymous page cache. Only GET requests under
// one of Paths are cached, and only for visitors without a signed-in
// session.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
	Paths        []string
}

func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		Prefix:       envStr("CACHE_PREFIX", "gs:page"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
		Paths:        splitList(envStr("CACHE_PATHS", "/,/browse,/items/")),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	return cfg
}

// Cacheable reports whether path falls under one of the configured paths.
// An entry ending in "/" matches as a prefix, any other entry exactly.
func (c CacheConfig) Cacheable(path string) bool {
	for _, p := range c.Paths {
		if p == path || (p != "/" && strings.HasSuffix(p, "/") && strings.HasPrefix(path, p)) {
			return true
		}
	}
	return false
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
