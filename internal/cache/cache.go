// Package cache stores enrichment responses keyed by clause text, model and
// labels so that repeated clauses do not hit the inference services twice.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ppiankov/clausewatch/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

const keyPrefix = "clausewatch:v1:"

// CacheKey derives a namespaced key from its parts.
// Parts are length-prefixed, so ("ab", "c") and ("a", "bc") never collide.
func CacheKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%d:%s|", len(p), p)
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// New builds the cache described by cfg
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return Noop{}
	}
	if cfg.Dir == "" {
		return NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)
	}
	return NewLayeredCache(cfg.MemoryTTL, cfg.Dir, cfg.DiskTTL)
}

// Noop never stores anything
type Noop struct{}

func (Noop) Get(string) ([]byte, bool) { return nil, false }

func (Noop) Set(string, []byte, time.Duration) error { return nil }

func (Noop) Delete(string) error { return nil }

func (Noop) Clear() error { return nil }
