// Package cache stores finished segment translations keyed by a signature
// of the request, so re-submitted documents skip already-paid backend calls.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"
)

// Cache is a best-effort translation cache. Misses and backend errors are
// indistinguishable to callers; a failed Set is silent.
type Cache interface {
	Get(ctx context.Context, signature string) (string, bool)
	Set(ctx context.Context, signature, text string)
}

// Signature derives a stable cache key from the request parts
// (model, instructions, context, segment text).
func Signature(parts ...string) string {
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		normalized = append(normalized, strings.TrimSpace(part))
	}
	sum := sha256.Sum256([]byte(strings.Join(normalized, "||")))
	return hex.EncodeToString(sum[:])
}

type memoryEntry struct {
	Text      string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type MemoryConfig struct {
	TTL        time.Duration
	MaxEntries int
}

// MemoryCache is the in-process fallback used when Redis is not configured.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	ttl        time.Duration
	maxEntries int
}

func NewMemoryCache(config MemoryConfig) *MemoryCache {
	if config.TTL <= 0 {
		config.TTL = 24 * time.Hour
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = 10000
	}
	return &MemoryCache{
		entries:    make(map[string]memoryEntry),
		ttl:        config.TTL,
		maxEntries: config.MaxEntries,
	}
}

func (c *MemoryCache) Get(_ context.Context, signature string) (string, bool) {
	c.mu.RLock()
	entry, exists := c.entries[signature]
	c.mu.RUnlock()

	if !exists {
		return "", false
	}
	if time.Now().UTC().After(entry.ExpiresAt) {
		c.mu.Lock()
		delete(c.entries, signature)
		c.mu.Unlock()
		return "", false
	}
	return entry.Text, true
}

func (c *MemoryCache) Set(_ context.Context, signature, text string) {
	now := time.Now().UTC()
	entry := memoryEntry{
		Text:      text,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}
	c.entries[signature] = entry
}

func (c *MemoryCache) evictOldest() {
	if len(c.entries) == 0 {
		return
	}

	type pair struct {
		key   string
		value memoryEntry
	}
	pairs := make([]pair, 0, len(c.entries))
	for key, value := range c.entries {
		pairs = append(pairs, pair{key: key, value: value})
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].value.CreatedAt.Before(pairs[j].value.CreatedAt)
	})
	delete(c.entries, pairs[0].key)
}
