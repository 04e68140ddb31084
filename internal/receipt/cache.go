package receipt

import (
	"log/slog"

	"github.com/zombor/spesen/internal/scanning"
)

// CacheEntry is the cached extraction result for one receipt file
type CacheEntry struct {
	scanning.ReceiptData
	File string `json:"datei,omitempty"`
	Path string `json:"datei_pfad,omitempty"`

	// Cached is set on entries returned by a lookup and never persisted
	Cached bool `json:"-"`
}

// CacheStore defines the interface for cache persistence
type CacheStore interface {
	// Get returns the entry for hash, or nil when there is none
	Get(hash string) (*CacheEntry, error)

	// Put stores the entry under hash, replacing any previous value
	Put(hash string, entry *CacheEntry) error

	// Scan calls fn for every entry
	Scan(fn func(hash string, entry *CacheEntry) error) error
}

// Cache wraps a CacheStore so that storage failures never fail the pipeline
type Cache struct {
	store CacheStore
}

// NewCache creates a Cache. A nil store disables caching.
func NewCache(store CacheStore) *Cache {
	return &Cache{store: store}
}

// Enabled reports whether a store is configured
func (c *Cache) Enabled() bool {
	return c != nil && c.store != nil
}

// Lookup returns the cached entry or nil. Read errors count as a miss.
func (c *Cache) Lookup(hash string) *CacheEntry {
	if !c.Enabled() {
		return nil
	}
	entry, err := c.store.Get(hash)
	if err != nil {
		slog.Warn("Failed to read receipt cache", "hash", hash, "error", err)
		return nil
	}
	if entry == nil {
		return nil
	}
	entry.Cached = true
	return entry
}

// Store saves the entry. Write errors are logged and dropped.
func (c *Cache) Store(hash string, entry *CacheEntry) bool {
	if !c.Enabled() {
		return false
	}
	if err := c.store.Put(hash, entry); err != nil {
		slog.Warn("Failed to write receipt cache", "hash", hash, "error", err)
		return false
	}
	return true
}
