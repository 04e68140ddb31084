package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// JSONFileStore keeps the cache as a single JSON object keyed by content hash.
// Every call re-reads the file; concurrent writers are last-write-wins.
type JSONFileStore struct {
	path string
}

// NewJSONFileStore creates a store backed by the file at path
func NewJSONFileStore(path string) *JSONFileStore {
	return &JSONFileStore{path: path}
}

// Path returns the cache file location
func (j *JSONFileStore) Path() string {
	return j.path
}

// load reads the whole cache. A missing or corrupt file yields an empty cache.
func (j *JSONFileStore) load() map[string]*CacheEntry {
	entries := make(map[string]*CacheEntry)

	data, err := os.ReadFile(j.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Failed to read cache file", "path", j.path, "error", err)
		}
		return entries
	}

	if err := json.Unmarshal(data, &entries); err != nil {
		slog.Warn("Cache file is corrupt, starting empty", "path", j.path, "error", err)
		return make(map[string]*CacheEntry)
	}
	return entries
}

func (j *JSONFileStore) save(entries map[string]*CacheEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(j.path), 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(j.path), ".cache-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), j.path); err != nil {
		return fmt.Errorf("replacing cache file: %w", err)
	}
	return nil
}

// Get returns the entry for hash
func (j *JSONFileStore) Get(hash string) (*CacheEntry, error) {
	entry, ok := j.load()[hash]
	if !ok {
		return nil, nil
	}
	return entry, nil
}

// Put stores the entry with a read-modify-write of the whole file
func (j *JSONFileStore) Put(hash string, entry *CacheEntry) error {
	entries := j.load()
	entries[hash] = entry
	return j.save(entries)
}

// Scan visits entries in hash order
func (j *JSONFileStore) Scan(fn func(hash string, entry *CacheEntry) error) error {
	entries := j.load()
	hashes := make([]string, 0, len(entries))
	for h := range entries {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)

	for _, h := range hashes {
		if err := fn(h, entries[h]); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of cached entries
func (j *JSONFileStore) Len() int {
	return len(j.load())
}
