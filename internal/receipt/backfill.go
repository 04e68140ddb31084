package receipt

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// PathMapping rewrites a host directory prefix to the path seen inside a container
type PathMapping struct {
	Host      string
	Container string
}

// BackfillStats summarizes a backfill run
type BackfillStats struct {
	Updated    int
	AlreadySet int
	NotFound   int
}

// Backfiller restores datei_pfad for cache entries whose files moved.
// Matching is by file name; the first hit in SearchDirs order wins.
type Backfiller struct {
	store      CacheStore
	searchDirs []string
	mappings   []PathMapping

	// VerifyHash rejects candidates whose content hash differs from the entry key
	VerifyHash bool
}

// NewBackfiller creates a Backfiller. Mappings are applied longest host prefix first.
func NewBackfiller(store CacheStore, searchDirs []string, mappings []PathMapping) *Backfiller {
	sorted := append([]PathMapping(nil), mappings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Host) > len(sorted[j].Host)
	})
	return &Backfiller{
		store:      store,
		searchDirs: searchDirs,
		mappings:   sorted,
	}
}

// BackfillAll updates every entry that has no mapped path yet
func (b *Backfiller) BackfillAll() (BackfillStats, error) {
	var stats BackfillStats
	updates := make(map[string]*CacheEntry)

	err := b.store.Scan(func(hash string, entry *CacheEntry) error {
		if b.alreadySet(entry.Path) {
			stats.AlreadySet++
			return nil
		}

		path, ok := b.locate(hash, entry.File)
		if !ok {
			stats.NotFound++
			slog.Info("Receipt file not found", "file", entry.File, "hash", hash)
			return nil
		}

		entry.Path = path
		updates[hash] = entry
		stats.Updated++
		slog.Info("Receipt path updated", "file", entry.File, "path", path)
		return nil
	})
	if err != nil {
		return stats, err
	}

	for hash, entry := range updates {
		if err := b.store.Put(hash, entry); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// BackfillPath locates the file of a single entry. It returns false when the
// entry is unknown or no candidate was found.
func (b *Backfiller) BackfillPath(hash string) (string, bool, error) {
	entry, err := b.store.Get(hash)
	if err != nil || entry == nil {
		return "", false, err
	}

	path, ok := b.locate(hash, entry.File)
	if !ok {
		return "", false, nil
	}

	entry.Path = path
	if err := b.store.Put(hash, entry); err != nil {
		return "", false, err
	}
	return path, true, nil
}

func (b *Backfiller) alreadySet(path string) bool {
	if path == "" {
		return false
	}
	for _, m := range b.mappings {
		if strings.HasPrefix(path, m.Container) {
			return true
		}
	}
	if len(b.mappings) == 0 {
		_, err := os.Stat(path)
		return err == nil
	}
	return false
}

func (b *Backfiller) locate(hash, name string) (string, bool) {
	if name == "" {
		return "", false
	}
	for _, dir := range b.searchDirs {
		if found := b.find(dir, hash, name); found != "" {
			return b.toContainer(found), true
		}
	}
	return "", false
}

var errFound = errors.New("found")

func (b *Backfiller) find(dir, hash, name string) string {
	var found string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable or missing directories are skipped
			if d == nil || d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || d.Name() != name {
			return nil
		}
		if b.VerifyHash {
			if h, err := HashFile(path); err != nil || h != hash {
				return nil
			}
		}
		found = path
		return errFound
	})
	if err != nil && !errors.Is(err, errFound) {
		slog.Debug("Searching for receipt failed", "dir", dir, "error", err)
	}
	return found
}

func (b *Backfiller) toContainer(path string) string {
	for _, m := range b.mappings {
		if strings.HasPrefix(path, m.Host) {
			return m.Container + strings.TrimPrefix(path, m.Host)
		}
	}
	return path
}
