// Package config resolves the on-disk layout shared by the spesen commands.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zombor/spesen/internal/receipt"
)

// Cache backends
const (
	CacheJSON = "json"
	CacheBolt = "bolt"
)

type Config struct {
	// Data directory holding cache and database
	DataDir string

	CachePath  string
	BoltPath   string
	DBPath     string
	ExportsDir string
	ArchiveDir string

	CacheBackend string
}

// Load reads the layout from the environment. Unset directories default to
// ./data, ./exports and ./belege/archiv.
func Load() *Config {
	return New(
		getEnv("DATA_DIR", "data"),
		getEnv("EXPORTS_DIR", "exports"),
		getEnv("ARCHIV_DIR", filepath.Join("belege", "archiv")),
	)
}

// New derives the file locations from the given directories
func New(dataDir, exportsDir, archiveDir string) *Config {
	return &Config{
		DataDir:      dataDir,
		CachePath:    filepath.Join(dataDir, ".beleg_cache.json"),
		BoltPath:     filepath.Join(dataDir, "beleg_cache.db"),
		DBPath:       filepath.Join(dataDir, "spesen.db"),
		ExportsDir:   exportsDir,
		ArchiveDir:   archiveDir,
		CacheBackend: CacheJSON,
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if c.DataDir == "" {
		errors = append(errors, "data directory must not be empty")
	}
	if c.CacheBackend != CacheJSON && c.CacheBackend != CacheBolt {
		errors = append(errors, fmt.Sprintf("invalid cache backend '%s': must be one of json, bolt", c.CacheBackend))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}
	return nil
}

// OpenCache opens the configured cache store. The returned close function is never nil.
func (c *Config) OpenCache() (receipt.CacheStore, func() error, error) {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create data directory: %w", err)
	}

	switch c.CacheBackend {
	case CacheBolt:
		store, err := receipt.NewBoltStore(c.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return receipt.NewJSONFileStore(c.CachePath), func() error { return nil }, nil
	}
}

// ParseMappings reads "host=container" pairs separated by commas
func ParseMappings(s string) ([]receipt.PathMapping, error) {
	var mappings []receipt.PathMapping
	for _, pair := range splitList(s) {
		host, container, ok := strings.Cut(pair, "=")
		if !ok || host == "" || container == "" {
			return nil, fmt.Errorf("invalid path mapping '%s': want host=container", pair)
		}
		mappings = append(mappings, receipt.PathMapping{Host: ExpandHome(host), Container: container})
	}
	return mappings, nil
}

// SplitDirs reads a comma separated list of directories, expanding ~
func SplitDirs(s string) []string {
	var dirs []string
	for _, d := range splitList(s) {
		dirs = append(dirs, ExpandHome(d))
	}
	return dirs
}

// ExpandHome replaces a leading ~ with the home directory
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
