// Command spesen-cachepaths fills in missing file paths of receipt cache entries
// by searching known receipt folders for the stored file names.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/spesen/internal/config"
	"github.com/zombor/spesen/internal/receipt"
)

func main() {
	_ = godotenv.Load()
	defaults := config.Load()

	fs := ff.NewFlagSet("spesen-cachepaths")
	var (
		dataDir      = fs.StringLong("data-dir", defaults.DataDir, "Datenverzeichnis für Cache und Datenbank")
		cacheBackend = fs.StringLong("cache-backend", config.CacheJSON, "Cache-Backend: json oder bolt")
		searchDirs   = fs.StringLong("search-dirs", "~/Documents/Scans,~/Desktop/Belege,"+filepath.Join("belege", "archiv"), "Kommagetrennte Ordner, in denen Belege gesucht werden")
		mappings     = fs.StringLong("path-mappings", "", "Kommagetrennte host=container Pfadpaare, z.B. ~/Documents/Scans=/data/scans")
		verifyHash   = fs.BoolLong("verify-hash", "Nur Dateien mit identischem Inhalt übernehmen")
		verbose      = fs.BoolLong("verbose", "Ausführliche Ausgabe")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("SPESEN"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	pathMappings, err := config.ParseMappings(*mappings)
	if err != nil {
		slog.Error("Invalid path mappings", "error", err)
		os.Exit(1)
	}

	cfg := config.New(*dataDir, defaults.ExportsDir, defaults.ArchiveDir)
	cfg.CacheBackend = *cacheBackend
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	store, closeCache, err := cfg.OpenCache()
	if err != nil {
		slog.Error("Failed to open cache", "error", err)
		os.Exit(1)
	}
	defer closeCache()

	backfiller := receipt.NewBackfiller(store, config.SplitDirs(*searchDirs), pathMappings)
	backfiller.VerifyHash = *verifyHash

	stats, err := backfiller.BackfillAll()
	if err != nil {
		slog.Error("Backfill failed", "error", err)
		os.Exit(1)
	}

	fmt.Println("\n📈 Zusammenfassung:")
	fmt.Printf("   ✅ Aktualisiert: %d\n", stats.Updated)
	fmt.Printf("   ⏭️  Bereits gesetzt: %d\n", stats.AlreadySet)
	fmt.Printf("   ❌ Nicht gefunden: %d\n", stats.NotFound)
}
