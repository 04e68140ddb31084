// Command spesen-relink links report records that predate the receipt cache
// to their cached receipts by date, amount and description.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/spesen/internal/config"
	"github.com/zombor/spesen/internal/reconcile"
	"github.com/zombor/spesen/internal/report"
)

func main() {
	_ = godotenv.Load()
	defaults := config.Load()

	fs := ff.NewFlagSet("spesen-relink")
	var (
		dataDir      = fs.StringLong("data-dir", defaults.DataDir, "Datenverzeichnis für Cache und Datenbank")
		cacheBackend = fs.StringLong("cache-backend", config.CacheJSON, "Cache-Backend: json oder bolt")
		bonus        = fs.Float64Long("category-bonus", reconcile.CategoryBonus, "Bonus bei gleicher Kategorie")
		verbose      = fs.BoolLong("verbose", "Jede Verknüpfung ausgeben")
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
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := config.New(*dataDir, defaults.ExportsDir, defaults.ArchiveDir)
	cfg.CacheBackend = *cacheBackend
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	cache, closeCache, err := cfg.OpenCache()
	if err != nil {
		slog.Error("Failed to open cache", "error", err)
		os.Exit(1)
	}
	defer closeCache()

	if _, err := os.Stat(cfg.DBPath); err != nil {
		fmt.Printf("❌ Datenbank nicht gefunden: %s\n", cfg.DBPath)
		os.Exit(1)
	}
	store, err := report.NewStore(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	r := reconcile.New(cache, store)
	r.Scorer = reconcile.TokenScorer{Bonus: *bonus}

	stats, err := r.Run(context.Background())
	if err != nil {
		slog.Error("Reconciliation failed", "error", err)
		os.Exit(1)
	}

	fmt.Println("\n📈 Zusammenfassung:")
	fmt.Printf("   ✅ Verknüpft: %d\n", stats.Updated)
	fmt.Printf("   ⏭️  Übersprungen (bereits verknüpft): %d\n", stats.AlreadyLinked)
	fmt.Printf("   ❌ Nicht gefunden: %d\n", stats.NotFound)
}
