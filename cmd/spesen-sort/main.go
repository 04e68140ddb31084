// Command spesen-sort files scanned receipts into month folders.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/spesen/internal/period"
	"github.com/zombor/spesen/internal/sorter"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	fs := ff.NewFlagSet("spesen-sort")
	var (
		output       = fs.String('o', "output", "", "Zielordner (Standard: <Ordner>/sortiert)")
		dryRun       = fs.Bool('n', "dry-run", "Nur anzeigen, was gemacht würde")
		move         = fs.Bool('m', "move", "Dateien verschieben statt kopieren")
		useMtime     = fs.BoolLong("use-mtime", "Änderungsdatum als Fallback verwenden")
		recursive    = fs.Bool('r', "recursive", "Unterordner rekursiv durchsuchen")
		style        = fs.String('f', "format", period.StyleGerman, "Ordner-Namensformat: german, short oder month")
		skipDupes    = fs.Bool('d', "skip-duplicates", "Duplikate überspringen (nur erstes behalten)")
		dupesFolder  = fs.BoolLong("duplicates-folder", "Duplikate in separaten Ordner verschieben")
		verbose      = fs.Bool('v', "verbose", "Ausführliche Ausgabe")
		showProgress = fs.BoolLong("progress", "Fortschrittsbalken anzeigen")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("SPESEN_SORT"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := fs.GetArgs()
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintln(os.Stderr, "error: Ordner mit Belegen fehlt")
		os.Exit(1)
	}
	folder := args[0]

	switch *style {
	case period.StyleGerman, period.StyleShort, period.StyleMonth:
	default:
		slog.Error("Invalid folder format", "format", *style, "valid", "german, short or month")
		os.Exit(1)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if info, err := os.Stat(folder); err != nil || !info.IsDir() {
		fmt.Printf("❌ Ordner nicht gefunden: %s\n", folder)
		os.Exit(1)
	}

	outputDir := *output
	if outputDir == "" {
		outputDir = filepath.Join(folder, "sortiert")
	}

	opts := sorter.Options{
		Recursive:        *recursive,
		UseMtime:         *useMtime,
		Style:            *style,
		Move:             *move,
		SkipDuplicates:   *skipDupes,
		DuplicatesFolder: *dupesFolder,
	}
	var progress io.Writer
	if *showProgress {
		progress = os.Stderr
	}
	s := sorter.New(opts, progress)

	fmt.Printf("\n📁 Scanne: %s\n", folder)
	plan, err := s.Plan(folder)
	if err != nil {
		slog.Error("Failed to scan folder", "error", err)
		os.Exit(1)
	}

	total := len(plan.Files) + len(plan.Unknown) + len(plan.Duplicates)
	if total == 0 {
		fmt.Println("❌ Keine Belege gefunden (PDF, JPG, PNG, TIFF)")
		os.Exit(1)
	}
	fmt.Printf("📄 %d Dateien gefunden\n", total)

	fmt.Println("\n🔍 Prüfe auf Duplikate (MD5-Hash)...")
	if len(plan.Groups) > 0 {
		dupes := 0
		for _, group := range plan.Groups {
			dupes += len(group) - 1
		}
		fmt.Printf("   %d Duplikate gefunden (%d einzigartige Dateien)\n", dupes, plan.Unique)
		if *verbose {
			fmt.Println("\n📋 Duplikat-Gruppen:")
			for hash, group := range plan.Groups {
				fmt.Printf("   Hash %s...:\n", hash[:8])
				for _, p := range group {
					fmt.Printf("      - %s\n", filepath.Base(p))
				}
			}
		}
	} else {
		fmt.Println("   Keine Duplikate gefunden")
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 60))
	if *verbose {
		for _, f := range plan.Files {
			fmt.Printf("  ✓ %s → %s %d (%s) [%s]\n", filepath.Base(f.Path), period.MonthName(f.Date.Month()), f.Date.Year(), f.Source, short(f.Hash))
		}
		for _, f := range plan.Unknown {
			fmt.Printf("  ? %s → Datum unbekannt\n", filepath.Base(f.Path))
		}
	}

	folders := plan.Folders(*style)
	fmt.Println("\n📊 Zusammenfassung:")
	fmt.Printf("   Erkannt: %d Dateien in %d Monaten\n", len(plan.Files), len(folders))
	if len(plan.Unknown) > 0 {
		fmt.Printf("   Unbekannt: %d Dateien\n", len(plan.Unknown))
	}
	if len(plan.Duplicates) > 0 {
		fmt.Printf("   Übersprungen (Duplikate): %d Dateien\n", len(plan.Duplicates))
	}

	fmt.Println("\n📅 Monate:")
	for _, f := range folders {
		fmt.Printf("   %s: %d Dateien\n", f.Name, f.Files)
	}
	if len(plan.Unknown) > 0 {
		fmt.Println("\n⚠️  Dateien ohne erkanntes Datum:")
		for i, f := range plan.Unknown {
			if i == 10 {
				fmt.Printf("   ... und %d weitere\n", len(plan.Unknown)-10)
				break
			}
			fmt.Printf("   - %s\n", filepath.Base(f.Path))
		}
	}

	if *dryRun {
		fmt.Println("\n🔍 Dry-run: Keine Dateien wurden kopiert/verschoben")
		fmt.Printf("   Zielordner wäre: %s\n", outputDir)
		return
	}

	action := "kopiert"
	if *move {
		action = "verschoben"
	}
	fmt.Printf("\n📦 Dateien werden nach %s %s\n", outputDir, action)

	res := s.Apply(plan, outputDir)

	fmt.Printf("\n%s\n", strings.Repeat("=", 60))
	fmt.Printf("✅ %d Dateien %s\n", res.Done, action)
	if len(plan.Duplicates) > 0 {
		if *dupesFolder {
			fmt.Printf("🔄 %d Duplikate in %s/ Ordner\n", res.Duplicates, sorter.DuplicatesDir)
		} else {
			fmt.Printf("🔄 %d Duplikate übersprungen\n", len(plan.Duplicates))
		}
	}
	if res.Errors > 0 {
		fmt.Printf("❌ %d Fehler\n", res.Errors)
	}
	fmt.Printf("📁 Zielordner: %s\n", outputDir)
	fmt.Println("\n✨ Fertig!")
}

func short(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
