package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/spesen/internal/batch"
	"github.com/zombor/spesen/internal/config"
	"github.com/zombor/spesen/internal/currency"
	"github.com/zombor/spesen/internal/receipt"
	"github.com/zombor/spesen/internal/render"
	"github.com/zombor/spesen/internal/report"
	"github.com/zombor/spesen/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// .env is optional
	_ = godotenv.Load()
	defaults := config.Load()

	fs := ff.NewFlagSet("spesen")
	var (
		name           = fs.String('n', "name", "", "Name für die Abrechnung")
		month          = fs.String('m', "monat", "", "Monat der Abrechnung, z.B. \"Nov 2025\" (Standard: aktueller Monat)")
		output         = fs.String('o', "output", "", "Ausgabedatei ohne Endung (Standard: exports/<Jahr>/<MM>_<Monat>/Spesen_<Monat>)")
		format         = fs.String('f', "format", render.FormatBoth, "Ausgabeformat: excel, pdf, both oder json")
		noDB           = fs.BoolLong("no-db", "Nicht in der Datenbank speichern")
		noCache        = fs.BoolLong("no-cache", "Cache nicht verwenden")
		archive        = fs.Bool('a', "archive", "Verarbeitete Belege ins Archiv verschieben")
		verbose        = fs.BoolLong("verbose", "Ausführliche Ausgabe")
		dataDir        = fs.StringLong("data-dir", defaults.DataDir, "Datenverzeichnis für Cache und Datenbank")
		exportsDir     = fs.StringLong("exports-dir", defaults.ExportsDir, "Exportverzeichnis")
		archiveDir     = fs.StringLong("archive-dir", defaults.ArchiveDir, "Archivverzeichnis")
		cacheBackend   = fs.StringLong("cache-backend", config.CacheJSON, "Cache-Backend: json oder bolt")
		scannerType    = fs.StringLong("scanner", "gemini", "Extraktion: gemini, ollama oder none")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL      = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel    = fs.StringLong("ollama-model", "llava", "Ollama model name")
		extractTimeout = fs.DurationLong("extract-timeout", scanning.DefaultExtractTimeout, "Timeout für die KI-Extraktion")
		offlineRates   = fs.BoolLong("offline-rates", "Feste Wechselkurse statt EZB-Kurse verwenden")
		_              = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("SPESEN"),
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

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := config.New(*dataDir, *exportsDir, *archiveDir)
	cfg.CacheBackend = *cacheBackend
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	if _, err := render.Extensions(*format); err != nil {
		slog.Error("Invalid format", "format", *format, "valid", "excel, pdf, both or json")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize cache
	var store receipt.CacheStore
	if !*noCache {
		s, closeCache, err := cfg.OpenCache()
		if err != nil {
			slog.Error("Failed to open cache", "error", err)
			os.Exit(1)
		}
		defer closeCache()
		store = s
	}

	// Initialize OCR
	var recognizer scanning.TextRecognizer
	if t, err := scanning.NewTesseract(); err != nil {
		slog.Warn("OCR not available", "error", err)
	} else {
		recognizer = t
	}

	// Initialize extractor based on type
	var primary scanning.Extractor
	switch *scannerType {
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini extractor...", "model", *geminiModel)
		g, err := scanning.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
		primary = g
	case "ollama":
		slog.Info("Initializing Ollama extractor...", "url", *ollamaURL, "model", *ollamaModel)
		o, err := scanning.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
		primary = o
	case "none":
		slog.Info("Using regex extraction only")
	default:
		slog.Error("Invalid scanner type", "type", *scannerType, "valid", "gemini, ollama or none")
		os.Exit(1)
	}
	extractor := scanning.NewResilient(primary, *extractTimeout)
	defer extractor.Close()

	// Initialize currency conversion
	var live currency.RateSource
	if !*offlineRates {
		live = currency.NewECB(currency.ECBDailyURL)
	}
	normalizer := currency.NewNormalizer(currency.NewSession(live, currency.FallbackRates))

	pipeline := receipt.NewPipeline(store, recognizer, extractor, normalizer)

	// Initialize report database
	var (
		records batch.RecordStore
		dbErr   error
	)
	if !*noDB {
		db, err := report.NewStore(cfg.DBPath)
		if err != nil {
			slog.Error("Failed to open database", "path", cfg.DBPath, "error", err)
			fmt.Printf("⚠️  Datenbank-Fehler: %v\n", err)
			dbErr = err
		} else {
			defer db.Close()
			records = db
		}
	}

	// Initialize archive
	var archiveStorage receipt.Storage
	if *archive {
		a, err := receipt.NewLocalStorage(cfg.ArchiveDir)
		if err != nil {
			slog.Error("Failed to initialize archive", "error", err)
			os.Exit(1)
		}
		archiveStorage = a
	}

	runner := batch.NewRunner(pipeline, records, archiveStorage, os.Stdout)
	summary, err := runner.Run(ctx, args[0], batch.Options{
		Name:       *name,
		Month:      *month,
		Output:     *output,
		Format:     *format,
		ExportsDir: cfg.ExportsDir,
		Verbose:    *verbose,
	})
	if err != nil {
		slog.Error("Batch run failed", "run", summary.RunID, "error", err)
	}
	if err == nil && summary.PersistErr == nil && dbErr != nil {
		summary.PersistErr = dbErr
	}
	if code := batch.ExitCode(summary, err); code != batch.ExitOK {
		os.Exit(code)
	}
}
