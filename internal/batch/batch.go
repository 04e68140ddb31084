// Package batch runs a folder of receipts through the pipeline, stores the
// results in a report, exports it and archives the processed files.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/spesen/internal/period"
	"github.com/zombor/spesen/internal/receipt"
	"github.com/zombor/spesen/internal/render"
	"github.com/zombor/spesen/internal/report"
	"github.com/zombor/spesen/internal/scanning"
)

var (
	// ErrFolderMissing is returned when the input folder does not exist
	ErrFolderMissing = errors.New("folder not found")
	// ErrNoReceipts is returned when the folder contains no supported files
	ErrNoReceipts = errors.New("no receipts found")
	// ErrNothingProcessed is returned when every file failed
	ErrNothingProcessed = errors.New("no receipts processed")
)

// Processor runs a single file through the receipt pipeline
type Processor interface {
	ProcessFile(ctx context.Context, path string) (*receipt.Result, error)
}

// RecordStore persists report records
type RecordStore interface {
	AppendRecords(ctx context.Context, name, month, date string, records []report.Record) (int64, error)
}

// Options configures a run
type Options struct {
	Name  string
	Month string
	// Output overrides the export path; an extension is added per format
	Output     string
	Format     string
	ExportsDir string
	Verbose    bool
}

// Summary describes a finished run
type Summary struct {
	RunID     string
	Processed int
	Cached    int
	Failed    int
	Total     float64
	ReportID  int64
	// PersistErr is set when the report could not be saved
	PersistErr error
	Exports    []string
	Archived   []string
}

// Exit codes of a batch run
const (
	ExitOK          = 0
	ExitFailed      = 1
	ExitPersistence = 2
)

// ExitCode maps the outcome of Run to a process exit code. A run that
// exported but could not save its report exits with ExitPersistence.
func ExitCode(summary *Summary, err error) int {
	if err != nil {
		return ExitFailed
	}
	if summary != nil && summary.PersistErr != nil {
		return ExitPersistence
	}
	return ExitOK
}

// Runner processes receipt folders
type Runner struct {
	pipeline Processor
	records  RecordStore
	archive  receipt.Storage
	out      io.Writer
	now      func() time.Time
}

// NewRunner creates a Runner. records and archive may be nil to skip
// persistence and archiving.
func NewRunner(pipeline Processor, records RecordStore, archive receipt.Storage, out io.Writer) *Runner {
	return &Runner{
		pipeline: pipeline,
		records:  records,
		archive:  archive,
		out:      out,
		now:      time.Now,
	}
}

// Scan lists the supported receipts directly inside folder, sorted by path
func Scan(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFolderMissing, folder)
	}
	if err != nil {
		return nil, fmt.Errorf("reading folder: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && scanning.IsSupported(e.Name()) {
			files = append(files, filepath.Join(folder, e.Name()))
		}
	}
	slices.Sort(files)
	return files, nil
}

// Run processes every receipt in folder sequentially
func (r *Runner) Run(ctx context.Context, folder string, opts Options) (*Summary, error) {
	summary := &Summary{RunID: uuid.NewString()}
	log := slog.With("run", summary.RunID)

	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		fmt.Fprintf(r.out, "❌ Ordner nicht gefunden: %s\n", folder)
		return summary, fmt.Errorf("%w: %s", ErrFolderMissing, folder)
	}

	fmt.Fprintf(r.out, "\n📁 Scanne Ordner: %s\n", folder)
	files, err := Scan(folder)
	if err != nil {
		return summary, err
	}
	if len(files) == 0 {
		fmt.Fprintln(r.out, "❌ Keine Belege gefunden (PDF, JPG, PNG)")
		return summary, ErrNoReceipts
	}
	fmt.Fprintf(r.out, "📄 %d Belege gefunden\n\n", len(files))

	var (
		receipts  []*scanning.ReceiptData
		names     []string
		processed []string
	)
	for i, path := range files {
		name := filepath.Base(path)
		fmt.Fprintf(r.out, "[%d/%d] Verarbeite: %s ", i+1, len(files), name)

		res, err := r.pipeline.ProcessFile(ctx, path)
		if err != nil || res == nil || !res.Done() {
			if err == nil {
				err = errors.New("unbekannter Fehler")
			}
			summary.Failed++
			fmt.Fprintf(r.out, "❌ %v\n", err)
			log.Debug("Receipt failed", "file", name, "error", err)
			continue
		}

		if res.Cached {
			summary.Cached++
		}
		receipts = append(receipts, res.Data)
		names = append(names, name)
		processed = append(processed, path)
		fmt.Fprintf(r.out, "✅ %s\n", resultLine(res))
		if opts.Verbose {
			fmt.Fprintf(r.out, "         → %s (%s)\n", res.Data.Description, res.Data.Provider)
		}
	}
	summary.Processed = len(receipts)

	fmt.Fprintf(r.out, "\n%s\n", strings.Repeat("=", 60))
	if summary.Cached > 0 {
		fmt.Fprintf(r.out, "✅ Erfolgreich: %d Belege (%d aus Cache)\n", summary.Processed, summary.Cached)
	} else {
		fmt.Fprintf(r.out, "✅ Erfolgreich: %d Belege\n", summary.Processed)
	}
	if summary.Failed > 0 {
		fmt.Fprintf(r.out, "❌ Fehler: %d Belege\n", summary.Failed)
	}

	if summary.Processed == 0 {
		fmt.Fprintln(r.out, "\n❌ Keine Belege verarbeitet - Abbruch")
		return summary, ErrNothingProcessed
	}

	now := r.now()
	month := opts.Month
	if month == "" {
		month = period.DefaultLabel(now)
	}
	meta := render.NewMeta(opts.Name, month, now)
	lines := render.LinesFromReceipts(receipts, names)
	summary.Total = render.Total(lines)
	fmt.Fprintf(r.out, "\n💰 Gesamtsumme: %.2f EUR\n", summary.Total)

	if r.records != nil {
		records := make([]report.Record, len(receipts))
		for i, d := range receipts {
			records[i] = report.FromReceipt(d)
		}
		id, err := r.records.AppendRecords(ctx, meta.Name, meta.Month, meta.Date, records)
		if err != nil {
			summary.PersistErr = err
			log.Error("Failed to save report", "name", meta.Name, "month", meta.Month, "error", err)
			fmt.Fprintf(r.out, "\n⚠️  Datenbank-Fehler: %v\n", err)
		} else {
			summary.ReportID = id
			fmt.Fprintf(r.out, "\n💾 In Datenbank gespeichert (ID: %d)\n", id)
		}
	}

	base := opts.Output
	if base == "" {
		base = render.DefaultBase(opts.ExportsDir, month, now)
	}
	exports, err := render.Export(base, opts.Format, meta, lines)
	summary.Exports = exports
	for _, p := range exports {
		fmt.Fprintf(r.out, "📄 Exportiert: %s\n", p)
	}
	if err != nil {
		return summary, fmt.Errorf("exporting report: %w", err)
	}

	if r.archive != nil {
		dir := period.Parse(month, now).Dir()
		fmt.Fprintf(r.out, "\n📦 Archiviere %d Belege...\n", len(processed))
		for _, path := range processed {
			target, err := r.archive.Archive(path, dir)
			if err != nil {
				log.Warn("Failed to archive receipt", "file", path, "error", err)
				fmt.Fprintf(r.out, "⚠️  Archivierung fehlgeschlagen für %s: %v\n", filepath.Base(path), err)
				continue
			}
			summary.Archived = append(summary.Archived, target)
			if opts.Verbose {
				fmt.Fprintf(r.out, "   → %s\n", filepath.Base(path))
			}
		}
		fmt.Fprintf(r.out, "✅ %d Belege archiviert nach: %s\n", len(summary.Archived), dir)
	}

	fmt.Fprintln(r.out, "\n✨ Fertig!")
	return summary, nil
}

// resultLine renders "12.30 EUR - bewirtung", with the conversion and a cache marker when relevant
func resultLine(res *receipt.Result) string {
	d := res.Data
	category := d.Category
	if category == "" {
		category = "?"
	}

	var line string
	if d.OriginalAmount != "" {
		line = fmt.Sprintf("%s - %s → %.2f EUR", d.OriginalAmount, category, d.AmountValue())
	} else {
		currency := d.Currency
		if currency == "" {
			currency = "EUR"
		}
		line = fmt.Sprintf("%.2f %s - %s", d.AmountValue(), currency, category)
	}
	if res.Cached {
		line += " 📦"
	}
	return line
}
