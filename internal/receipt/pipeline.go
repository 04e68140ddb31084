package receipt

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/zombor/spesen/internal/currency"
	"github.com/zombor/spesen/internal/scanning"
)

// State is a step of a pipeline run
type State string

const (
	StateReceived           State = "received"
	StateHashComputed       State = "hash_computed"
	StateCacheHit           State = "cache_hit"
	StateCacheMiss          State = "cache_miss"
	StateOCRRunning         State = "ocr_running"
	StateExtractionRunning  State = "extraction_running"
	StateCurrencyNormalized State = "currency_normalized"
	StateCacheStored        State = "cache_stored"
	StateDone               State = "done"
	StateFailed             State = "failed"
)

// Source is one receipt file handed to the pipeline
type Source struct {
	Name string // file name used for type detection and stored as datei
	Path string // absolute location, stored as datei_pfad
	Data []byte
}

// Result is the outcome of one pipeline run
type Result struct {
	Hash   string
	Data   *scanning.ReceiptData
	Cached bool
	Path   string
	State  State
	Trace  []State
}

// Done reports whether the run completed successfully
func (r *Result) Done() bool {
	return r != nil && r.State == StateDone
}

func (r *Result) advance(s State) {
	r.State = s
	r.Trace = append(r.Trace, s)
}

// Pipeline turns receipt files into normalized receipt data
type Pipeline struct {
	cache      *Cache
	loader     scanning.PageLoader
	recognizer scanning.TextRecognizer
	extractor  scanning.Extractor
	normalizer *currency.Normalizer
}

// NewPipeline creates a Pipeline with the default file loader. A nil store disables caching.
func NewPipeline(store CacheStore, recognizer scanning.TextRecognizer, extractor scanning.Extractor, normalizer *currency.Normalizer) *Pipeline {
	return NewPipelineWithDeps(store, scanning.FileLoader{}, recognizer, extractor, normalizer)
}

// NewPipelineWithDeps creates a Pipeline with a custom page loader for testing
func NewPipelineWithDeps(store CacheStore, loader scanning.PageLoader, recognizer scanning.TextRecognizer, extractor scanning.Extractor, normalizer *currency.Normalizer) *Pipeline {
	if extractor == nil {
		extractor = scanning.Fallback{}
	}
	if normalizer == nil {
		normalizer = currency.NewNormalizer(nil)
	}
	return &Pipeline{
		cache:      NewCache(store),
		loader:     loader,
		recognizer: recognizer,
		extractor:  extractor,
		normalizer: normalizer,
	}
}

// ProcessFile reads the file at path and runs it through the pipeline
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (*Result, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		res := &Result{Path: absPath}
		res.advance(StateFailed)
		return res, fmt.Errorf("reading file: %w", err)
	}

	return p.Process(ctx, Source{
		Name: filepath.Base(absPath),
		Path: absPath,
		Data: data,
	})
}

// Process runs a single receipt. On failure the returned Result is in StateFailed
// and nothing is written to the cache.
func (p *Pipeline) Process(ctx context.Context, src Source) (*Result, error) {
	if src.Name == "" {
		src.Name = filepath.Base(src.Path)
	}

	res := &Result{Path: src.Path}
	res.advance(StateReceived)

	res.Hash = HashBytes(src.Data)
	res.advance(StateHashComputed)

	if entry := p.cache.Lookup(res.Hash); entry != nil {
		res.advance(StateCacheHit)
		data := entry.ReceiptData
		data.FileHash = res.Hash
		res.Data = &data
		res.Cached = true
		res.advance(StateDone)
		slog.Debug("Receipt served from cache", "file", src.Name, "hash", res.Hash)
		return res, nil
	}
	res.advance(StateCacheMiss)

	res.advance(StateOCRRunning)
	pages, err := p.loader.LoadPages(src.Name, src.Data)
	if err != nil {
		return p.fail(res, src, fmt.Errorf("loading pages: %w", err))
	}
	if len(pages) == 0 {
		return p.fail(res, src, fmt.Errorf("no pages in %s", src.Name))
	}

	text, err := p.recognize(ctx, pages)
	if err != nil {
		return p.fail(res, src, err)
	}

	res.advance(StateExtractionRunning)
	preview, err := scanning.PrepareForVision(pages[0])
	if err != nil {
		slog.Warn("Failed to prepare preview image", "file", src.Name, "error", err)
		preview = nil
	}

	data, err := p.extractor.Extract(ctx, text, preview)
	if err != nil || data == nil {
		slog.Warn("Extraction returned no data, using fallback", "file", src.Name, "error", err)
		data = scanning.FallbackExtract(text)
	}
	data.FileHash = ""

	p.normalizer.NormalizeReceipt(ctx, data)
	res.advance(StateCurrencyNormalized)
	res.Data = data

	// file_hash must always resolve to a cache entry
	entry := &CacheEntry{ReceiptData: *data, File: src.Name, Path: src.Path}
	entry.FileHash = res.Hash
	if p.cache.Store(res.Hash, entry) {
		data.FileHash = res.Hash
		res.advance(StateCacheStored)
	}

	res.advance(StateDone)
	return res, nil
}

// recognize runs OCR page by page and joins the text in page order
func (p *Pipeline) recognize(ctx context.Context, pages []image.Image) (string, error) {
	if p.recognizer == nil {
		return "", scanning.ErrOCRUnavailable
	}

	var text strings.Builder
	for i, page := range pages {
		pageText, err := p.recognizer.RecognizeText(ctx, page)
		if err != nil {
			return "", fmt.Errorf("recognizing page %d: %w", i+1, err)
		}
		text.WriteString(pageText)
		text.WriteString("\n")
	}
	return text.String(), nil
}

func (p *Pipeline) fail(res *Result, src Source, err error) (*Result, error) {
	slog.Error("Failed to process receipt",
		"file", src.Name,
		"hash", res.Hash,
		"state", res.State,
		"error", err,
	)
	res.advance(StateFailed)
	return res, err
}
