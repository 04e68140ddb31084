package scanning

import (
	"context"
	"log/slog"
	"time"
)

// DefaultExtractTimeout bounds a single call to the extraction service
const DefaultExtractTimeout = 60 * time.Second

// Resilient wraps an extractor so that any failure degrades to the regex fallback
type Resilient struct {
	primary Extractor
	timeout time.Duration
}

// NewResilient wraps primary, which may be nil when no service is configured
func NewResilient(primary Extractor, timeout time.Duration) *Resilient {
	if timeout <= 0 {
		timeout = DefaultExtractTimeout
	}
	return &Resilient{primary: primary, timeout: timeout}
}

// Extract never returns an error; failures of the primary are logged
func (r *Resilient) Extract(ctx context.Context, text string, image []byte) (*ReceiptData, error) {
	if r.primary == nil {
		slog.Debug("No extraction service configured, using fallback")
		return FallbackExtract(text), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	data, err := r.primary.Extract(callCtx, text, image)
	if err != nil {
		slog.Warn("Extraction failed, using fallback",
			"error", err,
			"timeout", r.timeout,
			"text_length", len(text),
		)
		return FallbackExtract(text), nil
	}
	return data, nil
}

// Close closes the wrapped extractor
func (r *Resilient) Close() error {
	if r.primary == nil {
		return nil
	}
	return r.primary.Close()
}
