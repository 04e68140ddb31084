// Package reconcile links report records that predate the receipt cache back
// to their cached receipts.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/zombor/spesen/internal/period"
	"github.com/zombor/spesen/internal/receipt"
	"github.com/zombor/spesen/internal/report"
)

// RecordStore is the part of the report store the reconciler needs
type RecordStore interface {
	ListItems(ctx context.Context) ([]report.Item, error)
	SetItemHash(ctx context.Context, id int64, hash string) error
}

// Stats counts the outcome of a run
type Stats struct {
	Updated       int
	AlreadyLinked int
	NotFound      int
}

// Reconciler matches records to cache entries by date and amount
type Reconciler struct {
	Cache   receipt.CacheStore
	Records RecordStore
	Scorer  Scorer
}

// New returns a Reconciler using the TokenScorer
func New(cache receipt.CacheStore, records RecordStore) *Reconciler {
	return &Reconciler{Cache: cache, Records: records, Scorer: NewTokenScorer()}
}

type key struct {
	date  string
	cents int64
}

type candidate struct {
	hash  string
	entry *receipt.CacheEntry
}

func amountKey(date string, amount float64) key {
	return key{
		date:  period.NormalizeDate(date),
		cents: decimal.NewFromFloat(amount).Round(2).Shift(2).IntPart(),
	}
}

// Run links every unlinked record to its best matching receipt. Existing links are never changed.
func (r *Reconciler) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	index := make(map[key][]candidate)
	err := r.Cache.Scan(func(hash string, entry *receipt.CacheEntry) error {
		if entry.Date == "" || entry.Amount == nil {
			return nil
		}
		k := amountKey(entry.Date, *entry.Amount)
		index[k] = append(index[k], candidate{hash: hash, entry: entry})
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("indexing cache: %w", err)
	}
	slog.Debug("Indexed receipt cache", "keys", len(index))

	items, err := r.Records.ListItems(ctx)
	if err != nil {
		return stats, fmt.Errorf("listing records: %w", err)
	}

	scorer := r.Scorer
	if scorer == nil {
		scorer = NewTokenScorer()
	}

	for _, item := range items {
		rec := item.Record
		if rec.Hash() != "" {
			stats.AlreadyLinked++
			continue
		}
		if rec.Day() == "" {
			stats.NotFound++
			continue
		}

		k := amountKey(rec.Day(), rec.Total())
		var (
			best      *candidate
			bestScore float64
		)
		for i, c := range index[k] {
			if score := scorer.Score(rec, c.entry); score > bestScore {
				best, bestScore = &index[k][i], score
			}
		}
		if best == nil {
			stats.NotFound++
			continue
		}

		err := r.Records.SetItemHash(ctx, item.ID, best.hash)
		if errors.Is(err, report.ErrAlreadyLinked) {
			// linked concurrently since ListItems
			stats.AlreadyLinked++
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("linking record %d: %w", item.ID, err)
		}
		rec.SetHash(best.hash)
		stats.Updated++
		slog.Info("Linked record", "id", item.ID, "date", k.date, "amount", rec.Total(), "file", best.entry.File, "score", fmt.Sprintf("%.2f", bestScore))
	}

	return stats, nil
}
