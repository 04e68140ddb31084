package currency

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/zombor/spesen/internal/scanning"
)

// Conversion is the result of converting one amount to EUR
type Conversion struct {
	Amount   float64
	Original string // "100.00 USD"; empty when nothing was converted
	Currency string
	Unknown  bool
}

// Converted reports whether a foreign amount was converted
func (c Conversion) Converted() bool {
	return c.Original != ""
}

// Normalizer converts foreign amounts into EUR
type Normalizer struct {
	source RateSource
}

// NewNormalizer creates a Normalizer. The source is refreshed lazily on the first foreign amount.
func NewNormalizer(source RateSource) *Normalizer {
	if source == nil {
		source = NewSession(nil, nil)
	}
	return &Normalizer{source: source}
}

// Convert converts amount from code to EUR, rounded half-up to two decimals
func (n *Normalizer) Convert(ctx context.Context, amount float64, code string) Conversion {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || code == Base {
		return Conversion{Amount: amount, Currency: Base}
	}

	rates := n.source.Rates()
	if rates == nil {
		if err := n.source.Refresh(ctx); err != nil {
			slog.Warn("Refreshing exchange rates failed", "error", err)
		}
		rates = n.source.Rates()
	}

	rate, ok := rates[code]
	if !ok {
		slog.Warn("Unknown currency, amount not converted", "currency", code, "amount", amount)
		return Conversion{Amount: amount, Currency: code, Unknown: true}
	}

	converted := decimal.NewFromFloat(amount).Mul(decimal.NewFromFloat(rate)).Round(2)
	value, _ := converted.Float64()

	return Conversion{
		Amount:   value,
		Original: fmt.Sprintf("%.2f %s", amount, code),
		Currency: Base,
	}
}

// NormalizeReceipt converts the receipt amount in place and re-tags it as EUR.
// The original amount is kept in OriginalAmount and appended to the description once.
// Already normalized data is left unchanged.
func (n *Normalizer) NormalizeReceipt(ctx context.Context, data *scanning.ReceiptData) {
	if data == nil || data.Amount == nil || *data.Amount == 0 || data.Currency == "" {
		return
	}

	conv := n.Convert(ctx, *data.Amount, data.Currency)
	if !conv.Converted() {
		return
	}

	data.Amount = scanning.Float(conv.Amount)
	data.OriginalAmount = conv.Original
	data.OriginalCurrency = strings.ToUpper(strings.TrimSpace(data.Currency))
	data.Currency = Base

	if data.Description != "" && !strings.Contains(data.Description, conv.Original) {
		data.Description = fmt.Sprintf("%s (%s)", data.Description, conv.Original)
	}
}
