package currency

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Base is the currency every amount is normalized to
const Base = "EUR"

// ECBDailyURL is the European Central Bank reference rate feed
const ECBDailyURL = "https://www.ecb.europa.eu/stats/eurofxref/eurofxref-daily.xml"

// minLiveRates is the number of currencies a live table needs to be trusted
const minLiveRates = 5

// RateSource provides exchange rates to the base currency
type RateSource interface {
	// Refresh loads the rate table
	Refresh(ctx context.Context) error
	// Rates returns code → rate-to-EUR
	Rates() map[string]float64
}

// FallbackRates is used when live rates cannot be fetched
var FallbackRates = map[string]float64{
	"EUR": 1.0,
	"USD": 0.95,
	"GBP": 1.17,
	"CHF": 1.06,
	"DKK": 0.134,
	"SEK": 0.088,
	"NOK": 0.085,
	"PLN": 0.23,
	"CZK": 0.040,
	"HUF": 0.0025,
	"RON": 0.20,
	"BGN": 0.51,
	"HRK": 0.133,
	"JPY": 0.0063,
	"CNY": 0.13,
	"AUD": 0.61,
	"CAD": 0.68,
}

// StaticSource serves a fixed rate table
type StaticSource map[string]float64

// Refresh is a no-op
func (s StaticSource) Refresh(ctx context.Context) error {
	return nil
}

// Rates returns the table
func (s StaticSource) Rates() map[string]float64 {
	return s
}

// ECB fetches the daily reference rates published by the ECB
type ECB struct {
	url    string
	client *http.Client
	rates  map[string]float64
}

// NewECB creates a live source. An empty url uses ECBDailyURL.
func NewECB(url string) *ECB {
	if url == "" {
		url = ECBDailyURL
	}
	return &ECB{
		url: url,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type ecbEnvelope struct {
	Cubes []ecbCube `xml:"Cube>Cube>Cube"`
}

type ecbCube struct {
	Currency string `xml:"currency,attr"`
	Rate     string `xml:"rate,attr"`
}

// Refresh downloads the feed. The ECB quotes units per EUR, so each rate is inverted.
func (e *ECB) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching ECB rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ECB rates: unexpected status %d", resp.StatusCode)
	}

	var env ecbEnvelope
	if err := xml.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decoding ECB rates: %w", err)
	}

	rates := map[string]float64{Base: 1.0}
	for _, c := range env.Cubes {
		r, err := strconv.ParseFloat(c.Rate, 64)
		if err != nil || r <= 0 || c.Currency == "" {
			continue
		}
		rates[c.Currency] = 1 / r
	}

	if len(rates) <= minLiveRates {
		return fmt.Errorf("ECB rates: only %d currencies", len(rates))
	}

	e.rates = rates
	return nil
}

// Rates returns the last downloaded table
func (e *ECB) Rates() map[string]float64 {
	return e.rates
}

// Session loads rates once per process, falling back to a static table
type Session struct {
	live     RateSource
	fallback map[string]float64

	once   sync.Once
	rates  map[string]float64
	isLive bool
}

// NewSession wraps live, which may be nil for offline use
func NewSession(live RateSource, fallback map[string]float64) *Session {
	if fallback == nil {
		fallback = FallbackRates
	}
	return &Session{live: live, fallback: fallback}
}

// Refresh loads the table on first use; later calls keep the cached table
func (s *Session) Refresh(ctx context.Context) error {
	s.once.Do(func() {
		if s.live != nil {
			if err := s.live.Refresh(ctx); err != nil {
				slog.Warn("Live exchange rates unavailable, using fallback table", "error", err)
			} else {
				s.rates = s.live.Rates()
				s.isLive = true
				slog.Debug("Loaded live exchange rates", "currencies", len(s.rates))
				return
			}
		}
		s.rates = s.fallback
	})
	return nil
}

// Rates returns the session table, nil before Refresh
func (s *Session) Rates() map[string]float64 {
	return s.rates
}

// Live reports whether the session table came from the live source
func (s *Session) Live() bool {
	return s.isLive
}
