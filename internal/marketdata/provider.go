// Package marketdata supplies ordered daily bar history for a ticker.
package marketdata

import (
	"context"
	"errors"
	"sort"
	"time"

	"stock-backtester/internal/model"
)

var (
	// ErrTickerNotFound means the ticker has no history at all.
	ErrTickerNotFound = errors.New("ticker not found")
	// ErrNoData means the ticker exists but the requested range is empty.
	// Callers branch on this; it is an outcome, not a system fault.
	ErrNoData = errors.New("no data in requested range")
)

// Provider fetches daily bars for a ticker, sorted ascending by date,
// deduplicated, restricted to the closed range [start, end].
type Provider interface {
	// Fetch returns the bars or ErrTickerNotFound / ErrNoData.
	Fetch(ctx context.Context, ticker string, start, end time.Time) ([]model.Bar, error)

	// Tickers lists the instruments this provider can serve.
	Tickers(ctx context.Context) ([]string, error)
}

// normalize sorts ascending, drops duplicate dates (first occurrence wins)
// and filters to the closed [start, end] range.
func normalize(bars []model.Bar, start, end time.Time) []model.Bar {
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})

	out := make([]model.Bar, 0, len(bars))
	var last time.Time
	for _, bar := range bars {
		if bar.Date.Before(start) || bar.Date.After(end) {
			continue
		}
		if !last.IsZero() && !bar.Date.After(last) {
			continue
		}
		out = append(out, bar)
		last = bar.Date
	}
	return out
}
