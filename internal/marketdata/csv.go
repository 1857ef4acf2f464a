package marketdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stock-backtester/internal/model"
)

// CSVProvider reads bar history from a directory of <TICKER>.csv files with
// a header row naming at least Date, Open, High, Low, Close, Volume.
// Extra columns (e.g. Adj Close) are ignored.
type CSVProvider struct {
	dir    string
	logger *zap.Logger
}

var _ Provider = (*CSVProvider)(nil)

func NewCSVProvider(dir string, logger *zap.Logger) *CSVProvider {
	return &CSVProvider{dir: dir, logger: logger}
}

func (p *CSVProvider) Fetch(_ context.Context, ticker string, start, end time.Time) ([]model.Bar, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	path := filepath.Join(p.dir, ticker+".csv")

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", ticker, ErrTickerNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%s: %w", ticker, ErrNoData)
	}

	cols, err := headerIndex(records[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	bars := make([]model.Bar, 0, len(records)-1)
	for i, rec := range records[1:] {
		bar, err := parseRow(ticker, rec, cols)
		if err != nil {
			p.logger.Warn("skipping malformed csv row",
				zap.String("file", path), zap.Int("row", i+2), zap.Error(err))
			continue
		}
		bars = append(bars, bar)
	}

	bars = normalize(bars, start, end)
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s %s..%s: %w",
			ticker, start.Format("2006-01-02"), end.Format("2006-01-02"), ErrNoData)
	}
	return bars, nil
}

func (p *CSVProvider) Tickers(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir %s: %w", p.dir, err)
	}
	tickers := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".csv") {
			continue
		}
		tickers = append(tickers, strings.TrimSuffix(name, ".csv"))
	}
	sort.Strings(tickers)
	return tickers, nil
}

type columnIndex struct {
	date, open, high, low, close, volume int
}

func headerIndex(header []string) (columnIndex, error) {
	idx := columnIndex{date: -1, open: -1, high: -1, low: -1, close: -1, volume: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "date":
			idx.date = i
		case "open":
			idx.open = i
		case "high":
			idx.high = i
		case "low":
			idx.low = i
		case "close":
			idx.close = i
		case "volume":
			idx.volume = i
		}
	}
	if idx.date < 0 || idx.open < 0 || idx.high < 0 || idx.low < 0 || idx.close < 0 || idx.volume < 0 {
		return idx, fmt.Errorf("missing required columns in header %v", header)
	}
	return idx, nil
}

// Date cells may carry a time or timezone suffix depending on the exporter.
var dateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339}

func parseRow(ticker string, rec []string, cols columnIndex) (model.Bar, error) {
	get := func(i int) string {
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var date time.Time
	var err error
	for _, layout := range dateLayouts {
		date, err = time.Parse(layout, get(cols.date))
		if err == nil {
			break
		}
	}
	if err != nil {
		return model.Bar{}, fmt.Errorf("bad date %q", get(cols.date))
	}
	// Strip any time-of-day component so dates compare cleanly.
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	bar := model.Bar{Ticker: ticker, Date: date}
	for name, dst := range map[string]struct {
		col int
		out *decimal.Decimal
	}{
		"open":   {cols.open, &bar.Open},
		"high":   {cols.high, &bar.High},
		"low":    {cols.low, &bar.Low},
		"close":  {cols.close, &bar.Close},
		"volume": {cols.volume, &bar.Volume},
	} {
		v, err := decimal.NewFromString(get(dst.col))
		if err != nil {
			return model.Bar{}, fmt.Errorf("bad %s %q", name, get(dst.col))
		}
		*dst.out = v
	}
	return bar, nil
}
