package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"stock-backtester/internal/model"
)

// PostgresProvider serves bar history from the daily_bars table.
type PostgresProvider struct {
	pool *pgxpool.Pool
}

var _ Provider = (*PostgresProvider)(nil)

func NewPostgresProvider(pool *pgxpool.Pool) *PostgresProvider {
	return &PostgresProvider{pool: pool}
}

func (p *PostgresProvider) Fetch(ctx context.Context, ticker string, start, end time.Time) ([]model.Bar, error) {
	var known bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM daily_bars WHERE ticker = $1)`, ticker).Scan(&known)
	if err != nil {
		return nil, fmt.Errorf("check ticker %s: %w", ticker, err)
	}
	if !known {
		return nil, fmt.Errorf("%s: %w", ticker, ErrTickerNotFound)
	}

	rows, err := p.pool.Query(ctx, `
		SELECT ticker, bar_date, open, high, low, close, volume
		FROM daily_bars
		WHERE ticker = $1 AND bar_date >= $2 AND bar_date <= $3
		ORDER BY bar_date ASC`,
		ticker, start, end)
	if err != nil {
		return nil, fmt.Errorf("query bars for %s: %w", ticker, err)
	}
	defer rows.Close()

	var bars []model.Bar
	for rows.Next() {
		var b model.Bar
		if err := rows.Scan(&b.Ticker, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	bars = normalize(bars, start, end)
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s %s..%s: %w",
			ticker, start.Format("2006-01-02"), end.Format("2006-01-02"), ErrNoData)
	}
	return bars, nil
}

func (p *PostgresProvider) Tickers(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT DISTINCT ticker FROM daily_bars ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("query tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tickers = append(tickers, t)
	}
	return tickers, rows.Err()
}
