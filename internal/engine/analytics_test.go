package engine

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"stock-backtester/internal/model"
)

func snapshotCurve(equities ...float64) []model.EquitySnapshot {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	curve := make([]model.EquitySnapshot, len(equities))
	for i, eq := range equities {
		curve[i] = model.EquitySnapshot{
			Date:   base.AddDate(0, 0, i),
			Equity: decimal.NewFromFloat(eq),
		}
	}
	return curve
}

func tradeWithPnL(entryDay, exitDay int, netPnL float64) model.Trade {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return model.Trade{
		EntryDate: base.AddDate(0, 0, entryDay),
		ExitDate:  base.AddDate(0, 0, exitDay),
		Quantity:  decimal.NewFromInt(1),
		NetPnL:    decimal.NewFromFloat(netPnL),
	}
}

func TestAnalyze_EmptyInputs(t *testing.T) {
	stats := analyze(nil, nil, decimal.NewFromInt(100000))

	assert.Equal(t, 0.0, stats.totalReturn)
	assert.Equal(t, 0.0, stats.winRate)
	assert.Equal(t, 0, stats.summary.TotalTrades)
	assert.Equal(t, 0.0, stats.summary.SharpeRatio)
	assert.Equal(t, 0.0, stats.summary.MaxDrawdown)
	assert.Equal(t, 0.0, stats.summary.Volatility)
	assert.Equal(t, 0.0, stats.summary.AvgTradeDuration)
}

func TestAnalyze_SingleSnapshot(t *testing.T) {
	stats := analyze(nil, snapshotCurve(100000), decimal.NewFromInt(100000))
	assert.Equal(t, 0.0, stats.totalReturn)
	assert.Equal(t, 0.0, stats.summary.SharpeRatio)
	assert.Equal(t, 0.0, stats.summary.MaxDrawdown)
}

func TestAnalyze_TotalReturn(t *testing.T) {
	stats := analyze(nil, snapshotCurve(100000, 105000, 110000), decimal.NewFromInt(100000))
	assert.InDelta(t, 10.0, stats.totalReturn, 1e-9)
}

func TestAnalyze_WinRateAndStreaks(t *testing.T) {
	trades := []model.Trade{
		tradeWithPnL(0, 2, 50),    // W
		tradeWithPnL(3, 4, 30),    // W
		tradeWithPnL(5, 9, -10),   // L
		tradeWithPnL(10, 12, -20), // L
		tradeWithPnL(13, 14, -5),  // L
		tradeWithPnL(15, 20, 80),  // W
	}
	stats := analyze(trades, snapshotCurve(100, 110, 120), decimal.NewFromInt(100))

	assert.InDelta(t, 0.5, stats.winRate, 1e-12)
	assert.Equal(t, 6, stats.summary.TotalTrades)
	assert.Equal(t, 3, stats.summary.WinningTrades)
	assert.Equal(t, 3, stats.summary.LosingTrades)
	assert.Equal(t, 2, stats.summary.MaxConsecutiveWins)
	assert.Equal(t, 3, stats.summary.MaxConsecutiveLosses)

	// durations: 2,1,4,2,1,5 days -> mean 2.5
	assert.InDelta(t, 2.5, stats.summary.AvgTradeDuration, 1e-9)
}

func TestAnalyze_ZeroPnLTradeIsLoss(t *testing.T) {
	stats := analyze([]model.Trade{tradeWithPnL(0, 1, 0)}, snapshotCurve(100, 100), decimal.NewFromInt(100))
	// Winning means net_pnl > 0, strictly.
	assert.Equal(t, 0, stats.summary.WinningTrades)
	assert.Equal(t, 1, stats.summary.LosingTrades)
	assert.Equal(t, 0.0, stats.winRate)
}

func TestAnalyze_MaxDrawdown(t *testing.T) {
	// Peak 120, trough 90: drawdown 25%.
	stats := analyze(nil, snapshotCurve(100, 120, 110, 90, 115), decimal.NewFromInt(100))
	assert.InDelta(t, 25.0, stats.summary.MaxDrawdown, 1e-9)
}

func TestAnalyze_MonotonicCurveHasZeroDrawdown(t *testing.T) {
	stats := analyze(nil, snapshotCurve(100, 101, 102, 103), decimal.NewFromInt(100))
	assert.Equal(t, 0.0, stats.summary.MaxDrawdown)
}

func TestAnalyze_SharpeAndAnnualization(t *testing.T) {
	// Constant +1% per bar: stddev 0, sharpe defined as 0.
	stats := analyze(nil, snapshotCurve(100, 101, 102.01, 103.0301), decimal.NewFromInt(100))
	assert.Equal(t, 0.0, stats.summary.SharpeRatio)
	assert.InDelta(t, 0.01*252*100, stats.summary.AnnualReturn, 1e-6)
	assert.InDelta(t, 0.0, stats.summary.Volatility, 1e-6)

	// Alternating returns: +10%, then (100/110 - 1).
	stats = analyze(nil, snapshotCurve(100, 110, 100), decimal.NewFromInt(100))
	r1, r2 := 0.10, 100.0/110.0-1
	mean := (r1 + r2) / 2
	std := math.Sqrt(((r1-mean)*(r1-mean) + (r2-mean)*(r2-mean)) / 2)
	assert.InDelta(t, mean/std*math.Sqrt(252), stats.summary.SharpeRatio, 1e-9)
	assert.InDelta(t, std*math.Sqrt(252)*100, stats.summary.Volatility, 1e-9)
}
