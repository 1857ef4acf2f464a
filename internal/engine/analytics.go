package engine

import (
	"math"

	"github.com/shopspring/decimal"

	"stock-backtester/internal/model"
)

// tradingDaysPerYear is the annualization constant for daily bars.
const tradingDaysPerYear = 252

type runStats struct {
	totalReturn float64
	winRate     float64
	summary     model.Summary
}

// analyze derives the aggregate statistics from the completed trade list and
// equity curve. It is a pure post-run pass; zero trades or a degenerate curve
// yield zero values, never an error.
//
// Formulas, kept stable across releases:
//
//	total_return%  = (final_equity/starting_cash - 1) * 100
//	r_i            = (equity_i - equity_{i-1}) / equity_{i-1}   (per-bar)
//	sharpe_ratio   = mean(r) / stddev(r) * sqrt(252)
//	annual_return% = mean(r) * 252 * 100
//	volatility%    = stddev(r) * sqrt(252) * 100
//	max_drawdown%  = max over bars of (peak - equity) / peak * 100
//
// stddev is the population standard deviation of the per-bar return series.
func analyze(trades []model.Trade, curve []model.EquitySnapshot, startingCash decimal.Decimal) runStats {
	stats := runStats{}

	if len(curve) > 0 && startingCash.IsPositive() {
		final, _ := curve[len(curve)-1].Equity.Div(startingCash).Float64()
		stats.totalReturn = (final - 1) * 100
	}

	winning, losing := 0, 0
	durationSum := 0.0
	curWins, curLosses := 0, 0
	maxWins, maxLosses := 0, 0
	for _, t := range trades {
		if t.Winning() {
			winning++
			curWins++
			curLosses = 0
		} else {
			losing++
			curLosses++
			curWins = 0
		}
		if curWins > maxWins {
			maxWins = curWins
		}
		if curLosses > maxLosses {
			maxLosses = curLosses
		}
		durationSum += t.DurationDays()
	}

	if len(trades) > 0 {
		stats.winRate = float64(winning) / float64(len(trades))
		stats.summary.AvgTradeDuration = durationSum / float64(len(trades))
	}

	returns := barReturns(curve)
	mean, std := meanStd(returns)

	var sharpe float64
	if std > 0 {
		sharpe = mean / std * math.Sqrt(tradingDaysPerYear)
	}

	stats.summary.SharpeRatio = sharpe
	stats.summary.MaxDrawdown = maxDrawdown(curve)
	stats.summary.AnnualReturn = mean * tradingDaysPerYear * 100
	stats.summary.Volatility = std * math.Sqrt(tradingDaysPerYear) * 100
	stats.summary.TotalTrades = len(trades)
	stats.summary.WinningTrades = winning
	stats.summary.LosingTrades = losing
	stats.summary.MaxConsecutiveWins = maxWins
	stats.summary.MaxConsecutiveLosses = maxLosses
	return stats
}

// barReturns is the simple period-over-period percentage change of equity.
func barReturns(curve []model.EquitySnapshot) []float64 {
	if len(curve) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev.IsZero() {
			returns = append(returns, 0)
			continue
		}
		r, _ := curve[i].Equity.Sub(prev).Div(prev).Float64()
		returns = append(returns, r)
	}
	return returns
}

func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return mean, math.Sqrt(sumSq / float64(len(values)))
}

// maxDrawdown is the largest peak-to-trough equity decline as a percentage
// of the running peak.
func maxDrawdown(curve []model.EquitySnapshot) float64 {
	if len(curve) == 0 {
		return 0
	}
	peak := curve[0].Equity
	maxDD := decimal.Zero
	for _, snap := range curve {
		if snap.Equity.GreaterThan(peak) {
			peak = snap.Equity
		}
		if peak.IsZero() {
			continue
		}
		dd := peak.Sub(snap.Equity).Div(peak)
		if dd.GreaterThan(maxDD) {
			maxDD = dd
		}
	}
	out, _ := maxDD.Mul(decimal.NewFromInt(100)).Float64()
	return out
}
