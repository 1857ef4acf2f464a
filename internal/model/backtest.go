package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fill 单笔成交记录 (立即按收盘价成交)
type Fill struct {
	Date       time.Time       `json:"date"`
	Side       string          `json:"side"` // "BUY" or "SELL"
	Price      decimal.Decimal `json:"price"`
	Quantity   decimal.Decimal `json:"quantity"`
	Commission decimal.Decimal `json:"commission"`
}

const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Trade is a closed round trip. It is created exactly when a fill brings the
// position quantity back to zero; an open position never produces a Trade.
type Trade struct {
	EntryDate  time.Time       `json:"entry_date"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	ExitDate   time.Time       `json:"exit_date"`
	ExitPrice  decimal.Decimal `json:"exit_price"`
	Quantity   decimal.Decimal `json:"quantity"`
	GrossPnL   decimal.Decimal `json:"gross_pnl"`
	Commission decimal.Decimal `json:"commission"` // entry + exit legs
	NetPnL     decimal.Decimal `json:"net_pnl"`
}

// Winning reports whether the trade closed with a positive net PnL.
func (t Trade) Winning() bool {
	return t.NetPnL.IsPositive()
}

// DurationDays is the calendar span of the round trip in days.
func (t Trade) DurationDays() float64 {
	return t.ExitDate.Sub(t.EntryDate).Hours() / 24
}

// EquitySnapshot 每根K线一条权益快照, 在当日动作执行之前按收盘价估值
type EquitySnapshot struct {
	Date          time.Time        `json:"date"`
	Cash          decimal.Decimal  `json:"cash"`
	PositionValue decimal.Decimal  `json:"position_value"`
	Equity        decimal.Decimal  `json:"equity"`
	ClosePrice    decimal.Decimal  `json:"close_price"`
	PriceSMA      *decimal.Decimal `json:"sma"` // null while warming up
}

// Summary 回测统计汇总
type Summary struct {
	SharpeRatio          float64 `json:"sharpe_ratio"`
	MaxDrawdown          float64 `json:"max_drawdown"`
	AnnualReturn         float64 `json:"annual_return"`
	Volatility           float64 `json:"volatility"`
	TotalTrades          int     `json:"total_trades"`
	WinningTrades        int     `json:"winning_trades"`
	LosingTrades         int     `json:"losing_trades"`
	AvgTradeDuration     float64 `json:"avg_trade_duration"`
	MaxConsecutiveWins   int     `json:"max_consecutive_wins"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
}

// BacktestResult 回测结果报告
type BacktestResult struct {
	Ticker       string           `json:"ticker"`
	StartDate    string           `json:"start_date"`
	EndDate      string           `json:"end_date"`
	TotalReturn  float64          `json:"total_return"` // percent
	WinRate      float64          `json:"win_rate"`     // 0..1
	NumTrades    int              `json:"num_trades"`
	StartingCash decimal.Decimal  `json:"starting_cash"`
	FinalEquity  decimal.Decimal  `json:"final_equity"`
	EquityCurve  []EquitySnapshot `json:"equity_curve"`
	TradeHistory []Trade          `json:"trade_history"`
	Summary      Summary          `json:"summary"`
}
