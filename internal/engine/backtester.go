package engine

import (
	"fmt"

	"go.uber.org/zap"

	"stock-backtester/internal/model"
	"stock-backtester/internal/strategy"
)

// Backtester replays a bar sequence against one conditional rule. The loop is
// single-threaded and strictly sequential: indicators, snapshot and action of
// a bar are fully resolved before the next bar is consumed. A Backtester is
// single-use; state is owned exclusively by one Run.
type Backtester struct {
	params     RunParams
	indicators *SMAEngine
	broker     *Broker
	logger     *zap.Logger

	curve []model.EquitySnapshot
}

func NewBacktester(params RunParams, logger *zap.Logger) *Backtester {
	return &Backtester{
		params:     params,
		indicators: NewSMAEngine(params.SMAPeriod),
		broker:     NewBroker(params.Broker),
		logger:     logger,
		curve:      make([]model.EquitySnapshot, 0),
	}
}

// Run consumes the bar sequence and produces the final result. The per-bar
// order is fixed: update indicators, snapshot pre-action equity at the new
// close, evaluate the rule, then execute the chosen action at that same
// close. Open positions are left open; there is no forced liquidation at the
// end of the stream.
func (b *Backtester) Run(bars []model.Bar) (*model.BacktestResult, error) {
	for i, bar := range bars {
		ind := b.indicators.Update(bar)

		b.curve = append(b.curve, model.EquitySnapshot{
			Date:          bar.Date,
			Cash:          b.broker.Cash(),
			PositionValue: b.broker.PositionValue(bar.Close),
			Equity:        b.broker.Equity(bar.Close),
			ClosePrice:    bar.Close,
			PriceSMA:      ind.PriceSMA,
		})

		action := b.params.Rule.Decide(bar, ind)
		if err := b.execute(action, bar); err != nil {
			return nil, fmt.Errorf("bar %d (%s): %w", i, bar.Date.Format(dateLayout), err)
		}
	}

	result := b.finalize(bars)
	b.logger.Info("backtest finished",
		zap.String("ticker", b.params.Ticker),
		zap.Int("bars", len(bars)),
		zap.Int("trades", result.NumTrades),
		zap.Float64("total_return", result.TotalReturn),
	)
	return result, nil
}

// execute maps the rule's action onto the broker, applying position-state
// guards: buy only when flat, sell/exit only when long, hold never acts.
func (b *Backtester) execute(action strategy.Action, bar model.Bar) error {
	switch action {
	case strategy.ActionBuy:
		return b.broker.Buy(bar.Date, bar.Close)
	case strategy.ActionSell, strategy.ActionExit:
		return b.broker.Sell(bar.Date, bar.Close)
	case strategy.ActionHold:
		return nil
	}
	return fmt.Errorf("unknown action: %q", action)
}

func (b *Backtester) finalize(bars []model.Bar) *model.BacktestResult {
	trades := b.broker.Trades()
	stats := analyze(trades, b.curve, b.broker.StartingCash())

	finalEquity := b.broker.StartingCash()
	if len(b.curve) > 0 {
		// Mark the open position (if any) to the last close.
		finalEquity = b.broker.Equity(bars[len(bars)-1].Close)
	}

	return &model.BacktestResult{
		Ticker:       b.params.Ticker,
		StartDate:    b.params.StartDate.Format(dateLayout),
		EndDate:      b.params.EndDate.Format(dateLayout),
		TotalReturn:  stats.totalReturn,
		WinRate:      stats.winRate,
		NumTrades:    len(trades),
		StartingCash: b.broker.StartingCash(),
		FinalEquity:  finalEquity,
		EquityCurve:  b.curve,
		TradeHistory: trades,
		Summary:      stats.summary,
	}
}
