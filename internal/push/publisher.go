package push

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"stock-backtester/internal/engine"
	"stock-backtester/internal/model"
)

// Publisher emits a summary of every completed backtest run onto JetStream
// so downstream consumers (dashboards, the websocket gateway) can react
// without being in the request path.
type Publisher struct {
	js nats.JetStreamContext
}

var _ engine.CompletionHook = (*Publisher)(nil)

func NewPublisher(js nats.JetStreamContext) *Publisher {
	return &Publisher{js: js}
}

func (p *Publisher) Name() string { return "nats-publisher" }

func (p *Publisher) OnBacktestComplete(_ context.Context, params engine.RunParams, result *model.BacktestResult) error {
	payload, err := json.Marshal(struct {
		Ticker      string        `json:"ticker"`
		StartDate   string        `json:"start_date"`
		EndDate     string        `json:"end_date"`
		Condition   string        `json:"rule_condition"`
		TotalReturn float64       `json:"total_return"`
		WinRate     float64       `json:"win_rate"`
		NumTrades   int           `json:"num_trades"`
		Summary     model.Summary `json:"summary"`
	}{
		Ticker:      result.Ticker,
		StartDate:   result.StartDate,
		EndDate:     result.EndDate,
		Condition:   string(params.Rule.Condition),
		TotalReturn: result.TotalReturn,
		WinRate:     result.WinRate,
		NumTrades:   result.NumTrades,
		Summary:     result.Summary,
	})
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}

	subject := fmt.Sprintf("backtest.completed.%s", result.Ticker)
	if _, err := p.js.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}
