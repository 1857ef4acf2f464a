package engine

import (
	"context"

	"stock-backtester/internal/model"
)

// CompletionHook receives a finalized BacktestResult exactly once per run.
// Hooks run after the result has been returned to the caller; their outcome
// can never alter or roll back the result.
type CompletionHook interface {
	Name() string
	OnBacktestComplete(ctx context.Context, params RunParams, result *model.BacktestResult) error
}
