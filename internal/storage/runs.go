// Package storage persists completed backtest runs to Postgres.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"

	"stock-backtester/internal/engine"
	"stock-backtester/internal/infrastructure"
	"stock-backtester/internal/model"
)

// ErrRunNotFound is returned when a run id does not exist or belongs to
// another user.
var ErrRunNotFound = errors.New("backtest run not found")

// RunRecord is one persisted backtest run. EquityCurve is only populated when
// a single run is fetched; listings omit it.
type RunRecord struct {
	ID            int64                  `json:"id"`
	UserID        int64                  `json:"user_id"`
	Ticker        string                 `json:"ticker"`
	StartDate     string                 `json:"start_date"`
	EndDate       string                 `json:"end_date"`
	SMAPeriod     int                    `json:"sma_period"`
	RuleCondition string                 `json:"rule_condition"`
	ThenAction    string                 `json:"rule_then_action"`
	ElseAction    string                 `json:"rule_else_action"`
	TotalReturn   float64                `json:"total_return"`
	WinRate       float64                `json:"win_rate"`
	NumTrades     int                    `json:"num_trades"`
	CreatedAt     string                 `json:"created_at"`
	EquityCurve   []model.EquitySnapshot `json:"equity_curve,omitempty"`
}

// RunStore writes completed runs to the backtest_runs table. It implements
// engine.CompletionHook so persistence happens after the result is already
// returned; a failed insert is logged and dropped, never surfaced.
type RunStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	userID func(ctx context.Context) int64
}

var _ engine.CompletionHook = (*RunStore)(nil)

// NewRunStore creates a RunStore. userID extracts the requesting user from
// the hook context (0 when unauthenticated).
func NewRunStore(pool *pgxpool.Pool, logger *zap.Logger, userID func(ctx context.Context) int64) *RunStore {
	return &RunStore{pool: pool, logger: logger, userID: userID}
}

func (s *RunStore) Name() string { return "postgres-run-store" }

func (s *RunStore) OnBacktestComplete(ctx context.Context, params engine.RunParams, result *model.BacktestResult) error {
	curve, err := json.Marshal(result.EquityCurve)
	if err != nil {
		return fmt.Errorf("marshal equity curve: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO backtest_runs
			(user_id, ticker, start_date, end_date, sma_period,
			 rule_condition, rule_then_action, rule_else_action,
			 total_return, win_rate, num_trades, equity_curve)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		s.userID(ctx), result.Ticker, params.StartDate, params.EndDate, params.SMAPeriod,
		string(params.Rule.Condition), string(params.Rule.Then), string(params.Rule.Else),
		result.TotalReturn, result.WinRate, result.NumTrades, curve)
	if err != nil {
		return fmt.Errorf("insert backtest run: %w", err)
	}

	infrastructure.DBInsertRate.WithLabelValues("backtest_runs").Inc()
	return nil
}

// ListRuns returns the most recent persisted runs for a user.
func (s *RunStore) ListRuns(ctx context.Context, userID int64, limit int) ([]RunRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, ticker,
		       to_char(start_date, 'YYYY-MM-DD'), to_char(end_date, 'YYYY-MM-DD'),
		       sma_period, rule_condition, rule_then_action, rule_else_action,
		       total_return, win_rate, num_trades,
		       to_char(created_at, 'YYYY-MM-DD"T"HH24:MI:SS"Z"')
		FROM backtest_runs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query backtest runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunRecord, 0, limit)
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.Ticker, &r.StartDate, &r.EndDate,
			&r.SMAPeriod, &r.RuleCondition, &r.ThenAction, &r.ElseAction,
			&r.TotalReturn, &r.WinRate, &r.NumTrades, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan backtest run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns one persisted run including its stored equity curve. The
// user id is part of the lookup so a caller can never read another user's run.
func (s *RunStore) GetRun(ctx context.Context, userID, runID int64) (*RunRecord, error) {
	var r RunRecord
	var curve []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, ticker,
		       to_char(start_date, 'YYYY-MM-DD'), to_char(end_date, 'YYYY-MM-DD'),
		       sma_period, rule_condition, rule_then_action, rule_else_action,
		       total_return, win_rate, num_trades, equity_curve,
		       to_char(created_at, 'YYYY-MM-DD"T"HH24:MI:SS"Z"')
		FROM backtest_runs
		WHERE id = $1 AND user_id = $2`, runID, userID).Scan(
		&r.ID, &r.UserID, &r.Ticker, &r.StartDate, &r.EndDate,
		&r.SMAPeriod, &r.RuleCondition, &r.ThenAction, &r.ElseAction,
		&r.TotalReturn, &r.WinRate, &r.NumTrades, &curve, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query backtest run %d: %w", runID, err)
	}

	if r.EquityCurve, err = decodeCurve(curve); err != nil {
		return nil, err
	}
	return &r, nil
}

// decodeCurve restores the equity curve persisted by OnBacktestComplete.
func decodeCurve(raw []byte) ([]model.EquitySnapshot, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var curve []model.EquitySnapshot
	if err := json.Unmarshal(raw, &curve); err != nil {
		return nil, fmt.Errorf("decode equity curve: %w", err)
	}
	return curve, nil
}
