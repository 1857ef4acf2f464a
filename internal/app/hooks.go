package app

import (
	"context"

	"go.uber.org/zap"

	"stock-backtester/api"
	"stock-backtester/internal/engine"
	"stock-backtester/internal/infrastructure"
	"stock-backtester/internal/model"
)

type hookJob struct {
	userID int64
	params engine.RunParams
	result *model.BacktestResult
}

// HookRunner fans completed runs out to the registered completion hooks on a
// bounded worker pool, off the request path. Hook failures are counted and
// logged; they never reach the caller of the run.
type HookRunner struct {
	jobQueue    chan hookJob
	workerCount int
	hooks       []engine.CompletionHook
	logger      *zap.Logger
}

var _ api.HookDispatcher = (*HookRunner)(nil)

func NewHookRunner(workerCount, bufferSize int, hooks []engine.CompletionHook, logger *zap.Logger) *HookRunner {
	return &HookRunner{
		jobQueue:    make(chan hookJob, bufferSize),
		workerCount: workerCount,
		hooks:       hooks,
		logger:      logger,
	}
}

func (r *HookRunner) Start(ctx context.Context) {
	for i := 0; i < r.workerCount; i++ {
		go r.worker(ctx)
	}
	r.logger.Info("started hook runner", zap.Int("workers", r.workerCount), zap.Int("hooks", len(r.hooks)))
}

// Dispatch queues a completed run for the hooks. The request context is not
// retained; only the user identity survives into the background job.
func (r *HookRunner) Dispatch(ctx context.Context, params engine.RunParams, result *model.BacktestResult) {
	job := hookJob{
		userID: api.UserID(ctx),
		params: params,
		result: result,
	}
	select {
	case r.jobQueue <- job:
	default:
		r.logger.Warn("hook queue full, dropping completed run",
			zap.String("ticker", result.Ticker))
	}
}

func (r *HookRunner) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-r.jobQueue:
			if !ok {
				return
			}
			r.process(ctx, job)
		}
	}
}

func (r *HookRunner) process(ctx context.Context, job hookJob) {
	ctx = api.WithUserID(ctx, job.userID)
	for _, hook := range r.hooks {
		if err := hook.OnBacktestComplete(ctx, job.params, job.result); err != nil {
			infrastructure.HookFailures.WithLabelValues(hook.Name()).Inc()
			r.logger.Error("completion hook failed",
				zap.String("hook", hook.Name()),
				zap.String("ticker", job.result.Ticker),
				zap.Error(err),
			)
		}
	}
}
