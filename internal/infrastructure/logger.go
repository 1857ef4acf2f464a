package infrastructure

import (
	"go.uber.org/zap"
)

var (
	Logger *zap.Logger
)

// Init sets up the global production logger.
func Init() {
	Logger, _ = zap.NewProduction()
	Logger.Info("backtester logging initialized")
}
