package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"stock-backtester/internal/engine"
	"stock-backtester/internal/infrastructure"
	"stock-backtester/internal/marketdata"
	"stock-backtester/internal/model"
	"stock-backtester/internal/storage"
)

// HookDispatcher hands a finalized result to the post-run hooks without
// blocking the response path.
type HookDispatcher interface {
	Dispatch(ctx context.Context, params engine.RunParams, result *model.BacktestResult)
}

// Defaults are the run-level accounting defaults applied when a request does
// not override them.
type Defaults struct {
	StartingCash   decimal.Decimal
	CommissionRate decimal.Decimal
	Sizing         engine.Sizing
	SizingUnit     decimal.Decimal
}

type Handler struct {
	db       *pgxpool.Pool
	logger   *zap.Logger
	provider marketdata.Provider
	runs     *storage.RunStore
	hooks    HookDispatcher
	defaults Defaults
}

func NewHandler(db *pgxpool.Pool, logger *zap.Logger, provider marketdata.Provider,
	runs *storage.RunStore, hooks HookDispatcher, defaults Defaults) *Handler {
	return &Handler{
		db:       db,
		logger:   logger,
		provider: provider,
		runs:     runs,
		hooks:    hooks,
		defaults: defaults,
	}
}

// Auth Handlers

func (h *Handler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	var userID int64
	err = h.db.QueryRow(c.Request.Context(),
		"INSERT INTO users (email, password_hash) VALUES ($1, $2) RETURNING id",
		req.Email, string(hash)).Scan(&userID)

	if err != nil {
		h.logger.Error("failed to register user", zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"error": "email already exists"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "user created", "id": userID})
}

func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var userID int64
	var hash string
	err := h.db.QueryRow(c.Request.Context(),
		"SELECT id, password_hash FROM users WHERE email = $1", req.Email).Scan(&userID, &hash)

	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	token, err := GenerateToken(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Data Handlers

func (h *Handler) ListTickers(c *gin.Context) {
	tickers, err := h.provider.Tickers(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list tickers", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, tickers)
}

// Backtest Handlers

type backtestRequest struct {
	Ticker    string `json:"ticker" binding:"required"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	SMAPeriod int    `json:"sma_period" binding:"required"`
	Rule      struct {
		IfCondition string `json:"if_condition" binding:"required"`
		ThenAction  string `json:"then_action" binding:"required"`
		ElseAction  string `json:"else_action" binding:"required"`
	} `json:"rule" binding:"required"`

	// Optional run-level accounting overrides.
	InitialCash    *float64 `json:"initial_cash"`
	CommissionRate *float64 `json:"commission_rate"`
}

func (h *Handler) RunBacktest(c *gin.Context) {
	var req backtestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params, err := engine.ValidateRequest(engine.RunRequest{
		Ticker:         req.Ticker,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		SMAPeriod:      req.SMAPeriod,
		Condition:      req.Rule.IfCondition,
		ThenAction:     req.Rule.ThenAction,
		ElseAction:     req.Rule.ElseAction,
		InitialCash:    req.InitialCash,
		CommissionRate: req.CommissionRate,
	}, time.Now())
	if err != nil {
		var verr *engine.ValidationErrors
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid parameters", "errors": verr.Errors})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params.Broker = engine.BrokerConfig{
		StartingCash:   h.defaults.StartingCash,
		CommissionRate: h.defaults.CommissionRate,
		Sizing:         h.defaults.Sizing,
		UnitQuantity:   h.defaults.SizingUnit,
	}
	if req.InitialCash != nil {
		params.Broker.StartingCash = decimal.NewFromFloat(*req.InitialCash)
	}
	if req.CommissionRate != nil {
		params.Broker.CommissionRate = decimal.NewFromFloat(*req.CommissionRate)
	}

	bars, err := h.provider.Fetch(c.Request.Context(), params.Ticker, params.StartDate, params.EndDate)
	switch {
	case errors.Is(err, marketdata.ErrTickerNotFound):
		infrastructure.BacktestRuns.WithLabelValues(params.Ticker, "not_found").Inc()
		c.JSON(http.StatusNotFound, gin.H{"error": "ticker not found"})
		return
	case errors.Is(err, marketdata.ErrNoData):
		// Distinct non-exceptional outcome: the caller can branch on it.
		infrastructure.BacktestRuns.WithLabelValues(params.Ticker, "no_data").Inc()
		c.JSON(http.StatusOK, gin.H{"status": "no_data", "ticker": params.Ticker})
		return
	case err != nil:
		h.logger.Error("failed to fetch bars", zap.String("ticker", params.Ticker), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch data"})
		return
	}

	started := time.Now()
	result, err := engine.NewBacktester(params, h.logger).Run(bars)
	if err != nil {
		infrastructure.BacktestRuns.WithLabelValues(params.Ticker, "error").Inc()
		h.logger.Error("backtest aborted", zap.String("ticker", params.Ticker), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	infrastructure.BacktestRuns.WithLabelValues(params.Ticker, "ok").Inc()
	infrastructure.BacktestDuration.WithLabelValues(params.Ticker).Observe(time.Since(started).Seconds())
	infrastructure.BarsProcessed.Add(float64(len(bars)))

	if h.hooks != nil {
		h.hooks.Dispatch(c.Request.Context(), params, result)
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) ListRuns(c *gin.Context) {
	limit := 10
	if v, ok := c.GetQuery("limit"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	runs, err := h.runs.ListRuns(c.Request.Context(), UserID(c.Request.Context()), limit)
	if err != nil {
		h.logger.Error("failed to list backtest runs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, runs)
}

// GetRun returns one stored run with its full equity curve.
func (h *Handler) GetRun(c *gin.Context) {
	runID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	run, err := h.runs.GetRun(c.Request.Context(), UserID(c.Request.Context()), runID)
	switch {
	case errors.Is(err, storage.ErrRunNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	case err != nil:
		h.logger.Error("failed to load backtest run", zap.Int64("run_id", runID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, run)
}
