package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stock-backtester/api"
	"stock-backtester/internal/config"
	"stock-backtester/internal/engine"
	"stock-backtester/internal/infrastructure"
	"stock-backtester/internal/marketdata"
	"stock-backtester/internal/push"
	"stock-backtester/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// App defines the application structure and its dependencies
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	DB         *pgxpool.Pool
	NC         *nats.Conn
	JS         nats.JetStreamContext
	Provider   marketdata.Provider
	RunStore   *storage.RunStore
	Hooks      *HookRunner
	Gateway    *push.Gateway
	HTTPServer *http.Server

	sizing      engine.Sizing
	cancelHooks context.CancelFunc
}

// NewApp creates a new application instance
func NewApp() (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	infrastructure.Init()
	logger := infrastructure.Logger

	api.SetJWTSecret(cfg.JWTSecret)

	return &App{
		Config: &cfg,
		Logger: logger,
	}, nil
}

// Init initializes all application components
func (a *App) Init(ctx context.Context) error {
	// 1. Database
	dbPool, err := pgxpool.Connect(ctx, a.Config.DB_DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.DB = dbPool

	if err := a.initDatabase(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	// 2. NATS
	nc, js, err := infrastructure.InitNATS(a.Config.NatsURL, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	a.NC = nc
	a.JS = js

	// 3. Bar provider
	switch a.Config.DataSource {
	case "postgres":
		a.Provider = marketdata.NewPostgresProvider(a.DB)
	case "csv":
		a.Provider = marketdata.NewCSVProvider(a.Config.DataDir, a.Logger)
	default:
		return fmt.Errorf("unknown data source: %q", a.Config.DataSource)
	}

	sizing, err := engine.ParseSizing(a.Config.Sizing)
	if err != nil {
		return err
	}
	a.sizing = sizing

	// 4. Services
	a.RunStore = storage.NewRunStore(a.DB, a.Logger, api.UserID)
	a.Gateway = push.NewGateway(js, a.Logger)

	return nil
}

// Run starts the application services and the HTTP server
func (a *App) Run(ctx context.Context) error {
	// Start post-run hook workers (persistence + NATS publish)
	hooks := []engine.CompletionHook{
		a.RunStore,
		push.NewPublisher(a.JS),
	}
	a.Hooks = NewHookRunner(2, 100, hooks, a.Logger)

	hookCtx, cancel := context.WithCancel(context.Background())
	a.cancelHooks = cancel
	a.Hooks.Start(hookCtx)

	// Setup HTTP Server
	a.HTTPServer = &http.Server{
		Addr:    ":" + a.Config.Port,
		Handler: a.setupRouter(),
	}

	go func() {
		a.Logger.Info("starting http server", zap.String("port", a.Config.Port))
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	return a.waitForShutdown()
}

// waitForShutdown handles graceful shutdown signals
func (a *App) waitForShutdown() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	a.Logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.cancelHooks()
	a.NC.Close()
	a.DB.Close()

	return nil
}

// initDatabase runs the database initialization script
func (a *App) initDatabase(ctx context.Context) error {
	sqlFile := "scripts/init.sql"
	content, err := os.ReadFile(sqlFile)
	if err != nil {
		return fmt.Errorf("failed to read init script: %w", err)
	}

	_, err = a.DB.Exec(ctx, string(content))
	if err != nil {
		return fmt.Errorf("failed to execute init script: %w", err)
	}

	a.Logger.Info("database initialized successfully")
	return nil
}

// setupRouter configures the Gin router and its routes
func (a *App) setupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	apiHandler := api.NewHandler(a.DB, a.Logger, a.Provider, a.RunStore, a.Hooks, api.Defaults{
		StartingCash:   decimal.NewFromFloat(a.Config.DefaultCash),
		CommissionRate: decimal.NewFromFloat(a.Config.CommissionRate),
		Sizing:         a.sizing,
		SizingUnit:     decimal.NewFromFloat(a.Config.SizingUnit),
	})

	v1 := r.Group("/api/v1")
	{
		v1.POST("/register", apiHandler.Register)
		v1.POST("/login", apiHandler.Login)
		v1.GET("/tickers", apiHandler.ListTickers)
	}

	protected := r.Group("/api/v1")
	protected.Use(api.AuthMiddleware())
	{
		protected.POST("/backtest", apiHandler.RunBacktest)
		protected.GET("/backtest-runs", apiHandler.ListRuns)
		protected.GET("/backtest-runs/:id", apiHandler.GetRun)
	}

	r.GET("/ws", func(c *gin.Context) {
		a.Gateway.ServeHTTP(c.Writer, c.Request)
	})

	return r
}
