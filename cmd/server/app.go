package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/threadcraft-api/internal/api"
	apiMiddleware "github.com/phrazzld/threadcraft-api/internal/api/middleware"
	"github.com/phrazzld/threadcraft-api/internal/config"
	"github.com/phrazzld/threadcraft-api/internal/events"
	"github.com/phrazzld/threadcraft-api/internal/generation"
	"github.com/phrazzld/threadcraft-api/internal/orchestrator"
	"github.com/phrazzld/threadcraft-api/internal/platform/gemini"
	"github.com/phrazzld/threadcraft-api/internal/platform/memory"
	"github.com/phrazzld/threadcraft-api/internal/platform/metrics"
	"github.com/phrazzld/threadcraft-api/internal/platform/objectstore"
	"github.com/phrazzld/threadcraft-api/internal/platform/openai"
	"github.com/phrazzld/threadcraft-api/internal/platform/postgres"
	"github.com/phrazzld/threadcraft-api/internal/service"
	"github.com/phrazzld/threadcraft-api/internal/service/auth"
	"github.com/phrazzld/threadcraft-api/internal/store"
)

// Sweep intervals for idle rate limiter entries and idle sessions.
const (
	limiterSweepInterval = time.Minute
	sessionSweepInterval = time.Minute
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	users   store.UserStore
	entries store.HistoryStore

	ledger     *service.PointsLedgerImpl
	history    service.HistoryService
	providers  generation.Providers
	jwtService auth.JWTService

	emitter  *events.InMemoryEventEmitter
	metrics  *metrics.Metrics
	hub      *api.Hub
	limiter  *apiMiddleware.RateLimiter
	deps     orchestrator.Dependencies
	sessions *orchestrator.Sessions
}

// newApplication creates a new application instance with all dependencies
// initialized. An empty database URL selects the in-memory stores.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	if err := app.setupStores(ctx); err != nil {
		return nil, err
	}

	app.ledger = service.NewPointsLedger(app.users, app.db, cfg.Points.StartingBalance, logger)
	app.history = service.NewHistoryService(app.entries, cfg.Points.HistoryLimit, logger)

	app.providers, err = setupProviders(ctx, cfg.LLM, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to initialize LLM providers: %w", err)
	}
	logger.Info("LLM providers initialized",
		slog.String("provider", app.providers.Name),
		slog.Bool("text_configured", generation.Configured(app.providers.Text)),
		slog.Bool("image_configured", generation.Configured(app.providers.Image)))

	app.metrics = metrics.New()
	app.hub = api.NewHub(logger)
	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.emitter.RegisterHandler(app.metrics)
	app.emitter.RegisterHandler(app.hub)

	app.deps = orchestrator.Dependencies{
		Gate:            auth.ContextGate{},
		Ledger:          app.ledger,
		History:         app.history,
		Providers:       app.providers,
		Builder:         generation.NewRequestBuilder(logger),
		Events:          app.emitter,
		NotificationTTL: cfg.Notifications.TTL,
		Logger:          logger,
	}

	archiver, err := objectstore.NewArchiver(cfg.Storage, logger)
	switch {
	case err == nil:
		app.deps.Archiver = archiver
		logger.Info("image archive enabled", slog.String("bucket", cfg.Storage.S3Bucket))
	case errors.Is(err, objectstore.ErrNotConfigured):
		logger.Debug("image archive disabled, images are stored as data URLs")
	default:
		app.cleanup()
		return nil, fmt.Errorf("failed to initialize image archive: %w", err)
	}

	app.sessions, err = orchestrator.NewSessions(app.deps, cfg.Server.SessionIdleTTL)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create session registry: %w", err)
	}

	app.limiter = apiMiddleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)

	logger.Info("Application initialized successfully")
	return app, nil
}

func (app *application) setupStores(ctx context.Context) error {
	if app.config.Database.URL == "" {
		app.logger.Warn("database.url not set, using in-memory stores")
		users := memory.NewUserStore(app.logger)
		app.users = users
		app.entries = memory.NewHistoryStore(users, app.logger)
		return nil
	}

	db, err := openDatabase(ctx, app.config.Database, app.logger)
	if err != nil {
		return err
	}
	app.db = db
	app.users = postgres.NewPostgresUserStore(db, app.logger)
	app.entries = postgres.NewPostgresHistoryStore(db, app.logger)
	return nil
}

// setupProviders selects the provider adapters named by cfg.Provider.
func setupProviders(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (generation.Providers, error) {
	switch cfg.Provider {
	case openai.ProviderName:
		return openai.NewProviders(cfg, logger), nil
	case gemini.ProviderName, "":
		return gemini.NewProviders(ctx, cfg, logger)
	default:
		return generation.Providers{}, fmt.Errorf("%w: unknown provider %q", generation.ErrInvalidConfig, cfg.Provider)
	}
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	go app.limiter.Run(ctx, limiterSweepInterval)
	go app.sessions.Run(ctx, sessionSweepInterval)

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.sessions != nil {
		app.sessions.Close()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", slog.String("error", err.Error()))
		}
	}

	app.logger.Info("Application shutdown completed")
}
