package app

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"evmarket/internal/cache"
	"evmarket/internal/config"
	"evmarket/internal/db"
	httpserver "evmarket/internal/http"
	"evmarket/internal/http/handlers"
	"evmarket/internal/repository"
	"evmarket/internal/service"
)

// App owns every long-lived resource of the marketplace service and wires
// the storage, service and HTTP layers together.
type App struct {
	server *httpserver.Server
	db     *sql.DB
	redis  *redis.Client
	logger *zap.Logger
}

// New connects to postgres (applying migrations), optionally to redis, and
// assembles the full handler stack.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	pool, err := db.NewPostgres(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	var history service.HistoryCache
	if cfg.Redis.Addr != "" {
		client, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			pool.Close()
			return nil, err
		}
		redisClient = client
		history = cache.NewHistoryStore(client, cfg.HistoryTTL())
		logger.Info("session history cache enabled", zap.String("addr", cfg.Redis.Addr))
	} else {
		logger.Info("session history cache disabled")
	}

	sessionRepo := repository.NewSessionRepository(pool)
	invoiceRepo := repository.NewInvoiceRepository(pool)
	catalogRepo := repository.NewCatalogRepository(pool)
	ledger := repository.NewLedger(pool, sessionRepo, invoiceRepo)

	sessionsSvc := service.NewSessionsService(ledger, catalogRepo, history, logger)
	analyticsSvc := service.NewAnalyticsService(ledger, catalogRepo, logger)

	router := httpserver.NewRouter(httpserver.Routes{
		Sessions:  handlers.NewSessionsHandlers(sessionsSvc, logger),
		Analytics: handlers.NewAnalyticsHandlers(analyticsSvc, sessionsSvc, logger),
		Health:    handlers.NewHealthHandler(),
	}, cfg.Auth.JWTSecret)

	return &App{
		server: httpserver.NewServer(cfg.HTTPAddress(), router, logger),
		db:     pool,
		redis:  redisClient,
		logger: logger,
	}, nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases the database and cache connections.
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("closing redis", zap.Error(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("closing postgres", zap.Error(err))
	}
}
