package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/auth"
	"github.com/utafrali/storefront/internal/cache"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/event"
	handler "github.com/utafrali/storefront/internal/handler/http"
	"github.com/utafrali/storefront/internal/inventory"
	"github.com/utafrali/storefront/internal/provider"
	"github.com/utafrali/storefront/internal/provider/mock"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/internal/repository/memory"
	"github.com/utafrali/storefront/internal/repository/postgres"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/migrations"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httpclient"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/resilience"
	"github.com/utafrali/storefront/pkg/tracing"
)

// defaultCategories matches the categories seeded by the migrations.
var defaultCategories = []string{"Electronics", "Books", "Home"}

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	healthHandler := health.NewHandler()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "storefront",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	store, err := a.openStore(ctx, healthHandler)
	if err != nil {
		_ = a.closeAll()
		return nil, err
	}

	c := a.openCache(ctx, healthHandler)

	// Initialize Kafka producer.
	var eventProducer *event.Producer
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		eventProducer = event.NewProducer(a.producer, logger)
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Inventory gateway behind a retrying client and a circuit breaker.
	inventoryHTTP := httpclient.New(httpclient.Config{
		Timeout:         cfg.InventoryTimeout,
		MaxRetries:      cfg.InventoryMaxRetries,
		RetryWaitMin:    100 * time.Millisecond,
		RetryWaitMax:    time.Second,
		MaxConnsPerHost: 100,
	})
	inventoryBreaker := httpclient.NewCircuitBreakerClient(inventoryHTTP, cfg.Breaker("inventory"), logger)
	stock := inventory.NewClient(inventoryBreaker, cfg.InventoryServiceURL, logger)

	prov, err := newProvider(cfg.PaymentProvider)
	if err != nil {
		_ = a.closeAll()
		return nil, err
	}
	paymentPolicy := resilience.NewPolicy[*service.PaymentResult](resilience.PolicyConfig{
		Breaker: cfg.Breaker("payment"),
		Timeout: cfg.PaymentTimeout,
	}, logger)

	// Build the dependency graph.
	services := handler.Services{
		Carts:    service.NewCartService(store, c, cfg.CacheTTL, eventProducer, logger),
		Orders:   service.NewOrderService(store, c, cfg.CacheTTL, eventProducer, logger),
		Payments: service.NewPaymentService(store, prov, paymentPolicy, c, eventProducer, logger),
		Products: service.NewProductService(store, stock, c, cfg.CacheTTL, eventProducer, logger),
	}

	routerCfg := handler.RouterConfig{
		InventoryStubAvailable: cfg.InventoryStubAvailable,
		RateLimitRPS:           cfg.RateLimitRPS,
		RateLimitBurst:         cfg.RateLimitBurst,
		PprofCIDRs:             cfg.PprofAllowedCIDRs,
	}
	if cfg.AuthEnabled {
		routerCfg.Tokens = auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
		logger.Info("bearer token authentication enabled", slog.String("issuer", cfg.JWTIssuer))
	}
	router := handler.NewRouter(services, healthHandler, routerCfg, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// openStore connects the configured store and registers its readiness
// probe. Postgres is migrated before use.
func (a *App) openStore(ctx context.Context, healthHandler *health.Handler) (repository.Store, error) {
	cfg := a.cfg
	if cfg.StorageDriver == config.StorageMemory {
		store := memory.NewStore()
		store.SeedCategories(defaultCategories...)
		a.logger.Warn("using in-memory store, data is lost on restart")
		return store, nil
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	a.logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, "storefront"); err != nil {
		a.logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	a.logger.Info("database migrations completed")

	// Configure slow query logging.
	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, a.logger)
	}

	healthHandler.RegisterCritical("postgres", pool.Ping)
	return postgres.NewStore(pool, cfg.TxRetry()), nil
}

// openCache returns the Redis cache, or a no-op cache when caching is off
// or Redis cannot be reached at startup.
func (a *App) openCache(ctx context.Context, healthHandler *health.Handler) cache.Cache {
	cfg := a.cfg
	if !cfg.CacheEnabled {
		a.logger.Info("cache disabled")
		return cache.Noop{}
	}

	rdb, err := database.NewRedisClient(ctx, database.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		a.logger.Warn("redis unavailable, running without cache", slog.String("error", err.Error()))
		return cache.Noop{}
	}
	a.rdb = rdb
	a.logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr))

	healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	return cache.NewRedis(rdb, cfg.CachePrefix)
}

func newProvider(name string) (provider.Provider, error) {
	switch name {
	case "mock":
		return mock.NewProvider(), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", name)
	}
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.closeAll()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer, Redis and the PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	errs = append(errs, a.closeAll())

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeAll releases everything but the HTTP server. Components that were
// never opened are skipped.
func (a *App) closeAll() error {
	var errs []error

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.pool != nil {
		a.pool.Close()
	}
	return errors.Join(errs...)
}
