package config

import (
	"errors"
	"fmt"
	"time"

	pkgconfig "github.com/utafrali/storefront/pkg/config"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/resilience"
)

// Storage drivers.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort          int      `env:"HTTP_PORT" envDefault:"8080"`
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.0/8,::1/128" envSeparator:","`
	RateLimitRPS      float64  `env:"RATE_LIMIT_RPS" envDefault:"0"` // 0 disables
	RateLimitBurst    int      `env:"RATE_LIMIT_BURST" envDefault:"20"`

	// StorageDriver selects the store: "postgres", or "memory" for local
	// runs without a database.
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`

	// PostgreSQL
	PostgresHost          string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort          int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser          string `env:"POSTGRES_USER" envDefault:"storefront"`
	PostgresPass          string `env:"POSTGRES_PASSWORD" envDefault:"storefront_secret"`
	PostgresDB            string `env:"POSTGRES_DB" envDefault:"storefront"`
	PostgresSSL           string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	DBMaxConns            int32  `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32  `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int    `env:"DB_MAX_CONN_LIFETIME_MINS" envDefault:"60"`
	DBMaxConnIdleTimeMins int    `env:"DB_MAX_CONN_IDLE_TIME_MINS" envDefault:"10"`
	SlowQueryThresholdMs  int    `env:"SLOW_QUERY_THRESHOLD_MS" envDefault:"200"`

	// Unit-of-work retries on serialization failures and deadlocks
	TxMaxAttempts uint `env:"TX_MAX_ATTEMPTS" envDefault:"3"`

	// Redis cache
	CacheEnabled  bool          `env:"CACHE_ENABLED" envDefault:"true"`
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"600s"`
	CachePrefix   string        `env:"CACHE_PREFIX" envDefault:"shop::"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"true"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Inventory gateway
	InventoryServiceURL    string        `env:"INVENTORY_SERVICE_URL" envDefault:"http://localhost:8080"`
	InventoryTimeout       time.Duration `env:"INVENTORY_TIMEOUT" envDefault:"2s"`
	InventoryMaxRetries    int           `env:"INVENTORY_MAX_RETRIES" envDefault:"1"`
	InventoryStubAvailable int           `env:"INVENTORY_STUB_AVAILABLE" envDefault:"100"`

	// Circuit breaker shared settings (inventory + payment)
	CBMaxRequests  uint32        `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBInterval     time.Duration `env:"CB_INTERVAL" envDefault:"60s"`
	CBOpenTimeout  time.Duration `env:"CB_OPEN_TIMEOUT" envDefault:"30s"`
	CBFailureRatio float64       `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32        `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// Payment
	PaymentTimeout  time.Duration `env:"PAYMENT_TIMEOUT" envDefault:"5s"`
	PaymentProvider string        `env:"PAYMENT_PROVIDER" envDefault:"mock"`

	// Auth
	AuthEnabled bool   `env:"AUTH_ENABLED" envDefault:"false"`
	JWTSecret   string `env:"JWT_SECRET"`
	JWTIssuer   string `env:"JWT_ISSUER" envDefault:"storefront"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	add(pkgconfig.CheckPort("HTTP port", c.HTTPPort))
	add(pkgconfig.CheckPort("postgres port", c.PostgresPort))
	add(pkgconfig.CheckURL("INVENTORY_SERVICE_URL", c.InventoryServiceURL))
	add(pkgconfig.CheckRatio("CB_FAILURE_RATIO", c.CBFailureRatio))
	add(pkgconfig.CheckRatio("OTEL_SAMPLE_RATE", c.OTELSampleRate))

	if c.StorageDriver != StoragePostgres && c.StorageDriver != StorageMemory {
		add(fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StoragePostgres, StorageMemory, c.StorageDriver))
	}
	if c.DBMinConns > c.DBMaxConns {
		add(fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns))
	}
	if c.RateLimitRPS < 0 || (c.RateLimitRPS > 0 && c.RateLimitBurst < 1) {
		add(errors.New("RATE_LIMIT_RPS must not be negative and RATE_LIMIT_BURST must be at least 1"))
	}
	if c.TxMaxAttempts == 0 {
		add(errors.New("TX_MAX_ATTEMPTS must be at least 1"))
	}
	if c.CacheTTL <= 0 {
		add(fmt.Errorf("CACHE_TTL must be positive, got %s", c.CacheTTL))
	}
	if c.InventoryStubAvailable < 0 {
		add(fmt.Errorf("INVENTORY_STUB_AVAILABLE must not be negative, got %d", c.InventoryStubAvailable))
	}
	if c.AuthEnabled && len(c.JWTSecret) < 32 {
		add(errors.New("JWT_SECRET must be at least 32 bytes when AUTH_ENABLED=true"))
	}
	return errors.Join(errs...)
}

// Postgres returns the pool settings.
func (c *Config) Postgres() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
	}
}

// Breaker returns breaker settings named name, built from the CB_* values.
func (c *Config) Breaker(name string) resilience.BreakerConfig {
	return resilience.BreakerConfig{
		Name:         name,
		MaxRequests:  c.CBMaxRequests,
		Interval:     c.CBInterval,
		OpenTimeout:  c.CBOpenTimeout,
		FailureRatio: c.CBFailureRatio,
		MinRequests:  c.CBMinRequests,
	}
}

// TxRetry returns the unit-of-work retry policy.
func (c *Config) TxRetry() database.RetryPolicy {
	p := database.DefaultRetryPolicy()
	p.MaxAttempts = c.TxMaxAttempts
	return p
}
