package config

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/abhilashprasadsahoo/aepl-projectverse/pkg/config"
)

// Payment provider names accepted in PAYMENT_PROVIDER.
const (
	ProviderRazorpay = "razorpay"
	ProviderMock     = "mock"
)

// Config holds all configuration for the marketplace service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"projectverse"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"projectverse_secret"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"projectverse"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Entitlement cache TTL
	EntitlementCacheTTL time.Duration `env:"ENTITLEMENT_CACHE_TTL" envDefault:"10m"`

	// Kafka
	KafkaBrokers       []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaConsumerGroup string   `env:"KAFKA_CONSUMER_GROUP" envDefault:"projectverse-rating-recompute"`

	// Payment provider
	PaymentProvider        string `env:"PAYMENT_PROVIDER" envDefault:"razorpay"`
	RazorpayBaseURL        string `env:"RAZORPAY_BASE_URL" envDefault:"https://api.razorpay.com/v1"`
	RazorpayKeyID          string `env:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret      string `env:"RAZORPAY_KEY_SECRET"`
	ProviderTimeoutSeconds int    `env:"PROVIDER_TIMEOUT_SECONDS" envDefault:"10"`

	// Circuit breaker around the payment provider
	CBMaxRequests  uint32        `env:"CB_MAX_REQUESTS" envDefault:"3"`
	CBInterval     time.Duration `env:"CB_INTERVAL" envDefault:"60s"`
	CBTimeout      time.Duration `env:"CB_TIMEOUT" envDefault:"30s"`
	CBFailureRatio float64       `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32        `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// JWT
	JWTSecret         string        `env:"JWT_SECRET"`
	JWTIssuer         string        `env:"JWT_ISSUER" envDefault:"projectverse"`
	JWTAccessTokenTTL time.Duration `env:"JWT_ACCESS_TOKEN_TTL" envDefault:"15m"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`

	// Rate limit on order creation and payment verification, per client IP
	PaymentRateLimitRPS   float64 `env:"PAYMENT_RATE_LIMIT_RPS" envDefault:"2"`
	PaymentRateLimitBurst int     `env:"PAYMENT_RATE_LIMIT_BURST" envDefault:"5"`

	// Asset storage
	AssetBaseURL string `env:"ASSET_BASE_URL" envDefault:"http://localhost:9000/projectverse-assets"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load marketplace config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	switch c.PaymentProvider {
	case ProviderRazorpay:
		if c.RazorpayKeyID == "" {
			return fmt.Errorf("RAZORPAY_KEY_ID is required for the razorpay provider")
		}
		if _, err := url.ParseRequestURI(c.RazorpayBaseURL); err != nil {
			return fmt.Errorf("invalid RAZORPAY_BASE_URL: %w", err)
		}
	case ProviderMock:
		if c.Environment == "production" {
			return fmt.Errorf("the mock payment provider cannot run in production")
		}
	default:
		return fmt.Errorf("PAYMENT_PROVIDER must be %q or %q, got %q", ProviderRazorpay, ProviderMock, c.PaymentProvider)
	}
	if c.RazorpayKeySecret == "" {
		return fmt.Errorf("RAZORPAY_KEY_SECRET is required")
	}
	if c.ProviderTimeoutSeconds <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT_SECONDS must be > 0, got %d", c.ProviderTimeoutSeconds)
	}
	if c.CBFailureRatio <= 0 || c.CBFailureRatio > 1.0 {
		return fmt.Errorf("CB_FAILURE_RATIO must be in (0.0, 1.0], got %f", c.CBFailureRatio)
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.EntitlementCacheTTL <= 0 {
		return fmt.Errorf("ENTITLEMENT_CACHE_TTL must be > 0, got %s", c.EntitlementCacheTTL)
	}
	if c.PaymentRateLimitRPS <= 0 || c.PaymentRateLimitBurst <= 0 {
		return fmt.Errorf("PAYMENT_RATE_LIMIT_RPS and PAYMENT_RATE_LIMIT_BURST must be > 0")
	}
	if _, err := url.ParseRequestURI(c.AssetBaseURL); err != nil {
		return fmt.Errorf("invalid ASSET_BASE_URL: %w", err)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// ProviderTimeout returns the deadline applied to each payment provider call.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.ProviderTimeoutSeconds) * time.Second
}
