package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/auth"
	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/config"
	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/event"
	handler "github.com/abhilashprasadsahoo/aepl-projectverse/internal/handler/http"
	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/provider"
	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/provider/mock"
	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/provider/razorpay"
	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/repository/postgres"
	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/repository/redis"
	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/service"
	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/signature"
	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/storage"
	"github.com/abhilashprasadsahoo/aepl-projectverse/migrations"
	"github.com/abhilashprasadsahoo/aepl-projectverse/pkg/database"
	"github.com/abhilashprasadsahoo/aepl-projectverse/pkg/health"
	"github.com/abhilashprasadsahoo/aepl-projectverse/pkg/httpclient"
	pkgkafka "github.com/abhilashprasadsahoo/aepl-projectverse/pkg/kafka"
	"github.com/abhilashprasadsahoo/aepl-projectverse/pkg/middleware"
	"github.com/abhilashprasadsahoo/aepl-projectverse/pkg/tracing"
)

const (
	serviceName    = "projectverse"
	serviceVersion = "0.1.0"

	// consumedEventTTL bounds how long a processed event id is remembered.
	consumedEventTTL = 24 * time.Hour

	staleRatingSweepInterval = 1 * time.Minute
	staleRatingSweepBatch    = 100
)

// App wires together all dependencies and runs the marketplace service.
type App struct {
	cfg             *config.Config
	logger          *slog.Logger
	pool            *pgxpool.Pool
	redis           *goredis.Client
	producer        *pkgkafka.Producer
	dlq             *pkgkafka.DLQProducer
	ratingRecompute *pkgkafka.Consumer
	ratingService   *service.RatingService
	paymentLimiter  *middleware.RateLimiter
	httpServer      *http.Server
	tracerShutdown  tracing.Shutdown
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}

	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
		logger.Warn("failed to register pool metrics", slog.String("error", err.Error()))
	}

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Configure slow query logging.
	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	// Initialize Redis for the entitlement cache and consumer deduplication.
	redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
		Host:         cfg.RedisHost,
		Port:         cfg.RedisPort,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("host", cfg.RedisHost), slog.Int("port", cfg.RedisPort))

	// Initialize Kafka producer with connection validation and retry.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	if err := pingKafkaWithRetry(ctx, producer, logger); err != nil {
		logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
			slog.String("error", err.Error()),
		)
	} else {
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}
	dlq := pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)

	// Payment provider.
	paymentProvider, err := newPaymentProvider(cfg, logger)
	if err != nil {
		_ = redisClient.Close()
		pool.Close()
		return nil, err
	}
	logger.Info("payment provider configured", slog.String("provider", paymentProvider.Name()))

	assets, err := storage.NewBaseURLLocator(cfg.AssetBaseURL)
	if err != nil {
		_ = redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("init asset locator: %w", err)
	}

	// Build the dependency graph.
	orderRepo := postgres.NewOrderRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	reviewRepo := postgres.NewReviewRepository(pool)
	ratingRepo := postgres.NewRatingRepository(pool)
	entitlementCache := redis.NewEntitlementCache(redisClient, cfg.EntitlementCacheTTL)
	eventProducer := event.NewProducer(producer, logger)

	ledgerService := service.NewLedgerService(service.LedgerDeps{
		Orders:          orderRepo,
		Products:        productRepo,
		Entitlements:    entitlementCache,
		Provider:        paymentProvider,
		Verifier:        signature.NewVerifier(cfg.RazorpayKeySecret),
		Events:          eventProducer,
		ProviderTimeout: cfg.ProviderTimeout(),
	}, logger)
	accessService := service.NewAccessService(orderRepo, productRepo, entitlementCache, assets, logger)
	ratingService := service.NewRatingService(ratingRepo, eventProducer, logger)
	reviewService := service.NewReviewService(reviewRepo, productRepo, accessService, ratingService, eventProducer, logger)
	adminService := service.NewAdminService(orderRepo, logger)

	// Kafka consumer retrying rating recomputes that failed inline.
	eventConsumer := event.NewConsumer(ratingService, logger)
	idempotencyStore := redis.NewIdempotencyStore(redisClient, consumedEventTTL)
	ratingRecomputeConsumer := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:     cfg.KafkaBrokers,
		GroupID:     cfg.KafkaConsumerGroup,
		Topic:       event.TopicRatingRecomputeRequested,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxAttempts: 3,
		RetryBase:   time.Second,
	}, pkgkafka.IdempotentHandler(idempotencyStore, eventConsumer.HandleRatingRecomputeRequested, logger), dlq, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAccessTokenTTL)
	paymentLimiter := middleware.NewRateLimiter(cfg.PaymentRateLimitRPS, cfg.PaymentRateLimitBurst, logger)

	// HTTP router.
	router := handler.NewRouter(handler.RouterConfig{
		Ledger:         ledgerService,
		Access:         accessService,
		Reviews:        reviewService,
		Ratings:        ratingService,
		Sales:          adminService,
		Health:         healthHandler,
		TokenValidator: jwtManager.Validator(),
		CORS: middleware.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			ExposedHeaders: []string{"X-Correlation-ID"},
		},
		PaymentLimiter: paymentLimiter,
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
		Logger:         logger,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:             cfg,
		logger:          logger,
		pool:            pool,
		redis:           redisClient,
		producer:        producer,
		dlq:             dlq,
		ratingRecompute: ratingRecomputeConsumer,
		ratingService:   ratingService,
		paymentLimiter:  paymentLimiter,
		httpServer:      httpServer,
		tracerShutdown:  tracerShutdown,
	}, nil
}

// newPaymentProvider selects the payment provider named in the config. The
// razorpay client retries transient failures behind a circuit breaker.
func newPaymentProvider(cfg *config.Config, logger *slog.Logger) (provider.Provider, error) {
	switch cfg.PaymentProvider {
	case config.ProviderRazorpay:
		clientCfg := httpclient.DefaultConfig()
		clientCfg.Timeout = cfg.ProviderTimeout()

		cbCfg := httpclient.DefaultCircuitBreakerConfig("razorpay")
		cbCfg.MaxRequests = cfg.CBMaxRequests
		cbCfg.Interval = cfg.CBInterval
		cbCfg.Timeout = cfg.CBTimeout
		cbCfg.FailureRatio = cfg.CBFailureRatio
		cbCfg.MinRequests = cfg.CBMinRequests

		client := httpclient.NewCircuitBreakerClient(httpclient.New(clientCfg), cbCfg, logger)
		return razorpay.NewProvider(razorpay.Config{
			BaseURL:   cfg.RazorpayBaseURL,
			KeyID:     cfg.RazorpayKeyID,
			KeySecret: cfg.RazorpayKeySecret,
		}, client, logger), nil
	case config.ProviderMock:
		logger.Warn("using the mock payment provider; payments are simulated")
		return mock.NewProvider(cfg.RazorpayKeySecret), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.PaymentProvider)
	}
}

// Run starts the HTTP server and the background workers, then blocks until
// the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	// Start HTTP server.
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Start Kafka consumer.
	go func() {
		if err := a.ratingRecompute.Start(ctx); err != nil {
			errCh <- fmt.Errorf("rating recompute consumer: %w", err)
		}
	}()

	go a.runStaleRatingSweep(ctx)

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		if shutdownErr := a.Shutdown(); shutdownErr != nil {
			return errors.Join(err, shutdownErr)
		}
		return err
	}

	return a.Shutdown()
}

// runStaleRatingSweep periodically recomputes ratings flagged stale after a
// failed inline recompute.
func (a *App) runStaleRatingSweep(ctx context.Context) {
	ticker := time.NewTicker(staleRatingSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			recomputed, err := a.ratingService.SweepStale(ctx, staleRatingSweepBatch)
			if err != nil {
				a.logger.Error("stale rating sweep error", slog.String("error", err.Error()))
			} else if recomputed > 0 {
				a.logger.Info("stale ratings recomputed", slog.Int("recomputed", recomputed))
			}
		}
	}
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka consumer, then producers
// 4. Redis client and PostgreSQL pool
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
	a.paymentLimiter.Close()

	// 2. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Close the Kafka consumer before the producers it may write to.
	if err := a.ratingRecompute.Close(); err != nil {
		a.logger.Error("rating recompute consumer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	if err := a.dlq.Close(); err != nil {
		a.logger.Error("kafka dlq producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 4. Close Redis and PostgreSQL.
	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// pingKafkaWithRetry attempts to ping the Kafka producer with exponential
// backoff (3 attempts, 1s/2s/4s with ±25% jitter).
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		err := producer.Ping(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < 2 {
			base := time.Duration(1<<uint(attempt)) * time.Second
			jitter := time.Duration(float64(base) * 0.25 * (2*rand.Float64() - 1)) // #nosec G404 -- non-cryptographic jitter for retry backoff
			wait := base + jitter
			logger.Warn("kafka producer ping failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", 3),
				slog.Duration("backoff", wait),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("kafka ping: context canceled during retry: %w", ctx.Err())
			case <-time.After(wait):
			}
		}
	}
	return fmt.Errorf("kafka producer ping failed after 3 attempts: %w", lastErr)
}
