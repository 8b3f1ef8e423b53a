package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/arklim/anon-inbox/internal/core/port"
	"github.com/arklim/anon-inbox/internal/infra/config"
	"github.com/arklim/anon-inbox/internal/infra/database"
	kafkainfra "github.com/arklim/anon-inbox/internal/infra/kafka"
	"github.com/arklim/anon-inbox/internal/infra/logger"
	redisinfra "github.com/arklim/anon-inbox/internal/infra/redis"
	"github.com/arklim/anon-inbox/internal/infra/security"
	"github.com/arklim/anon-inbox/internal/infra/telemetry"
	postgresrepo "github.com/arklim/anon-inbox/internal/repository/postgres"
	redisrepo "github.com/arklim/anon-inbox/internal/repository/redis"
	"github.com/arklim/anon-inbox/internal/transport/http/handlers"
	"github.com/arklim/anon-inbox/internal/transport/http/middleware"
	"github.com/arklim/anon-inbox/internal/transport/http/routes"
	"github.com/arklim/anon-inbox/internal/usecase"
)

type Application struct {
	cfg      *config.AppConfig
	handler  http.Handler
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	tracer   *telemetry.TracerProvider
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &Application{cfg: cfg, logger: log}
	if err := a.init(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *Application) init(ctx context.Context) error {
	cfg, log := a.cfg, a.logger

	if cfg.Telemetry.TracingEnabled {
		tp, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		a.tracer = tp
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return fmt.Errorf("init postgres: %w", err)
	}
	a.pool = pool

	if cfg.Postgres.AutoMigrate {
		if err := database.Migrate(ctx, pool, log); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	redisClient, err := redisinfra.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		return fmt.Errorf("init redis: %w", err)
	}
	a.redis = redisClient

	events := a.newEventPublisher()

	hasher, err := security.NewArgon2Hasher(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	if err != nil {
		return fmt.Errorf("init password hasher: %w", err)
	}
	policy := security.NewPasswordPolicy(security.PasswordPolicyConfig{
		MinLength:        cfg.Password.MinLength,
		MinStrengthScore: cfg.Password.MinStrengthScore,
	})

	keyProvider, err := security.NewKeyProvider(cfg.JWT.KeyDirectory, cfg.App.IsDevelopment())
	if err != nil {
		return fmt.Errorf("init key provider: %w", err)
	}
	tokens, err := security.NewJWTManager(keyProvider, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL)
	if err != nil {
		return fmt.Errorf("init jwt manager: %w", err)
	}

	metrics, err := telemetry.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		return fmt.Errorf("init http metrics: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)
	notifier := handlers.NewLoggingNotificationDispatcher(log, cfg.App.IsDevelopment())
	cooldowns := redisrepo.NewCooldownRepository(redisClient.Client(), cfg.Redis.CooldownPrefix)
	attempts := redisrepo.NewAttemptRepository(redisClient.Client(), cfg.Redis.AttemptPrefix)

	registrationService := usecase.NewRegistrationService(usecase.RegistrationConfig{
		CodeTTL:           cfg.Verification.CodeTTL,
		CodeLength:        cfg.Verification.CodeLength,
		ResendCooldown:    cfg.Verification.ResendCooldown,
		MaxVerifyAttempts: cfg.Verification.MaxAttempts,
		ReclaimStale:      cfg.Verification.ReclaimStale,
	}, repos.Users, hasher, policy, notifier, events, metrics, log).
		WithCooldownStore(cooldowns).
		WithAttemptCounter(attempts)
	authService := usecase.NewAuthService(repos.Users, hasher, tokens, log)
	acceptanceService := usecase.NewAcceptanceService(repos.Users, events, metrics, log)
	inboxService := usecase.NewInboxService(repos.Users, repos.Messages, events, metrics, log)

	window := cfg.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: cfg.Redis.KeyPrefix,
		TTL:       window * 2,
	})

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: middleware.NewRateLimiter(rateLimitStore, log),
		HTTPMetrics: httpMetrics,
		Gatherer:    prometheus.DefaultGatherer,
		Services: routes.ServiceSet{
			Auth:         authService,
			Registration: registrationService,
			Acceptance:   acceptanceService,
			Inbox:        inboxService,
		},
		Checkers: []handlers.ReadinessChecker{
			database.NewPoolChecker(pool),
			redisClient,
		},
	})
	a.handler = otelhttp.NewHandler(engine, "anon-inbox.http")

	return nil
}

func (a *Application) newEventPublisher() port.EventPublisher {
	cfg, log := a.cfg, a.logger
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) == 0 {
		log.Info("kafka disabled, using stub publisher")
		return kafkainfra.NewStubPublisher(log)
	}

	producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
	if err != nil {
		log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
		return kafkainfra.NewStubPublisher(log)
	}
	a.producer = producer
	log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	return kafkainfra.NewEventPublisher(producer, cfg.App, log)
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer a.close()

	readTimeout := a.cfg.App.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}
	writeTimeout := a.cfg.App.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting anonymous inbox API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		a.logger.Info("server stopped")
		return nil
	case err := <-serverErrCh:
		return err
	}
}

// close releases backing resources in reverse order of acquisition.
func (a *Application) close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("close kafka producer", zap.Error(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracer.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("shutdown tracer provider", zap.Error(err))
		}
	}
}
