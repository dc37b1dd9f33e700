package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/arena-go-api/internal/config"
	"github.com/noah-isme/arena-go-api/internal/database"
	"github.com/noah-isme/arena-go-api/internal/evaluation"
	"github.com/noah-isme/arena-go-api/internal/handler"
	"github.com/noah-isme/arena-go-api/internal/middleware"
	"github.com/noah-isme/arena-go-api/internal/repository"
	"github.com/noah-isme/arena-go-api/internal/router"
	"github.com/noah-isme/arena-go-api/internal/service"
	"github.com/noah-isme/arena-go-api/internal/session"
	"github.com/noah-isme/arena-go-api/pkg/judge"
)

const (
	sessionTickInterval    = time.Second
	sessionFinalizeTimeout = 10 * time.Second
	shutdownTimeout        = 15 * time.Second
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger = logger.With().Str("service", cfg.AppName).Str("env", cfg.AppEnv).Logger()

	policy, err := session.ParsePolicy(cfg.IntegrityPolicy)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid integrity policy")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not set, caching and redis event fan-out disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsConn.Close()
	}

	judgeClient, err := judge.NewHTTPClient(judge.Config{
		BaseURL:   cfg.JudgeURL,
		AuthToken: cfg.JudgeAuthToken,
		Timeout:   cfg.JudgeHTTPTimeout,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create judge client")
	}
	engine := evaluation.NewEngine(judgeClient, evaluation.Config{
		PollInterval: cfg.JudgePollInterval,
		PollAttempts: cfg.JudgePollAttempts,
	}, logger)

	validate := validator.New(validator.WithRequiredStructEnabled())

	contestRepo := repository.NewContestRepository(db)
	resultRepo := repository.NewResultRepository(db)
	progressRepo := repository.NewProgressRepository(db)

	contestService := service.NewContestService(contestRepo, validate, redisClient, cfg.QuestionCacheTTL, logger)
	resultService := service.NewResultService(resultRepo, logger)
	progressService := service.NewProgressService(progressRepo, validate, redisClient, cfg.ProgressCacheTTL, logger)
	feedService := service.NewSessionFeedService(redisClient, natsConn, logger)
	seedService := service.NewSeedService(contestRepo, redisClient, validate, cfg.SeedEnabled, cfg.SeedToken, logger)
	sessionService := service.NewSessionService(contestService, engine, resultService, progressService, feedService, validate, service.SessionConfig{
		DefaultDuration:  cfg.ContestDefaultDuration,
		GracePeriod:      cfg.IntegrityGracePeriod,
		Policy:           policy,
		TickInterval:     sessionTickInterval,
		AutosaveInterval: cfg.AutosaveInterval,
		FinalizeTimeout:  sessionFinalizeTimeout,
	}, logger)

	feedService.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ContestHandler:  handler.NewContestHandler(contestService, logger),
		SessionHandler:  handler.NewSessionHandler(sessionService, validate, router.EvaluateRateLimit(), logger),
		ProgressHandler: handler.NewProgressHandler(progressService, logger),
		ResultHandler:   handler.NewResultHandler(resultService, feedService, 30*time.Second, logger),
		SeedHandler:     handler.NewSeedHandler(seedService, logger),
		JWTMiddleware:   middleware.JWTProtected(cfg.JWTSecret),
		HealthProbes:    healthProbes(db, redisClient, natsConn),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	waitForShutdown(app, sessionService, logger)
}

func healthProbes(db *gorm.DB, redisClient *redis.Client, natsConn *nats.Conn) map[string]handler.HealthProbe {
	probes := map[string]handler.HealthProbe{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		probes["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	if natsConn != nil {
		probes["nats"] = func(context.Context) error {
			if !natsConn.IsConnected() {
				return nats.ErrConnectionClosed
			}
			return nil
		}
	}
	return probes
}

// waitForShutdown finalizes running sessions before the HTTP server stops.
func waitForShutdown(app *fiber.App, sessions service.SessionService, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := sessions.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("sessions did not finalize before shutdown")
	}
	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
