package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"civicreport-be/config"
	"civicreport-be/controllers"
	"civicreport-be/models"
	"civicreport-be/repository"
	"civicreport-be/routes"
	authUtils "civicreport-be/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := config.NewLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	policy := models.PolicyFor(cfg.Issues.StrictTransitions)

	deps := routes.Deps{
		Tokens:         authUtils.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Logger:         logger,
		RatePrefix:     cfg.Redis.QueuePrefix,
		DailyLimit:     cfg.Issues.DailyLimit,
		AllowedOrigins: cfg.CORS.Origins(),
		Cookie:         controllers.CookieOptions{Domain: cfg.Domain, Production: cfg.IsProduction()},
		RequestTimeout: cfg.Server.RequestTimeout,
		Checks:         map[string]controllers.Check{},
	}

	switch cfg.Storage.Driver {
	case "memory":
		logger.Warn("using in-memory storage; data is lost on restart")
		deps.Issues = repository.NewMemoryIssueRepository(policy)
		deps.Users = repository.NewMemoryUserRepository()
	default:
		db, err := config.ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Client().Disconnect(context.Background()); err != nil {
				logger.Error("mongo disconnect", slog.String("error", err.Error()))
			}
		}()

		issues := repository.NewMongoIssueRepository(db, policy)
		users := repository.NewMongoUserRepository(db)
		if err := issues.EnsureIndexes(ctx); err != nil {
			return err
		}
		if err := users.EnsureIndexes(ctx); err != nil {
			return err
		}
		deps.Issues, deps.Users = issues, users
	}

	if cfg.Redis.Address != "" {
		rdb, err := config.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		deps.RateCounter = rdb
		deps.Checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		logger.Warn("REDIS_ADDRESS not set; issue rate limiting disabled")
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: routes.NewRouter(deps),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			slog.String("addr", srv.Addr),
			slog.String("storage", cfg.Storage.Driver),
			slog.Bool("strict_transitions", cfg.Issues.StrictTransitions))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
