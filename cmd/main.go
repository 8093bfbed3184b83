package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/m-aykurt/bakici-backend/config"
	"github.com/m-aykurt/bakici-backend/db"
	"github.com/m-aykurt/bakici-backend/internal/auth/handler"
	"github.com/m-aykurt/bakici-backend/internal/auth/notifier"
	repo "github.com/m-aykurt/bakici-backend/internal/auth/repository/postgres"
	"github.com/m-aykurt/bakici-backend/internal/auth/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()

	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.DBURL); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
	}

	pool, err := db.NewPostgresPool(ctx, cfg.DBURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	userRepo := repo.NewUserRepository(pool)
	refreshRepo := repo.NewRefreshTokenRepository(pool)
	resetRepo := repo.NewResetTokenRepository(pool)

	tokenService := service.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTokenTTL())
	hasher := service.NewBcryptHasher(cfg.BcryptCost)
	refreshService := service.NewRefreshService(refreshRepo, cfg.RefreshTokenTTL(), logger)
	resetService := service.NewResetService(resetRepo, cfg.ResetTokenTTL(), logger)
	mailer := notifier.NewLogNotifier(logger)

	authService := service.NewAuthService(userRepo, refreshService, resetService,
		tokenService, hasher, mailer, cfg, logger)

	authHandler := handler.NewAuthHandler(authService, tokenService, cfg.RefreshTokenTTL(), logger)

	app := fiber.New()
	handler.RegisterRoutes(app, authHandler)

	logger.Info("starting auth service", zap.String("port", cfg.Port))

	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}

	return zap.NewDevelopment()
}
