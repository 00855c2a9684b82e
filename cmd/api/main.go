package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	_ "github.com/peoplehub/people-api/api/swagger"
	"github.com/peoplehub/people-api/internal/handler"
	"github.com/peoplehub/people-api/internal/ratelimit"
	"github.com/peoplehub/people-api/internal/repository"
	"github.com/peoplehub/people-api/internal/service"
	"github.com/peoplehub/people-api/pkg/cache"
	"github.com/peoplehub/people-api/pkg/config"
	"github.com/peoplehub/people-api/pkg/database"
	"github.com/peoplehub/people-api/pkg/logger"
)

// @title People API
// @version 1.0.0
// @description REST backend for user and employee management with JWT authentication
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)
	blacklistRepo := repository.NewBlacklistRepository(redisClient, logr)

	tokenSvc := service.NewTokenService(cfg.JWT)
	authSvc := service.NewAuthService(userRepo, blacklistRepo, tokenSvc, validate, logr, service.AuthConfig{
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	employeeSvc := service.NewEmployeeService(employeeRepo, userRepo, validate, logr)
	metricsSvc := service.NewMetricsService()

	limiter := ratelimit.New(redisClient, cfg.Throttle)

	router := handler.NewRouter(handler.RouterDeps{
		Config:      cfg,
		Logger:      logr,
		Limiter:     limiter,
		AuthService: authSvc,
		Metrics:     metricsSvc,
	}, handler.Handlers{
		Auth:     handler.NewAuthHandler(authSvc, cfg),
		User:     handler.NewUserHandler(userSvc),
		Employee: handler.NewEmployeeHandler(employeeSvc),
		Metrics:  handler.NewMetricsHandler(metricsSvc, db, redisClient),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
