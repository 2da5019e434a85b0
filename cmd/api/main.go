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

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campuschain/credit-ledger-api/api/swagger"
	"github.com/campuschain/credit-ledger-api/internal/handler"
	"github.com/campuschain/credit-ledger-api/internal/ledger"
	"github.com/campuschain/credit-ledger-api/internal/repository"
	"github.com/campuschain/credit-ledger-api/internal/service"
	"github.com/campuschain/credit-ledger-api/pkg/cache"
	"github.com/campuschain/credit-ledger-api/pkg/config"
	"github.com/campuschain/credit-ledger-api/pkg/database"
	"github.com/campuschain/credit-ledger-api/pkg/logger"
	corsmiddleware "github.com/campuschain/credit-ledger-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campuschain/credit-ledger-api/pkg/middleware/requestid"
)

// @title Credit Ledger API
// @version 0.1.0
// @description Role-gated academic credit ledger with a Postgres mirror
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

	userRepo := repository.NewUserRepository(db)
	creditRepo := repository.NewCreditRepository(db)
	eventRepo := repository.NewEventRepository(db)
	roleRepo := repository.NewRoleRepository(db)

	creditLedger := ledger.New(cfg.Ledger.BootstrapAdmin)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})

	userSvc := service.NewUserService(userRepo, validate, logr)

	creditSvc := service.NewCreditService(creditLedger, userRepo, validate, logr,
		service.WithLedgerObserver(metricsSvc),
	)

	indexer := service.NewIndexerService(
		eventRepo, creditRepo, roleRepo, userRepo, creditLedger,
		service.NewRedisPublisher(redisClient),
		service.IndexerConfig{
			Workers:    cfg.Indexer.Workers,
			MaxRetries: cfg.Indexer.MaxRetries,
			RetryDelay: cfg.Indexer.RetryDelay,
			Channel:    cfg.Indexer.Channel,
		},
		logr,
		service.WithIndexObserver(metricsSvc),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	indexer.Start(ctx)
	defer indexer.Stop()
	creditLedger.Subscribe(indexer.Subscriber())

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	handler.Register(r, cfg.APIPrefix, handler.Dependencies{
		AuthService:    authSvc,
		MetricsService: metricsSvc,
		UserRepository: userRepo,
		Auth:           handler.NewAuthHandler(authSvc),
		Users:          handler.NewUserHandler(userSvc),
		Credits:        handler.NewCreditHandler(creditSvc),
		Roles:          handler.NewRoleHandler(creditSvc),
		Events:         handler.NewEventHandler(eventRepo),
		Metrics:        handler.NewMetricsHandler(metricsSvc),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "bootstrap_admin", cfg.Ledger.BootstrapAdmin)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown error", "error", err)
	}
}
