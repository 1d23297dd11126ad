package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	_ "github.com/noah-isme/feedback-api/api/swagger"
	"github.com/noah-isme/feedback-api/internal/handler"
	"github.com/noah-isme/feedback-api/internal/repository"
	"github.com/noah-isme/feedback-api/internal/router"
	"github.com/noah-isme/feedback-api/internal/service"
	"github.com/noah-isme/feedback-api/pkg/cache"
	"github.com/noah-isme/feedback-api/pkg/config"
	"github.com/noah-isme/feedback-api/pkg/database"
	"github.com/noah-isme/feedback-api/pkg/logger"
)

// @title Student Feedback API
// @version 1.0.0
// @description Anonymous token-gated teacher feedback collection and reporting
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to open database", "driver", cfg.Database.Driver, "error", err)
	}
	defer db.Close()

	catalog, err := config.LoadCatalog(cfg.Survey.CatalogPath)
	if err != nil {
		logr.Sugar().Fatalw("failed to load survey catalog", "path", cfg.Survey.CatalogPath, "error", err)
	}

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(context.Background(), cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, summary cache disabled", "error", err)
		} else {
			repo := repository.NewCacheRepository(client, "feedback")
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.SummaryTTL, logr, cacheRepo != nil)

	passwordHash := cfg.Admin.PasswordHash
	if passwordHash == "" {
		if cfg.Env == config.EnvProduction {
			logr.Sugar().Warnw("ADMIN_PASSWORD_HASH not set, hashing ADMIN_PASSWORD at start-up")
		}
		passwordHash, err = service.HashPassword(cfg.Admin.Password)
		if err != nil {
			logr.Sugar().Fatalw("failed to hash admin password", "error", err)
		}
	}

	validate := validator.New()

	tokenRepo := repository.NewTokenRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)

	feedbackSvc := service.NewFeedbackService(feedbackRepo, catalog, validate, logr, cfg.Submission.MaxCommentLength)
	reportSvc := service.NewReportService(tokenRepo, feedbackRepo, feedbackSvc, catalog, cacheSvc, logr, service.ReportConfig{SummaryTTL: cfg.Cache.SummaryTTL})
	tokenSvc := service.NewTokenService(tokenRepo, service.NewTokenGenerator(), reportSvc, metrics, validate, logr, service.TokenConfig{Length: cfg.Tokens.Length, MaxBatch: cfg.Tokens.MaxBatch})
	submissionSvc := service.NewSubmissionService(submissionRepo, feedbackSvc, reportSvc, metrics, logr, cfg.Submission.Policy)
	authSvc := service.NewAuthService(validate, logr, service.AuthConfig{
		PasswordHash:  passwordHash,
		SessionSecret: cfg.Admin.SessionSecret,
		SessionExpiry: cfg.Admin.SessionExpiration,
	})

	r := router.New(router.Dependencies{
		Config:   cfg,
		Logger:   logr,
		Metrics:  metrics,
		Sessions: authSvc,
		Handlers: router.Handlers{
			Survey:     handler.NewSurveyHandler(catalog),
			Token:      handler.NewTokenHandler(tokenSvc),
			Submission: handler.NewSubmissionHandler(submissionSvc),
			Report:     handler.NewReportHandler(reportSvc),
			Feedback:   handler.NewFeedbackHandler(feedbackSvc),
			Auth: handler.NewAuthHandler(authSvc, handler.CookieConfig{
				Name:   cfg.Admin.SessionCookie,
				Path:   cfg.APIPrefix,
				Secure: cfg.Env == config.EnvProduction,
			}),
			Metrics: handler.NewMetricsHandler(metrics, db),
		},
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting",
		"addr", addr,
		"env", cfg.Env,
		"db_driver", cfg.Database.Driver,
		"submission_policy", submissionSvc.Policy(),
		"cache_enabled", cacheSvc.Enabled(),
	)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
