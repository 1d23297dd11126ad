package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/feedback-api/internal/handler"
	"github.com/noah-isme/feedback-api/internal/middleware"
	"github.com/noah-isme/feedback-api/internal/service"
	"github.com/noah-isme/feedback-api/pkg/config"
	"github.com/noah-isme/feedback-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/feedback-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/feedback-api/pkg/middleware/requestid"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Survey     *handler.SurveyHandler
	Token      *handler.TokenHandler
	Submission *handler.SubmissionHandler
	Report     *handler.ReportHandler
	Feedback   *handler.FeedbackHandler
	Auth       *handler.AuthHandler
	Metrics    *handler.MetricsHandler
}

// Dependencies carries everything New needs to assemble the engine.
type Dependencies struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *service.MetricsService
	Sessions *service.AuthService
	Handlers Handlers
}

// New builds the gin engine with the public student routes and the
// session-protected admin routes.
func New(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	logr := deps.Logger
	if logr == nil {
		logr = zap.NewNop()
	}
	h := deps.Handlers

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/survey", h.Survey.Get)
	api.POST("/tokens/verify", h.Token.Verify)
	api.POST("/feedback", h.Submission.Submit)

	admin := api.Group("/admin")
	admin.POST("/login", h.Auth.Login)
	admin.POST("/logout", h.Auth.Logout)

	secured := admin.Group("")
	secured.Use(middleware.AdminSession(deps.Sessions, cfg.Admin.SessionCookie))
	secured.GET("/summary", h.Report.Summary)
	secured.GET("/feedback", h.Feedback.List)
	secured.GET("/export", h.Report.Export)
	secured.GET("/tokens/stats", h.Token.Stats)
	secured.POST("/tokens", h.Token.Generate)
	secured.POST("/reset", h.Token.Reset)

	return r
}
