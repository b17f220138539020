package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/disputeops/internal/audit"
	auditdomain "github.com/smallbiznis/disputeops/internal/audit/domain"
	"github.com/smallbiznis/disputeops/internal/auth"
	authdomain "github.com/smallbiznis/disputeops/internal/auth/domain"
	"github.com/smallbiznis/disputeops/internal/authorization"
	"github.com/smallbiznis/disputeops/internal/config"
	"github.com/smallbiznis/disputeops/internal/dashboard"
	dashboarddomain "github.com/smallbiznis/disputeops/internal/dashboard/domain"
	"github.com/smallbiznis/disputeops/internal/dispute"
	disputedomain "github.com/smallbiznis/disputeops/internal/dispute/domain"
	"github.com/smallbiznis/disputeops/internal/observability"
	obsmiddleware "github.com/smallbiznis/disputeops/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/disputeops/internal/observability/metrics"
	obstracing "github.com/smallbiznis/disputeops/internal/observability/tracing"
	"github.com/smallbiznis/disputeops/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	auth.Module,
	dispute.Module,
	dashboard.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	authsvc      authdomain.Service
	authzSvc     authorization.Service
	auditSvc     auditdomain.Service
	disputeSvc   disputedomain.Service
	dashboardSvc dashboarddomain.Service
	dashboardCfg *config.DashboardConfigHolder
	limiter      *ratelimit.Limiter
	obsMetrics   *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	Authsvc      authdomain.Service
	AuthzSvc     authorization.Service
	AuditSvc     auditdomain.Service
	DisputeSvc   disputedomain.Service
	DashboardSvc dashboarddomain.Service
	DashboardCfg *config.DashboardConfigHolder `optional:"true"`
	Limiter      *ratelimit.Limiter            `optional:"true"`
	ObsMetrics   *obsmetrics.Metrics           `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          log.Named("http.server"),
		authsvc:      p.Authsvc,
		authzSvc:     p.AuthzSvc,
		auditSvc:     p.AuditSvc,
		disputeSvc:   p.DisputeSvc,
		dashboardSvc: p.DashboardSvc,
		dashboardCfg: p.DashboardCfg,
		limiter:      p.Limiter,
		obsMetrics:   p.ObsMetrics,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/login", s.Login)
	auth.POST("/logout", s.AuthRequired(), s.Logout)
	auth.GET("/me", s.AuthRequired(), s.Me)
	auth.POST("/register",
		s.AuthRequired(),
		s.authorize(authorization.ObjectUser, authorization.ActionUserCreate),
		s.Register,
	)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired(), s.UserRateLimit())

	// -------- Dashboard --------
	dash := api.Group("/dashboard", s.authorize(authorization.ObjectDashboard, authorization.ActionDashboardView))
	{
		dash.GET("/daily-volumes", s.GetDailyVolumes)
		dash.GET("/matching-records", s.GetMatchingRecords)
		dash.GET("/today-cases", s.GetTodayCases)
		dash.GET("/top-issuers", s.GetTopIssuers)
		dash.GET("/top-acquirers", s.GetTopAcquirers)
		dash.GET("/volume-history", s.GetVolumeHistory)
		dash.GET("/annual-statistics", s.GetAnnualStatistics)
		dash.GET("/bank-distribution", s.GetBankDistribution)
		dash.GET("/monthly-yearly-statistics", s.GetMonthlyYearlyStatistics)
		dash.GET("/today-data-by-category", s.GetTodayData)
		dash.GET("/today-data", s.GetTodayData)
	}

	// -------- Dispute records --------
	for _, category := range disputedomain.Categories {
		records := api.Group("/"+category.Path(),
			withCategory(category),
			s.authorize(authorization.ObjectDisputeRecord, authorization.ActionDisputeRecordView),
		)
		records.GET("", s.ListRecords)
		records.GET("/:id", s.GetRecord)
		records.GET("/:id/link", s.GetRecordLink)
	}

	// -------- Audit --------
	api.GET("/audit-logs", s.authorize(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
