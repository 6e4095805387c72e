package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/vendorscope/internal/chat"
	chatdomain "github.com/smallbiznis/vendorscope/internal/chat/domain"
	"github.com/smallbiznis/vendorscope/internal/clock"
	"github.com/smallbiznis/vendorscope/internal/config"
	"github.com/smallbiznis/vendorscope/internal/observability"
	obslogger "github.com/smallbiznis/vendorscope/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/vendorscope/internal/observability/metrics"
	obstracing "github.com/smallbiznis/vendorscope/internal/observability/tracing"
	"github.com/smallbiznis/vendorscope/internal/ratelimit"
	"github.com/smallbiznis/vendorscope/internal/vendoranalytics"
	vendordomain "github.com/smallbiznis/vendorscope/internal/vendoranalytics/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	vendoranalytics.Module,
	chat.Module,
	ratelimit.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

type EngineParams struct {
	fx.In

	Cfg         config.Config
	ObsCfg      observability.Config
	Clock       clock.Clock
	HTTPMetrics *obsmetrics.HTTPMetrics `optional:"true"`
}

func NewEngine(p EngineParams) (*gin.Engine, error) {
	if !p.ObsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if err := r.SetTrustedProxies(p.Cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           p.ObsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(p.HTTPMetrics))
	r.Use(corsMiddleware(p.Cfg.CORSAllowedOrigins))
	r.Use(ErrorHandlingMiddleware(p.Clock))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r, nil
}

func registerGin(p EngineParams) (*gin.Engine, error) {
	return NewEngine(p)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
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
	engine             *gin.Engine
	cfg                config.Config
	clock              clock.Clock
	vendorAnalyticsSvc vendordomain.Service
	chatSvc            chatdomain.Service
	limiter            *ratelimit.Limiter
	obsMetrics         *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin                *gin.Engine
	Cfg                config.Config
	Clock              clock.Clock
	VendorAnalyticsSvc vendordomain.Service
	ChatSvc            chatdomain.Service
	Limiter            *ratelimit.Limiter  `optional:"true"`
	ObsMetrics         *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:             p.Gin,
		cfg:                p.Cfg,
		clock:              p.Clock,
		vendorAnalyticsSvc: p.VendorAnalyticsSvc,
		chatSvc:            p.ChatSvc,
		limiter:            p.Limiter,
		obsMetrics:         p.ObsMetrics,
	}

	svc.registerVendorAnalyticsRoutes()
	svc.registerChatRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerVendorAnalyticsRoutes() {
	for _, prefix := range []string{"/vendor-analytics", "/api/vendor-analytics"} {
		group := s.engine.Group(prefix, s.RateLimit())

		group.GET("/performance-scorecard", s.GetPerformanceScorecard)
		group.GET("/payment-reliability", s.GetPaymentReliability)
		group.GET("/spending-trends", s.GetSpendingTrends)
		group.GET("/risk-assessment", s.GetRiskAssessment)
	}
}

func (s *Server) registerChatRoutes() {
	for _, prefix := range []string{"/chat", "/api/chat"} {
		group := s.engine.Group(prefix, s.RateLimit())

		group.POST("/query", s.ChatQuery)
		group.GET("/queries", s.ListChatQueries)
	}
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
