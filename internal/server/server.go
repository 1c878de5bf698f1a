// Package server wires the HTTP API for the operations dashboard.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	auditservice "github.com/modabuild/fabline/internal/audit/service"
	"github.com/modabuild/fabline/internal/config"
	importdomain "github.com/modabuild/fabline/internal/moduleimport/domain"
	obslogger "github.com/modabuild/fabline/internal/observability/logger"
	"github.com/modabuild/fabline/internal/observability/metrics"
	"github.com/modabuild/fabline/internal/observability/tracing"
	projectdomain "github.com/modabuild/fabline/internal/project/domain"
	sequencedomain "github.com/modabuild/fabline/internal/sequence/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterAPIRoutes() }),
	fx.Invoke(RunHTTP),
)

type ServerParam struct {
	fx.In

	Config      config.Config
	DB          *gorm.DB
	Log         *zap.Logger
	Engine      *gin.Engine
	ProjectSvc  projectdomain.Service
	ImportSvc   importdomain.Service
	SequenceSvc sequencedomain.Service
	AuditSvc    *auditservice.Service
}

type Server struct {
	cfg         config.Config
	db          *gorm.DB
	log         *zap.Logger
	engine      *gin.Engine
	projectSvc  projectdomain.Service
	importSvc   importdomain.Service
	sequenceSvc sequencedomain.Service
	auditSvc    *auditservice.Service

	importLimiter *rateLimiter
}

func NewEngine(cfg config.Config, log *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	engine.Use(tracing.GinMiddleware())
	engine.Use(metrics.GinMiddleware(metrics.HTTP()))
	return engine
}

func NewServer(p ServerParam) *Server {
	return &Server{
		cfg:         p.Config,
		db:          p.DB,
		log:         p.Log.Named("server"),
		engine:      p.Engine,
		projectSvc:  p.ProjectSvc,
		importSvc:   p.ImportSvc,
		sequenceSvc: p.SequenceSvc,
		auditSvc:    p.AuditSvc,

		importLimiter: newRateLimiter(p.Config.ImportRateLimit, p.Config.ImportRateWindow),
	}
}

func (s *Server) RegisterAPIRoutes() {
	s.engine.GET("/healthz", s.Health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api")
	api.Use(s.bearerAuth())

	api.POST("/projects", s.CreateProject)
	api.GET("/projects", s.ListProjects)
	api.GET("/projects/:id", s.GetProjectByID)

	api.GET("/projects/:id/modules", s.ListModules)
	api.GET("/projects/:id/modules/export", s.ExportModulesCSV)
	api.PATCH("/projects/:id/modules/sequence", s.EditSequences)
	api.POST("/projects/:id/modules/reorder", s.ReorderModule)
	api.POST("/projects/:id/modules/prototype", s.InsertPrototype)

	imports := api.Group("/projects/:id/import")
	imports.Use(s.importRateLimit())
	imports.POST("/analyze", s.AnalyzeImport)
	imports.POST("/execute", s.ExecuteImport)

	api.GET("/projects/:id/sequence/history", s.GetSequenceHistory)
	api.GET("/projects/:id/sequence/compare", s.CompareSnapshots)
	api.POST("/projects/:id/sequence/restore", s.RestoreSnapshot)
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func RunHTTP(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				s.log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
