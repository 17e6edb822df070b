package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/ledger/internal/config"
	eventdomain "github.com/smallbiznis/ledger/internal/event/domain"
	eventservice "github.com/smallbiznis/ledger/internal/event/service"
	obslogger "github.com/smallbiznis/ledger/internal/observability/logger"
	projectionservice "github.com/smallbiznis/ledger/internal/projection/service"
	txdomain "github.com/smallbiznis/ledger/internal/transaction/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(
		func(d *projectionservice.Dispatcher) Reprojector { return d },
		func(s *eventservice.Service) EventReader { return s },
		NewServer,
		NewEngine,
	),
	fx.Invoke(run),
)

// Reprojector rebuilds a projection from stored history.
type Reprojector interface {
	Reproject(ctx context.Context, resourceType eventdomain.ResourceType, externalID string) error
}

type EventReader interface {
	GetEventsForResource(ctx context.Context, externalID string) ([]eventdomain.Event, error)
}

type Params struct {
	fx.In

	Config       config.Config
	Log          *zap.Logger
	DB           *gorm.DB
	Reprojector  Reprojector
	Events       EventReader
	Transactions txdomain.Repository
}

type Server struct {
	cfg          config.Config
	log          *zap.Logger
	db           *gorm.DB
	reprojector  Reprojector
	events       EventReader
	transactions txdomain.Repository
}

func NewServer(p Params) *Server {
	return &Server{
		cfg:          p.Config,
		log:          p.Log.Named("http.server"),
		db:           p.DB,
		reprojector:  p.Reprojector,
		events:       p.Events,
		transactions: p.Transactions,
	}
}

func NewEngine(s *Server, log *zap.Logger) *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log))
	r.Use(Tracing())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.RegisterRoutes(r)
	return r
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	admin := r.Group("/admin/v1", AdminAuth(s.cfg.AdminToken))
	admin.POST("/resources/:resource_type/:external_id/reproject", s.ReprojectResource)
	admin.GET("/events/:external_id", s.ListEvents)
	admin.GET("/transactions/:external_id", s.GetTransaction)
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
