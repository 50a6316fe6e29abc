// Package api is the HTTP surface of the menu advisor.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"menu-advisor/internal/common/cache"
	"menu-advisor/internal/common/config"
	apperrors "menu-advisor/internal/common/errors"
	"menu-advisor/internal/common/logger"
	"menu-advisor/internal/models"
	runanalysis "menu-advisor/internal/workers/analysis/run-analysis"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Analyzer interface {
	Execute(ctx context.Context, input *runanalysis.Input) (*runanalysis.Output, error)
}

// Indexer receives every freshly computed analysis.
type Indexer interface {
	Index(ctx context.Context, result *models.AnalysisResult) error
}

type Dependencies struct {
	Analyzer Analyzer
	Cache    cache.Cache
	// Sink is optional.
	Sink Indexer
	// Ready reports backend health for /ready. Nil means always ready.
	Ready func(ctx context.Context) error
}

type Server struct {
	config  *config.Config
	deps    Dependencies
	errors  *apperrors.ErrorHandler
	limiter *ipLimiter
	logger  logger.Logger
}

func NewServer(cfg *config.Config, deps Dependencies, log logger.Logger) *Server {
	if deps.Cache == nil {
		deps.Cache = cache.NopCache{}
	}
	log = log.WithFields(map[string]interface{}{"component": "api"})
	return &Server{
		config:  cfg,
		deps:    deps,
		errors:  apperrors.NewErrorHandler(log),
		limiter: newIPLimiter(cfg.Server.RateLimitPerMinute),
		logger:  log,
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestMetrics(), cors(s.config.Server.CORSOrigins))

	r.GET("/health", s.health)
	r.GET("/ready", s.ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/health", s.health)
		api.POST("/analyze", s.rateLimit("/api/analyze"), s.analyze)
		api.GET("/export", s.rateLimit("/api/export"), s.export)
		api.POST("/clear-cache", s.clearCache)
	}

	if dir := s.config.Server.StaticDir; dir != "" {
		index := filepath.Join(dir, "index.html")
		if _, err := os.Stat(index); err == nil {
			r.StaticFile("/", index)
		} else {
			s.logger.Warn("static front end not found", map[string]interface{}{"path": index})
		}
	}
	return r
}

// HTTPServer wraps the router in a server listening on the configured port.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) fail(c *gin.Context, route string, err error) {
	status, body := s.errors.Handle(route, err)
	c.AbortWithStatusJSON(status, body)
}
