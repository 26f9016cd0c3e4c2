// Package server exposes the resolver over HTTP as the relay's /api/fetch.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/qepting91/reddit-relay/internal/resolver"
)

const exhaustedDetails = "Reddit refused every request strategy and the RSS fallback. " +
	"This is usually temporary; retry in a minute."

// Resolver is the upstream fetch the relay exposes.
type Resolver interface {
	Resolve(ctx context.Context, target string) (*resolver.Result, error)
}

type Server struct {
	resolver  Resolver
	logger    *slog.Logger
	limiter   *rate.Limiter
	dashboard gin.HandlerFunc
}

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithRateLimit caps /api/fetch at perSecond with the given burst.
// A non-positive rate disables the limit.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Server) {
		if perSecond <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithDashboard mounts h at GET /dashboard.
func WithDashboard(h gin.HandlerFunc) Option {
	return func(s *Server) { s.dashboard = h }
}

func New(res Resolver, opts ...Option) *Server {
	s := &Server{resolver: res, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Router builds the gin engine with every relay route.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger), prometheusMiddleware())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Accept"}
	config.AllowMethods = []string{"GET", "OPTIONS"}
	config.ExposeHeaders = []string{"X-Relay-Preset", "X-Relay-Degraded"}
	r.Use(cors.New(config), noCache())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "reddit-relay"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	if s.limiter != nil {
		api.Use(rateLimit(s.limiter))
	}
	api.GET("/fetch", s.fetch)

	if s.dashboard != nil {
		r.GET("/dashboard", s.dashboard)
	}
	return r
}

func (s *Server) fetch(c *gin.Context) {
	target := c.Query("url")
	res, err := s.resolver.Resolve(c.Request.Context(), target)
	switch {
	case errors.Is(err, resolver.ErrInvalidTarget):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_url", "details": err.Error()})
		return
	case errors.Is(err, resolver.ErrExhausted):
		s.logger.Warn("upstream exhausted", "url", target, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": resolver.ExhaustedCode, "details": exhaustedDetails})
		return
	case err != nil:
		s.logger.Warn("fetch aborted", "url", target, "error", err)
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "upstream_timeout", "details": err.Error()})
		return
	}

	c.Header("X-Relay-Preset", res.Preset)
	if res.Degraded {
		c.Header("X-Relay-Degraded", "rss")
	}
	contentType := res.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(res.Status, contentType, res.Body)
}
