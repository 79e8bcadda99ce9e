// Package server exposes the web UI and the analysis API over HTTP.
package server

import (
	"embed"
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chargescope/chargescope/internal/ai"
	"github.com/chargescope/chargescope/internal/config"
	"github.com/chargescope/chargescope/internal/logging"
	"github.com/chargescope/chargescope/internal/normalize"
	"github.com/chargescope/chargescope/internal/ratelimit"
)

//go:embed all:web
var webFS embed.FS

// Server holds the Gin engine and the analysis pipeline dependencies.
type Server struct {
	engine      *gin.Engine
	cfg         *config.Config
	provider    ai.Provider
	providerErr error // non-nil when the provider could not be constructed
	limiter     *ratelimit.Limiter
	log         *logging.SecureLogger
	startedAt   time.Time
}

// Options configures a Server.
type Options struct {
	Config *config.Config
	// Provider is nil when construction failed at startup; ProviderErr then
	// carries the cause. The UI still renders and each analyze action fails
	// with a service-unavailable message.
	Provider    ai.Provider
	ProviderErr error
	Logger      *logging.SecureLogger
}

// New creates the web server.
func New(opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	// Disable automatic redirects that cause 301 issues.
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false

	s := &Server{
		engine:      engine,
		cfg:         opts.Config,
		provider:    opts.Provider,
		providerErr: opts.ProviderErr,
		limiter:     ratelimit.New(opts.Config.MaxRequestsPerMinute, time.Minute),
		log:         opts.Logger,
		startedAt:   time.Now(),
	}

	s.setupRoutes()
	return s
}

// Handler returns the engine as an http.Handler so callers own the
// http.Server lifecycle (graceful shutdown, tests).
func (s *Server) Handler() http.Handler {
	return s.engine
}

// serveEmbedded reads a file from the embedded FS and writes it with the given content type.
func serveEmbedded(webContent fs.FS, name string, contentType string) gin.HandlerFunc {
	// Pre-read the file at startup so we don't read on every request.
	data, err := fs.ReadFile(webContent, name)
	return func(c *gin.Context) {
		if err != nil {
			c.String(http.StatusNotFound, "file not found: %s", name)
			return
		}
		c.Data(http.StatusOK, contentType, data)
	}
}

func (s *Server) setupRoutes() {
	webContent, _ := fs.Sub(webFS, "web")

	// UI assets, served with explicit content types.
	s.engine.GET("/", serveEmbedded(webContent, "index.html", "text/html; charset=utf-8"))
	s.engine.GET("/style.css", serveEmbedded(webContent, "style.css", "text/css; charset=utf-8"))
	s.engine.GET("/app.js", serveEmbedded(webContent, "app.js", "application/javascript; charset=utf-8"))

	// Health check.
	s.engine.GET("/healthz", func(c *gin.Context) {
		status := "ok"
		if s.provider == nil {
			status = "degraded"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":         status,
			"provider":       s.cfg.ModelProvider,
			"model":          s.cfg.GetModel(),
			"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
		})
	})

	// Analysis API.
	s.engine.POST("/api/analyze", s.handleAnalyzeText)
	s.engine.POST("/api/analyze/file", s.handleAnalyzeFile)
	s.engine.POST("/api/report/download", s.handleDownload)
	s.engine.GET("/api/example", s.handleExample)
}

// newNormalizer builds a normalizer honoring the per-request filter toggle.
func (s *Server) newNormalizer(filterNoise bool) *normalize.Normalizer {
	return normalize.New(normalize.Options{
		MaxContentBytes: s.cfg.MaxLogContentKB * 1024,
		MaxRows:         s.cfg.MaxUploadRows,
		PreviewRows:     s.cfg.PreviewRows,
		FilterNoise:     filterNoise,
	})
}
