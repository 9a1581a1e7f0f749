// Package server exposes the extraction orchestrator over HTTP.
package server

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/musicstream/backend/config"
	"github.com/musicstream/backend/internal/domain"
	"github.com/musicstream/backend/internal/extractor"
)

// Version reported by the health endpoint.
const Version = "0.1.0"

// Extractor is the orchestrator surface the route layer consumes.
type Extractor interface {
	Search(ctx context.Context, query string, page int) ([]domain.SearchResult, error)
	GetStreams(ctx context.Context, videoID string) (*domain.TrackStreamBundle, error)
	GetSuggestions(ctx context.Context, query string) []string
	GetTrending(ctx context.Context) []domain.SearchResult
	Status() []extractor.SourceStatus
}

// Debugger exposes the raw format listing of the local extraction tool for
// production troubleshooting.
type Debugger interface {
	RawFormats(ctx context.Context, videoID string) (json.RawMessage, error)
}

// Pinger reports reachability of the response cache.
type Pinger interface {
	Healthy(ctx context.Context) bool
}

// HealthChecker reports reachability of an external collaborator under the
// name it appears with in the health payload. The persistence layer plugs in
// through this without the server knowing about it.
type HealthChecker interface {
	Name() string
	Healthy(ctx context.Context) bool
}

// Server handles HTTP requests for the extraction API.
type Server struct {
	cfg       *config.Config
	router    *gin.Engine
	extractor Extractor
	cache     Pinger
	debugger  Debugger
	checkers  []HealthChecker
}

// New creates a new HTTP server instance.
func New(cfg *config.Config, extr Extractor, cache Pinger, debugger Debugger, checkers ...HealthChecker) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		cfg:       cfg,
		extractor: extr,
		cache:     cache,
		debugger:  debugger,
		checkers:  checkers,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	server.setupRoutes(router)
	server.router = router

	return server
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes(router *gin.Engine) {
	router.Use(requestID())
	router.Use(cors())
	router.Use(rateLimit(s.cfg.Server.RateLimitPerMinute))

	router.GET("/health", s.health)

	api := router.Group("/api")
	{
		api.GET("/search", s.search)
		api.GET("/search/suggestions", s.suggestions)
		api.GET("/trending", s.trending)
		api.GET("/tracks/:videoId", s.streams)
		api.GET("/admin/extractors", s.extractorStatus)
		api.GET("/debug/formats/:videoId", s.rawFormats)
	}
}

// Start starts the HTTP server
func (s *Server) Start(port string) error {
	return s.router.Run(":" + port)
}
