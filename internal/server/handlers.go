package server

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// search resolves a free-text query into search results.
func (s *Server) search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(400, gin.H{"error": `query parameter "q" is required`})
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	results, err := s.extractor.Search(c.Request.Context(), query, page)
	if err != nil {
		slog.Error("search failed", "query", query, "error", err)
		c.JSON(502, gin.H{"error": "search service unavailable"})
		return
	}

	c.JSON(200, gin.H{
		"query":   query,
		"page":    page,
		"results": results,
	})
}

// suggestions returns search completions. Best-effort: a blank query or any
// upstream failure yields an empty list, never an error.
func (s *Server) suggestions(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(200, gin.H{"suggestions": []string{}})
		return
	}

	c.JSON(200, gin.H{"suggestions": s.extractor.GetSuggestions(c.Request.Context(), query)})
}

// trending returns the trending feed, degrading to an empty list on failure.
func (s *Server) trending(c *gin.Context) {
	c.JSON(200, gin.H{"results": s.extractor.GetTrending(c.Request.Context())})
}

// streams resolves a video id into its playable audio streams.
func (s *Server) streams(c *gin.Context) {
	videoID := strings.TrimSpace(c.Param("videoId"))
	if videoID == "" {
		c.JSON(400, gin.H{"error": "videoId is required"})
		return
	}

	bundle, err := s.extractor.GetStreams(c.Request.Context(), videoID)
	if err != nil {
		slog.Error("stream resolution failed", "videoId", videoID, "error", err)
		c.JSON(502, gin.H{"error": "stream resolution failed"})
		return
	}

	c.JSON(200, bundle)
}

// extractorStatus reports the circuit state of every configured source.
func (s *Server) extractorStatus(c *gin.Context) {
	c.JSON(200, gin.H{"extractors": s.extractor.Status()})
}

// rawFormats exposes the local tool's unprocessed format listing, used to
// troubleshoot format availability in production.
func (s *Server) rawFormats(c *gin.Context) {
	videoID := strings.TrimSpace(c.Param("videoId"))
	if videoID == "" {
		c.JSON(400, gin.H{"error": "videoId is required"})
		return
	}

	raw, err := s.debugger.RawFormats(c.Request.Context(), videoID)
	if err != nil {
		slog.Error("raw format listing failed", "videoId", videoID, "error", err)
		c.JSON(502, gin.H{"error": "format listing failed"})
		return
	}

	c.JSON(200, gin.H{
		"videoId": videoID,
		"raw":     raw,
	})
}

// health aggregates extractor breaker state and collaborator reachability.
func (s *Server) health(c *gin.Context) {
	ctx := c.Request.Context()

	services := gin.H{}
	if s.cache.Healthy(ctx) {
		services["redis"] = "connected"
	} else {
		services["redis"] = "disconnected"
	}
	for _, checker := range s.checkers {
		if checker.Healthy(ctx) {
			services[checker.Name()] = "connected"
		} else {
			services[checker.Name()] = "disconnected"
		}
	}

	c.JSON(200, gin.H{
		"status":     "ok",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"version":    Version,
		"services":   services,
		"extractors": s.extractor.Status(),
	})
}
