// Command probe runs a single extraction operation through the same
// orchestrator the server uses and prints the result as JSON. It exists for
// diagnosing upstream issues without going through the HTTP layer.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/musicstream/backend/config"
	"github.com/musicstream/backend/internal/cache"
	"github.com/musicstream/backend/internal/extractor"
	"github.com/musicstream/backend/internal/ytdlp"
)

func main() {
	configPath := flag.String("config", "./config/config.yaml", "Path to config file")
	op := flag.String("op", "search", "Operation: search, streams, trending or status")
	query := flag.String("q", "", "Search query (for -op search)")
	videoID := flag.String("id", "", "Video id (for -op streams)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.Level(cfg.LogLevel)}))
	slog.SetDefault(logger)

	requestTimeout := time.Duration(cfg.Extractors.RequestTimeoutSeconds) * time.Second
	adapters := []extractor.Adapter{
		extractor.NewInvidiousAdapter(cfg.Upstreams.InvidiousURL, requestTimeout),
		extractor.NewPipedAdapter(cfg.Upstreams.PipedURL, cfg.Upstreams.TrendingRegion, requestTimeout),
	}
	fallback := ytdlp.New(ytdlp.Options{
		Binary:           cfg.YtDlp.Binary,
		Timeout:          time.Duration(cfg.YtDlp.TimeoutSeconds) * time.Second,
		CookieFile:       cfg.YtDlp.CookieFile,
		TrendingPlaylist: cfg.YtDlp.TrendingPlaylist,
	})

	// Probes bypass the response cache so they always hit the sources.
	orchestrator := extractor.NewOrchestrator(adapters, fallback, cache.Disabled(), extractor.BreakerSettings{
		FailureThreshold: cfg.Extractors.FailureThreshold,
		ResetWindow:      time.Duration(cfg.Extractors.ResetWindowSeconds) * time.Second,
	})

	ctx := context.Background()

	var result any
	switch *op {
	case "search":
		if *query == "" {
			slog.Error("search requires -q")
			os.Exit(2)
		}
		result, err = orchestrator.Search(ctx, *query, 1)
	case "streams":
		if *videoID == "" {
			slog.Error("streams requires -id")
			os.Exit(2)
		}
		result, err = orchestrator.GetStreams(ctx, *videoID)
	case "trending":
		result = orchestrator.GetTrending(ctx)
	case "status":
		result = orchestrator.Status()
	default:
		slog.Error("Unknown operation", "op", *op)
		os.Exit(2)
	}

	if err != nil {
		slog.Error("Probe failed", "op", *op, "error", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		slog.Error("Failed to encode result", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
