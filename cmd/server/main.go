package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/musicstream/backend/config"
	"github.com/musicstream/backend/internal/cache"
	"github.com/musicstream/backend/internal/extractor"
	"github.com/musicstream/backend/internal/server"
	"github.com/musicstream/backend/internal/ytdlp"
)

func main() {
	configPath := flag.String("config", "./config/config.yaml", "Path to config file")
	port := flag.String("port", "", "Server port (overrides config)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.Level(cfg.LogLevel)}))
	slog.SetDefault(logger)

	responseCache := cache.New(cfg.Cache.RedisURL)

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

	orchestrator := extractor.NewOrchestrator(adapters, fallback, responseCache, extractor.BreakerSettings{
		FailureThreshold: cfg.Extractors.FailureThreshold,
		ResetWindow:      time.Duration(cfg.Extractors.ResetWindowSeconds) * time.Second,
	})

	srv := server.New(cfg, orchestrator, responseCache, fallback)

	listenPort := cfg.Server.Port
	if *port != "" {
		listenPort = *port
	}

	slog.Info("Starting extraction API server", "port", listenPort)
	if err := srv.Start(listenPort); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
