package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel int `yaml:"log_level"`

	Server     ServerConfig     `yaml:"server"`
	Upstreams  UpstreamsConfig  `yaml:"upstreams"`
	Cache      CacheConfig      `yaml:"cache"`
	Extractors ExtractorsConfig `yaml:"extractors"`
	YtDlp      YtDlpConfig      `yaml:"ytdlp"`
}

type ServerConfig struct {
	Port               string `yaml:"port"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
}

type UpstreamsConfig struct {
	InvidiousURL   string `yaml:"invidious_url"`
	PipedURL       string `yaml:"piped_url"`
	TrendingRegion string `yaml:"trending_region"`
}

type CacheConfig struct {
	RedisURL string `yaml:"redis_url"`
}

type ExtractorsConfig struct {
	// FailureThreshold consecutive failures open a source's circuit.
	FailureThreshold int `yaml:"failure_threshold"`

	// ResetWindowSeconds is how long an open circuit blocks attempts.
	ResetWindowSeconds int `yaml:"reset_window_seconds"`

	// RequestTimeoutSeconds bounds each upstream HTTP call.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
}

type YtDlpConfig struct {
	Binary           string `yaml:"binary"`
	TimeoutSeconds   int    `yaml:"timeout_seconds"`
	CookieFile       string `yaml:"cookie_file"`
	TrendingPlaylist string `yaml:"trending_playlist"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config *Config

	// Unmarshal the YAML data into the struct
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, err
	}

	// Set defaults if not provided
	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
	if config.Server.RateLimitPerMinute == 0 {
		config.Server.RateLimitPerMinute = 100
	}
	if config.Upstreams.InvidiousURL == "" {
		config.Upstreams.InvidiousURL = "http://localhost:3001"
	}
	if config.Upstreams.PipedURL == "" {
		config.Upstreams.PipedURL = "http://localhost:3002"
	}
	if config.Upstreams.TrendingRegion == "" {
		config.Upstreams.TrendingRegion = "IN"
	}
	if config.Cache.RedisURL == "" {
		config.Cache.RedisURL = "redis://localhost:6379"
	}
	if config.Extractors.FailureThreshold == 0 {
		config.Extractors.FailureThreshold = 5
	}
	if config.Extractors.ResetWindowSeconds == 0 {
		config.Extractors.ResetWindowSeconds = 60
	}
	if config.Extractors.RequestTimeoutSeconds == 0 {
		config.Extractors.RequestTimeoutSeconds = 10
	}
	if config.YtDlp.Binary == "" {
		config.YtDlp.Binary = "yt-dlp"
	}
	if config.YtDlp.TimeoutSeconds == 0 {
		config.YtDlp.TimeoutSeconds = 45
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides lets deployments vary endpoints without editing the
// config file.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("PORT"); v != "" {
		config.Server.Port = v
	}
	if v := os.Getenv("INVIDIOUS_URL"); v != "" {
		config.Upstreams.InvidiousURL = v
	}
	if v := os.Getenv("PIPED_URL"); v != "" {
		config.Upstreams.PipedURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		config.Cache.RedisURL = v
	}
	if v := os.Getenv("YTDLP_COOKIE_FILE"); v != "" {
		config.YtDlp.CookieFile = v
	}
}
