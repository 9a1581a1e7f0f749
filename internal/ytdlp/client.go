// Package ytdlp shells out to the yt-dlp command-line extractor. It is the
// extraction path of last resort, consulted only after every remote source
// has failed or been skipped.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/musicstream/backend/internal/domain"
)

const (
	// DefaultTimeout bounds each invocation. yt-dlp negotiates formats
	// against YouTube directly, so it gets more time than an adapter call.
	DefaultTimeout = 45 * time.Second

	// DefaultTrendingPlaylist is the YouTube Music charts playlist used as
	// the trending feed.
	DefaultTrendingPlaylist = "https://music.youtube.com/playlist?list=VLPLMC9KNkIncKtPzC09knCwMPzcRI7IL8"

	watchURLPrefix = "https://www.youtube.com/watch?v="

	defaultLimit = 20
)

// Options configures the yt-dlp client. Zero values fall back to sensible
// defaults.
type Options struct {
	Binary           string
	Timeout          time.Duration
	CookieFile       string
	TrendingPlaylist string
}

// Client invokes yt-dlp and parses its structured JSON output.
type Client struct {
	runner           Runner
	cookieFile       string
	trendingPlaylist string
}

// New creates a client running the real yt-dlp binary.
func New(opts Options) *Client {
	binary := opts.Binary
	if binary == "" {
		binary = "yt-dlp"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return newClient(newExecRunner(binary, timeout), opts)
}

// NewWithRunner creates a client on top of a custom process runner. Tests
// use it to feed canned output through the parsers.
func NewWithRunner(runner Runner, opts Options) *Client {
	return newClient(runner, opts)
}

func newClient(runner Runner, opts Options) *Client {
	playlist := opts.TrendingPlaylist
	if playlist == "" {
		playlist = DefaultTrendingPlaylist
	}
	return &Client{
		runner:           runner,
		cookieFile:       opts.CookieFile,
		trendingPlaylist: playlist,
	}
}

func (c *Client) Name() string { return "yt-dlp" }

// commonArgs returns the flags shared by every invocation. The cookie jar
// may appear on disk after process start, so its presence is checked on
// every call rather than once at construction.
func (c *Client) commonArgs() []string {
	args := []string{"--dump-json", "--no-warnings", "--skip-download"}
	if c.cookieFile != "" {
		if _, err := os.Stat(c.cookieFile); err == nil {
			args = append(args, "--cookies", c.cookieFile)
		}
	}
	return args
}

type thumbnailJSON struct {
	URL string `json:"url"`
}

// entryJSON is the subset of a yt-dlp record the normalizers depend on.
type entryJSON struct {
	ID         string          `json:"id"`
	Type       string          `json:"_type"`
	Title      string          `json:"title"`
	Channel    string          `json:"channel"`
	Uploader   string          `json:"uploader"`
	Duration   float64         `json:"duration"`
	Thumbnails []thumbnailJSON `json:"thumbnails"`
}

func (e entryJSON) artist() string {
	if e.Channel != "" {
		return e.Channel
	}
	return domain.ArtistOrUnknown(e.Uploader)
}

func (e entryJSON) title() string {
	if e.Title == "" {
		return "Unknown"
	}
	return e.Title
}

// thumbnailURL prefers the last (largest) listed thumbnail and falls back to
// the predictable ytimg URL for the video.
func (e entryJSON) thumbnailURL() string {
	if n := len(e.Thumbnails); n > 0 && e.Thumbnails[n-1].URL != "" {
		return e.Thumbnails[n-1].URL
	}
	return fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", e.ID)
}

func (e entryJSON) toSearchResult() domain.SearchResult {
	return domain.SearchResult{
		VideoID:   e.ID,
		Title:     e.title(),
		Artist:    e.artist(),
		Duration:  int(math.Round(e.Duration)),
		Thumbnail: e.thumbnailURL(),
	}
}

// parseEntryLines handles yt-dlp's newline-delimited JSON output. Playlist
// and channel records slip into flat-playlist results and are dropped here,
// as is any line that fails to parse.
func parseEntryLines(out []byte) []domain.SearchResult {
	results := []domain.SearchResult{}
	for _, line := range bytes.Split(out, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var entry entryJSON
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		if entry.ID == "" || entry.Type == "playlist" {
			continue
		}
		results = append(results, entry.toSearchResult())
	}
	return results
}

// Search runs a ytsearch query and normalizes up to limit results.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	args := append([]string{
		fmt.Sprintf("ytsearch%d:%s", limit, query),
		"--flat-playlist",
	}, c.commonArgs()...)

	out, err := c.runner.Run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseEntryLines(out), nil
}

type formatJSON struct {
	URL        string  `json:"url"`
	ACodec     string  `json:"acodec"`
	VCodec     string  `json:"vcodec"`
	ABR        float64 `json:"abr"`
	Ext        string  `json:"ext"`
	FormatNote string  `json:"format_note"`
}

// audioOnly reports whether the format carries audio and no video track.
func (f formatJSON) audioOnly() bool {
	return f.ACodec != "" && f.ACodec != "none" && (f.VCodec == "" || f.VCodec == "none")
}

func (f formatJSON) mimeType() string {
	switch {
	case strings.Contains(f.ACodec, "mp4a"):
		return `audio/mp4; codecs="mp4a.40.2"`
	case strings.Contains(f.ACodec, "opus"):
		return `audio/webm; codecs="opus"`
	case f.Ext != "":
		return "audio/" + f.Ext
	default:
		return "audio/webm"
	}
}

func (f formatJSON) quality() string {
	if f.FormatNote != "" {
		return f.FormatNote
	}
	return fmt.Sprintf("%dkbps", int(math.Round(f.ABR)))
}

type videoJSON struct {
	entryJSON
	Formats []formatJSON `json:"formats"`
}

// Streams resolves every audio-only format for a video, sorted so the first
// entry is the recommended stream.
func (c *Client) Streams(ctx context.Context, videoID string) (*domain.TrackStreamBundle, error) {
	args := append([]string{watchURLPrefix + videoID}, c.commonArgs()...)

	out, err := c.runner.Run(ctx, args...)
	if err != nil {
		return nil, err
	}

	var video videoJSON
	if err := json.Unmarshal(bytes.TrimSpace(out), &video); err != nil {
		return nil, fmt.Errorf("unparseable yt-dlp output: %w", err)
	}
	if video.ID == "" {
		video.ID = videoID
	}

	streams := make([]domain.AudioStream, 0, len(video.Formats))
	for _, f := range video.Formats {
		if !f.audioOnly() {
			continue
		}
		streams = append(streams, domain.AudioStream{
			URL:      f.URL,
			MimeType: f.mimeType(),
			Bitrate:  int(math.Round(f.ABR * 1000)),
			Codec:    f.ACodec,
			Quality:  f.quality(),
		})
	}
	domain.SortStreams(streams)

	meta := video.toSearchResult()
	return &domain.TrackStreamBundle{
		VideoID:      meta.VideoID,
		Title:        meta.Title,
		Artist:       meta.Artist,
		Duration:     meta.Duration,
		Thumbnail:    meta.Thumbnail,
		AudioStreams: streams,
	}, nil
}

// Trending reads the charts playlist and normalizes up to limit entries.
func (c *Client) Trending(ctx context.Context, limit int) ([]domain.SearchResult, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	args := append([]string{
		c.trendingPlaylist,
		"--flat-playlist",
		"--playlist-end", strconv.Itoa(limit),
	}, c.commonArgs()...)

	out, err := c.runner.Run(ctx, args...)
	if err != nil {
		return nil, err
	}

	results := parseEntryLines(out)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// RawFormats returns yt-dlp's unprocessed JSON for a video. It backs the
// debug endpoint used to diagnose format availability in production.
func (c *Client) RawFormats(ctx context.Context, videoID string) (json.RawMessage, error) {
	args := append([]string{watchURLPrefix + videoID}, c.commonArgs()...)

	out, err := c.runner.Run(ctx, args...)
	if err != nil {
		return nil, err
	}

	out = bytes.TrimSpace(out)
	if !json.Valid(out) {
		return nil, fmt.Errorf("unparseable yt-dlp output for %s", videoID)
	}
	return json.RawMessage(out), nil
}
