package extractor

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/musicstream/backend/internal/domain"
)

// watchPathPrefix is how Piped expresses a video reference inside item URLs.
const watchPathPrefix = "/watch?v="

// PipedAdapter talks to a Piped instance. It supports search, stream
// resolution and trending; Piped has no suggestions endpoint.
type PipedAdapter struct {
	baseURL string
	region  string
	client  *http.Client
}

// NewPipedAdapter creates an adapter for the Piped instance at baseURL.
// region selects the trending feed (ISO 3166 country code).
func NewPipedAdapter(baseURL, region string, timeout time.Duration) *PipedAdapter {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	if region == "" {
		region = "US"
	}
	return &PipedAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		region:  region,
		client:  &http.Client{Timeout: timeout},
	}
}

func (a *PipedAdapter) Name() string { return "piped" }

type pipedItem struct {
	URL          string `json:"url"`
	Title        string `json:"title"`
	UploaderName string `json:"uploaderName"`
	Duration     int    `json:"duration"`
	Thumbnail    string `json:"thumbnail"`
}

// videoID extracts the bare id from a Piped item URL. Playlist and channel
// entries use different path shapes and yield an empty id.
func (i pipedItem) videoID() string {
	if !strings.HasPrefix(i.URL, watchPathPrefix) {
		return ""
	}
	return strings.TrimPrefix(i.URL, watchPathPrefix)
}

func (i pipedItem) toSearchResult() domain.SearchResult {
	return domain.SearchResult{
		VideoID:   i.videoID(),
		Title:     i.Title,
		Artist:    domain.ArtistOrUnknown(i.UploaderName),
		Duration:  i.Duration,
		Thumbnail: i.Thumbnail,
	}
}

type pipedSearchResponse struct {
	Items []pipedItem `json:"items"`
}

func (a *PipedAdapter) Search(ctx context.Context, query string, page int) ([]domain.SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("filter", "music_songs")

	var payload pipedSearchResponse
	if err := getJSON(ctx, a.client, a.baseURL+"/search", params, &payload); err != nil {
		return nil, err
	}

	results := make([]domain.SearchResult, 0, len(payload.Items))
	for _, item := range payload.Items {
		if item.videoID() == "" {
			continue
		}
		results = append(results, item.toSearchResult())
	}
	return results, nil
}

type pipedStream struct {
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
	Bitrate  int    `json:"bitrate"`
	Codec    string `json:"codec"`
	Quality  string `json:"quality"`
}

type pipedStreamsResponse struct {
	Title        string        `json:"title"`
	Uploader     string        `json:"uploader"`
	Duration     int           `json:"duration"`
	ThumbnailURL string        `json:"thumbnailUrl"`
	AudioStreams []pipedStream `json:"audioStreams"`
}

func (a *PipedAdapter) Streams(ctx context.Context, videoID string) (*domain.TrackStreamBundle, error) {
	var payload pipedStreamsResponse
	if err := getJSON(ctx, a.client, a.baseURL+"/streams/"+url.PathEscape(videoID), nil, &payload); err != nil {
		return nil, err
	}

	streams := make([]domain.AudioStream, 0, len(payload.AudioStreams))
	for _, s := range payload.AudioStreams {
		quality := s.Quality
		if quality == "" {
			quality = domain.QualityLabel(s.Bitrate)
		}
		streams = append(streams, domain.AudioStream{
			URL:      s.URL,
			MimeType: s.MimeType,
			Bitrate:  s.Bitrate,
			Codec:    s.Codec,
			Quality:  quality,
		})
	}
	domain.SortStreams(streams)

	return &domain.TrackStreamBundle{
		VideoID:      videoID,
		Title:        payload.Title,
		Artist:       domain.ArtistOrUnknown(payload.Uploader),
		Duration:     payload.Duration,
		Thumbnail:    payload.ThumbnailURL,
		AudioStreams: streams,
	}, nil
}

// trendingLimit caps how many entries a trending response carries.
const trendingLimit = 20

func (a *PipedAdapter) Trending(ctx context.Context) ([]domain.SearchResult, error) {
	params := url.Values{}
	params.Set("region", a.region)

	var items []pipedItem
	if err := getJSON(ctx, a.client, a.baseURL+"/trending", params, &items); err != nil {
		return nil, err
	}

	results := make([]domain.SearchResult, 0, trendingLimit)
	for _, item := range items {
		// Live streams report zero duration and are not playable tracks.
		if item.videoID() == "" || item.Duration <= 0 {
			continue
		}
		results = append(results, item.toSearchResult())
		if len(results) == trendingLimit {
			break
		}
	}
	return results, nil
}

func (a *PipedAdapter) Suggestions(ctx context.Context, query string) ([]string, error) {
	return nil, ErrNotSupported
}
