package extractor

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/musicstream/backend/internal/domain"
)

// flexInt accepts both number and string encodings; Invidious instances
// disagree on which one bitrate uses.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

// InvidiousAdapter talks to an Invidious instance. It supports search,
// stream resolution and suggestions; trending comes from other sources.
type InvidiousAdapter struct {
	baseURL string
	client  *http.Client
}

// NewInvidiousAdapter creates an adapter for the Invidious instance at
// baseURL. A non-positive timeout falls back to the default request timeout.
func NewInvidiousAdapter(baseURL string, timeout time.Duration) *InvidiousAdapter {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &InvidiousAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (a *InvidiousAdapter) Name() string { return "invidious" }

type invidiousThumbnail struct {
	URL string `json:"url"`
}

type invidiousSearchItem struct {
	Type            string               `json:"type"`
	VideoID         string               `json:"videoId"`
	Title           string               `json:"title"`
	Author          string               `json:"author"`
	LengthSeconds   int                  `json:"lengthSeconds"`
	VideoThumbnails []invidiousThumbnail `json:"videoThumbnails"`
}

func (a *InvidiousAdapter) Search(ctx context.Context, query string, page int) ([]domain.SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("type", "video")
	params.Set("sort_by", "relevance")

	var items []invidiousSearchItem
	if err := getJSON(ctx, a.client, a.baseURL+"/api/v1/search", params, &items); err != nil {
		return nil, err
	}

	results := make([]domain.SearchResult, 0, len(items))
	for _, item := range items {
		// Playlists and channels can appear despite type=video; drop
		// anything without a video id.
		if item.VideoID == "" {
			continue
		}
		results = append(results, domain.SearchResult{
			VideoID:   item.VideoID,
			Title:     item.Title,
			Artist:    domain.ArtistOrUnknown(item.Author),
			Duration:  item.LengthSeconds,
			Thumbnail: firstThumbnail(item.VideoThumbnails),
		})
	}
	return results, nil
}

type invidiousFormat struct {
	URL          string  `json:"url"`
	Type         string  `json:"type"`
	Bitrate      flexInt `json:"bitrate"`
	Encoding     string  `json:"encoding"`
	QualityLabel string  `json:"qualityLabel"`
}

type invidiousVideo struct {
	VideoID         string               `json:"videoId"`
	Title           string               `json:"title"`
	Author          string               `json:"author"`
	LengthSeconds   int                  `json:"lengthSeconds"`
	VideoThumbnails []invidiousThumbnail `json:"videoThumbnails"`
	AdaptiveFormats []invidiousFormat    `json:"adaptiveFormats"`
}

func (a *InvidiousAdapter) Streams(ctx context.Context, videoID string) (*domain.TrackStreamBundle, error) {
	var video invidiousVideo
	if err := getJSON(ctx, a.client, a.baseURL+"/api/v1/videos/"+url.PathEscape(videoID), nil, &video); err != nil {
		return nil, err
	}

	streams := make([]domain.AudioStream, 0, len(video.AdaptiveFormats))
	for _, f := range video.AdaptiveFormats {
		if !strings.HasPrefix(f.Type, "audio/") {
			continue
		}
		bitrate := int(f.Bitrate)
		quality := f.QualityLabel
		if quality == "" {
			quality = domain.QualityLabel(bitrate)
		}
		streams = append(streams, domain.AudioStream{
			URL:      f.URL,
			MimeType: f.Type,
			Bitrate:  bitrate,
			Codec:    f.Encoding,
			Quality:  quality,
		})
	}
	domain.SortStreams(streams)

	id := video.VideoID
	if id == "" {
		id = videoID
	}
	return &domain.TrackStreamBundle{
		VideoID:      id,
		Title:        video.Title,
		Artist:       domain.ArtistOrUnknown(video.Author),
		Duration:     video.LengthSeconds,
		Thumbnail:    firstThumbnail(video.VideoThumbnails),
		AudioStreams: streams,
	}, nil
}

func (a *InvidiousAdapter) Trending(ctx context.Context) ([]domain.SearchResult, error) {
	return nil, ErrNotSupported
}

type invidiousSuggestions struct {
	Suggestions []string `json:"suggestions"`
}

func (a *InvidiousAdapter) Suggestions(ctx context.Context, query string) ([]string, error) {
	params := url.Values{}
	params.Set("q", query)

	var payload invidiousSuggestions
	if err := getJSON(ctx, a.client, a.baseURL+"/api/v1/search/suggestions", params, &payload); err != nil {
		return nil, err
	}
	if payload.Suggestions == nil {
		return []string{}, nil
	}
	return payload.Suggestions, nil
}

func firstThumbnail(thumbnails []invidiousThumbnail) string {
	if len(thumbnails) > 0 {
		return thumbnails[0].URL
	}
	return ""
}
