// Package extractor resolves search queries and video identifiers into
// playable audio streams by coordinating multiple unreliable upstream
// extraction services behind per-source circuit breakers, with a local
// yt-dlp fallback once every remote source is exhausted.
package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/musicstream/backend/internal/domain"
)

// ErrNotSupported marks an operation a source does not implement. The
// orchestrator skips such sources without recording a breaker failure.
var ErrNotSupported = errors.New("operation not supported by source")

// defaultRequestTimeout bounds every upstream HTTP call; a slow source must
// fail fast rather than hang the request.
const defaultRequestTimeout = 10 * time.Second

// Adapter performs outbound calls to one remote extraction service and
// normalizes its responses into the shared domain model. Adapters are
// stateless; their health lives in the orchestrator's breaker records.
type Adapter interface {
	Name() string
	Search(ctx context.Context, query string, page int) ([]domain.SearchResult, error)
	Streams(ctx context.Context, videoID string) (*domain.TrackStreamBundle, error)
	Trending(ctx context.Context) ([]domain.SearchResult, error)
	Suggestions(ctx context.Context, query string) ([]string, error)
}

// getJSON performs a GET request and decodes the JSON response body into
// dest. Any transport error, non-2xx status or malformed payload comes back
// as an error; the orchestrator only cares about pass/fail.
func getJSON(ctx context.Context, client *http.Client, endpoint string, params url.Values, dest any) error {
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL.Path)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("malformed response: %w", err)
	}
	return nil
}
