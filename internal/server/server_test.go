package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musicstream/backend/config"
	"github.com/musicstream/backend/internal/domain"
	"github.com/musicstream/backend/internal/extractor"
)

// fakeExtractor scripts the orchestrator from the handlers' point of view.
type fakeExtractor struct {
	searchErr  error
	streamsErr error
}

func (f *fakeExtractor) Search(ctx context.Context, query string, page int) ([]domain.SearchResult, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return []domain.SearchResult{{VideoID: "abc123", Title: "Believer", Artist: "Imagine Dragons", Duration: 204}}, nil
}

func (f *fakeExtractor) GetStreams(ctx context.Context, videoID string) (*domain.TrackStreamBundle, error) {
	if f.streamsErr != nil {
		return nil, f.streamsErr
	}
	return &domain.TrackStreamBundle{VideoID: videoID, Title: "Believer"}, nil
}

func (f *fakeExtractor) GetSuggestions(ctx context.Context, query string) []string {
	return []string{query + " believer"}
}

func (f *fakeExtractor) GetTrending(ctx context.Context) []domain.SearchResult {
	return []domain.SearchResult{}
}

func (f *fakeExtractor) Status() []extractor.SourceStatus {
	return []extractor.SourceStatus{
		{Name: "invidious", IsOpen: true, FailureCount: 5},
		{Name: "piped"},
		{Name: "yt-dlp"},
	}
}

type fakeDebugger struct {
	err error
}

func (f *fakeDebugger) RawFormats(ctx context.Context, videoID string) (json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(`{"id":"` + videoID + `"}`), nil
}

type fakePinger struct {
	healthy bool
}

func (f *fakePinger) Healthy(ctx context.Context) bool { return f.healthy }

func newTestServer(t *testing.T, extr Extractor) *Server {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:               "8080",
			RateLimitPerMinute: 10000,
		},
	}
	return New(cfg, extr, &fakePinger{healthy: true}, &fakeDebugger{})
}

func doRequest(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest("GET", path, nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func TestSearchValidation(t *testing.T) {
	server := newTestServer(t, &fakeExtractor{})

	tests := []struct {
		name           string
		path           string
		expectedStatus int
	}{
		{"missing query", "/api/search", http.StatusBadRequest},
		{"blank query", "/api/search?q=%20%20", http.StatusBadRequest},
		{"valid query", "/api/search?q=imagine+dragons", http.StatusOK},
		{"invalid page falls back to 1", "/api/search?q=test&page=zero", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, server, tt.path)
			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}
}

func TestSearchResponseShape(t *testing.T) {
	server := newTestServer(t, &fakeExtractor{})

	rr := doRequest(t, server, "/api/search?q=imagine+dragons&page=2")

	require.Equal(t, http.StatusOK, rr.Code)
	var response struct {
		Query   string                `json:"query"`
		Page    int                   `json:"page"`
		Results []domain.SearchResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, "imagine dragons", response.Query)
	assert.Equal(t, 2, response.Page)
	require.Len(t, response.Results, 1)
	assert.Equal(t, "abc123", response.Results[0].VideoID)
}

func TestSearchExhaustionMapsTo502(t *testing.T) {
	server := newTestServer(t, &fakeExtractor{searchErr: extractor.ErrAllExtractorsFailed})

	rr := doRequest(t, server, "/api/search?q=anything")

	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestSuggestionsNeverError(t *testing.T) {
	server := newTestServer(t, &fakeExtractor{})

	rr := doRequest(t, server, "/api/search/suggestions")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"suggestions":[]}`, rr.Body.String())

	rr = doRequest(t, server, "/api/search/suggestions?q=imagine")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"suggestions":["imagine believer"]}`, rr.Body.String())
}

func TestTrendingAlwaysOK(t *testing.T) {
	server := newTestServer(t, &fakeExtractor{})

	rr := doRequest(t, server, "/api/trending")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"results":[]}`, rr.Body.String())
}

func TestStreamsEndpoint(t *testing.T) {
	server := newTestServer(t, &fakeExtractor{})

	rr := doRequest(t, server, "/api/tracks/abc123")

	require.Equal(t, http.StatusOK, rr.Code)
	var bundle domain.TrackStreamBundle
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &bundle))
	assert.Equal(t, "abc123", bundle.VideoID)
}

func TestStreamsExhaustionMapsTo502(t *testing.T) {
	server := newTestServer(t, &fakeExtractor{streamsErr: errors.New("all extractors failed")})

	rr := doRequest(t, server, "/api/tracks/abc123")

	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestHealthPayload(t *testing.T) {
	server := newTestServer(t, &fakeExtractor{})

	rr := doRequest(t, server, "/health")

	require.Equal(t, http.StatusOK, rr.Code)
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])

	services := response["services"].(map[string]interface{})
	assert.Equal(t, "connected", services["redis"])

	extractors := response["extractors"].([]interface{})
	require.Len(t, extractors, 3)
	first := extractors[0].(map[string]interface{})
	assert.Equal(t, "invidious", first["name"])
	assert.Equal(t, true, first["isOpen"])
	assert.Equal(t, float64(5), first["failureCount"])
}

func TestAdminExtractors(t *testing.T) {
	server := newTestServer(t, &fakeExtractor{})

	rr := doRequest(t, server, "/api/admin/extractors")

	require.Equal(t, http.StatusOK, rr.Code)
	var response struct {
		Extractors []extractor.SourceStatus `json:"extractors"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Len(t, response.Extractors, 3)
}

func TestDebugFormats(t *testing.T) {
	server := newTestServer(t, &fakeExtractor{})

	rr := doRequest(t, server, "/api/debug/formats/abc123")

	require.Equal(t, http.StatusOK, rr.Code)
	var response struct {
		VideoID string          `json:"videoId"`
		Raw     json.RawMessage `json:"raw"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, "abc123", response.VideoID)
	assert.JSONEq(t, `{"id":"abc123"}`, string(response.Raw))
}

func TestDebugFormatsFailureMapsTo502(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{RateLimitPerMinute: 10000}}
	server := New(cfg, &fakeExtractor{}, &fakePinger{}, &fakeDebugger{err: errors.New("exit status 1")})

	rr := doRequest(t, server, "/api/debug/formats/abc123")

	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestRateLimitExceeded(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{RateLimitPerMinute: 1}}
	server := New(cfg, &fakeExtractor{}, &fakePinger{}, &fakeDebugger{})

	first := doRequest(t, server, "/api/trending")
	assert.Equal(t, http.StatusOK, first.Code)

	second := doRequest(t, server, "/api/trending")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestRequestIDHeader(t *testing.T) {
	server := newTestServer(t, &fakeExtractor{})

	rr := doRequest(t, server, "/health")
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	req, err := http.NewRequest("GET", "/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "trace-me")
	rr = httptest.NewRecorder()
	server.router.ServeHTTP(rr, req)
	assert.Equal(t, "trace-me", rr.Header().Get("X-Request-ID"))
}
