package extractor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipedSearchStripsWatchPrefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "music_songs", r.URL.Query().Get("filter"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[
			{"url":"/watch?v=abc123","title":"Believer","uploaderName":"Imagine Dragons","duration":204,"thumbnail":"https://thumb/1.jpg"},
			{"url":"/playlist?list=PL1","title":"Some Mix","uploaderName":"Someone","duration":0},
			{"url":"/channel/UC1","title":"A Channel","uploaderName":"","duration":0}
		]}`))
	}))
	defer srv.Close()

	adapter := NewPipedAdapter(srv.URL, "US", time.Second)
	results, err := adapter.Search(context.Background(), "imagine dragons", 1)

	require.NoError(t, err)
	require.Len(t, results, 1, "playlist and channel entries must be filtered out")
	assert.Equal(t, "abc123", results[0].VideoID)
	assert.Equal(t, "Imagine Dragons", results[0].Artist)
	assert.Equal(t, "https://thumb/1.jpg", results[0].Thumbnail)
}

func TestPipedStreamsNormalization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/streams/abc123", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"title":"Believer","uploader":"Imagine Dragons","duration":204,"thumbnailUrl":"https://thumb/1.jpg",
			"audioStreams":[
				{"url":"https://s/opus-hi","mimeType":"audio/webm","bitrate":160000,"codec":"opus","quality":"160kbps"},
				{"url":"https://s/aac","mimeType":"audio/mp4","bitrate":128000,"codec":"mp4a.40.2","quality":""},
				{"url":"https://s/opus-lo","mimeType":"audio/webm","bitrate":70000,"codec":"opus","quality":"70kbps"}
			]
		}`))
	}))
	defer srv.Close()

	adapter := NewPipedAdapter(srv.URL, "US", time.Second)
	bundle, err := adapter.Streams(context.Background(), "abc123")

	require.NoError(t, err)
	assert.Equal(t, "abc123", bundle.VideoID)
	assert.Equal(t, "Imagine Dragons", bundle.Artist)
	require.Len(t, bundle.AudioStreams, 3)
	assert.Equal(t, "mp4a.40.2", bundle.AudioStreams[0].Codec)
	assert.Equal(t, "128kbps", bundle.AudioStreams[0].Quality)
	assert.Equal(t, 160000, bundle.AudioStreams[1].Bitrate)
	assert.Equal(t, 70000, bundle.AudioStreams[2].Bitrate)
}

func TestPipedTrendingFiltersAndLimits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trending", r.URL.Path)
		assert.Equal(t, "IN", r.URL.Query().Get("region"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"url":"/watch?v=live1","title":"Live Now","uploaderName":"Channel","duration":0},
			{"url":"/watch?v=abc","title":"Song","uploaderName":"Artist","duration":200,"thumbnail":"https://t/1.jpg"}
		]`))
	}))
	defer srv.Close()

	adapter := NewPipedAdapter(srv.URL, "IN", time.Second)
	results, err := adapter.Trending(context.Background())

	require.NoError(t, err)
	require.Len(t, results, 1, "zero-duration live entries must be dropped")
	assert.Equal(t, "abc", results[0].VideoID)
}

func TestPipedSuggestionsNotSupported(t *testing.T) {
	adapter := NewPipedAdapter("http://localhost:0", "US", time.Second)
	_, err := adapter.Suggestions(context.Background(), "q")

	assert.ErrorIs(t, err, ErrNotSupported)
}

func TestPipedTransportErrorIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	adapter := NewPipedAdapter(srv.URL, "US", time.Second)
	_, err := adapter.Search(context.Background(), "q", 1)

	assert.Error(t, err)
}
