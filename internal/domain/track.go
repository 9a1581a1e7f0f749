// Package domain defines the canonical data model shared by the extraction
// adapters, the local fallback tool and the HTTP layer.
package domain

import (
	"fmt"
	"sort"
	"strings"
)

// UnknownArtist is substituted when a source omits the artist field.
const UnknownArtist = "Unknown Artist"

// SearchResult is a single entry returned by search and trending operations.
type SearchResult struct {
	VideoID   string `json:"videoId"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Duration  int    `json:"duration"`
	Thumbnail string `json:"thumbnail"`
}

// AudioStream describes one playable audio format. The URL is a signed,
// time-limited upstream URL and must never be persisted beyond the
// bounded-TTL response cache.
type AudioStream struct {
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
	Bitrate  int    `json:"bitrate"`
	Codec    string `json:"codec"`
	Quality  string `json:"quality"`
}

// TrackStreamBundle carries track metadata plus every playable audio stream,
// ordered so the first entry is the recommended one.
type TrackStreamBundle struct {
	VideoID      string        `json:"videoId"`
	Title        string        `json:"title"`
	Artist       string        `json:"artist"`
	Duration     int           `json:"duration"`
	Thumbnail    string        `json:"thumbnail"`
	AudioStreams []AudioStream `json:"audioStreams"`
}

// SortStreams orders streams for mobile playback: AAC (mp4a) codecs rank
// above everything else, then higher bitrate wins within a codec family.
func SortStreams(streams []AudioStream) {
	sort.SliceStable(streams, func(i, j int) bool {
		pi, pj := preferredCodec(streams[i].Codec), preferredCodec(streams[j].Codec)
		if pi != pj {
			return pi
		}
		return streams[i].Bitrate > streams[j].Bitrate
	})
}

func preferredCodec(codec string) bool {
	return strings.Contains(codec, "mp4a")
}

// QualityLabel derives a human-readable quality string from a bitrate in
// bits per second, for sources that provide no label of their own.
func QualityLabel(bitrate int) string {
	return fmt.Sprintf("%dkbps", bitrate/1000)
}

// ArtistOrUnknown normalizes an artist name coming from an upstream source.
func ArtistOrUnknown(artist string) string {
	if strings.TrimSpace(artist) == "" {
		return UnknownArtist
	}
	return artist
}
