package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/musicstream/backend/internal/domain"
)

// ErrAllExtractorsFailed is the terminal condition for critical operations:
// every adapter was open or failed, and the local fallback failed too. The
// route layer maps it to a service-unavailable response.
var ErrAllExtractorsFailed = errors.New("all extractors failed")

// Cache is the response cache consulted before and written after any
// upstream work. Implementations must be best-effort: a failed read is a
// miss and a failed write is silent.
type Cache interface {
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration)
}

// Fallback is the local extraction tool of last resort. It has no circuit
// breaker: there is nothing left to fail over to beneath it.
type Fallback interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error)
	Streams(ctx context.Context, videoID string) (*domain.TrackStreamBundle, error)
	Trending(ctx context.Context, limit int) ([]domain.SearchResult, error)
}

// SourceStatus is one entry of the health introspection payload.
type SourceStatus struct {
	Name         string `json:"name"`
	IsOpen       bool   `json:"isOpen"`
	FailureCount int    `json:"failureCount"`
}

// Cache TTLs per operation. Stream bundles expire quickly because the signed
// URLs they contain do.
const (
	searchTTL   = 6 * time.Hour
	streamTTL   = 30 * time.Minute
	trendingTTL = time.Hour
)

// fallbackResultLimit is how many entries the local tool is asked for when
// it backs a list operation.
const fallbackResultLimit = 20

// Orchestrator sequences cache lookups, adapter attempts, circuit-breaker
// bookkeeping and fallback invocation for every public extraction
// operation. Construct one per service instance and share it across request
// handlers.
type Orchestrator struct {
	adapters []Adapter
	states   []*sourceState
	fallback Fallback
	cache    Cache
}

// NewOrchestrator wires adapters (tried in the given order), the local
// fallback and the response cache into an orchestrator.
func NewOrchestrator(adapters []Adapter, fallback Fallback, cache Cache, settings BreakerSettings) *Orchestrator {
	states := make([]*sourceState, len(adapters))
	for i, a := range adapters {
		states[i] = newSourceState(a.Name(), settings)
	}
	return &Orchestrator{
		adapters: adapters,
		states:   states,
		fallback: fallback,
		cache:    cache,
	}
}

// attempt runs op against each adapter in priority order, skipping open
// circuits, recording failures and stopping at the first success. The
// returned bool reports whether any adapter produced a result.
func attempt[T any](o *Orchestrator, ctx context.Context, op string, call func(Adapter) (T, error)) (T, bool) {
	var zero T
	for i, a := range o.adapters {
		state := o.states[i]
		if state.isOpen() {
			slog.Debug("circuit open, skipping source", "source", a.Name(), "op", op)
			continue
		}

		result, err := call(a)
		if errors.Is(err, ErrNotSupported) {
			continue
		}
		if err != nil {
			slog.Warn("source failed", "source", a.Name(), "op", op, "error", err)
			state.recordFailure()
			continue
		}

		state.recordSuccess()
		return result, true
	}
	return zero, false
}

// Search resolves a free-text query into normalized search results. It
// returns ErrAllExtractorsFailed when every source, including the local
// fallback, fails.
func (o *Orchestrator) Search(ctx context.Context, query string, page int) ([]domain.SearchResult, error) {
	key := fmt.Sprintf("search:%s:%d", query, page)

	var cached []domain.SearchResult
	if o.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	results, ok := attempt(o, ctx, "search", func(a Adapter) ([]domain.SearchResult, error) {
		return a.Search(ctx, query, page)
	})
	if !ok {
		fallbackResults, err := o.fallback.Search(ctx, query, fallbackResultLimit)
		if err != nil {
			slog.Error("fallback search failed", "query", query, "error", err)
			return nil, fmt.Errorf("%w: search %q", ErrAllExtractorsFailed, query)
		}
		results = fallbackResults
	}

	o.cache.Set(ctx, key, results, searchTTL)
	return results, nil
}

// GetStreams resolves a video id into a stream bundle. It returns
// ErrAllExtractorsFailed when every source, including the local fallback,
// fails.
func (o *Orchestrator) GetStreams(ctx context.Context, videoID string) (*domain.TrackStreamBundle, error) {
	key := "stream:" + videoID

	var cached domain.TrackStreamBundle
	if o.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	bundle, ok := attempt(o, ctx, "streams", func(a Adapter) (*domain.TrackStreamBundle, error) {
		return a.Streams(ctx, videoID)
	})
	if !ok {
		fallbackBundle, err := o.fallback.Streams(ctx, videoID)
		if err != nil {
			slog.Error("fallback stream resolution failed", "videoId", videoID, "error", err)
			return nil, fmt.Errorf("%w: streams for %s", ErrAllExtractorsFailed, videoID)
		}
		bundle = fallbackBundle
	}

	o.cache.Set(ctx, key, bundle, streamTTL)
	return bundle, nil
}

// GetSuggestions returns search completions. Suggestions are best-effort:
// any failure degrades to an empty list, and results are cheap enough that
// they are not cached.
func (o *Orchestrator) GetSuggestions(ctx context.Context, query string) []string {
	suggestions, ok := attempt(o, ctx, "suggestions", func(a Adapter) ([]string, error) {
		return a.Suggestions(ctx, query)
	})
	if !ok {
		return []string{}
	}
	return suggestions
}

// GetTrending returns the trending feed. Trending is best-effort: when every
// adapter and the fallback fail it degrades to an empty list instead of an
// error.
func (o *Orchestrator) GetTrending(ctx context.Context) []domain.SearchResult {
	const key = "trending"

	var cached []domain.SearchResult
	if o.cache.Get(ctx, key, &cached) {
		return cached
	}

	results, ok := attempt(o, ctx, "trending", func(a Adapter) ([]domain.SearchResult, error) {
		return a.Trending(ctx)
	})
	if !ok {
		fallbackResults, err := o.fallback.Trending(ctx, fallbackResultLimit)
		if err != nil {
			slog.Warn("fallback trending failed", "error", err)
			return []domain.SearchResult{}
		}
		results = fallbackResults
	}

	o.cache.Set(ctx, key, results, trendingTTL)
	return results
}

// Status reports the breaker state of every configured source plus the
// fallback tool. The fallback has no circuit, so it always reads as closed
// with zero failures.
func (o *Orchestrator) Status() []SourceStatus {
	statuses := make([]SourceStatus, 0, len(o.states)+1)
	for _, state := range o.states {
		statuses = append(statuses, state.status())
	}
	statuses = append(statuses, SourceStatus{Name: o.fallback.Name()})
	return statuses
}
