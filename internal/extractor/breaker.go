package extractor

import (
	"sync"
	"time"
)

// BreakerSettings controls when a source's circuit opens and how long it
// stays open before a probe is allowed.
type BreakerSettings struct {
	FailureThreshold int
	ResetWindow      time.Duration
}

// DefaultBreakerSettings matches the observed production tuning.
var DefaultBreakerSettings = BreakerSettings{
	FailureThreshold: 5,
	ResetWindow:      time.Minute,
}

// sourceState is the circuit breaker record for one upstream source. It is
// shared across concurrent request handlers, so every read-check-mutate
// sequence holds mu.
type sourceState struct {
	name     string
	settings BreakerSettings
	now      func() time.Time

	mu          sync.Mutex
	failures    int
	open        bool
	lastFailure time.Time
}

func newSourceState(name string, settings BreakerSettings) *sourceState {
	if settings.FailureThreshold <= 0 {
		settings.FailureThreshold = DefaultBreakerSettings.FailureThreshold
	}
	if settings.ResetWindow <= 0 {
		settings.ResetWindow = DefaultBreakerSettings.ResetWindow
	}
	return &sourceState{
		name:     name,
		settings: settings,
		now:      time.Now,
	}
}

// isOpen reports whether the source must be skipped this cycle. Once the
// reset window has elapsed the breaker closes itself and clears the failure
// count, so the next attempt probes the source afresh.
func (s *sourceState) isOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return false
	}
	if s.now().Sub(s.lastFailure) > s.settings.ResetWindow {
		s.open = false
		s.failures = 0
		return false
	}
	return true
}

func (s *sourceState) recordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures++
	s.lastFailure = s.now()
	if s.failures >= s.settings.FailureThreshold {
		s.open = true
	}
}

func (s *sourceState) recordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures = 0
	s.open = false
}

func (s *sourceState) status() SourceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	return SourceStatus{
		Name:         s.name,
		IsOpen:       s.open,
		FailureCount: s.failures,
	}
}
