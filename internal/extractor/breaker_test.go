package extractor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestState() (*sourceState, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	state := newSourceState("test", DefaultBreakerSettings)
	state.now = func() time.Time { return now }
	return state, &now
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	state, _ := newTestState()

	for i := 0; i < 4; i++ {
		state.recordFailure()
		assert.False(t, state.isOpen(), "breaker must stay closed below the threshold")
	}

	state.recordFailure()
	assert.True(t, state.isOpen())

	// A further failure keeps it open
	state.recordFailure()
	assert.True(t, state.isOpen())
	assert.Equal(t, 6, state.status().FailureCount)
}

func TestBreakerSelfHealsAfterResetWindow(t *testing.T) {
	state, now := newTestState()

	for i := 0; i < 5; i++ {
		state.recordFailure()
	}
	assert.True(t, state.isOpen())

	*now = now.Add(61 * time.Second)

	assert.False(t, state.isOpen())
	status := state.status()
	assert.False(t, status.IsOpen)
	assert.Equal(t, 0, status.FailureCount)
}

func TestBreakerStaysOpenWithinResetWindow(t *testing.T) {
	state, now := newTestState()

	for i := 0; i < 5; i++ {
		state.recordFailure()
	}

	*now = now.Add(30 * time.Second)
	assert.True(t, state.isOpen())
}

func TestBreakerSuccessResetsState(t *testing.T) {
	state, _ := newTestState()

	for i := 0; i < 7; i++ {
		state.recordFailure()
	}
	assert.True(t, state.isOpen())

	state.recordSuccess()

	assert.False(t, state.isOpen())
	status := state.status()
	assert.Equal(t, 0, status.FailureCount)
	assert.False(t, status.IsOpen)
}

func TestBreakerCustomSettings(t *testing.T) {
	state := newSourceState("custom", BreakerSettings{FailureThreshold: 2, ResetWindow: time.Second})

	state.recordFailure()
	assert.False(t, state.isOpen())

	state.recordFailure()
	assert.True(t, state.isOpen())
}
