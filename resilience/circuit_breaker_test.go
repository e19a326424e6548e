package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker() (*CircuitBreaker, *time.Time) {
	cb := NewCircuitBreaker("src-1", BreakerConfig{
		FailureThreshold: 0.5,
		Window:           time.Minute,
		MinSamples:       2,
		Cooldown:         time.Second,
		MaxCooldown:      4 * time.Second,
	}, nil)
	now := time.Now()
	cb.nowFn = func() time.Time { return now }
	return cb, &now
}

func TestCircuitBreaker_OpensOnFailureThreshold(t *testing.T) {
	cb, _ := newTestBreaker()

	require.True(t, cb.Allow())
	cb.RecordFailure()
	require.True(t, cb.Allow())
	cb.RecordFailure()

	assert.Equal(t, "open", cb.State().String())
	assert.False(t, cb.Allow())
}

func TestCircuitBreaker_HalfOpenSingleInFlightProbe(t *testing.T) {
	cb, now := newTestBreaker()
	cb.RecordFailure()
	cb.RecordFailure() // opens

	*now = now.Add(2 * time.Second) // past cooldown

	assert.Equal(t, "half_open", cb.State().String())
	assert.True(t, cb.Allow())  // claims the probe slot
	assert.False(t, cb.Allow()) // second caller denied while probing
}

func TestCircuitBreaker_HalfOpenSuccessCloses(t *testing.T) {
	cb, now := newTestBreaker()
	cb.RecordFailure()
	cb.RecordFailure()
	*now = now.Add(2 * time.Second)

	require.True(t, cb.Allow())
	cb.RecordSuccess()

	assert.Equal(t, "closed", cb.State().String())
	assert.True(t, cb.Allow())
}

func TestCircuitBreaker_HalfOpenFailureReopensWithBackoff(t *testing.T) {
	cb, now := newTestBreaker()
	cb.RecordFailure()
	cb.RecordFailure()
	*now = now.Add(2 * time.Second)

	require.True(t, cb.Allow())
	cb.RecordFailure()

	assert.Equal(t, "open", cb.State().String())
	assert.Equal(t, 2*time.Second, cb.cooldown)
}

func TestCircuitBreaker_ForceOpenDeniesCalls(t *testing.T) {
	cb, _ := newTestBreaker()
	cb.ForceOpen()
	assert.False(t, cb.Allow())
}

func TestCircuitBreaker_ForceClosedResets(t *testing.T) {
	cb, _ := newTestBreaker()
	cb.ForceOpen()
	cb.ForceClosed()
	assert.True(t, cb.Allow())
}
