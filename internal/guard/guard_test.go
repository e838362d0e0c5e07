package guard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Check("user-1").Allowed, "request %d", i)
	}
	result := rl.Check("user-1")
	assert.False(t, result.Allowed)
	assert.Equal(t, "rate_limiter", result.Guard)
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)

	assert.True(t, rl.Check("user-1").Allowed)
	assert.False(t, rl.Check("user-1").Allowed)
	assert.True(t, rl.Check("user-2").Allowed)
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	rl := NewRateLimiter(2, 20*time.Millisecond)

	assert.True(t, rl.Check("k").Allowed)
	assert.True(t, rl.Check("k").Allowed)
	assert.False(t, rl.Check("k").Allowed)

	time.Sleep(25 * time.Millisecond)
	assert.True(t, rl.Check("k").Allowed)
}

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)

	assert.True(t, cb.Check().Allowed)
	cb.RecordFailure()
	cb.RecordFailure()
	assert.True(t, cb.Check().Allowed)
	cb.RecordFailure()

	result := cb.Check()
	assert.False(t, result.Allowed)
	assert.Equal(t, "circuit_breaker", result.Guard)
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()
	assert.True(t, cb.Check().Allowed)
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)

	cb.RecordFailure()
	assert.False(t, cb.Check().Allowed)

	time.Sleep(15 * time.Millisecond)

	// One probe gets through after the reset timeout.
	assert.True(t, cb.Check().Allowed)

	// A failed probe reopens immediately.
	cb.RecordFailure()
	assert.False(t, cb.Check().Allowed)

	time.Sleep(15 * time.Millisecond)
	assert.True(t, cb.Check().Allowed)
	cb.RecordSuccess()
	assert.True(t, cb.Check().Allowed)
}
