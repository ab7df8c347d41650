package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_PassesThrough(t *testing.T) {
	cb := NewCircuitBreaker("test")

	calls := 0
	err := cb.Do(func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "test", cb.Name())
}

func TestCircuitBreaker_ReturnsCallError(t *testing.T) {
	cb := NewCircuitBreaker("test")
	boom := errors.New("boom")

	err := cb.Do(func() error { return boom })

	assert.ErrorIs(t, err, boom)
}

func TestCircuitBreaker_OpensAfterSustainedFailures(t *testing.T) {
	cb := NewCircuitBreaker("test")
	boom := errors.New("boom")

	// Enough traffic at a 100% failure rate to trip the breaker
	for i := 0; i < 100; i++ {
		_ = cb.Do(func() error { return boom })
	}

	calls := 0
	err := cb.Do(func() error {
		calls++
		return nil
	})

	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.Equal(t, 0, calls, "open breaker must not invoke the call")
}

func TestCircuitBreaker_StaysClosedOnMostlySuccesses(t *testing.T) {
	cb := NewCircuitBreaker("test")
	boom := errors.New("boom")

	for i := 0; i < 200; i++ {
		if i%10 == 0 {
			_ = cb.Do(func() error { return boom })
		} else {
			_ = cb.Do(func() error { return nil })
		}
	}

	err := cb.Do(func() error { return nil })
	assert.NoError(t, err)
}
