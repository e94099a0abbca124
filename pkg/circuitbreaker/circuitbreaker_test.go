package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func newBreaker(timeout time.Duration) *CircuitBreaker {
	return NewCircuitBreaker(Settings{Name: "test", MaxFailures: 3, Timeout: timeout})
}

func TestExecutePassesThroughWhileClosed(t *testing.T) {
	cb := newBreaker(time.Minute)

	calls := 0
	err := cb.Execute(func() error { calls++; return nil })
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	cb := newBreaker(time.Minute)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(func() error { return errBoom }), errBoom)
	}
	assert.Equal(t, StateOpen, cb.State())

	err := cb.Execute(func() error {
		t.Fatal("open breaker must not execute")
		return nil
	})
	assert.ErrorIs(t, err, ErrOpen)
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := newBreaker(time.Minute)

	cb.Execute(func() error { return errBoom })
	cb.Execute(func() error { return errBoom })
	require.NoError(t, cb.Execute(func() error { return nil }))

	// The counter restarted, so two more failures do not open the breaker.
	cb.Execute(func() error { return errBoom })
	cb.Execute(func() error { return errBoom })
	assert.Equal(t, StateClosed, cb.State())
}

func TestHalfOpenRecoversOnSuccess(t *testing.T) {
	cb := newBreaker(10 * time.Millisecond)

	for i := 0; i < 3; i++ {
		cb.Execute(func() error { return errBoom })
	}
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(15 * time.Millisecond)
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestHalfOpenReopensOnFailure(t *testing.T) {
	cb := newBreaker(10 * time.Millisecond)

	for i := 0; i < 3; i++ {
		cb.Execute(func() error { return errBoom })
	}

	time.Sleep(15 * time.Millisecond)
	assert.ErrorIs(t, cb.Execute(func() error { return errBoom }), errBoom)
	assert.Equal(t, StateOpen, cb.State())

	assert.ErrorIs(t, cb.Execute(func() error { return nil }), ErrOpen)
}
