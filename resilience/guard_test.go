package resilience

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigia/sentinela/core"
)

func TestGuarded_ReturnsCircuitOpenWithoutInvokingOpWhenBreakerDenies(t *testing.T) {
	cb := NewCircuitBreaker("src", DefaultBreakerConfig(), nil)
	cb.ForceOpen()
	rp := NewRetryPolicy(DefaultRetryConfig())
	called := false

	op := Guarded[string](cb, rp, func(ctx context.Context) (string, error) {
		called = true
		return "x", nil
	})
	_, err := op(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrCircuitOpen)
	assert.False(t, called)
}

func TestGuarded_RecordsSuccessOnBreakerAfterSuccessfulCall(t *testing.T) {
	cb := NewCircuitBreaker("src", DefaultBreakerConfig(), nil)
	rp := NewRetryPolicy(DefaultRetryConfig())

	op := Guarded[int](cb, rp, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	result, err := op(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, core.BreakerClosed, cb.State())
}

func TestGuarded_RecordsFailureOnBreakerWhenOpFailsPermanently(t *testing.T) {
	cb := NewCircuitBreaker("src", DefaultBreakerConfig(), nil)
	rp := NewRetryPolicy(DefaultRetryConfig())
	attempts := 0

	op := Guarded[string](cb, rp, func(ctx context.Context) (string, error) {
		attempts++
		return "", core.NewError("Fetch", core.KindConfiguration, "src", "not configured", core.ErrNotConfigured)
	})
	_, err := op(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNotConfigured)
	assert.Equal(t, 1, attempts)
}
