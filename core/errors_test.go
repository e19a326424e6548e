package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameworkError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewError("Fetch", KindSource, "src-1", "transient failure", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "source_error")
	assert.Contains(t, err.Error(), "src-1")
}

func TestIsPlanError(t *testing.T) {
	planErr := NewError("Plan", KindPlan, "", "missing entities", nil)
	sourceErr := NewError("Fetch", KindSource, "", "timeout", nil)

	assert.True(t, IsPlanError(planErr))
	assert.False(t, IsPlanError(sourceErr))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"plan error never retryable", NewError("Plan", KindPlan, "", "x", nil), false},
		{"not found never retryable", NewError("Get", KindResource, "", "x", ErrNotFound), false},
		{"configuration error never retryable", NewError("Load", KindConfiguration, "", "x", nil), false},
		{"source error retryable", NewError("Fetch", KindSource, "", "x", nil), true},
		{"unclassified error retryable", errors.New("boom"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestIsRetryable_ExplicitRetryableOverridesKindDefault(t *testing.T) {
	permanentSourceErr := NewError("Fetch", KindSource, "", "404", nil).WithRetryable(false)
	retryableSourceErr := NewError("Fetch", KindSource, "", "429", nil).WithRetryable(true)

	assert.False(t, IsRetryable(permanentSourceErr))
	assert.True(t, IsRetryable(retryableSourceErr))
}
