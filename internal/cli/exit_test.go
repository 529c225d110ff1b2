package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitError_Error(t *testing.T) {
	plain := NewExitError(ExitDuplicate, "already queued: job")
	assert.Equal(t, "already queued: job", plain.Error())

	wrapped := WrapExitError(ExitFailure, "failed to enqueue", errors.New("disk full"))
	assert.Equal(t, "failed to enqueue: disk full", wrapped.Error())
}

func TestExitError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := WrapExitError(ExitFailure, "wrapped", cause)
	assert.True(t, errors.Is(err, cause), "wrapped cause should survive errors.Is")
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"duplicate", NewExitError(ExitDuplicate, "dup"), ExitDuplicate},
		{"lock_held", WrapExitError(ExitLockHeld, "held", errors.New("pid 42")), ExitLockHeld},
		{"usage", NewExitError(ExitUsage, "nothing to do"), ExitUsage},
		{"nested", fmt.Errorf("outer: %w", NewExitError(ExitDuplicate, "dup")), ExitDuplicate},
		{"plain_error", errors.New("something broke"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}
