package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2,
	}
}

func TestRetryWithCallback(t *testing.T) {
	errTransient := errors.New("connection refused")

	tests := []struct {
		name        string
		failures    int
		fatal       bool
		attempts    int
		wantErr     bool
		wantCalls   int
		wantRetries int
	}{
		{name: "first try", failures: 0, attempts: 3, wantCalls: 1},
		{name: "recovers", failures: 2, attempts: 3, wantCalls: 3, wantRetries: 2},
		{name: "exhausted", failures: 5, attempts: 3, wantErr: true, wantCalls: 3, wantRetries: 2},
		{name: "fatal stops at once", failures: 5, fatal: true, attempts: 3, wantErr: true, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls, retries := 0, 0
			err := RetryWithCallback(context.Background(), fastPolicy(tt.attempts), func() error {
				calls++
				if calls <= tt.failures {
					if tt.fatal {
						return NewFatalError(errTransient)
					}
					return errTransient
				}
				return nil
			}, func(attempt int, err error, next time.Duration) {
				retries++
				assert.Equal(t, calls, attempt)
				assert.Positive(t, next)
			})

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, errTransient)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, calls)
			assert.Equal(t, tt.wantRetries, retries)
		})
	}
}

func TestRetryWithCallback_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := RetryWithCallback(ctx, fastPolicy(10), func() error {
		calls++
		return errors.New("unreachable")
	}, nil)

	require.Error(t, err)
	assert.LessOrEqual(t, calls, 1)
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(NewFatalError(errors.New("bad credentials"))))
	assert.False(t, IsFatal(errors.New("timeout")))
	assert.Nil(t, NewFatalError(nil))
}
