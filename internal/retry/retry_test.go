package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_Success(t *testing.T) {
	t.Parallel()
	attempts := 0
	err := Do(context.Background(), func() error {
		attempts++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	t.Parallel()
	attempts := 0
	err := Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, WithAttempts(5), WithDelay(time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_AttemptsExhausted(t *testing.T) {
	t.Parallel()
	attempts := 0
	err := Do(context.Background(), func() error {
		attempts++
		return errors.New("persistent error")
	}, WithAttempts(4), WithDelay(time.Millisecond))
	require.Error(t, err)
	assert.Equal(t, 4, attempts)
	assert.Contains(t, err.Error(), "failed after 4 attempts")
}

func TestDo_FatalNotRetried(t *testing.T) {
	t.Parallel()
	attempts := 0
	bad := errors.New("bad credentials")
	err := Do(context.Background(), func() error {
		attempts++
		return Fatal(bad)
	}, WithAttempts(5), WithDelay(time.Millisecond))
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, bad)
}

func TestDo_ContextCancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := Do(ctx, func() error {
		attempts++
		return errors.New("error")
	}, WithDelay(10*time.Millisecond))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestFatal(t *testing.T) {
	t.Parallel()

	t.Run("nil stays nil", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, Fatal(nil))
	})

	t.Run("wrapped error is detected", func(t *testing.T) {
		t.Parallel()
		inner := errors.New("auth failed")
		wrapped := Fatal(inner)
		assert.True(t, IsFatal(wrapped))
		assert.ErrorIs(t, wrapped, inner)
	})

	t.Run("plain error is not fatal", func(t *testing.T) {
		t.Parallel()
		assert.False(t, IsFatal(errors.New("boom")))
	})
}
