package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUntil_SatisfiedImmediately(t *testing.T) {
	t.Parallel()
	calls := 0
	res := Until(context.Background(), func(_ context.Context) (bool, string, error) {
		calls++
		return true, "ready", nil
	}, time.Second, 10*time.Millisecond)

	assert.True(t, res.Satisfied)
	assert.Equal(t, "ready", res.LastObservation)
	assert.Equal(t, 1, calls)
}

func TestUntil_SatisfiedAfterPolls(t *testing.T) {
	t.Parallel()
	calls := 0
	res := Until(context.Background(), func(_ context.Context) (bool, string, error) {
		calls++
		if calls < 3 {
			return false, "pending", nil
		}
		return true, "ready", nil
	}, time.Second, 5*time.Millisecond)

	assert.True(t, res.Satisfied)
	assert.Equal(t, 3, calls)
	assert.Equal(t, "ready", res.LastObservation)
}

func TestUntil_Timeout(t *testing.T) {
	t.Parallel()
	res := Until(context.Background(), func(_ context.Context) (bool, string, error) {
		return false, "still waiting", nil
	}, 30*time.Millisecond, 5*time.Millisecond)

	assert.False(t, res.Satisfied)
	assert.Equal(t, "still waiting", res.LastObservation)
	assert.GreaterOrEqual(t, res.Elapsed, 30*time.Millisecond)
}

func TestUntil_ProbeErrorKeepsPolling(t *testing.T) {
	t.Parallel()
	calls := 0
	res := Until(context.Background(), func(_ context.Context) (bool, string, error) {
		calls++
		if calls == 1 {
			return false, "", errors.New("connection refused")
		}
		return true, "healthy", nil
	}, time.Second, 5*time.Millisecond)

	assert.True(t, res.Satisfied)
	assert.Equal(t, 2, calls)
}

func TestUntil_TimeoutKeepsLastObservation(t *testing.T) {
	t.Parallel()
	res := Until(context.Background(), func(_ context.Context) (bool, string, error) {
		return false, "", errors.New("connection refused")
	}, 20*time.Millisecond, 5*time.Millisecond)

	assert.False(t, res.Satisfied)
	assert.Equal(t, "connection refused", res.LastObservation)
}

func TestUntil_Cancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	res := Until(ctx, func(_ context.Context) (bool, string, error) {
		calls++
		cancel()
		return false, "pending", nil
	}, time.Minute, 5*time.Millisecond)

	// Stops at the next interval boundary instead of running to timeout.
	assert.False(t, res.Satisfied)
	assert.Equal(t, 1, calls)
	assert.Less(t, res.Elapsed, time.Second)
}
