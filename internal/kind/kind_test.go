package kind

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zerotouch/ztboot/internal/gateway"
)

func TestExists(t *testing.T) {
	t.Parallel()

	t.Run("listed cluster", func(t *testing.T) {
		t.Parallel()
		rec := &gateway.Recorder{Handler: func(_ gateway.Command) (gateway.Result, error) {
			return gateway.Result{Stdout: "other\nplatform-preview\n"}, nil
		}}
		c := &Client{Runner: rec, Timeout: time.Minute}

		exists, err := c.Exists(context.Background(), "platform-preview")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("absent cluster", func(t *testing.T) {
		t.Parallel()
		rec := &gateway.Recorder{Handler: func(_ gateway.Command) (gateway.Result, error) {
			return gateway.Result{Stdout: "other\n"}, nil
		}}
		c := &Client{Runner: rec, Timeout: time.Minute}

		exists, err := c.Exists(context.Background(), "platform-preview")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("no partial name match", func(t *testing.T) {
		t.Parallel()
		rec := &gateway.Recorder{Handler: func(_ gateway.Command) (gateway.Result, error) {
			return gateway.Result{Stdout: "platform-preview-2\n"}, nil
		}}
		c := &Client{Runner: rec, Timeout: time.Minute}

		exists, err := c.Exists(context.Background(), "platform-preview")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestCreate(t *testing.T) {
	t.Parallel()
	rec := &gateway.Recorder{}
	c := &Client{Runner: rec, Timeout: time.Minute}

	require.NoError(t, c.Create(context.Background(), "platform-preview"))

	calls := rec.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "kind", calls[0].Name)
	assert.Contains(t, calls[0].Args, "create")
	assert.Contains(t, calls[0].Args, "platform-preview")
}

func TestKubeconfig(t *testing.T) {
	t.Parallel()

	t.Run("returns stdout", func(t *testing.T) {
		t.Parallel()
		rec := &gateway.Recorder{Handler: func(_ gateway.Command) (gateway.Result, error) {
			return gateway.Result{Stdout: "apiVersion: v1\nkind: Config\n"}, nil
		}}
		c := &Client{Runner: rec, Timeout: time.Minute}

		kc, err := c.Kubeconfig(context.Background(), "platform-preview")
		require.NoError(t, err)
		assert.Contains(t, string(kc), "kind: Config")
	})

	t.Run("empty output is an error", func(t *testing.T) {
		t.Parallel()
		rec := &gateway.Recorder{}
		c := &Client{Runner: rec, Timeout: time.Minute}

		_, err := c.Kubeconfig(context.Background(), "platform-preview")
		assert.Error(t, err)
	})
}
