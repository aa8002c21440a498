package secretstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewFake()

	exists, err := store.Exists(ctx, "/platform/cloud/access-key")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Put(ctx, "/platform/cloud/access-key", "AKIA..."))

	exists, err = store.Exists(ctx, "/platform/cloud/access-key")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, 1, store.PutCount())

	// Overwrite counts as a second write.
	require.NoError(t, store.Put(ctx, "/platform/cloud/access-key", "AKIB..."))
	assert.Equal(t, 2, store.PutCount())
	assert.Equal(t, "AKIB...", store.Parameters["/platform/cloud/access-key"])
}

func TestFakeStorePutError(t *testing.T) {
	t.Parallel()

	store := NewFake()
	store.PutErr = errors.New("throttled")

	err := store.Put(context.Background(), "/platform/cloud/access-key", "v")
	require.Error(t, err)
	assert.Equal(t, 0, store.PutCount())
}
