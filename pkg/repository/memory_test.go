package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	kv := NewMemoryStore()
	ctx := context.Background()

	_, err := kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, kv.Set(ctx, "k", "v1"))
	val, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v1", val)

	// Overwrite wins.
	require.NoError(t, kv.Set(ctx, "k", "v2"))
	val, _ = kv.Get(ctx, "k")
	assert.Equal(t, "v2", val)

	require.NoError(t, kv.Del(ctx, "k", "missing"))
	_, err = kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}
