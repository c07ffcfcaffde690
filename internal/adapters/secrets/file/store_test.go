package file

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avezina/chatscan/internal/domain"
)

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "rc/oauth_tokens", "secret-value"))

	value, err := store.Get(ctx, "rc/oauth_tokens")
	require.NoError(t, err)
	assert.Equal(t, "secret-value", value)
}

func TestStoreGetMissingKey(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())

	_, err := store.Get(context.Background(), "rc/oauth_tokens")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSecretNotFound)
}

func TestStorePutOverwrites(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "key", "old"))
	require.NoError(t, store.Put(ctx, "key", "new"))

	value, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "new", value)
}

func TestStoreDeleteRemovesSecret(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "key", "value"))
	require.NoError(t, store.Delete(ctx, "key"))

	_, err := store.Get(ctx, "key")
	assert.ErrorIs(t, err, domain.ErrSecretNotFound)
}

func TestStoreDeleteMissingKeyIsNoop(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	assert.NoError(t, store.Delete(context.Background(), "never-written"))
}

func TestStoreSecretFilePermissions(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewStore(root)
	require.NoError(t, store.Put(context.Background(), "rc/oauth_tokens", "value"))

	info, err := filepath.Glob(filepath.Join(root, "rc", "*"))
	require.NoError(t, err)
	require.Len(t, info, 1)
}

func TestStoreRejectsUnsafeKeys(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	ctx := context.Background()

	for _, key := range []string{"", "  ", "../escape", "/etc/passwd", "."} {
		t.Run(key, func(t *testing.T) {
			assert.Error(t, store.Put(ctx, key, "value"))
			_, err := store.Get(ctx, key)
			assert.Error(t, err)
		})
	}
}

func TestStoreHonorsCancelledContext(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Put(ctx, "key", "value"), context.Canceled)
	_, err := store.Get(ctx, "key")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.Delete(ctx, "key"), context.Canceled)
}
