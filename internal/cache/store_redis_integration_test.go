//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"offersync/internal/platform/logger"
	"offersync/pkg/requestcontext"
	"offersync/pkg/testutil/containers"
)

func TestRedisStore_TTLRoundTrip(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	require.NoError(t, rc.FlushAll(ctx))

	store := NewRedisStore(rc.Client, logger.New())
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	key := Key("listing", "groceries")

	require.NoError(t, store.Set(requestcontext.WithTime(ctx, base), key, []byte(`{"n":1}`), 5*time.Second))

	got, err := store.Get(requestcontext.WithTime(ctx, base.Add(2*time.Second)), key)
	require.NoError(t, err)
	require.JSONEq(t, `{"n":1}`, string(got))

	_, err = store.Get(requestcontext.WithTime(ctx, base.Add(6*time.Second)), key)
	require.ErrorIs(t, err, ErrMiss)
}

func TestRedisStore_CorruptEnvelopeIsMiss(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	require.NoError(t, rc.FlushAll(ctx))

	store := NewRedisStore(rc.Client, logger.New())
	key := Key("listing", "broken")
	require.NoError(t, rc.Client.Set(ctx, key, "not-json", 0).Err())

	_, err := store.Get(ctx, key)
	require.ErrorIs(t, err, ErrMiss)

	// The corrupt entry is evicted, not left to poison later reads.
	exists, err := rc.Client.Exists(ctx, key).Result()
	require.NoError(t, err)
	require.Zero(t, exists)
}

func TestRedisStore_CleanupExpired(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	require.NoError(t, rc.FlushAll(ctx))

	store := NewRedisStore(rc.Client, logger.New())
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Set(requestcontext.WithTime(ctx, base), Key("a"), []byte(`a`), 5*time.Second))
	require.NoError(t, store.Set(requestcontext.WithTime(ctx, base), Key("b"), []byte(`b`), time.Hour))

	evicted, err := store.CleanupExpired(requestcontext.WithTime(ctx, base.Add(time.Minute)))
	require.NoError(t, err)
	require.Equal(t, 1, evicted)

	_, err = store.Get(requestcontext.WithTime(ctx, base.Add(time.Minute)), Key("b"))
	require.NoError(t, err)
}
