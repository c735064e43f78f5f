//go:build integration

package gateway

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"offersync/internal/platform/logger"
	"offersync/pkg/testutil/containers"
)

func newPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	pc := containers.NewPostgresContainer(t)
	store := NewPostgresStore(pc.DB, logger.New(), WithPollInterval(50*time.Millisecond))
	require.NoError(t, store.EnsureSchema(context.Background()))
	return store
}

func TestPostgresStore_GetSet(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, CollectionBaskets, "u1")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, CollectionBaskets, "u1",
		map[string]any{"total": 42.0, "items": []any{}}, false))

	doc, err := store.Get(ctx, CollectionBaskets, "u1")
	require.NoError(t, err)
	require.Equal(t, 42.0, doc.Fields["total"])
	require.False(t, doc.UpdatedAt.IsZero())
}

func TestPostgresStore_MergePreservesAbsentFields(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, CollectionProfiles, "u1",
		map[string]any{"governorateId": "cairo", "cityId": "nasr-city"}, false))
	require.NoError(t, store.Set(ctx, CollectionProfiles, "u1",
		map[string]any{"cityId": "maadi"}, true))

	doc, err := store.Get(ctx, CollectionProfiles, "u1")
	require.NoError(t, err)
	require.Equal(t, "cairo", doc.Fields["governorateId"])
	require.Equal(t, "maadi", doc.Fields["cityId"])

	// Replace drops fields absent from the update.
	require.NoError(t, store.Set(ctx, CollectionProfiles, "u1",
		map[string]any{"cityId": "zamalek"}, false))
	doc, err = store.Get(ctx, CollectionProfiles, "u1")
	require.NoError(t, err)
	require.NotContains(t, doc.Fields, "governorateId")
}

func TestPostgresStore_SubscribeDeliversInitialThenDeltas(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, CollectionProfiles, "u1",
		map[string]any{"governorateId": "giza"}, false))

	var mu sync.Mutex
	var got []*Document
	cancel, err := store.Subscribe(ctx, CollectionProfiles, "u1", func(doc *Document) {
		mu.Lock()
		got = append(got, doc)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer cancel()

	mu.Lock()
	require.Len(t, got, 1)
	require.Equal(t, "giza", got[0].Fields["governorateId"])
	mu.Unlock()

	require.NoError(t, store.Set(ctx, CollectionProfiles, "u1",
		map[string]any{"governorateId": "cairo"}, true))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) >= 2 && got[len(got)-1].Fields["governorateId"] == "cairo"
	}, 2*time.Second, 20*time.Millisecond)
}
