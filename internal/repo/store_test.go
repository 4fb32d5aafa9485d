package repo

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/mirador-classify/internal/engine"
	"github.com/miradorstack/mirador-classify/internal/models"
	"github.com/miradorstack/mirador-classify/internal/patterns"
)

func newTestStore(t *testing.T) (*Store, *patterns.Dictionary) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dict := patterns.Load(logger, []patterns.Source{{Key: "Shahed", Pattern: `\bshahed\b`}}, nil)
	return NewStore(logger, engine.NewClassifier(logger, nil, 2), dict), dict
}

func TestStoreStartsEmpty(t *testing.T) {
	store, dict := newTestStore(t)

	snap := store.Snapshot()
	require.NotNil(t, snap)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, 0, snap.Len())
	assert.Equal(t, dict.Version(), snap.Dictionary.Version())
}

func TestStoreIngestAssignsIDsAndAnnotates(t *testing.T) {
	store, dict := newTestStore(t)
	input := []models.Record{
		{MessageURL: "https://t.me/channel/1234", MessageText: "Shahed over Odesa"},
		{MessageText: "quiet night"},
	}

	snap, err := store.Ingest(context.Background(), input, true)
	require.NoError(t, err)

	require.Equal(t, 2, snap.Len())
	assert.Equal(t, "msg_1234", snap.Records[0].ID)
	assert.Equal(t, "event_000001", snap.Records[1].ID)
	assert.Equal(t, "Shahed", snap.Records[0].Match.Key)
	assert.Equal(t, dict.Version(), snap.Records[0].Match.DictionaryVersion)
	assert.NotNil(t, snap.Records[1].Score)

	assert.Empty(t, input[0].ID, "caller records are not modified")
	assert.Nil(t, input[0].Match)
	assert.Same(t, snap, store.Snapshot())
}

func TestStoreIngestAppend(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first, err := store.Ingest(ctx, []models.Record{{ID: "a", MessageText: "Shahed"}}, true)
	require.NoError(t, err)
	second, err := store.Ingest(ctx, []models.Record{{MessageText: "later"}}, false)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	require.Equal(t, 2, second.Len())
	assert.Equal(t, "a", second.Records[0].ID)
	assert.Equal(t, "event_000001", second.Records[1].ID)
	assert.Equal(t, 1, first.Len(), "published snapshots are immutable")
}

func TestStoreIngestKeepsIDsUnique(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Ingest(ctx, []models.Record{{ID: "r1", MessageText: "missile hit hospital"}}, true)
	require.NoError(t, err)
	_, err = store.Ingest(ctx, []models.Record{{ID: "r1", MessageText: "quiet day"}}, false)
	require.NoError(t, err)
	snap, err := store.Ingest(ctx, []models.Record{
		{MessageURL: "https://t.me/a/5", MessageText: "missile"},
		{MessageURL: "https://t.me/b/5", MessageText: "harvest"},
	}, false)
	require.NoError(t, err)

	ids := make([]string, snap.Len())
	for i, r := range snap.Records {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"r1", "r1_2", "msg_5", "msg_5_2"}, ids)

	got, err := engine.Evaluate("missile", snap.Records)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "r1", got[0].ID)
	assert.Equal(t, "msg_5", got[1].ID)
}

func TestStoreReloadDictionary(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Ingest(ctx, []models.Record{{ID: "a", MessageText: "Lancet strike"}}, true)
	require.NoError(t, err)
	assert.Equal(t, models.GroupNone, store.Snapshot().Records[0].Match.Group)

	next := patterns.Load(nil, []patterns.Source{{Key: "Lancet", Pattern: `lancet`}}, nil)
	snap, err := store.ReloadDictionary(ctx, next)
	require.NoError(t, err)

	assert.Equal(t, "Lancet", snap.Records[0].Match.Key)
	assert.Equal(t, next.Version(), snap.Records[0].Match.DictionaryVersion)
	assert.Same(t, next, snap.Dictionary)
}

func TestStoreIngestCancelledKeepsPrevious(t *testing.T) {
	store, _ := newTestStore(t)
	before := store.Snapshot()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := store.Ingest(ctx, []models.Record{{ID: "x"}}, true)

	require.ErrorIs(t, err, context.Canceled)
	assert.Same(t, before, store.Snapshot())
}

func TestStoreConcurrentReaders(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				snap := store.Snapshot()
				for _, rec := range snap.Records {
					if !rec.Annotated() {
						t.Errorf("snapshot %s exposes unannotated record %s", snap.ID, rec.ID)
						return
					}
				}
			}
		}()
	}
	for i := 0; i < 10; i++ {
		_, err := store.Ingest(ctx, []models.Record{{MessageText: "Shahed"}}, false)
		require.NoError(t, err)
	}
	wg.Wait()
	assert.Equal(t, 10, store.Snapshot().Len())
}
