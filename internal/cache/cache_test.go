package cache

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlnguyen/price-radar/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCache(t *testing.T) *PriceCache {
	t.Helper()
	storage, err := NewFileStorage(filepath.Join(t.TempDir(), "prices.json"))
	require.NoError(t, err)
	return NewPriceCache(storage, "prices:", testLogger())
}

func TestPriceCache_GetMissingReturnsNil(t *testing.T) {
	c := newTestCache(t)

	snapshot, err := c.Get(context.Background(), "pw-mk19")
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestPriceCache_RoundTripPreservesTypes(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	observed := time.Date(2026, 8, 30, 14, 30, 0, 0, time.UTC)
	_, err := c.Set(ctx, "pw-mk19", models.PriceSnapshot{
		"AlphaMart": models.NewLivePrice("AlphaMart", 620.50, "https://alphamart.example.com/mk19", observed),
	})
	require.NoError(t, err)

	snapshot, err := c.Get(ctx, "pw-mk19")
	require.NoError(t, err)
	require.Len(t, snapshot, 1)

	entry := snapshot["AlphaMart"]
	assert.Equal(t, "AlphaMart", entry.Competitor)
	assert.InDelta(t, 620.50, entry.Price, 0.001)
	assert.Equal(t, "https://alphamart.example.com/mk19", entry.SourceURL)
	assert.True(t, entry.IsLive)
	// Timestamps come back as time.Time, not the serialized string.
	assert.True(t, entry.LastUpdated.Equal(observed))
}

func TestPriceCache_SetMergesWithStoredSnapshot(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	older := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

	_, err := c.Set(ctx, "pw-mk19", models.PriceSnapshot{
		"AlphaMart": models.NewLivePrice("AlphaMart", 610.00, "https://alphamart.example.com/mk19", older),
		"BetaShop":  models.NewLivePrice("BetaShop", 1399.00, "https://betashop.example.com/mk19", older),
	})
	require.NoError(t, err)

	// A later cycle only observed AlphaMart.
	merged, err := c.Set(ctx, "pw-mk19", models.PriceSnapshot{
		"AlphaMart": models.NewLivePrice("AlphaMart", 650.00, "https://alphamart.example.com/mk19", newer),
	})
	require.NoError(t, err)
	require.Len(t, merged, 2)

	assert.InDelta(t, 650.00, merged["AlphaMart"].Price, 0.001)
	assert.True(t, merged["AlphaMart"].LastUpdated.Equal(newer))

	// BetaShop survives untouched.
	assert.InDelta(t, 1399.00, merged["BetaShop"].Price, 0.001)
	assert.True(t, merged["BetaShop"].LastUpdated.Equal(older))

	stored, err := c.Get(ctx, "pw-mk19")
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestPriceCache_CorruptEntryDegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	storage, err := NewFileStorage(filepath.Join(t.TempDir(), "prices.json"))
	require.NoError(t, err)
	c := NewPriceCache(storage, "prices:", testLogger())

	require.NoError(t, storage.SetItem(ctx, "prices:pw-mk19", "{not json"))

	snapshot, err := c.Get(ctx, "pw-mk19")
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestPriceCache_ClearAndClearAll(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	now := time.Now()
	for _, id := range []string{"pw-mk19", "pw-mk25"} {
		_, err := c.Set(ctx, id, models.PriceSnapshot{
			"AlphaMart": models.NewLivePrice("AlphaMart", 100, "https://alphamart.example.com/"+id, now),
		})
		require.NoError(t, err)
	}

	require.NoError(t, c.Clear(ctx, "pw-mk19"))

	snapshot, err := c.Get(ctx, "pw-mk19")
	require.NoError(t, err)
	assert.Nil(t, snapshot)

	snapshot, err = c.Get(ctx, "pw-mk25")
	require.NoError(t, err)
	assert.NotNil(t, snapshot)

	require.NoError(t, c.ClearAll(ctx))

	snapshot, err = c.Get(ctx, "pw-mk25")
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestFileStorage_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prices.json")

	first, err := NewFileStorage(path)
	require.NoError(t, err)
	require.NoError(t, first.SetItem(ctx, "prices:pw-mk19", `{"a":1}`))

	second, err := NewFileStorage(path)
	require.NoError(t, err)

	value, err := second.GetItem(ctx, "prices:pw-mk19")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, value)

	_, err = second.GetItem(ctx, "prices:missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStorage_KeysFiltersByPrefix(t *testing.T) {
	ctx := context.Background()
	storage, err := NewFileStorage(filepath.Join(t.TempDir(), "prices.json"))
	require.NoError(t, err)

	require.NoError(t, storage.SetItem(ctx, "prices:a", "1"))
	require.NoError(t, storage.SetItem(ctx, "prices:b", "2"))
	require.NoError(t, storage.SetItem(ctx, "other:c", "3"))

	keys, err := storage.Keys(ctx, "prices:")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"prices:a", "prices:b"}, keys)
}

func TestFileStorage_RemoveItem(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prices.json")
	storage, err := NewFileStorage(path)
	require.NoError(t, err)

	require.NoError(t, storage.SetItem(ctx, "prices:a", "1"))
	require.NoError(t, storage.RemoveItem(ctx, "prices:a"))

	_, err = storage.GetItem(ctx, "prices:a")
	assert.ErrorIs(t, err, ErrNotFound)

	// Removal is persisted, not just in-memory.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "prices:a")
}
