package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tlnguyen/price-radar/internal/models"
)

// PriceCache owns persisted price snapshots. It serializes snapshots as JSON
// through a Storage backend and guarantees two things:
//
//   - Set is a merge, not a replace: competitors present in the stored
//     snapshot but absent from the new one are preserved, so a snapshot
//     never shrinks except through Clear/ClearAll.
//   - timestamps come back as time.Time after a round trip, never as the
//     serialized string form.
type PriceCache struct {
	storage Storage
	prefix  string
	logger  *slog.Logger

	// Serializes the read-merge-write in Set within this process. Two
	// processes sharing one Redis can still interleave; each competitor
	// entry stays internally consistent either way.
	mu sync.Mutex
}

func NewPriceCache(storage Storage, prefix string, logger *slog.Logger) *PriceCache {
	return &PriceCache{
		storage: storage,
		prefix:  prefix,
		logger:  logger.With("component", "price_cache"),
	}
}

// Get returns the stored snapshot for a product, or nil when none exists.
// A corrupt or unreadable entry degrades to "no cache" rather than an error
// so one bad record never wedges the UI.
func (c *PriceCache) Get(ctx context.Context, productID string) (models.PriceSnapshot, error) {
	raw, err := c.storage.GetItem(ctx, c.key(productID))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		c.logger.Warn("cache read failed, treating as empty", "product_id", productID, "error", err)
		return nil, nil
	}

	var snapshot models.PriceSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		c.logger.Warn("corrupt cache entry, treating as empty", "product_id", productID, "error", err)
		return nil, nil
	}

	return snapshot, nil
}

// Set merges the given snapshot into the stored one and persists the result.
// It re-reads the latest stored value at write time so competitors written by
// a concurrent refresh are not silently dropped. Returns the merged snapshot.
func (c *PriceCache) Set(ctx context.Context, productID string, snapshot models.PriceSnapshot) (models.PriceSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored, _ := c.Get(ctx, productID)

	merged := make(models.PriceSnapshot, len(stored)+len(snapshot))
	for competitor, entry := range stored {
		merged[competitor] = entry
	}
	for competitor, entry := range snapshot {
		merged[competitor] = entry
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return merged, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := c.storage.SetItem(ctx, c.key(productID), string(data)); err != nil {
		return merged, fmt.Errorf("failed to persist snapshot: %w", err)
	}

	return merged, nil
}

func (c *PriceCache) Clear(ctx context.Context, productID string) error {
	if err := c.storage.RemoveItem(ctx, c.key(productID)); err != nil {
		return fmt.Errorf("failed to clear snapshot for %s: %w", productID, err)
	}
	return nil
}

func (c *PriceCache) ClearAll(ctx context.Context) error {
	keys, err := c.storage.Keys(ctx, c.prefix)
	if err != nil {
		return fmt.Errorf("failed to list cache keys: %w", err)
	}

	for _, key := range keys {
		if err := c.storage.RemoveItem(ctx, key); err != nil {
			return fmt.Errorf("failed to remove %s: %w", key, err)
		}
	}

	return nil
}

func (c *PriceCache) key(productID string) string {
	return c.prefix + productID
}
