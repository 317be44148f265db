package urls

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tlnguyen/price-radar/internal/database"
)

// Repository resolves the competitor listing URLs for a product. It is a
// lookup table, not a search engine: an absent competitor (or empty URL)
// means "no known listing on that marketplace" and must not be retried.
type Repository interface {
	CompetitorURLs(ctx context.Context, productID, brand, model string) (map[string]string, error)
	// ListProductIDs returns every product with at least one known listing.
	// The background refresher walks this set.
	ListProductIDs(ctx context.Context) ([]string, error)
}

// PostgresRepository reads the competitor_urls lookup table.
//
//	CREATE TABLE competitor_urls (
//	    product_id TEXT NOT NULL,
//	    competitor TEXT NOT NULL,
//	    url        TEXT,
//	    PRIMARY KEY (product_id, competitor)
//	);
type PostgresRepository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewPostgresRepository(db *database.DB, logger *slog.Logger) *PostgresRepository {
	return &PostgresRepository{
		db:     db,
		logger: logger.With("component", "url_repository"),
	}
}

func (r *PostgresRepository) CompetitorURLs(ctx context.Context, productID, brand, model string) (map[string]string, error) {
	query := `
		SELECT competitor, url
		FROM competitor_urls
		WHERE product_id = $1`

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up competitor urls for %s: %w", productID, err)
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var competitor string
		var url *string
		if err := rows.Scan(&competitor, &url); err != nil {
			return nil, fmt.Errorf("failed to scan competitor url: %w", err)
		}
		// NULL url means the listing is known to not exist; skip it.
		if url == nil || *url == "" {
			continue
		}
		result[competitor] = *url
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating competitor urls: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) ListProductIDs(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT product_id
		FROM competitor_urls
		WHERE url IS NOT NULL AND url <> ''
		ORDER BY product_id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan product id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product ids: %w", err)
	}

	return ids, nil
}

// StaticRepository serves a fixed in-memory mapping. Used in tests and for
// small deployments seeded from config.
type StaticRepository struct {
	mu      sync.RWMutex
	entries map[string]map[string]string
}

func NewStaticRepository(entries map[string]map[string]string) *StaticRepository {
	if entries == nil {
		entries = make(map[string]map[string]string)
	}
	return &StaticRepository{entries: entries}
}

func (r *StaticRepository) CompetitorURLs(ctx context.Context, productID, brand, model string) (map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	urls, ok := r.entries[productID]
	if !ok {
		return map[string]string{}, nil
	}

	result := make(map[string]string, len(urls))
	for competitor, url := range urls {
		if url == "" {
			continue
		}
		result[competitor] = url
	}
	return result, nil
}

func (r *StaticRepository) ListProductIDs(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids, nil
}

// Put registers or replaces the URL set for a product.
func (r *StaticRepository) Put(productID string, urls map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[productID] = urls
}
