package refresher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tlnguyen/price-radar/internal/catalog"
	"github.com/tlnguyen/price-radar/internal/models"
	"github.com/tlnguyen/price-radar/internal/queue"
	"github.com/tlnguyen/price-radar/internal/ratelimit"
	"github.com/tlnguyen/price-radar/internal/urls"
)

// Fetcher is the slice of the orchestrator the refresher needs.
type Fetcher interface {
	FetchCompetitorPrices(ctx context.Context, productID, productModel, productBrand string) (models.PriceSnapshot, error)
}

// Refresher keeps cached snapshots warm: a periodic scan enqueues every
// product with known competitor listings, and a worker drains the queue
// through the orchestrator with adaptive pacing between products.
type Refresher struct {
	fetcher      Fetcher
	catalog      catalog.Repository
	urls         urls.Repository
	tasks        queue.Queue
	limiter      *ratelimit.AdaptiveRateLimiter
	logger       *slog.Logger
	scanInterval time.Duration
}

type Config struct {
	ScanInterval time.Duration
	MinDelay     time.Duration
	MaxDelay     time.Duration
}

func New(fetcher Fetcher, catalogRepo catalog.Repository, urlRepo urls.Repository, cfg Config, logger *slog.Logger) *Refresher {
	if cfg.ScanInterval == 0 {
		cfg.ScanInterval = 30 * time.Minute
	}
	if cfg.MinDelay == 0 {
		cfg.MinDelay = 5 * time.Second
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = 20 * time.Second
	}

	return &Refresher{
		fetcher:      fetcher,
		catalog:      catalogRepo,
		urls:         urlRepo,
		tasks:        queue.NewInMemoryQueue(),
		limiter:      ratelimit.NewAdaptiveRateLimiter(cfg.MinDelay, cfg.MaxDelay),
		logger:       logger.With("component", "refresher"),
		scanInterval: cfg.ScanInterval,
	}
}

// Enqueue schedules an asynchronous refresh for one product. Duplicate
// requests for a product already queued collapse into one task.
func (r *Refresher) Enqueue(productID, brand, model string) error {
	return r.tasks.Push(&queue.Task{
		ID:        uuid.New().String(),
		ProductID: productID,
		Brand:     brand,
		Model:     model,
		CreatedAt: time.Now(),
	})
}

// QueueSize reports how many refreshes are waiting.
func (r *Refresher) QueueSize() int {
	return r.tasks.Size()
}

// Start runs the scan loop and the worker until the context is cancelled.
func (r *Refresher) Start(ctx context.Context) {
	r.logger.Info("refresher started", "scan_interval", r.scanInterval)

	go r.runWorker(ctx)

	ticker := time.NewTicker(r.scanInterval)
	defer ticker.Stop()

	// Warm the cache right away rather than waiting a full interval.
	r.scan(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresher stopping")
			r.tasks.Close()
			return
		case <-ticker.C:
			r.scan(ctx)
		}
	}
}

func (r *Refresher) scan(ctx context.Context) {
	ids, err := r.urls.ListProductIDs(ctx)
	if err != nil {
		r.logger.Error("scan failed to list products", "error", err)
		return
	}

	enqueued := 0
	for _, id := range ids {
		brand, model := "", ""
		if product, err := r.catalog.GetProduct(ctx, id); err == nil {
			brand, model = product.Brand, product.Name
		} else {
			r.logger.Warn("product missing from catalog, refreshing by id only",
				"product_id", id, "error", err)
		}

		if err := r.Enqueue(id, brand, model); err != nil {
			r.logger.Error("failed to enqueue refresh", "product_id", id, "error", err)
			continue
		}
		enqueued++
	}

	r.logger.Info("scan complete", "products", len(ids), "enqueued", enqueued)
}

func (r *Refresher) runWorker(ctx context.Context) {
	for {
		task, err := r.tasks.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, queue.ErrQueueClosed) {
				return
			}
			r.logger.Error("failed to pop task", "error", err)
			continue
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return
		}

		snapshot, err := r.fetcher.FetchCompetitorPrices(ctx, task.ProductID, task.Model, task.Brand)
		if err != nil {
			r.logger.Error("refresh failed", "product_id", task.ProductID, "error", err)
			r.limiter.RecordError()
			continue
		}

		if snapshot.LiveCount() > 0 {
			r.limiter.RecordSuccess()
		} else {
			// Nothing came back live; treat as a soft failure so the
			// limiter backs off before the next marketplace round.
			r.limiter.RecordError()
		}

		r.logger.Info("background refresh done",
			"product_id", task.ProductID,
			"live", snapshot.LiveCount(),
			"entries", len(snapshot))
	}
}
