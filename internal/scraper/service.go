package scraper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tlnguyen/price-radar/internal/cache"
	"github.com/tlnguyen/price-radar/internal/models"
	"github.com/tlnguyen/price-radar/internal/strategy"
	"github.com/tlnguyen/price-radar/internal/urls"
)

// EventPublisher receives the merged snapshot after every persisted refresh.
// Publishing is best-effort from the orchestrator's point of view; the cache
// write is the source of truth.
type EventPublisher interface {
	PublishSnapshotUpdated(ctx context.Context, productID string, snapshot models.PriceSnapshot) error
}

type Options struct {
	// FetchTimeout bounds each competitor's extraction attempt so one
	// hanging marketplace cannot stall the whole fan-out.
	FetchTimeout time.Duration
}

// Service orchestrates a price refresh cycle: resolve competitor URLs,
// extract prices concurrently, merge with the cached snapshot, persist, and
// return. It holds no long-lived state beyond in-flight requests.
type Service struct {
	registry     *strategy.Registry
	urls         urls.Repository
	cache        *cache.PriceCache
	publisher    EventPublisher
	logger       *slog.Logger
	fetchTimeout time.Duration
}

func NewService(registry *strategy.Registry, urlRepo urls.Repository, priceCache *cache.PriceCache, publisher EventPublisher, logger *slog.Logger, opts Options) *Service {
	timeout := opts.FetchTimeout
	if timeout == 0 {
		timeout = 12 * time.Second
	}

	return &Service{
		registry:     registry,
		urls:         urlRepo,
		cache:        priceCache,
		publisher:    publisher,
		logger:       logger.With("component", "price_scraper"),
		fetchTimeout: timeout,
	}
}

type attempt struct {
	competitor string
	url        string
	raw        string
	err        error
}

// FetchCompetitorPrices runs one full refresh cycle for a product.
//
// Failures are contained at the competitor level: a competitor whose
// extraction or parse fails keeps its prior cached entry downgraded to
// IsLive=false, or a zero-price placeholder when no prior entry exists. The
// method never returns an error for transient lookup or persistence
// problems; at worst the caller sees the last cached (possibly empty)
// snapshot.
func (s *Service) FetchCompetitorPrices(ctx context.Context, productID, productModel, productBrand string) (models.PriceSnapshot, error) {
	cached, _ := s.cache.Get(ctx, productID)
	if cached == nil {
		cached = models.PriceSnapshot{}
	}

	competitorURLs, err := s.urls.CompetitorURLs(ctx, productID, productBrand, productModel)
	if err != nil {
		// A transient lookup problem must not surface as a hard error:
		// serve what we have.
		s.logger.Error("url lookup failed, returning cached snapshot",
			"product_id", productID, "error", err)
		return cached, nil
	}

	if len(competitorURLs) == 0 {
		s.logger.Info("no known competitor listings", "product_id", productID)
		return cached, nil
	}

	results := s.extractAll(ctx, competitorURLs)

	now := time.Now()
	merged := cached.Clone()

	// Live means observed in this invocation. Entries carried over from the
	// cache, including competitors with no URL in this cycle, start stale;
	// only a fresh successful extraction below marks one live again.
	for competitor, entry := range merged {
		entry.IsLive = false
		merged[competitor] = entry
	}

	live := 0

	for _, a := range results {
		if a.err == nil {
			price, perr := ParsePrice(a.raw)
			if perr == nil {
				merged[a.competitor] = models.NewLivePrice(a.competitor, price, a.url, now)
				live++
				continue
			}
			s.logger.Warn("extracted text did not parse, falling back to cache",
				"product_id", productID, "competitor", a.competitor, "raw", a.raw, "error", perr)
		} else {
			s.logger.Warn("extraction failed, falling back to cache",
				"product_id", productID, "competitor", a.competitor, "url", a.url, "error", a.err)
		}

		// Last known values survive a failed refresh but are no longer
		// live; the stale downgrade above already covers them.
		if _, ok := cached[a.competitor]; !ok {
			merged[a.competitor] = models.NewUnobservedPrice(a.competitor, a.url)
		}
	}

	persisted, err := s.cache.Set(ctx, productID, merged)
	if err != nil {
		// Persistence failure does not cost the caller the fresh data.
		s.logger.Error("failed to persist snapshot", "product_id", productID, "error", err)
		persisted = merged
	} else if s.publisher != nil {
		if err := s.publisher.PublishSnapshotUpdated(ctx, productID, persisted); err != nil {
			s.logger.Error("failed to publish snapshot event", "product_id", productID, "error", err)
		}
	}

	s.logger.Info("fetch cycle complete",
		"product_id", productID,
		"competitors", len(competitorURLs),
		"live", live,
		"entries", len(persisted))

	return persisted, nil
}

// extractAll fans out one extraction goroutine per competitor and joins all
// attempts before returning; partial results are never surfaced mid-cycle.
func (s *Service) extractAll(ctx context.Context, competitorURLs map[string]string) []attempt {
	var wg sync.WaitGroup
	resultCh := make(chan attempt, len(competitorURLs))

	for competitor, pageURL := range competitorURLs {
		wg.Add(1)
		go func(competitor, pageURL string) {
			defer wg.Done()

			attemptCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
			defer cancel()

			raw, err := s.registry.ExtractPriceFromURL(attemptCtx, pageURL)
			resultCh <- attempt{competitor: competitor, url: pageURL, raw: raw, err: err}
		}(competitor, pageURL)
	}

	wg.Wait()
	close(resultCh)

	results := make([]attempt, 0, len(competitorURLs))
	for a := range resultCh {
		results = append(results, a)
	}
	return results
}

// LastFetchedPrices is a pure cache read used by the UI for immediate display
// and for polling an in-flight refresh started elsewhere. Returns nil when
// nothing has ever been fetched for the product.
func (s *Service) LastFetchedPrices(ctx context.Context, productID string) (models.PriceSnapshot, error) {
	return s.cache.Get(ctx, productID)
}

// ClearPrices drops the persisted snapshot for one product.
func (s *Service) ClearPrices(ctx context.Context, productID string) error {
	return s.cache.Clear(ctx, productID)
}

// ClearAllPrices drops every persisted snapshot.
func (s *Service) ClearAllPrices(ctx context.Context) error {
	return s.cache.ClearAll(ctx)
}
