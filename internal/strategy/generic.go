package strategy

import (
	"context"
	"log/slog"

	"github.com/tlnguyen/price-radar/internal/fetch"
)

// GenericStrategy handles any URL with a best-effort pass over common price
// markup conventions. It matches everything, so it must be registered after
// every marketplace-specific strategy.
type GenericStrategy struct {
	fetcher   fetch.Fetcher
	logger    *slog.Logger
	selectors []string
}

func NewGenericStrategy(fetcher fetch.Fetcher, logger *slog.Logger) *GenericStrategy {
	return &GenericStrategy{
		fetcher: fetcher,
		logger:  logger.With("component", "generic_strategy"),
		selectors: []string{
			"[itemprop='price']",
			".product-price",
			".current-price",
			".sale-price",
			".price",
			"#price",
		},
	}
}

func (s *GenericStrategy) Name() string { return "Generic" }

func (s *GenericStrategy) CanHandle(pageURL string) bool {
	return pageURL != ""
}

func (s *GenericStrategy) ExtractPrice(ctx context.Context, pageURL string) (string, error) {
	html, err := s.fetcher.Get(ctx, pageURL)
	if err != nil {
		s.logger.Debug("fetch failed", "url", pageURL, "error", err)
		return "", err
	}

	return extractFromHTML(html, s.selectors)
}
