package strategy

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/tlnguyen/price-radar/internal/fetch"
)

const tikiURLPattern = `(?i)(?:https?://)?(?:www\.)?tiki\.vn/`

// TikiStrategy extracts prices from Tiki product pages.
type TikiStrategy struct {
	fetcher    fetch.Fetcher
	logger     *slog.Logger
	urlPattern *regexp.Regexp
	selectors  []string
}

func NewTikiStrategy(fetcher fetch.Fetcher, logger *slog.Logger) *TikiStrategy {
	return &TikiStrategy{
		fetcher:    fetcher,
		logger:     logger.With("component", "tiki_strategy"),
		urlPattern: regexp.MustCompile(tikiURLPattern),
		selectors: []string{
			".product-price__current-price",
			"[data-view-id='pdp_product_price']",
			"div[class*='styles__Price']",
			".product-price",
		},
	}
}

func (s *TikiStrategy) Name() string { return "Tiki" }

func (s *TikiStrategy) CanHandle(pageURL string) bool {
	return s.urlPattern.MatchString(pageURL)
}

func (s *TikiStrategy) ExtractPrice(ctx context.Context, pageURL string) (string, error) {
	html, err := s.fetcher.Get(ctx, pageURL)
	if err != nil {
		s.logger.Debug("fetch failed", "url", pageURL, "error", err)
		return "", err
	}

	return extractFromHTML(html, s.selectors)
}
