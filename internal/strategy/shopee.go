package strategy

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/tlnguyen/price-radar/internal/fetch"
)

const shopeeURLPattern = `(?i)(?:https?://)?(?:www\.)?shopee\.(?:vn|sg|com(?:\.[a-z]{2})?|co\.(?:id|th)|ph)/`

// ShopeeStrategy extracts prices from Shopee product pages. Shopee's class
// names are build artifacts that rotate between deployments, so the selector
// list leans on attribute selectors and the page's embedded item state rather
// than exact class matches.
type ShopeeStrategy struct {
	fetcher    fetch.Fetcher
	logger     *slog.Logger
	urlPattern *regexp.Regexp
	selectors  []string
}

func NewShopeeStrategy(fetcher fetch.Fetcher, logger *slog.Logger) *ShopeeStrategy {
	return &ShopeeStrategy{
		fetcher:    fetcher,
		logger:     logger.With("component", "shopee_strategy"),
		urlPattern: regexp.MustCompile(shopeeURLPattern),
		selectors: []string{
			"div[class*='product-price']",
			"section[class*='flex-column'] div[class*='flex'] > div",
			".product-briefing div[class*='items-center'] div",
			"div.pqTWkA",
		},
	}
}

func (s *ShopeeStrategy) Name() string { return "Shopee" }

func (s *ShopeeStrategy) CanHandle(pageURL string) bool {
	return s.urlPattern.MatchString(pageURL)
}

func (s *ShopeeStrategy) ExtractPrice(ctx context.Context, pageURL string) (string, error) {
	html, err := s.fetcher.Get(ctx, pageURL)
	if err != nil {
		s.logger.Debug("fetch failed", "url", pageURL, "error", err)
		return "", err
	}

	return extractFromHTML(html, s.selectors)
}
