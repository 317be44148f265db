package strategy

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/tlnguyen/price-radar/internal/fetch"
)

const lazadaURLPattern = `(?i)(?:https?://)?(?:www\.)?lazada\.(?:vn|com(?:\.[a-z]{2})?|sg|co\.th)/`

// LazadaStrategy extracts prices from Lazada product pages. Lazada renders
// the price both into the PDP module markup and into an embedded
// __moduleData__ blob; the selector list covers the markup variants seen so
// far, newest first.
type LazadaStrategy struct {
	fetcher    fetch.Fetcher
	logger     *slog.Logger
	urlPattern *regexp.Regexp
	selectors  []string
}

func NewLazadaStrategy(fetcher fetch.Fetcher, logger *slog.Logger) *LazadaStrategy {
	return &LazadaStrategy{
		fetcher:    fetcher,
		logger:     logger.With("component", "lazada_strategy"),
		urlPattern: regexp.MustCompile(lazadaURLPattern),
		selectors: []string{
			"#module_product_price_1 .pdp-price_type_normal",
			".pdp-product-price .pdp-price_type_normal",
			".pdp-price_type_normal",
			".pdp-product-price span",
			".pdp-price",
		},
	}
}

func (s *LazadaStrategy) Name() string { return "Lazada" }

func (s *LazadaStrategy) CanHandle(pageURL string) bool {
	return s.urlPattern.MatchString(pageURL)
}

func (s *LazadaStrategy) ExtractPrice(ctx context.Context, pageURL string) (string, error) {
	html, err := s.fetcher.Get(ctx, pageURL)
	if err != nil {
		s.logger.Debug("fetch failed", "url", pageURL, "error", err)
		return "", err
	}

	return extractFromHTML(html, s.selectors)
}
