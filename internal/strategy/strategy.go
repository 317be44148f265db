package strategy

import (
	"context"
	"errors"
)

var (
	// ErrNoPriceFound means the strategy ran the full pipeline and found
	// nothing. Absence of data is not an exceptional condition.
	ErrNoPriceFound = errors.New("no price found on page")
	// ErrNoStrategy means no registered strategy can handle the URL.
	ErrNoStrategy = errors.New("no strategy matches URL")
)

// Strategy is the platform-specific logic for turning a marketplace page into
// a raw price string such as "$620.00". Strategies are stateless text
// extractors: numeric parsing is the orchestrator's job.
type Strategy interface {
	Name() string
	// CanHandle is a pure pattern match against the URL. No network calls.
	CanHandle(pageURL string) bool
	// ExtractPrice fetches the page and returns the first raw price match.
	// All failures (network, markup, no match) come back as errors; a
	// strategy never panics past its boundary.
	ExtractPrice(ctx context.Context, pageURL string) (string, error)
}
