package strategy

import (
	"context"
	"fmt"
	"log/slog"
)

// Registry holds strategies in registration order. Dispatch picks the first
// strategy whose CanHandle matches, so registration order is a deliberate
// tie-break: a broad catch-all strategy must be registered last.
type Registry struct {
	strategies []Strategy
	logger     *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger: logger.With("component", "strategy_registry"),
	}
}

func (r *Registry) Register(s Strategy) {
	r.strategies = append(r.strategies, s)
	r.logger.Debug("registered strategy", "name", s.Name(), "position", len(r.strategies))
}

// StrategyForURL returns the first matching strategy, or nil when the URL is
// unrecognized. Callers treat nil as "competitor unreachable", not an error
// for the whole batch.
func (r *Registry) StrategyForURL(pageURL string) Strategy {
	for _, s := range r.strategies {
		if s.CanHandle(pageURL) {
			return s
		}
	}
	return nil
}

// ExtractPriceFromURL dispatches to the matching strategy. Pure delegation:
// retries belong to the orchestrator.
func (r *Registry) ExtractPriceFromURL(ctx context.Context, pageURL string) (raw string, err error) {
	s := r.StrategyForURL(pageURL)
	if s == nil {
		return "", fmt.Errorf("%w: %s", ErrNoStrategy, pageURL)
	}

	// A misbehaving strategy must not take down the whole fetch cycle.
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("strategy panicked", "strategy", s.Name(), "url", pageURL, "panic", rec)
			raw = ""
			err = fmt.Errorf("strategy %s panicked: %v", s.Name(), rec)
		}
	}()

	raw, err = s.ExtractPrice(ctx, pageURL)
	if err != nil {
		return "", fmt.Errorf("strategy %s: %w", s.Name(), err)
	}

	return raw, nil
}
