package worker

import (
	"context"
	"log/slog"
	"time"
)

// PriceFetcher fetches USD prices for symbols.
type PriceFetcher interface {
	FetchPrices(ctx context.Context, symbols []string) (map[string]float64, error)
}

// PriceWorker keeps a price cache warm by fetching the tracked symbols on an interval.
type PriceWorker struct {
	fetcher  PriceFetcher
	symbols  []string
	interval time.Duration
}

// NewPriceWorker creates a new PriceWorker.
func NewPriceWorker(fetcher PriceFetcher, symbols []string, interval time.Duration) *PriceWorker {
	return &PriceWorker{
		fetcher:  fetcher,
		symbols:  symbols,
		interval: interval,
	}
}

func (w *PriceWorker) refresh(ctx context.Context) {
	prices, err := w.fetcher.FetchPrices(ctx, w.symbols)
	if err != nil {
		slog.Error("PriceWorker: refresh failed", "error", err)
		return
	}
	slog.Debug("PriceWorker: refreshed prices", "count", len(prices))
}

// Run starts the price worker loop. It blocks until the context is cancelled.
func (w *PriceWorker) Run(ctx context.Context) {
	slog.Info("PriceWorker: starting", "symbols", len(w.symbols))

	w.refresh(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("PriceWorker: shutting down")
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}
