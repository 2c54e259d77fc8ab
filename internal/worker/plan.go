// Package worker runs periodic background jobs.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/mtlprog/rebalance/internal/plan"
)

// PlanGenerator produces a plan from the configured holdings source.
type PlanGenerator interface {
	GenerateFromSource(ctx context.Context) (plan.Record, error)
}

// PlanWorker periodically regenerates the order plan.
type PlanWorker struct {
	generator PlanGenerator
	interval  time.Duration
}

// NewPlanWorker creates a new PlanWorker.
func NewPlanWorker(generator PlanGenerator, interval time.Duration) *PlanWorker {
	return &PlanWorker{
		generator: generator,
		interval:  interval,
	}
}

func (w *PlanWorker) generate(ctx context.Context, phase string) {
	rec, err := w.generator.GenerateFromSource(ctx)
	if err != nil {
		slog.Error("PlanWorker: "+phase+" failed", "error", err)
		return
	}
	slog.Info("PlanWorker: "+phase+" completed", "id", rec.ID, "orders", len(rec.Orders))
}

// Run starts the plan worker loop. It blocks until the context is cancelled.
func (w *PlanWorker) Run(ctx context.Context) {
	slog.Info("PlanWorker: starting", "interval", w.interval)

	// Generate immediately on startup
	w.generate(ctx, "initial generation")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("PlanWorker: shutting down")
			return
		case <-ticker.C:
			w.generate(ctx, "generation")
		}
	}
}
