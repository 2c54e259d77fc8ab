// Package export publishes generated plans to spreadsheets.
package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mtlprog/rebalance/internal/plan"
)

// SheetWriter writes whole sheets, replacing previous content.
type SheetWriter interface {
	Write(ctx context.Context, sheets []Sheet) error
}

// HistoryAppender is implemented by writers that keep a running log of plans.
type HistoryAppender interface {
	AppendHistory(ctx context.Context, header, row []any) error
}

// Service builds plan sheets and delegates writing to a SheetWriter.
type Service struct {
	writer SheetWriter
}

// NewService creates a new export Service.
func NewService(writer SheetWriter) *Service {
	if writer == nil {
		panic("export.NewService: writer must not be nil")
	}
	return &Service{writer: writer}
}

// Export writes the PLAN and SUMMARY sheets for rec and, when the writer
// supports it, appends a HISTORY row. Implements plan.Exporter.
func (s *Service) Export(ctx context.Context, rec plan.Record) error {
	sheets := []Sheet{
		{Name: PlanSheet, Rows: buildPlanRows(rec)},
		{Name: SummarySheet, Rows: buildSummaryRows(rec)},
	}
	if err := s.writer.Write(ctx, sheets); err != nil {
		return fmt.Errorf("writing plan sheets: %w", err)
	}

	if h, ok := s.writer.(HistoryAppender); ok {
		if err := h.AppendHistory(ctx, historyHeader, buildHistoryRow(rec)); err != nil {
			return fmt.Errorf("appending plan history: %w", err)
		}
	}

	slog.Info("plan exported", "id", rec.ID, "orders", len(rec.Orders))
	return nil
}
