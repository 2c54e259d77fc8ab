package export

import (
	"time"

	"github.com/mtlprog/rebalance/internal/domain"
	"github.com/mtlprog/rebalance/internal/plan"
)

// Sheet names.
const (
	PlanSheet    = "PLAN"
	SummarySheet = "SUMMARY"
	HistorySheet = "HISTORY"
)

// Sheet is a named grid of cell values, first row being the header.
type Sheet struct {
	Name string
	Rows [][]any
}

var planHeader = []any{"#", "Type", "From", "To", "Amount", "Value USD"}

// historyHeader is the first row of the HISTORY sheet; one row is appended per plan.
var historyHeader = []any{
	"Date", "Plan ID", "Distribution", "Total USD", "Orders",
	"Sells", "Buys", "Redeems", "Deposits", "Sold USD", "Spent USD",
}

// buildPlanRows lists the orders of rec in execution order.
// Columns: # | Type | From | To | Amount | Value USD
func buildPlanRows(rec plan.Record) [][]any {
	data := make([][]any, 0, len(rec.Orders)+1)
	data = append(data, planHeader)
	for i, o := range rec.Orders {
		data = append(data, []any{
			i + 1,
			string(o.OrderType),
			tokenLabel(o.FromToken),
			tokenLabel(o.ToToken),
			o.SendAmount.String(),
			o.SendValue().Round(2).InexactFloat64(),
		})
	}
	return data
}

// buildSummaryRows builds a two-column key/value sheet describing rec.
func buildSummaryRows(rec plan.Record) [][]any {
	s := rec.Summary
	return [][]any{
		{"Key", "Value"},
		{"Plan ID", rec.ID.String()},
		{"Created", rec.CreatedAt.UTC().Format(time.RFC3339)},
		{"Distribution", rec.Distribution.Name},
		{"Total USD", rec.TotalValue.Round(2).InexactFloat64()},
		{"Orders", s.Orders},
		{"Sells", s.Sells},
		{"Buys", s.Buys},
		{"Redeems", s.Redeems},
		{"Deposits", s.Deposits},
		{"Sold USD", s.ValueSold.Round(2).InexactFloat64()},
		{"Spent USD", s.ValueSpent.Round(2).InexactFloat64()},
	}
}

// buildHistoryRow builds the single HISTORY row appended for rec.
func buildHistoryRow(rec plan.Record) []any {
	s := rec.Summary
	return []any{
		rec.CreatedAt.UTC().Format("02.01.2006 15:04"),
		rec.ID.String(),
		rec.Distribution.Name,
		rec.TotalValue.Round(2).InexactFloat64(),
		s.Orders, s.Sells, s.Buys, s.Redeems, s.Deposits,
		s.ValueSold.Round(2).InexactFloat64(),
		s.ValueSpent.Round(2).InexactFloat64(),
	}
}

func tokenLabel(t domain.Token) string {
	if t.Symbol != "" {
		return t.Symbol
	}
	return t.ID
}
