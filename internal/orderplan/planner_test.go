package orderplan

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/rebalance/internal/domain"
)

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool {
	return a.Equal(b)
})

func token(id string, owned string, value float64) domain.Token {
	return domain.Token{
		ID:          id,
		Name:        id,
		Symbol:      id,
		Decimals:    18,
		OwnedAmount: decimal.RequireFromString(owned),
		Value:       value,
	}
}

func dist(m map[string]float64) domain.Distribution {
	return domain.Distribution{Name: "test", Map: m}
}

func TestCreatePlanExampleScenario(t *testing.T) {
	weth := token("WETH", "10", 2000)
	dai := token("DAI", "5000", 1)

	plan, err := New("DAI").CreatePlan([]domain.Token{weth, dai}, dist(map[string]float64{"WETH": 25, "DAI": 75}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []domain.PlannedOrder{
		{FromToken: weth, ToToken: dai, SendAmount: decimal.RequireFromString("6.875"), OrderType: domain.OrderTypeSwap},
	}
	if diff := cmp.Diff(want, plan, decimalEqual); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
}

func TestCreatePlanMissingIntermediate(t *testing.T) {
	_, err := New("Wrapped Ether").CreatePlan([]domain.Token{token("DAI", "1", 1)}, dist(nil))
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}

func TestCreatePlanMatchesIntermediateByName(t *testing.T) {
	weth := token("0xc02a", "1", 2000)
	weth.Name = "Wrapped Ether"
	bat := token("0x0d87", "0", 0.5)

	plan, err := New("Wrapped Ether").CreatePlan([]domain.Token{weth, bat}, dist(map[string]float64{"0x0d87": 50}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan) != 1 {
		t.Fatalf("plan has %d orders, want 1", len(plan))
	}
	if plan[0].FromToken.ID != "0xc02a" || plan[0].ToToken.ID != "0x0d87" {
		t.Errorf("order = %s -> %s, want 0xc02a -> 0x0d87", plan[0].FromToken.ID, plan[0].ToToken.ID)
	}
	// 50% of 2000 = 1000 USD bought with WETH at 2000
	if !plan[0].SendAmount.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("SendAmount = %s, want 0.5", plan[0].SendAmount)
	}
}

func TestCreatePlanZeroTotalValue(t *testing.T) {
	plan, err := New("DAI").CreatePlan(
		[]domain.Token{token("DAI", "0", 1), token("A", "0", 3)},
		dist(map[string]float64{"A": 100}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan) != 0 {
		t.Errorf("plan has %d orders, want 0", len(plan))
	}
}

func TestCreatePlanNegativeValue(t *testing.T) {
	_, err := New("DAI").CreatePlan(
		[]domain.Token{token("DAI", "1", 1), token("A", "10", -5)},
		dist(nil),
	)
	if !errors.Is(err, domain.ErrDegenerateInput) {
		t.Fatalf("err = %v, want ErrDegenerateInput", err)
	}
}

func TestCreatePlanNegativeOwnedAmount(t *testing.T) {
	_, err := New("DAI").CreatePlan(
		[]domain.Token{token("DAI", "1", 1), token("A", "-1", 1)},
		dist(nil),
	)
	if !errors.Is(err, domain.ErrInvariantViolation) {
		t.Fatalf("err = %v, want ErrInvariantViolation", err)
	}
}

func TestCreatePlanWorthlessIntermediateCannotBuy(t *testing.T) {
	_, err := New("DAI").CreatePlan(
		[]domain.Token{token("DAI", "100", 0), token("A", "10", 1)},
		dist(map[string]float64{"A": 50, "B": 50}),
	)
	if err != nil {
		t.Fatalf("sell-only plan should not fail: %v", err)
	}

	_, err = New("DAI").CreatePlan(
		[]domain.Token{token("DAI", "100", 0), token("A", "10", 1), token("B", "0", 1)},
		dist(map[string]float64{"B": 100}),
	)
	if !errors.Is(err, domain.ErrDegenerateInput) {
		t.Fatalf("err = %v, want ErrDegenerateInput", err)
	}
}

func TestCreatePlanThresholdDeadZone(t *testing.T) {
	tests := []struct {
		name      string
		desiredA  float64
		wantOrder bool
	}{
		{"exact match", 50, false},
		{"inside band above", 50.1, false},
		{"inside band below", 49.9, false},
		{"on band edge", 50.2, false},
		{"outside band buy", 50.3, true},
		{"outside band sell", 49.7, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := []domain.Token{token("DAI", "1000", 1), token("A", "1000", 1)}
			plan, err := New("DAI").CreatePlan(tokens, dist(map[string]float64{"A": tt.desiredA, "DAI": 100 - tt.desiredA}))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := len(plan) > 0; got != tt.wantOrder {
				t.Errorf("has order = %v, want %v (plan %v)", got, tt.wantOrder, plan)
			}
		})
	}
}

func TestCreatePlanFullExit(t *testing.T) {
	a := token("A", "3.333333333333333333", 7)
	dai := token("DAI", "10", 1)

	plan, err := New("DAI").CreatePlan([]domain.Token{a, dai}, dist(map[string]float64{"A": 0.00001, "DAI": 99.99999}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan) != 1 {
		t.Fatalf("plan has %d orders, want 1", len(plan))
	}
	if !plan[0].SendAmount.Equal(a.OwnedAmount) {
		t.Errorf("SendAmount = %s, want full owned amount %s", plan[0].SendAmount, a.OwnedAmount)
	}
}

func TestCreatePlanScalesDownUnfundedBuys(t *testing.T) {
	tokens := []domain.Token{
		token("DAI", "100", 1),
		token("A", "100", 1),
		token("B", "0", 5),
		token("C", "0", 2),
	}
	desired := dist(map[string]float64{"A": 50, "B": 25, "C": 25})

	plan, err := New("DAI").CreatePlan(tokens, desired)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// total 200; B and C each want 50 USD; funding is only the 100 DAI balance.
	// unscaled buys 50 + 50 = 100 >= 100 so each is scaled by 0.99.
	want := []domain.PlannedOrder{
		{FromToken: tokens[0], ToToken: tokens[2], SendAmount: decimal.RequireFromString("49.5"), OrderType: domain.OrderTypeSwap},
		{FromToken: tokens[0], ToToken: tokens[3], SendAmount: decimal.RequireFromString("49.5"), OrderType: domain.OrderTypeSwap},
	}
	if diff := cmp.Diff(want, plan, decimalEqual); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}

	spent := Summarize(plan, "DAI").ValueSpent
	if spent.GreaterThan(decimal.NewFromInt(100)) {
		t.Errorf("spent %s exceeds available funding 100", spent)
	}
}

func TestCreatePlanFundedBuysUnscaled(t *testing.T) {
	tokens := []domain.Token{token("DAI", "200", 1), token("A", "0", 4)}

	plan, err := New("DAI").CreatePlan(tokens, dist(map[string]float64{"A": 50, "DAI": 50}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan) != 1 {
		t.Fatalf("plan has %d orders, want 1", len(plan))
	}
	if !plan[0].SendAmount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("SendAmount = %s, want 100", plan[0].SendAmount)
	}
}

func TestCreatePlanSellsBeforeBuysInInputOrder(t *testing.T) {
	tokens := []domain.Token{
		token("B", "0", 1),
		token("A", "100", 1),
		token("DAI", "100", 1),
		token("C", "100", 1),
		token("D", "0", 1),
	}
	desired := dist(map[string]float64{"B": 25, "A": 10, "DAI": 30, "C": 10, "D": 25})

	plan, err := New("DAI").CreatePlan(tokens, desired)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []string
	for _, o := range plan {
		got = append(got, o.FromToken.ID+">"+o.ToToken.ID)
	}
	want := []string{"A>DAI", "C>DAI", "DAI>B", "DAI>D"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestCreatePlanValueConservation(t *testing.T) {
	tokens := []domain.Token{
		token("DAI", "0", 1),
		token("A", "100", 1),
		token("B", "0", 2),
	}
	plan, err := New("DAI").CreatePlan(tokens, dist(map[string]float64{"B": 100}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := Summarize(plan, "DAI")
	if s.Sells != 1 || s.Buys != 1 {
		t.Fatalf("sells=%d buys=%d, want 1 and 1", s.Sells, s.Buys)
	}
	limit := s.ValueSold.Mul(decimal.RequireFromString("0.99"))
	if s.ValueSpent.GreaterThan(limit) {
		t.Errorf("spent %s exceeds 99%% of sold %s", s.ValueSpent, s.ValueSold)
	}
	if s.ValueSpent.LessThan(limit.Sub(decimal.RequireFromString("0.000001"))) {
		t.Errorf("spent %s far below 99%% of sold %s", s.ValueSpent, s.ValueSold)
	}
}

func TestCreatePlanDeterministic(t *testing.T) {
	build := func() []domain.Token {
		return []domain.Token{
			token("DAI", "123.456", 1.0001),
			token("A", "3.1415", 271.8),
			token("B", "0.5", 42),
			token("C", "900", 0.33),
		}
	}
	desired := dist(map[string]float64{"A": 33.3, "B": 33.3, "C": 33.4})

	p := New("DAI")
	first, err := p.CreatePlan(build(), desired)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := p.CreatePlan(build(), desired)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(first, second, decimalEqual); diff != "" {
		t.Errorf("plans differ between calls:\n%s", diff)
	}
}

func TestWithThreshold(t *testing.T) {
	tokens := []domain.Token{token("DAI", "1000", 1), token("A", "1000", 1)}
	desired := dist(map[string]float64{"A": 51, "DAI": 49})

	plan, err := New("DAI", WithThreshold(decimal.RequireFromString("0.05"))).CreatePlan(tokens, desired)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan) != 0 {
		t.Errorf("plan has %d orders, want 0 with a 5%% threshold", len(plan))
	}
}

func TestSummarize(t *testing.T) {
	dai := token("DAI", "0", 1)
	a := token("A", "0", 2)
	plan := []domain.PlannedOrder{
		{FromToken: a, ToToken: a, SendAmount: decimal.NewFromInt(1), OrderType: domain.OrderTypeRedeem},
		{FromToken: a, ToToken: dai, SendAmount: decimal.NewFromInt(3), OrderType: domain.OrderTypeSwap},
		{FromToken: dai, ToToken: a, SendAmount: decimal.NewFromInt(4), OrderType: domain.OrderTypeSwap},
		{FromToken: dai, ToToken: dai, SendAmount: decimal.NewFromInt(1), OrderType: domain.OrderTypeDeposit},
	}

	s := Summarize(plan, "DAI")
	if s.Orders != 4 || s.Redeems != 1 || s.Sells != 1 || s.Buys != 1 || s.Deposits != 1 {
		t.Errorf("counts = %+v", s)
	}
	if !s.ValueSold.Equal(decimal.NewFromInt(6)) {
		t.Errorf("ValueSold = %s, want 6", s.ValueSold)
	}
	if !s.ValueSpent.Equal(decimal.NewFromInt(4)) {
		t.Errorf("ValueSpent = %s, want 4", s.ValueSpent)
	}
}
