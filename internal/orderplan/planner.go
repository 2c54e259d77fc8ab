// Package orderplan turns a current vs desired portfolio distribution into
// swap orders routed through a single intermediate currency.
package orderplan

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/rebalance/internal/domain"
)

var (
	// DefaultThreshold is the minimum drift (0.2%) that produces an order.
	DefaultThreshold = decimal.RequireFromString("0.002")

	// fullExitFraction: targets below this sell the entire holding.
	fullExitFraction = decimal.RequireFromString("0.000001")
	// fundingMargin leaves room for rounding and slippage when buys are scaled down.
	fundingMargin = decimal.RequireFromString("0.99")
)

// Planner generates order plans. It holds no state between calls.
type Planner struct {
	intermediate string
	threshold    decimal.Decimal
}

// Option configures a Planner.
type Option func(*Planner)

// WithThreshold overrides DefaultThreshold. The value is a fraction, not a percentage.
func WithThreshold(threshold decimal.Decimal) Option {
	return func(p *Planner) {
		p.threshold = threshold
	}
}

// New creates a Planner that routes every order through the token whose id or name is intermediate.
func New(intermediate string, opts ...Option) *Planner {
	p := &Planner{
		intermediate: intermediate,
		threshold:    DefaultThreshold,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Intermediate returns the configured intermediate currency id or name.
func (p *Planner) Intermediate() string {
	return p.intermediate
}

// FindIntermediate returns the first token matching the intermediate currency by id or name.
func (p *Planner) FindIntermediate(tokens []domain.Token) (domain.Token, bool) {
	return lo.Find(tokens, func(t domain.Token) bool {
		return t.ID == p.intermediate || t.Name == p.intermediate
	})
}

// CreatePlan emits sell orders (token -> intermediate) followed by buy orders
// (intermediate -> token), both in input order. Buys are scaled down when the
// intermediate balance plus sell proceeds cannot fund them.
func (p *Planner) CreatePlan(tokens []domain.Token, desired domain.Distribution) ([]domain.PlannedOrder, error) {
	switchToken, ok := p.FindIntermediate(tokens)
	if !ok {
		return nil, fmt.Errorf("holdings must contain intermediate currency %q: %w", p.intermediate, domain.ErrConfiguration)
	}

	for _, t := range tokens {
		if t.OwnedAmount.IsNegative() {
			return nil, fmt.Errorf("token %s has negative owned amount %s: %w", t.ID, t.OwnedAmount, domain.ErrInvariantViolation)
		}
	}

	totalValue := lo.Reduce(tokens, func(acc decimal.Decimal, t domain.Token, _ int) decimal.Decimal {
		return acc.Add(t.HoldingValue())
	}, decimal.Zero)
	if totalValue.IsNegative() {
		return nil, fmt.Errorf("total portfolio value %s: %w", totalValue, domain.ErrDegenerateInput)
	}
	if totalValue.IsZero() {
		return []domain.PlannedOrder{}, nil
	}

	band := p.threshold.Mul(totalValue)
	switchValue := switchToken.UnitValue()

	var (
		sells       []domain.PlannedOrder
		buys        []domain.PlannedOrder
		valueSold   = decimal.Zero
		valueBought = decimal.Zero
	)
	for _, t := range tokens {
		if t.ID == switchToken.ID {
			continue
		}

		desiredFraction := domain.ParseDecimal(desired.Percentage(t.ID)).Shift(-2)
		// delta expressed in value: (currentFraction - desiredFraction) * totalValue
		deltaValue := t.HoldingValue().Sub(desiredFraction.Mul(totalValue))

		switch {
		case deltaValue.GreaterThan(band):
			valueSold = valueSold.Add(deltaValue)
			amount := domain.TruncateDiv(deltaValue, t.UnitValue(), domain.MaxScale)
			if desiredFraction.LessThan(fullExitFraction) {
				amount = t.OwnedAmount
			}
			sells = append(sells, domain.PlannedOrder{
				FromToken:  t,
				ToToken:    switchToken,
				SendAmount: amount,
				OrderType:  domain.OrderTypeSwap,
			})
		case deltaValue.Neg().GreaterThan(band):
			if !switchValue.IsPositive() {
				return nil, fmt.Errorf("intermediate currency %s has no value to buy %s with: %w", switchToken.ID, t.ID, domain.ErrDegenerateInput)
			}
			buyValue := deltaValue.Neg()
			valueBought = valueBought.Add(buyValue)
			buys = append(buys, domain.PlannedOrder{
				FromToken:  switchToken,
				ToToken:    t,
				SendAmount: domain.TruncateDiv(buyValue, switchValue, domain.MaxScale),
				OrderType:  domain.OrderTypeSwap,
			})
		}
	}

	funding := valueSold.Add(switchToken.HoldingValue())
	if len(buys) > 0 && valueBought.GreaterThanOrEqual(funding) {
		// Some sells may sit inside the threshold band, so the buys cannot all be funded.
		budget := funding.Mul(fundingMargin)
		buys = lo.Map(buys, func(o domain.PlannedOrder, _ int) domain.PlannedOrder {
			o.SendAmount = domain.TruncateDiv(o.SendAmount.Mul(budget), valueBought, domain.MaxScale)
			return o
		})
	}

	orders := make([]domain.PlannedOrder, 0, len(sells)+len(buys))
	orders = append(orders, sells...)
	return append(orders, buys...), nil
}

// Summary aggregates the numeraire value moved by a plan.
type Summary struct {
	Orders     int             `json:"orders"`
	Sells      int             `json:"sells"`
	Buys       int             `json:"buys"`
	Redeems    int             `json:"redeems"`
	Deposits   int             `json:"deposits"`
	ValueSold  decimal.Decimal `json:"valueSold"`
	ValueSpent decimal.Decimal `json:"valueSpent"`
}

// Summarize counts orders by kind and totals sold and spent value.
// A swap out of intermediate is a buy; any other swap is a sell.
func Summarize(plan []domain.PlannedOrder, intermediateID string) Summary {
	s := Summary{Orders: len(plan), ValueSold: decimal.Zero, ValueSpent: decimal.Zero}
	for _, o := range plan {
		switch {
		case o.OrderType == domain.OrderTypeRedeem:
			s.Redeems++
		case o.OrderType == domain.OrderTypeDeposit:
			s.Deposits++
		case o.FromToken.ID == intermediateID:
			s.Buys++
			s.ValueSpent = s.ValueSpent.Add(o.SendValue())
		default:
			s.Sells++
			s.ValueSold = s.ValueSold.Add(o.SendValue())
		}
	}
	return s
}
