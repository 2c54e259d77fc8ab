package staking

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/rebalance/internal/domain"
)

// DefaultDepositFloor is the minimum free value (USD) worth re-depositing.
var DefaultDepositFloor = decimal.NewFromInt(10)

// Wrapper inserts REDEEM and DEPOSIT steps around a swap plan.
type Wrapper struct {
	stakeable    map[string]bool
	depositFloor decimal.Decimal
}

// NewWrapper creates a Wrapper for the symbols a staking handler exists for.
func NewWrapper(stakeableSymbols []string, depositFloor decimal.Decimal) *Wrapper {
	return &Wrapper{
		stakeable:    lo.SliceToMap(stakeableSymbols, func(s string) (string, bool) { return s, true }),
		depositFloor: depositFloor,
	}
}

// Stakeable reports whether a staking handler exists for symbol.
func (w *Wrapper) Stakeable(symbol string) bool {
	return w.stakeable[symbol]
}

// WithSymbols returns a Wrapper with the same deposit floor for a different set of stakeable symbols.
func (w *Wrapper) WithSymbols(stakeableSymbols []string) *Wrapper {
	return NewWrapper(stakeableSymbols, w.depositFloor)
}

// WrapDeposits replays plan against a copy of tokens. Sells that dip into a
// staked balance get a REDEEM for the shortfall placed at the front; staked
// tokens left with free value above the deposit floor get a trailing DEPOSIT.
// The result is [REDEEM...] + plan + [DEPOSIT...].
// Every token must satisfy 0 <= staked <= owned on entry.
func (w *Wrapper) WrapDeposits(tokens []domain.Token, plan []domain.PlannedOrder) ([]domain.PlannedOrder, error) {
	for _, t := range tokens {
		if err := checkHolding(t); err != nil {
			return nil, err
		}
	}

	original := lo.KeyBy(tokens, func(t domain.Token) string { return t.ID })
	running := lo.MapValues(original, func(t domain.Token, _ string) *domain.Token {
		c := t.Clone()
		return &c
	})

	redeemAmounts := make(map[string]decimal.Decimal)
	var redeemOrder []string

	for i, order := range plan {
		from, ok := running[order.FromToken.ID]
		if !ok {
			return nil, fmt.Errorf("order %d sends unknown token %s: %w", i, order.FromToken.ID, domain.ErrInvariantViolation)
		}
		to, ok := running[order.ToToken.ID]
		if !ok {
			return nil, fmt.Errorf("order %d receives unknown token %s: %w", i, order.ToToken.ID, domain.ErrInvariantViolation)
		}

		from.OwnedAmount = from.OwnedAmount.Sub(order.SendAmount)
		if toValue := to.UnitValue(); toValue.IsPositive() {
			received := domain.TruncateDiv(order.SendAmount.Mul(from.UnitValue()), toValue, domain.MaxScale)
			to.OwnedAmount = to.OwnedAmount.Add(received)
		}

		if from.OwnedAmount.IsNegative() {
			return nil, fmt.Errorf("order %d oversells %s by %s: %w", i, from.ID, from.OwnedAmount.Neg(), domain.ErrInvariantViolation)
		}
		if !from.IsStaked() {
			continue
		}

		free := from.FreeAmount()
		if !free.IsNegative() {
			continue
		}
		shortfall := free.Neg()
		if _, seen := redeemAmounts[from.ID]; !seen {
			redeemOrder = append(redeemOrder, from.ID)
			redeemAmounts[from.ID] = decimal.Zero
		}
		redeemAmounts[from.ID] = redeemAmounts[from.ID].Add(shortfall)
		// The redeem releases the shortfall, so later orders only count new dips.
		// The total redeemed per token is its deepest cumulative dip below free,
		// not the sum of every order's individual shortfall.
		from.Staking.StakedUnderlyingValue = from.Staking.StakedUnderlyingValue.Sub(shortfall)
	}

	redeems := make([]domain.PlannedOrder, 0, len(redeemOrder))
	for _, id := range redeemOrder {
		tok := original[id]
		if !w.stakeable[tok.Symbol] {
			return nil, fmt.Errorf("plan needs %s %s redeemed but no staking handler exists: %w",
				redeemAmounts[id], tok.Symbol, domain.ErrConfiguration)
		}
		redeems = append(redeems, domain.PlannedOrder{
			FromToken:  tok,
			ToToken:    tok,
			SendAmount: redeemAmounts[id],
			OrderType:  domain.OrderTypeRedeem,
		})
	}

	var deposits []domain.PlannedOrder
	for _, tok := range tokens {
		if !tok.IsStaked() || !w.stakeable[tok.Symbol] {
			continue
		}
		final := running[tok.ID]
		if domain.Compare(final.StakedAmount(), final.OwnedAmount) > 0 {
			return nil, fmt.Errorf("staked %s exceeds owned %s for %s: %w",
				final.StakedAmount(), final.OwnedAmount, tok.ID, domain.ErrInvariantViolation)
		}
		free := final.FreeAmount()
		if free.Mul(final.UnitValue()).GreaterThan(w.depositFloor) {
			deposits = append(deposits, domain.PlannedOrder{
				FromToken:  tok,
				ToToken:    tok,
				SendAmount: free,
				OrderType:  domain.OrderTypeDeposit,
			})
		}
	}

	result := make([]domain.PlannedOrder, 0, len(redeems)+len(plan)+len(deposits))
	result = append(result, redeems...)
	result = append(result, plan...)
	return append(result, deposits...), nil
}
