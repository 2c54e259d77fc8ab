// Package staking makes order plans aware of staked (illiquid) balances.
package staking

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/rebalance/internal/domain"
)

// ReduceTokens merges liquid and staked variants that share a symbol into one
// token per symbol, in first-seen symbol order. A staked variant is any token
// with a Staking extension; its StakedUnderlyingValue is added to both the
// owned and the staked amount of the liquid variant. Every result carries a
// Staking extension. A symbol whose only token already carries one is taken
// as merged and passed through.
func ReduceTokens(all []domain.Token) ([]domain.Token, error) {
	symbols := lo.Uniq(lo.Map(all, func(t domain.Token, _ int) string { return t.Symbol }))
	bySymbol := lo.GroupBy(all, func(t domain.Token) string { return t.Symbol })

	result := make([]domain.Token, 0, len(symbols))
	for _, symbol := range symbols {
		variants := bySymbol[symbol]

		if len(variants) == 1 && variants[0].IsStaked() {
			merged := variants[0].Clone()
			if err := checkHolding(merged); err != nil {
				return nil, err
			}
			result = append(result, merged)
			continue
		}

		liquid := lo.Filter(variants, func(t domain.Token, _ int) bool { return !t.IsStaked() })
		switch len(liquid) {
		case 0:
			return nil, fmt.Errorf("symbol %s only has staked tokens: %w", symbol, domain.ErrConfiguration)
		case 1:
		default:
			return nil, fmt.Errorf("symbol %s has %d unstaked tokens: %w", symbol, len(liquid), domain.ErrConfiguration)
		}

		merged := liquid[0].Clone()
		merged.Staking = &domain.Staking{
			StakedUnderlyingValue: decimal.Zero,
			Description:           fmt.Sprintf("%s %s", merged.OwnedAmount, symbol),
		}
		for _, staked := range variants {
			if !staked.IsStaked() {
				continue
			}
			amount := staked.Staking.StakedUnderlyingValue
			if amount.IsNegative() {
				return nil, fmt.Errorf("staked variant %s of %s has negative amount %s: %w",
					staked.ID, symbol, amount, domain.ErrInvariantViolation)
			}
			merged.OwnedAmount = merged.OwnedAmount.Add(amount)
			merged.Staking.StakedUnderlyingValue = merged.Staking.StakedUnderlyingValue.Add(amount)
			if staked.Staking.Description != "" {
				merged.Staking.Description += "\n" + staked.Staking.Description
			}
			merged.Staking.HasStaked = true
		}
		result = append(result, merged)
	}
	return result, nil
}

// checkHolding enforces 0 <= staked <= owned.
func checkHolding(t domain.Token) error {
	staked := t.StakedAmount()
	switch {
	case t.OwnedAmount.IsNegative():
		return fmt.Errorf("token %s owns %s: %w", t.ID, t.OwnedAmount, domain.ErrInvariantViolation)
	case staked.IsNegative():
		return fmt.Errorf("token %s has negative staked amount %s: %w", t.ID, staked, domain.ErrInvariantViolation)
	case domain.Compare(staked, t.OwnedAmount) > 0:
		return fmt.Errorf("token %s stakes %s of %s owned: %w", t.ID, staked, t.OwnedAmount, domain.ErrInvariantViolation)
	}
	return nil
}
