package domain

import (
	"github.com/shopspring/decimal"
)

// Token is one fungible position in a portfolio snapshot.
// A nil Staking means a plain liquid holding.
type Token struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Symbol      string          `json:"symbol"`
	Decimals    int32           `json:"decimals"`
	OwnedAmount decimal.Decimal `json:"ownedAmount"`
	// Value is the unit price in the common numeraire (USD). It only weights ratios.
	Value   float64  `json:"value"`
	Staking *Staking `json:"staking,omitempty"`
}

// Staking is the illiquid part of a holding.
// StakedUnderlyingValue is expressed in the same unit as OwnedAmount and is included in it.
type Staking struct {
	StakedUnderlyingValue decimal.Decimal `json:"stakedUnderlyingValue"`
	HasStaked             bool            `json:"hasStaked"`
	Description           string          `json:"description,omitempty"`
}

// IsStaked returns true if the token carries a staking extension.
func (t Token) IsStaked() bool {
	return t.Staking != nil
}

// StakedAmount returns the staked sub-balance, zero for plain holdings.
func (t Token) StakedAmount() decimal.Decimal {
	if t.Staking == nil {
		return decimal.Zero
	}
	return t.Staking.StakedUnderlyingValue
}

// FreeAmount returns the liquid balance: owned minus staked.
func (t Token) FreeAmount() decimal.Decimal {
	return t.OwnedAmount.Sub(t.StakedAmount())
}

// UnitValue returns Value as a decimal.
func (t Token) UnitValue() decimal.Decimal {
	return ParseDecimal(t.Value)
}

// HoldingValue returns OwnedAmount * Value in the numeraire.
func (t Token) HoldingValue() decimal.Decimal {
	return t.OwnedAmount.Mul(t.UnitValue())
}

// Clone returns a deep copy so callers can mutate balances without touching the original.
func (t Token) Clone() Token {
	if t.Staking != nil {
		s := *t.Staking
		t.Staking = &s
	}
	return t
}
