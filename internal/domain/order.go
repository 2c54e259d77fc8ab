package domain

import "github.com/shopspring/decimal"

// OrderType tells the execution layer which collaborator handles an order.
type OrderType string

const (
	// OrderTypeSwap converts FromToken into ToToken through the intermediate currency.
	OrderTypeSwap OrderType = "SWAP"
	// OrderTypeDeposit wraps free liquidity into a staked position.
	OrderTypeDeposit OrderType = "DEPOSIT"
	// OrderTypeRedeem unwraps staked liquidity back into free balance.
	OrderTypeRedeem OrderType = "REDEEM"
)

// PlannedOrder is one instruction of an order plan.
// SendAmount is denominated in FromToken units.
type PlannedOrder struct {
	FromToken  Token           `json:"fromToken"`
	ToToken    Token           `json:"toToken"`
	SendAmount decimal.Decimal `json:"sendAmount"`
	OrderType  OrderType       `json:"orderType"`
}

// SendValue returns the order's value in the numeraire.
func (o PlannedOrder) SendValue() decimal.Decimal {
	return o.SendAmount.Mul(o.FromToken.UnitValue())
}

// Distribution is a named target: token id -> percentage (0-100).
// Ids missing from Map target zero.
type Distribution struct {
	Name string             `json:"name"`
	Map  map[string]float64 `json:"map"`
}

// Percentage returns the target for id, zero if absent.
func (d Distribution) Percentage(id string) float64 {
	return d.Map[id]
}
