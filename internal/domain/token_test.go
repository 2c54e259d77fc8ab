package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestTokenFreeAmount(t *testing.T) {
	plain := Token{OwnedAmount: decimal.NewFromInt(5)}
	if !plain.FreeAmount().Equal(decimal.NewFromInt(5)) {
		t.Errorf("plain FreeAmount = %s, want 5", plain.FreeAmount())
	}

	staked := Token{
		OwnedAmount: decimal.NewFromInt(15),
		Staking:     &Staking{StakedUnderlyingValue: decimal.NewFromInt(10), HasStaked: true},
	}
	if !staked.FreeAmount().Equal(decimal.NewFromInt(5)) {
		t.Errorf("staked FreeAmount = %s, want 5", staked.FreeAmount())
	}
	if !staked.IsStaked() {
		t.Error("IsStaked() = false, want true")
	}
}

func TestTokenHoldingValue(t *testing.T) {
	tok := Token{OwnedAmount: decimal.NewFromInt(10), Value: 2000}
	if !tok.HoldingValue().Equal(decimal.NewFromInt(20000)) {
		t.Errorf("HoldingValue = %s, want 20000", tok.HoldingValue())
	}
}

func TestTokenCloneIsDeep(t *testing.T) {
	orig := Token{
		ID:          "a",
		OwnedAmount: decimal.NewFromInt(1),
		Staking:     &Staking{StakedUnderlyingValue: decimal.NewFromInt(1)},
	}
	c := orig.Clone()
	c.Staking.StakedUnderlyingValue = decimal.Zero

	if orig.Staking.StakedUnderlyingValue.IsZero() {
		t.Error("mutating clone changed original staking")
	}
}

func TestDistributionPercentageDefaultsToZero(t *testing.T) {
	d := Distribution{Name: "x", Map: map[string]float64{"a": 40}}
	if got := d.Percentage("a"); got != 40 {
		t.Errorf("Percentage(a) = %v, want 40", got)
	}
	if got := d.Percentage("missing"); got != 0 {
		t.Errorf("Percentage(missing) = %v, want 0", got)
	}
}
