package domain

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// MaxScale is the number of fractional digits every planned amount is truncated to.
const MaxScale = 18

// ParseDecimal converts a float into a decimal by truncating its shortest string
// representation to MaxScale fractional digits. The result never exceeds the input.
// NaN and infinities yield zero.
func ParseDecimal(n float64) decimal.Decimal {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return decimal.Zero
	}
	s := strconv.FormatFloat(n, 'f', -1, 64)
	intPart, frac, found := strings.Cut(s, ".")
	if found && len(frac) > MaxScale {
		s = intPart + "." + frac[:MaxScale]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ReduceDecimals truncates the fractional part of value to at most decimals digits.
func ReduceDecimals(value decimal.Decimal, decimals int32) decimal.Decimal {
	if decimals < 0 {
		decimals = 0
	}
	return value.Truncate(decimals)
}

// Compare orders a and b by their MaxScale minor-unit integers: -1, 0 or 1.
func Compare(a, b decimal.Decimal) int {
	return minorInt(a, MaxScale).Cmp(minorInt(b, MaxScale))
}

// TruncateDiv returns a/b truncated toward zero at scale fractional digits.
// Division by zero yields zero.
func TruncateDiv(a, b decimal.Decimal, scale int32) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	q, _ := a.QuoRem(b, scale)
	return q
}

// ToMinorUnits converts value into its integer minor-unit amount (e.g. wei for 18 decimals).
// Digits beyond the token precision are dropped.
func ToMinorUnits(value decimal.Decimal, decimals int32) (*uint256.Int, error) {
	if value.IsNegative() {
		return nil, fmt.Errorf("negative amount %s", value)
	}
	n, overflow := uint256.FromBig(minorInt(value, decimals))
	if overflow {
		return nil, fmt.Errorf("amount %s overflows 256 bits at %d decimals", value, decimals)
	}
	return n, nil
}

// FromMinorUnits converts an integer minor-unit amount back into a decimal.
func FromMinorUnits(n *uint256.Int, decimals int32) decimal.Decimal {
	if n == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.ToBig(), -decimals)
}

func minorInt(value decimal.Decimal, decimals int32) *big.Int {
	return value.Shift(decimals).Truncate(0).BigInt()
}

// FormatDisplay renders a value for humans:
// below 1e-8 "too small", from 10 two decimals, from 1 three decimals,
// otherwise enough decimals for two significant digits.
func FormatDisplay(v float64) string {
	if v == 0 {
		return "0"
	}
	abs := math.Abs(v)
	switch {
	case abs < 1e-8:
		return "too small"
	case abs >= 10:
		return decimal.NewFromFloat(v).StringFixed(2)
	case abs >= 1:
		return decimal.NewFromFloat(v).StringFixed(3)
	}
	places := int32(-math.Floor(math.Log10(abs))) + 1
	return decimal.NewFromFloat(v).StringFixed(places)
}
