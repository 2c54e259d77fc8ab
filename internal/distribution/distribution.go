// Package distribution builds named target distributions from a token list.
package distribution

import (
	"fmt"
	"math"
	"slices"

	"github.com/samber/lo"

	"github.com/mtlprog/rebalance/internal/domain"
)

// Preset names.
const (
	NameEqual      = "All Equal"
	NameETHAndBAT  = "Only ETH and BAT"
	maxTotalPct    = 100.0
	totalTolerance = 1e-9
)

// EqualWeight assigns every token the same share.
func EqualWeight(tokens []domain.Token) domain.Distribution {
	m := make(map[string]float64, len(tokens))
	for _, t := range tokens {
		m[t.ID] = maxTotalPct / float64(len(tokens))
	}
	return domain.Distribution{Name: NameEqual, Map: m}
}

// Filtered splits 100% equally among tokens whose symbol is listed.
func Filtered(name string, tokens []domain.Token, symbols ...string) domain.Distribution {
	matching := lo.Filter(tokens, func(t domain.Token, _ int) bool {
		return lo.Contains(symbols, t.Symbol)
	})
	m := make(map[string]float64, len(matching))
	for _, t := range matching {
		m[t.ID] = maxTotalPct / float64(len(matching))
	}
	return domain.Distribution{Name: name, Map: m}
}

// Presets returns the built-in distributions for tokens.
func Presets(tokens []domain.Token) []domain.Distribution {
	return []domain.Distribution{
		EqualWeight(tokens),
		Filtered(NameETHAndBAT, tokens, "WETH", "BAT"),
	}
}

// Find returns the distribution with the given name.
func Find(distributions []domain.Distribution, name string) (domain.Distribution, bool) {
	return lo.Find(distributions, func(d domain.Distribution) bool {
		return d.Name == name
	})
}

// Validate checks that every percentage is within 0-100 and the total does not exceed 100.
func Validate(d domain.Distribution) error {
	total := 0.0
	for id, pct := range d.Map {
		if math.IsNaN(pct) || pct < 0 || pct > maxTotalPct {
			return fmt.Errorf("distribution %q: %s has percentage %v: %w", d.Name, id, pct, domain.ErrDegenerateInput)
		}
		total += pct
	}
	if total > maxTotalPct+totalTolerance {
		return fmt.Errorf("distribution %q sums to %v%%: %w", d.Name, total, domain.ErrDegenerateInput)
	}
	return nil
}

// Current returns the present value share of each held token, in percent rounded to 0.1.
// Tokens with nothing owned are left out; an empty portfolio yields an empty map.
func Current(tokens []domain.Token) domain.Distribution {
	m := make(map[string]float64)
	total := lo.SumBy(tokens, func(t domain.Token) float64 {
		return t.OwnedAmount.InexactFloat64() * t.Value
	})
	if total <= 0 {
		return domain.Distribution{Name: "Current", Map: m}
	}
	for _, t := range tokens {
		if !t.OwnedAmount.IsPositive() {
			continue
		}
		part := t.OwnedAmount.InexactFloat64() * t.Value / total
		m[t.ID] = math.Round(part*100*10) / 10
	}
	return domain.Distribution{Name: "Current", Map: m}
}

// Change summarizes how far an edited distribution moved from the original one.
type Change struct {
	Message       string  `json:"message"`
	HasChanges    bool    `json:"hasChanges"`
	TokensChanged int     `json:"tokensChanged"`
	TokensTotal   int     `json:"tokensTotal"`
	Adjustment    float64 `json:"adjustment"`
}

// CompareChange counts tokens whose percentage moved between old and current,
// and the total absolute percentage moved. Tokens at zero in both are ignored.
func CompareChange(current, old map[string]float64) Change {
	var c Change
	ids := lo.Keys(current)
	slices.Sort(ids)
	for _, id := range ids {
		pct, original := current[id], old[id]
		if pct <= 0 && original <= 0 {
			continue
		}
		c.Adjustment += math.Abs(pct - original)
		c.TokensTotal++
		if pct != original {
			c.TokensChanged++
		}
	}
	c.HasChanges = c.TokensChanged > 0
	c.Message = fmt.Sprintf("%d / %d changed, %.1f %% total portfolio adjustment.", c.TokensChanged, c.TokensTotal, c.Adjustment)
	return c
}
