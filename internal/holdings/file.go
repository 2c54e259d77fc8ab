// Package holdings loads portfolio snapshots for planning.
package holdings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/rebalance/internal/domain"
)

// PriceFetcher returns symbol -> USD price for the requested symbols.
type PriceFetcher interface {
	FetchPrices(ctx context.Context, symbols []string) (map[string]float64, error)
}

// FileSource reads a JSON array of tokens from disk.
type FileSource struct {
	path   string
	prices PriceFetcher
}

// NewFileSource creates a FileSource. prices may be nil, in which case
// token values are taken from the file as-is.
func NewFileSource(path string, prices PriceFetcher) *FileSource {
	return &FileSource{path: path, prices: prices}
}

// Load reads the snapshot, normalizes owned amounts to each token's decimals
// and fills zero values from the price fetcher.
func (s *FileSource) Load(ctx context.Context) ([]domain.Token, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", s.path, err)
	}
	tokens, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", s.path, err)
	}

	if s.prices == nil {
		return tokens, nil
	}
	if err := fillValues(ctx, s.prices, tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

// Decode parses a JSON token list and checks each amount is representable
// on-chain at the token's decimals.
func Decode(data []byte) ([]domain.Token, error) {
	var tokens []domain.Token
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("parsing tokens: %w", err)
	}

	for i := range tokens {
		t := &tokens[i]
		if t.ID == "" {
			return nil, fmt.Errorf("token %d has no id: %w", i, domain.ErrInvariantViolation)
		}
		if t.Decimals < 0 || t.Decimals > domain.MaxScale {
			return nil, fmt.Errorf("token %s has %d decimals: %w", t.ID, t.Decimals, domain.ErrInvariantViolation)
		}
		owned, err := normalizeAmount(t.OwnedAmount, t.Decimals)
		if err != nil {
			return nil, fmt.Errorf("token %s owned amount: %v: %w", t.ID, err, domain.ErrInvariantViolation)
		}
		t.OwnedAmount = owned
		if t.Staking != nil {
			staked, err := normalizeAmount(t.Staking.StakedUnderlyingValue, t.Decimals)
			if err != nil {
				return nil, fmt.Errorf("token %s staked amount: %v: %w", t.ID, err, domain.ErrInvariantViolation)
			}
			t.Staking.StakedUnderlyingValue = staked
		}
	}
	return tokens, nil
}

// normalizeAmount truncates v to decimals and round-trips it through the
// token's integer minor units, rejecting negative and oversized amounts.
func normalizeAmount(v decimal.Decimal, decimals int32) (decimal.Decimal, error) {
	minor, err := domain.ToMinorUnits(domain.ReduceDecimals(v, decimals), decimals)
	if err != nil {
		return decimal.Zero, err
	}
	return domain.FromMinorUnits(minor, decimals), nil
}

func fillValues(ctx context.Context, prices PriceFetcher, tokens []domain.Token) error {
	unpriced := lo.Uniq(lo.FilterMap(tokens, func(t domain.Token, _ int) (string, bool) {
		return t.Symbol, t.Value == 0
	}))
	if len(unpriced) == 0 {
		return nil
	}

	fetched, err := prices.FetchPrices(ctx, unpriced)
	if err != nil {
		return fmt.Errorf("fetching prices: %w", err)
	}
	for i := range tokens {
		if tokens[i].Value != 0 {
			continue
		}
		p, ok := fetched[tokens[i].Symbol]
		if !ok {
			slog.Warn("no price for token, keeping zero value", "token", tokens[i].ID, "symbol", tokens[i].Symbol)
			continue
		}
		tokens[i].Value = p
	}
	return nil
}
