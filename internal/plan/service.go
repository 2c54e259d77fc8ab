// Package plan generates, stores and publishes rebalancing order plans.
package plan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/rebalance/internal/distribution"
	"github.com/mtlprog/rebalance/internal/domain"
	"github.com/mtlprog/rebalance/internal/orderplan"
	"github.com/mtlprog/rebalance/internal/staking"
)

// Request is the input of one plan generation.
// StakeableSymbols overrides the service default when non-empty.
type Request struct {
	Tokens           []domain.Token      `json:"tokens"`
	Distribution     domain.Distribution `json:"distribution"`
	StakeableSymbols []string            `json:"stakeableSymbols,omitempty"`
}

// Record is a generated plan together with the inputs it was computed from.
type Record struct {
	ID           uuid.UUID             `json:"id"`
	CreatedAt    time.Time             `json:"createdAt"`
	Distribution domain.Distribution   `json:"distribution"`
	TotalValue   decimal.Decimal       `json:"totalValue"`
	Tokens       []domain.Token        `json:"tokens"`
	Orders       []domain.PlannedOrder `json:"orders"`
	Summary      orderplan.Summary     `json:"summary"`
}

// HoldingsSource provides the current portfolio snapshot.
type HoldingsSource interface {
	Load(ctx context.Context) ([]domain.Token, error)
}

// Exporter publishes a generated plan somewhere outside the service.
type Exporter interface {
	Export(ctx context.Context, rec Record) error
}

// Metrics records plan generation outcomes.
type Metrics interface {
	ObservePlan(orders []domain.PlannedOrder, totalValue float64, elapsed time.Duration)
	ObserveFailure(err error)
}

// Service runs reduce -> plan -> wrap and keeps the results.
type Service struct {
	planner   *orderplan.Planner
	wrapper   *staking.Wrapper
	repo      Repository
	source    HoldingsSource
	preset    string
	metrics   Metrics
	exporters []Exporter
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithSource enables GenerateFromSource using the named distribution preset.
func WithSource(source HoldingsSource, preset string) Option {
	return func(s *Service) {
		s.source = source
		s.preset = preset
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithExporters attaches exporters run after every successful plan.
func WithExporters(exporters ...Exporter) Option {
	return func(s *Service) {
		s.exporters = append(s.exporters, exporters...)
	}
}

// NewService creates a plan Service.
func NewService(planner *orderplan.Planner, wrapper *staking.Wrapper, repo Repository, opts ...Option) *Service {
	if planner == nil || wrapper == nil || repo == nil {
		panic("plan.NewService: all dependencies must be non-nil")
	}
	s := &Service{
		planner: planner,
		wrapper: wrapper,
		repo:    repo,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate computes a plan for req, saves it and runs the exporters.
// Exporter failures are logged and do not fail the plan.
func (s *Service) Generate(ctx context.Context, req Request) (Record, error) {
	start := s.now()
	rec, err := s.build(req)
	if err != nil {
		s.observeFailure(err)
		return Record{}, err
	}

	if err := s.repo.Save(ctx, rec); err != nil {
		err = fmt.Errorf("saving plan: %w", err)
		s.observeFailure(err)
		return Record{}, err
	}

	if s.metrics != nil {
		s.metrics.ObservePlan(rec.Orders, rec.TotalValue.InexactFloat64(), s.now().Sub(start))
	}
	slog.Info("plan generated",
		"id", rec.ID,
		"distribution", rec.Distribution.Name,
		"intermediate", s.planner.Intermediate(),
		"orders", len(rec.Orders),
		"total_value", rec.TotalValue.StringFixed(2))

	for _, e := range s.exporters {
		if err := e.Export(ctx, rec); err != nil {
			slog.Warn("plan export failed", "id", rec.ID, "error", err)
		}
	}
	return rec, nil
}

func (s *Service) build(req Request) (Record, error) {
	if err := distribution.Validate(req.Distribution); err != nil {
		return Record{}, err
	}

	tokens, err := Prepare(req.Tokens)
	if err != nil {
		return Record{}, fmt.Errorf("reducing tokens: %w", err)
	}

	orders, err := s.planner.CreatePlan(tokens, req.Distribution)
	if err != nil {
		return Record{}, fmt.Errorf("creating plan: %w", err)
	}

	wrapper := s.wrapper
	if len(req.StakeableSymbols) > 0 {
		wrapper = wrapper.WithSymbols(req.StakeableSymbols)
	}
	orders, err = wrapper.WrapDeposits(tokens, orders)
	if err != nil {
		return Record{}, fmt.Errorf("wrapping deposits: %w", err)
	}

	intermediate, _ := s.planner.FindIntermediate(tokens)
	return Record{
		ID:           uuid.New(),
		CreatedAt:    s.now().UTC(),
		Distribution: req.Distribution,
		TotalValue: lo.Reduce(tokens, func(acc decimal.Decimal, t domain.Token, _ int) decimal.Decimal {
			return acc.Add(t.HoldingValue())
		}, decimal.Zero),
		Tokens:  tokens,
		Orders:  orders,
		Summary: orderplan.Summarize(orders, intermediate.ID),
	}, nil
}

// GenerateFromSource loads holdings from the configured source and plans
// toward the configured preset.
func (s *Service) GenerateFromSource(ctx context.Context) (Record, error) {
	if s.source == nil {
		return Record{}, fmt.Errorf("no holdings source configured: %w", domain.ErrConfiguration)
	}

	raw, err := s.source.Load(ctx)
	if err != nil {
		s.observeFailure(err)
		return Record{}, fmt.Errorf("loading holdings: %w", err)
	}

	tokens, err := Prepare(raw)
	if err != nil {
		s.observeFailure(err)
		return Record{}, fmt.Errorf("reducing tokens: %w", err)
	}
	target, ok := distribution.Find(distribution.Presets(tokens), s.preset)
	if !ok {
		err := fmt.Errorf("unknown distribution preset %q: %w", s.preset, domain.ErrConfiguration)
		s.observeFailure(err)
		return Record{}, err
	}

	return s.Generate(ctx, Request{Tokens: raw, Distribution: target})
}

// GetLatest retrieves the most recent plan.
func (s *Service) GetLatest(ctx context.Context) (*Record, error) {
	return s.repo.GetLatest(ctx)
}

// GetByID retrieves a plan by id.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.repo.GetByID(ctx, id)
}

// List retrieves recent plans, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]Record, error) {
	return s.repo.List(ctx, limit)
}

func (s *Service) observeFailure(err error) {
	if s.metrics != nil {
		s.metrics.ObserveFailure(err)
	}
}

// Prepare reduces raw holdings to one staking-aware token per symbol.
func Prepare(tokens []domain.Token) ([]domain.Token, error) {
	return staking.ReduceTokens(tokens)
}
