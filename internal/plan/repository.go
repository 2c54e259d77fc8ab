package plan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates that the requested plan was not found.
var ErrNotFound = errors.New("plan not found")

const defaultListLimit = 30

// Repository defines persistent storage for generated plans.
type Repository interface {
	Save(ctx context.Context, rec Record) error
	GetLatest(ctx context.Context) (*Record, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	List(ctx context.Context, limit int) ([]Record, error)
}

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL plan repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Save(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling plan: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO order_plans (id, created_at, distribution_name, total_value, order_count, data)
		 VALUES ($1::uuid, $2, $3, $4::numeric, $5, $6::jsonb)`,
		rec.ID.String(), rec.CreatedAt, rec.Distribution.Name, rec.TotalValue.String(), len(rec.Orders), data)
	if err != nil {
		return fmt.Errorf("saving plan: %w", err)
	}
	return nil
}

func (r *PgRepository) GetLatest(ctx context.Context) (*Record, error) {
	return r.queryOne(ctx, "getting latest plan",
		`SELECT data FROM order_plans ORDER BY created_at DESC LIMIT 1`)
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	return r.queryOne(ctx, "getting plan by id",
		`SELECT data FROM order_plans WHERE id = $1::uuid`, id.String())
}

func (r *PgRepository) queryOne(ctx context.Context, op, sql string, args ...any) (*Record, error) {
	var data []byte
	if err := r.pool.QueryRow(ctx, sql, args...).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding plan: %w", err)
	}
	return &rec, nil
}

func (r *PgRepository) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := r.pool.Query(ctx,
		`SELECT data FROM order_plans
		 ORDER BY created_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning plan: %w", err)
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decoding plan: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating plans: %w", err)
	}
	return records, nil
}

// MemoryRepository keeps plans in process memory. It backs the CLI and
// servers started without a database.
type MemoryRepository struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Save(_ context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *MemoryRepository) GetLatest(_ context.Context) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.records) == 0 {
		return nil, ErrNotFound
	}
	rec := r.records[len(r.records)-1]
	return &rec, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if rec.ID == id {
			return &rec, nil
		}
	}
	return nil, ErrNotFound
}

// List returns the newest records first.
func (r *MemoryRepository) List(_ context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := slices.Clone(r.records)
	slices.Reverse(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
