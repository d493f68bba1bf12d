package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bioadaptive/backend/internal/db"
	"bioadaptive/backend/internal/plan/domain"
)

const planColumns = `id, user_id, date, phenotype_primary, phenotype_secondary,
	gls, acs, scs, eds, mss, items, notes, created_at`

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a plan repository over conn, which may be a *sql.DB or *sql.Tx.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Get returns the plan for (userID, date), or nil if not found.
func (r *PostgresRepository) Get(ctx context.Context, userID, date string) (*domain.DailyPlan, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM daily_plans WHERE user_id = $1 AND date = $2`, userID, date)
	p, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// ListBefore returns up to limit plans before date, newest first.
func (r *PostgresRepository) ListBefore(ctx context.Context, userID, date string, limit int) ([]*domain.DailyPlan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+planColumns+` FROM daily_plans
		WHERE user_id = $1 AND date < $2 ORDER BY date DESC LIMIT $3`, userID, date, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.DailyPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Upsert writes p, replacing the same-day record including its id.
func (r *PostgresRepository) Upsert(ctx context.Context, p *domain.DailyPlan) error {
	items, notes, err := encodePlanBody(p)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO daily_plans (`+planColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (user_id, date) DO UPDATE SET
			id = EXCLUDED.id, phenotype_primary = EXCLUDED.phenotype_primary,
			phenotype_secondary = EXCLUDED.phenotype_secondary,
			gls = EXCLUDED.gls, acs = EXCLUDED.acs, scs = EXCLUDED.scs, eds = EXCLUDED.eds, mss = EXCLUDED.mss,
			items = EXCLUDED.items, notes = EXCLUDED.notes, created_at = EXCLUDED.created_at`,
		p.ID, p.UserID, p.Date, string(p.Phenotype.Primary), string(p.Phenotype.Secondary),
		p.Scores.GLS, p.Scores.ACS, p.Scores.SCS, p.Scores.EDS, p.Scores.MSS,
		items, notes, p.CreatedAt.UTC(),
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(s rowScanner) (*domain.DailyPlan, error) {
	var (
		p                  domain.DailyPlan
		date               time.Time
		primary, secondary string
		items, notes       []byte
	)
	err := s.Scan(&p.ID, &p.UserID, &date, &primary, &secondary,
		&p.Scores.GLS, &p.Scores.ACS, &p.Scores.SCS, &p.Scores.EDS, &p.Scores.MSS,
		&items, &notes, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Date = date.Format("2006-01-02")
	p.Phenotype = domain.Phenotype{
		Primary:   domain.PhenotypeName(primary),
		Secondary: domain.PhenotypeName(secondary),
	}
	if err := decodePlanBody(&p, items, notes); err != nil {
		return nil, err
	}
	return &p, nil
}

// encodePlanBody serialises items and notes for the JSONB columns. nil slices are stored as [].
func encodePlanBody(p *domain.DailyPlan) ([]byte, []byte, error) {
	list := p.Plan
	if list == nil {
		list = []domain.PlanItem{}
	}
	n := p.Notes
	if n == nil {
		n = []string{}
	}
	items, err := json.Marshal(list)
	if err != nil {
		return nil, nil, fmt.Errorf("encode plan items: %w", err)
	}
	notes, err := json.Marshal(n)
	if err != nil {
		return nil, nil, fmt.Errorf("encode plan notes: %w", err)
	}
	return items, notes, nil
}

func decodePlanBody(p *domain.DailyPlan, items, notes []byte) error {
	p.Plan = []domain.PlanItem{}
	p.Notes = []string{}
	if err := json.Unmarshal(items, &p.Plan); err != nil {
		return fmt.Errorf("decode plan items: %w", err)
	}
	if err := json.Unmarshal(notes, &p.Notes); err != nil {
		return fmt.Errorf("decode plan notes: %w", err)
	}
	for _, it := range p.Plan {
		if !it.SKU.Valid() {
			return fmt.Errorf("decode plan items: unknown sku %q", it.SKU)
		}
	}
	return nil
}
