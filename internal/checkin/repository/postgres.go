package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"bioadaptive/backend/internal/checkin/domain"
	"bioadaptive/backend/internal/db"
)

const checkinColumns = `user_id, date, sleep_hours, sleep_quality, stress, hunger, bloating, energy, focus,
	cravings, bowel, activity, palpitations, nausea, insomnia, loose_stools, weight_kg, steps, compliance`

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a check-in repository over conn, which may be a *sql.DB or *sql.Tx.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Get returns the check-in for (userID, date), or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) Get(ctx context.Context, userID, date string) (*domain.DailyCheckin, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+checkinColumns+` FROM daily_checkins WHERE user_id = $1 AND date = $2`, userID, date)
	c, err := scanCheckin(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// ListBefore returns up to limit check-ins before date, newest first.
func (r *PostgresRepository) ListBefore(ctx context.Context, userID, date string, limit int) ([]*domain.DailyCheckin, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+checkinColumns+` FROM daily_checkins
		WHERE user_id = $1 AND date < $2 ORDER BY date DESC LIMIT $3`, userID, date, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.DailyCheckin
	for rows.Next() {
		c, err := scanCheckin(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Upsert writes c, replacing any same-day record.
func (r *PostgresRepository) Upsert(ctx context.Context, c *domain.DailyCheckin) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO daily_checkins (`+checkinColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (user_id, date) DO UPDATE SET
			sleep_hours = EXCLUDED.sleep_hours, sleep_quality = EXCLUDED.sleep_quality,
			stress = EXCLUDED.stress, hunger = EXCLUDED.hunger, bloating = EXCLUDED.bloating,
			energy = EXCLUDED.energy, focus = EXCLUDED.focus, cravings = EXCLUDED.cravings,
			bowel = EXCLUDED.bowel, activity = EXCLUDED.activity, palpitations = EXCLUDED.palpitations,
			nausea = EXCLUDED.nausea, insomnia = EXCLUDED.insomnia, loose_stools = EXCLUDED.loose_stools,
			weight_kg = EXCLUDED.weight_kg, steps = EXCLUDED.steps, compliance = EXCLUDED.compliance`,
		c.UserID, c.Date, c.SleepHours, c.SleepQuality, c.Stress, c.Hunger, c.Bloating, c.Energy, c.Focus,
		string(c.Cravings), string(c.Bowel), string(c.Activity),
		c.SideEffects.Palpitations, c.SideEffects.Nausea, c.SideEffects.Insomnia, c.SideEffects.LooseStools,
		floatToNull(c.WeightKg), intToNull(c.Steps), string(c.Compliance),
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheckin(s rowScanner) (*domain.DailyCheckin, error) {
	var (
		c                         domain.DailyCheckin
		date                      time.Time
		cravings, bowel, activity string
		compliance                string
		weight                    sql.NullFloat64
		steps                     sql.NullInt64
	)
	err := s.Scan(&c.UserID, &date, &c.SleepHours, &c.SleepQuality, &c.Stress, &c.Hunger, &c.Bloating,
		&c.Energy, &c.Focus, &cravings, &bowel, &activity,
		&c.SideEffects.Palpitations, &c.SideEffects.Nausea, &c.SideEffects.Insomnia, &c.SideEffects.LooseStools,
		&weight, &steps, &compliance)
	if err != nil {
		return nil, err
	}
	c.Date = date.Format(domain.DateLayout)
	c.Cravings = domain.Cravings(cravings)
	c.Bowel = domain.Bowel(bowel)
	c.Activity = domain.Activity(activity)
	c.Compliance = domain.Compliance(compliance)
	c.WeightKg = nullToFloat(weight)
	c.Steps = nullToInt(steps)
	return &c, nil
}

func floatToNull(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func intToNull(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func nullToFloat(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func nullToInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
