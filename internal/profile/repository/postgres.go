package repository

import (
	"context"
	"database/sql"
	"errors"

	"bioadaptive/backend/internal/db"
	"bioadaptive/backend/internal/profile/domain"
)

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a profile repository over conn.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Get returns the profile for userID, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) Get(ctx context.Context, userID string) (*domain.UserProfile, error) {
	var (
		p                   domain.UserProfile
		sex, diet, caffeine string
		thyroid             string
		waist               sql.NullFloat64
	)
	b := &p.Baseline
	err := r.db.QueryRowContext(ctx, `SELECT id, age, sex, height_cm, weight_kg, waist_cm, diet_pattern,
		caffeine_sensitivity, gerd, ibs, thyroid, diabetes, pregnant, breastfeeding, under18, updated_at
		FROM user_profiles WHERE id = $1`, userID).Scan(
		&p.ID, &p.Age, &sex, &p.HeightCm, &b.WeightKg, &waist, &diet, &caffeine,
		&b.Conditions.GERD, &b.Conditions.IBS, &thyroid, &b.Conditions.Diabetes,
		&b.Contraindications.Pregnant, &b.Contraindications.Breastfeeding, &b.Contraindications.Under18,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.Sex = domain.Sex(sex)
	b.DietPattern = domain.DietPattern(diet)
	b.CaffeineSensitivity = domain.CaffeineSensitivity(caffeine)
	b.Conditions.Thyroid = domain.Thyroid(thyroid)
	if waist.Valid {
		w := waist.Float64
		b.WaistCm = &w
	}
	return &p, nil
}

// Upsert inserts the profile or replaces it entirely.
func (r *PostgresRepository) Upsert(ctx context.Context, p *domain.UserProfile) error {
	b := p.Baseline
	waist := sql.NullFloat64{}
	if b.WaistCm != nil {
		waist = sql.NullFloat64{Float64: *b.WaistCm, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO user_profiles (id, age, sex, height_cm, weight_kg, waist_cm,
		diet_pattern, caffeine_sensitivity, gerd, ibs, thyroid, diabetes, pregnant, breastfeeding, under18, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			age = EXCLUDED.age, sex = EXCLUDED.sex, height_cm = EXCLUDED.height_cm,
			weight_kg = EXCLUDED.weight_kg, waist_cm = EXCLUDED.waist_cm, diet_pattern = EXCLUDED.diet_pattern,
			caffeine_sensitivity = EXCLUDED.caffeine_sensitivity, gerd = EXCLUDED.gerd, ibs = EXCLUDED.ibs,
			thyroid = EXCLUDED.thyroid, diabetes = EXCLUDED.diabetes, pregnant = EXCLUDED.pregnant,
			breastfeeding = EXCLUDED.breastfeeding, under18 = EXCLUDED.under18, updated_at = EXCLUDED.updated_at`,
		p.ID, p.Age, string(p.Sex), p.HeightCm, b.WeightKg, waist, string(b.DietPattern),
		string(b.CaffeineSensitivity), b.Conditions.GERD, b.Conditions.IBS, string(b.Conditions.Thyroid),
		b.Conditions.Diabetes, b.Contraindications.Pregnant, b.Contraindications.Breastfeeding,
		b.Contraindications.Under18, p.UpdatedAt.UTC(),
	)
	return err
}
