package store

import (
	"context"
	"database/sql"
	"fmt"

	checkindomain "bioadaptive/backend/internal/checkin/domain"
	checkinrepo "bioadaptive/backend/internal/checkin/repository"
	"bioadaptive/backend/internal/db"
	plandomain "bioadaptive/backend/internal/plan/domain"
	planrepo "bioadaptive/backend/internal/plan/repository"
	profiledomain "bioadaptive/backend/internal/profile/domain"
	profilerepo "bioadaptive/backend/internal/profile/repository"
)

// PostgresStore is a Store backed by Postgres.
type PostgresStore struct {
	conn     *sql.DB
	profiles profilerepo.Repository
	checkins checkinrepo.Repository
	plans    planrepo.Repository
}

// NewPostgresStore returns a Store over conn. Caller owns conn.
func NewPostgresStore(conn *sql.DB) *PostgresStore {
	return &PostgresStore{
		conn:     conn,
		profiles: profilerepo.NewPostgresRepository(conn),
		checkins: checkinrepo.NewPostgresRepository(conn),
		plans:    planrepo.NewPostgresRepository(conn),
	}
}

func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (*profiledomain.UserProfile, error) {
	return s.profiles.Get(ctx, userID)
}

func (s *PostgresStore) SaveProfile(ctx context.Context, p *profiledomain.UserProfile) error {
	return s.profiles.Upsert(ctx, p)
}

func (s *PostgresStore) CheckinHistory(ctx context.Context, userID, date string, maxDays int) ([]*checkindomain.DailyCheckin, error) {
	if maxDays <= 0 {
		return nil, nil
	}
	return s.checkins.ListBefore(ctx, userID, date, maxDays)
}

func (s *PostgresStore) PlanHistory(ctx context.Context, userID, date string, maxDays int) ([]*plandomain.DailyPlan, error) {
	if maxDays <= 0 {
		return nil, nil
	}
	return s.plans.ListBefore(ctx, userID, date, maxDays)
}

func (s *PostgresStore) GetPlan(ctx context.Context, userID, date string) (*plandomain.DailyPlan, error) {
	return s.plans.Get(ctx, userID, date)
}

// SaveDay writes both records in one transaction.
func (s *PostgresStore) SaveDay(ctx context.Context, c *checkindomain.DailyCheckin, p *plandomain.DailyPlan) error {
	return db.WithTx(ctx, s.conn, func(tx db.DBTX) error {
		if err := checkinrepo.NewPostgresRepository(tx).Upsert(ctx, c); err != nil {
			return fmt.Errorf("upsert checkin: %w", err)
		}
		if err := planrepo.NewPostgresRepository(tx).Upsert(ctx, p); err != nil {
			return fmt.Errorf("upsert plan: %w", err)
		}
		return nil
	})
}
