// Package migrate applies the embedded schema migrations with golang-migrate.
package migrate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"bioadaptive/backend/internal/db"
)

// ErrNoChange is returned when Up/Down has nothing to do (already at target version).
var ErrNoChange = migrate.ErrNoChange

// ErrNoDSN is returned when no database URL is configured.
var ErrNoDSN = errors.New("DATABASE_URL is not set; migrations need a Postgres database")

// Direction selects which way migrations run.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection accepts "up" or "down" in any case.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case Up, Down:
		return d, nil
	}
	return "", fmt.Errorf("direction must be up or down, got %q", s)
}

// State describes the schema version after a run.
type State struct {
	Version uint
	Dirty   bool
	// Changed is false when the database was already at the target version.
	Changed bool
}

func newMigrator(dsn string) (*migrate.Migrate, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, ErrNoDSN
	}
	sourceDriver, err := iofs.New(db.MigrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migrate source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return m, nil
}

// Run applies every migration in direction and reports the resulting schema state.
// Already being at the target is not an error; State.Changed is false in that case.
func Run(dsn string, direction Direction) (State, error) {
	if direction != Up && direction != Down {
		return State{}, fmt.Errorf("direction must be up or down, got %q", direction)
	}
	m, err := newMigrator(dsn)
	if err != nil {
		return State{}, err
	}
	defer func() { _, _ = m.Close() }()

	if direction == Up {
		err = m.Up()
	} else {
		err = m.Down()
	}
	st := State{Changed: true}
	if errors.Is(err, migrate.ErrNoChange) {
		st.Changed = false
	} else if err != nil {
		return State{}, err
	}
	st.Version, st.Dirty, err = version(m)
	return st, err
}

// Version returns the current schema version without migrating.
func Version(dsn string) (State, error) {
	m, err := newMigrator(dsn)
	if err != nil {
		return State{}, err
	}
	defer func() { _, _ = m.Close() }()
	v, dirty, err := version(m)
	return State{Version: v, Dirty: dirty}, err
}

// version treats a database with no applied migrations as version 0.
func version(m *migrate.Migrate) (uint, bool, error) {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}
