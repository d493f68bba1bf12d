package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bioadaptive/backend/internal/db/migrate"
)

// errNotServing makes "health" exit non-zero when a dependency check fails.
var errNotServing = errors.New("not serving")

func newMigrateCmd(c *cli) *cobra.Command {
	var direction string
	var showVersion bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema migrations to DATABASE_URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				st, err := migrate.Version(c.cfg.DatabaseURL)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), st)
			}
			dir, err := migrate.ParseDirection(direction)
			if err != nil {
				return err
			}
			st, err := migrate.Run(c.cfg.DatabaseURL, dir)
			if err != nil {
				return fmt.Errorf("migrate %s: %w", dir, err)
			}
			c.logger.Info("migrations applied",
				zap.String("direction", string(dir)),
				zap.Uint("version", st.Version),
				zap.Bool("changed", st.Changed),
			)
			return writeJSON(cmd.OutOrStdout(), st)
		},
	}
	cmd.Flags().StringVar(&direction, "direction", "up", "migration direction: up or down")
	cmd.Flags().BoolVar(&showVersion, "version", false, "print the current schema version and exit")
	return cmd
}

func newHealthCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the database and guardrail policy engine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			st := a.health.Check(cmd.Context())
			if err := writeJSON(cmd.OutOrStdout(), st); err != nil {
				return err
			}
			if !st.Serving() {
				return errNotServing
			}
			return nil
		},
	}
}
