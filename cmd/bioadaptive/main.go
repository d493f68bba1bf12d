// bioadaptive builds and inspects BioAdaptive daily supplement plans.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bioadaptive/backend/internal/config"
	"bioadaptive/backend/internal/logger"
)

// cli carries state shared by every subcommand. It is populated in PersistentPreRunE.
type cli struct {
	userID string
	cfg    *config.Config
	logger *zap.Logger
	app    *app
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "bioadaptive",
		Short: "Adaptive daily supplement planner",
		Long: `bioadaptive turns a user's baseline profile and a daily check-in into a
dosing plan over five supplements, with safety guardrails applied.

Storage is selected by STORE_DRIVER / DATABASE_URL. The in-memory store keeps
state for a single invocation only; use "replay" to build several days at once.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			log, err := logger.New(cfg.Env, cfg.LogLevel)
			if err != nil {
				return err
			}
			c.cfg, c.logger = cfg, log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.app != nil {
				c.app.close(context.Background())
			}
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&c.userID, "user", "u", "local", "user id")

	root.AddCommand(
		newProfileCmd(c),
		newCheckinCmd(c),
		newReplayCmd(c),
		newPlanCmd(c),
		newAuditCmd(c),
		newMigrateCmd(c),
		newHealthCmd(c),
	)
	return root
}

// ensureApp wires the planner on first use. Commands that do not need it (migrate) never call it.
func (c *cli) ensureApp(ctx context.Context) (*app, error) {
	if c.app != nil {
		return c.app, nil
	}
	a, err := newApp(ctx, c.cfg, c.logger)
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
