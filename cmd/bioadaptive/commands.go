package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	checkindomain "bioadaptive/backend/internal/checkin/domain"
	plandomain "bioadaptive/backend/internal/plan/domain"
	profiledomain "bioadaptive/backend/internal/profile/domain"
)

func newProfileCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage the user's baseline profile",
	}

	var file string
	set := &cobra.Command{
		Use:   "set",
		Short: "Create or replace the profile from a JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			p, err := c.readProfile(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			saved, err := a.planner.SaveProfile(cmd.Context(), p)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), saved)
		},
	}
	set.Flags().StringVarP(&file, "file", "f", "", "profile JSON file (- for stdin)")
	_ = set.MarkFlagRequired("file")

	var baselineFile string
	baseline := &cobra.Command{
		Use:   "baseline",
		Short: "Replace the baseline of an existing profile from a JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			var b profiledomain.Baseline
			if err := readJSON(cmd.InOrStdin(), baselineFile, &b); err != nil {
				return err
			}
			p, err := a.planner.UpdateBaseline(cmd.Context(), c.userID, b)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), p)
		},
	}
	baseline.Flags().StringVarP(&baselineFile, "file", "f", "", "baseline JSON file (- for stdin)")
	_ = baseline.MarkFlagRequired("file")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the stored profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			p, err := a.planner.GetProfile(cmd.Context(), c.userID)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), p)
		},
	}

	cmd.AddCommand(set, baseline, show)
	return cmd
}

func newCheckinCmd(c *cli) *cobra.Command {
	var file, profileFile string
	cmd := &cobra.Command{
		Use:   "checkin",
		Short: "Record today's check-in and print the resulting plan",
		Long: `Reads a daily check-in, builds the plan for its date and stores both.
Re-running for the same date replaces that day's check-in and plan.

With --profile the profile is saved first, which is required for the
in-memory store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			if profileFile != "" {
				p, err := c.readProfile(cmd.InOrStdin(), profileFile)
				if err != nil {
					return err
				}
				if _, err := a.planner.SaveProfile(cmd.Context(), p); err != nil {
					return err
				}
			}
			var checkin checkindomain.DailyCheckin
			if err := readJSON(cmd.InOrStdin(), file, &checkin); err != nil {
				return err
			}
			if checkin.UserID == "" {
				checkin.UserID = c.userID
			}
			plan, err := a.planner.BuildDailyPlanForUser(cmd.Context(), c.userID, &checkin)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), plan)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "check-in JSON file (- for stdin)")
	cmd.Flags().StringVarP(&profileFile, "profile", "p", "", "profile JSON file to save before planning")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newReplayCmd(c *cli) *cobra.Command {
	var file, profileFile string
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Build plans for a series of check-ins in date order",
		Long: `Saves the profile, then builds one plan per check-in from a JSON array,
oldest date first, so each day sees the history of the days before it.
Prints the resulting plans in the same order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			p, err := c.readProfile(cmd.InOrStdin(), profileFile)
			if err != nil {
				return err
			}
			if _, err := a.planner.SaveProfile(cmd.Context(), p); err != nil {
				return err
			}
			var checkins []*checkindomain.DailyCheckin
			if err := readJSON(cmd.InOrStdin(), file, &checkins); err != nil {
				return err
			}
			sort.SliceStable(checkins, func(i, j int) bool { return checkins[i].Date < checkins[j].Date })

			plans := make([]*plandomain.DailyPlan, 0, len(checkins))
			for _, ci := range checkins {
				if ci == nil {
					continue
				}
				if ci.UserID == "" {
					ci.UserID = p.ID
				}
				plan, err := a.planner.BuildDailyPlan(cmd.Context(), p, ci)
				if err != nil {
					return fmt.Errorf("check-in %s: %w", ci.Date, err)
				}
				plans = append(plans, plan)
			}
			c.logger.Info("replay complete", zap.String("user_id", p.ID), zap.Int("days", len(plans)))
			return writeJSON(cmd.OutOrStdout(), plans)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON array of check-ins (- for stdin)")
	cmd.Flags().StringVarP(&profileFile, "profile", "p", "", "profile JSON file")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

func newPlanCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Read stored plans",
	}

	var date string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the plan for one date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			p, err := a.planner.GetPlan(cmd.Context(), c.userID, date)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), p)
		},
	}
	show.Flags().StringVarP(&date, "date", "d", "", "calendar day, YYYY-MM-DD")
	_ = show.MarkFlagRequired("date")

	var days int
	history := &cobra.Command{
		Use:   "history",
		Short: "Print the most recent plans, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			plans, err := a.planner.PlanHistory(cmd.Context(), c.userID, days)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), plans)
		},
	}
	history.Flags().IntVarP(&days, "days", "n", 7, "number of plans to return")

	cmd.AddCommand(show, history)
	return cmd
}

func newAuditCmd(c *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Print the user's audit trail, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			logs, err := a.audits.ListByUser(cmd.Context(), c.userID, limit)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), logs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum number of entries")
	return cmd
}

// readProfile decodes a profile file; an empty id takes the --user value.
func (c *cli) readProfile(stdin io.Reader, path string) (*profiledomain.UserProfile, error) {
	var p profiledomain.UserProfile
	if err := readJSON(stdin, path, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = c.userID
	}
	return &p, nil
}
