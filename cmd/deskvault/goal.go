package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forest6511/deskvault/pkg/document"
)

// Goal flags
var (
	goalTarget   float64
	goalCurrent  float64
	goalDeadline string
	goalNotes    string
)

func init() {
	rootCmd.AddCommand(goalCmd)
	goalCmd.AddCommand(goalShowCmd, goalSetCmd, goalProgressCmd)

	goalSetCmd.Flags().Float64Var(&goalTarget, "target", 0, "Target value")
	goalSetCmd.Flags().Float64Var(&goalCurrent, "current", 0, "Current value")
	goalSetCmd.Flags().StringVar(&goalDeadline, "deadline", "", "Deadline (free text, e.g. 'end of Q3')")
	goalSetCmd.Flags().StringVar(&goalNotes, "notes", "", "Notes")
}

// goalCmd is the parent command for goal operations
var goalCmd = &cobra.Command{
	Use:   "goal",
	Short: "Primary goal operations",
}

var goalShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Shows the primary goal and its progress",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureUnlocked(cmd.Context()); err != nil {
			return err
		}
		doc, err := sess.Document()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		g := doc.Goals.Primary
		if g.IsZero() {
			fmt.Fprintln(out, "No goal set (use 'deskvault goal set')")
			return nil
		}
		fmt.Fprintf(out, "Goal:     %s\n", g.Title)
		fmt.Fprintf(out, "Progress: %s\n", goalProgress(g))
		if g.Deadline != "" {
			fmt.Fprintf(out, "Deadline: %s\n", g.Deadline)
		}
		if g.Notes != "" {
			fmt.Fprintf(out, "Notes:    %s\n", g.Notes)
		}
		return nil
	},
}

var goalSetCmd = &cobra.Command{
	Use:     "set [title]",
	Short:   "Replaces the primary goal",
	Example: `  deskvault goal set "Save for a bike" --target 1200 --deadline "June"`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureUnlocked(cmd.Context()); err != nil {
			return err
		}
		goal := document.Goal{
			Title:    strings.Join(args, " "),
			Deadline: goalDeadline,
			Current:  goalCurrent,
			Target:   goalTarget,
			Notes:    goalNotes,
		}
		if err := sess.SetGoal(cmd.Context(), goal); err != nil {
			return fmt.Errorf("failed to set goal: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Goal set: %s (%s)\n", goal.Title, goalProgress(goal))
		return nil
	},
}

var goalProgressCmd = &cobra.Command{
	Use:   "progress [current]",
	Short: "Updates the primary goal's current value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		current, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid progress value %q: %w", args[0], err)
		}
		if math.IsNaN(current) || math.IsInf(current, 0) {
			return fmt.Errorf("invalid progress value %q: must be a finite number", args[0])
		}
		if err := ensureUnlocked(cmd.Context()); err != nil {
			return err
		}
		if err := sess.SetGoalProgress(cmd.Context(), current); err != nil {
			return fmt.Errorf("failed to update goal: %w", err)
		}
		doc, err := sess.Document()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Goal progress: %s\n", goalProgress(doc.Goals.Primary))
		return nil
	},
}
