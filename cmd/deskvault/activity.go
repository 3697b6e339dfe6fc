package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var activityLimit int

func init() {
	rootCmd.AddCommand(activityCmd)
	activityCmd.AddCommand(activityListCmd, activityLogCmd)

	activityListCmd.Flags().IntVarP(&activityLimit, "limit", "n", 20, "Maximum number of entries to show (0 for all)")
}

// activityCmd is the parent command for the activity log
var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Activity log operations",
}

var activityListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists recent activity, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if activityLimit < 0 {
			return fmt.Errorf("--limit must not be negative")
		}
		if err := ensureUnlocked(cmd.Context()); err != nil {
			return err
		}
		doc, err := sess.Document()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		entries := doc.RecentActivity(activityLimit)
		if len(entries) == 0 {
			fmt.Fprintln(out, "No activity")
			return nil
		}
		if err := printActivity(out, entries); err != nil {
			return err
		}
		if len(entries) < len(doc.Activity) {
			fmt.Fprintf(out, "\nShowing %d of %d entries\n", len(entries), len(doc.Activity))
		}
		return nil
	},
}

var activityLogCmd = &cobra.Command{
	Use:   "log [text]",
	Short: "Adds a free-text entry to the activity log",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureUnlocked(cmd.Context()); err != nil {
			return err
		}
		if err := sess.LogActivity(cmd.Context(), strings.Join(args, " ")); err != nil {
			return fmt.Errorf("failed to log activity: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged")
		return nil
	},
}
