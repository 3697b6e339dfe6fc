package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// statusCmd shows where the vault lives and what it holds
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Shows vault location, fingerprint and summary counters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "Vault:       %s\n", describeStore())

		exists, err := sess.Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			fmt.Fprintln(out, "State:       not initialized (run 'deskvault init')")
			return nil
		}

		fingerprint, err := sess.Fingerprint(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Fingerprint: %s\n", fingerprint)

		if err := ensureUnlocked(ctx); err != nil {
			return err
		}
		doc, err := sess.Document()
		if err != nil {
			return err
		}

		now := time.Now()
		stats := doc.Stats(now)
		fmt.Fprintf(out, "Created:     %s (%s)\n", humanize.Time(doc.Meta.CreatedAt), doc.Meta.CreatedAt.Local().Format(time.DateTime))
		fmt.Fprintf(out, "Updated:     %s\n", humanize.Time(doc.Meta.UpdatedAt))
		fmt.Fprintf(out, "Days active: %d\n", stats.DaysActive)
		fmt.Fprintf(out, "Tasks:       %d (%d done, %d blocked)\n", stats.TasksTotal, stats.TasksDone, stats.TasksBlocked)
		fmt.Fprintf(out, "Notes:       %d\n", stats.Notes)
		fmt.Fprintf(out, "Activity:    %s entries\n", humanize.Comma(int64(stats.Activity)))
		if g := doc.Goals.Primary; !g.IsZero() {
			fmt.Fprintf(out, "Goal:        %s (%s)\n", g.Title, goalProgress(g))
		}
		return nil
	},
}
