package main

import (
	"cmp"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/forest6511/deskvault/internal/cli"
	"github.com/forest6511/deskvault/pkg/document"
)

// maxBodySize bounds a note body read from a file or stdin.
const maxBodySize = 1 << 20

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// sortTasks orders tasks by board column, then priority, then age.
func sortTasks(tasks []document.Task) {
	column := func(s document.Status) int { return slices.Index(document.Statuses, s) }
	slices.SortStableFunc(tasks, func(a, b document.Task) int {
		return cmp.Or(
			cmp.Compare(column(a.Status), column(b.Status)),
			cmp.Compare(a.Priority, b.Priority),
			a.CreatedAt.Compare(b.CreatedAt),
		)
	})
}

func printTaskTable(w io.Writer, tasks []document.Task) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tSTATUS\tPRI\tTITLE\tOWNER\tTAGS")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			cli.ShortID(t.ID), t.Status, t.Priority, t.Title, t.Owner, strings.Join(t.Tags, ","))
	}
	return tw.Flush()
}

func printTask(w io.Writer, t document.Task) {
	fmt.Fprintf(w, "ID:       %s\n", t.ID)
	fmt.Fprintf(w, "Title:    %s\n", t.Title)
	fmt.Fprintf(w, "Status:   %s\n", t.Status)
	fmt.Fprintf(w, "Priority: %s\n", t.Priority)
	if t.Owner != "" {
		fmt.Fprintf(w, "Owner:    %s\n", t.Owner)
	}
	if len(t.Tags) > 0 {
		fmt.Fprintf(w, "Tags:     %s\n", strings.Join(t.Tags, ", "))
	}
	fmt.Fprintf(w, "Created:  %s\n", formatWhen(t.CreatedAt))
	fmt.Fprintf(w, "Updated:  %s\n", formatWhen(t.UpdatedAt))
	if t.DoneAt != nil {
		fmt.Fprintf(w, "Done:     %s\n", formatWhen(*t.DoneAt))
	}
	if t.Description != "" {
		fmt.Fprintf(w, "\n%s\n", t.Description)
	}
}

func printNoteTable(w io.Writer, notes []document.Note) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTITLE\tTAGS\tSIZE\tUPDATED")
	for _, n := range notes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			cli.ShortID(n.ID), n.Title, strings.Join(n.Tags, ","),
			humanize.Bytes(uint64(len(n.Body))), humanize.Time(n.UpdatedAt))
	}
	return tw.Flush()
}

func printActivity(w io.Writer, entries []document.ActivityEntry) error {
	tw := newTable(w)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\n", e.Time.Local().Format(time.DateTime), e.Text)
	}
	return tw.Flush()
}

func formatWhen(t time.Time) string {
	return fmt.Sprintf("%s (%s)", t.Local().Format(time.DateTime), humanize.Time(t))
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func goalProgress(g document.Goal) string {
	return fmt.Sprintf("%s / %s, %.0f%%", formatAmount(g.Current), formatAmount(g.Target), g.Progress())
}

func taskIDs(doc *document.Document) []string {
	ids := make([]string, len(doc.Tasks))
	for i, t := range doc.Tasks {
		ids[i] = t.ID
	}
	return ids
}

func noteIDs(doc *document.Document) []string {
	ids := make([]string, len(doc.Notes))
	for i, n := range doc.Notes {
		ids[i] = n.ID
	}
	return ids
}

// readBody returns body, or the content of file when set ("-" reads
// stdin).
func readBody(body, file string, stdin io.Reader) (string, error) {
	if file == "" {
		return body, nil
	}
	if body != "" {
		return "", fmt.Errorf("--body and --file are mutually exclusive")
	}

	r := stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return "", fmt.Errorf("failed to open %s: %w", file, err)
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBodySize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read note body: %w", err)
	}
	if len(data) > maxBodySize {
		return "", fmt.Errorf("note body exceeds %s", humanize.IBytes(maxBodySize))
	}
	return string(data), nil
}

// parseStatuses parses a comma-separated status list.
func parseStatuses(s string) ([]document.Status, error) {
	var out []document.Status
	for _, item := range cli.SplitList(s) {
		status, err := document.ParseStatus(item)
		if err != nil {
			return nil, err
		}
		out = append(out, status)
	}
	return out, nil
}
