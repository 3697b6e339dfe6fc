package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/forest6511/deskvault/internal/cli"
	"github.com/forest6511/deskvault/pkg/vault"
)

// Note flags
var (
	noteBody  string
	noteFile  string
	noteTags  string
	noteTitle string

	noteListTags  string
	noteListQuery string

	noteShowHTML bool
)

var markdown = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.DefinitionList,
	),
)

func init() {
	rootCmd.AddCommand(noteCmd)
	noteCmd.AddCommand(noteAddCmd, noteListCmd, noteShowCmd, noteEditCmd, noteRmCmd)

	for _, c := range []*cobra.Command{noteAddCmd, noteEditCmd} {
		c.Flags().StringVarP(&noteBody, "body", "b", "", "Markdown body")
		c.Flags().StringVarP(&noteFile, "file", "f", "", "Read the body from a file ('-' for stdin)")
		c.Flags().StringVar(&noteTags, "tags", "", "Comma-separated tags")
	}
	noteEditCmd.Flags().StringVar(&noteTitle, "title", "", "New title")

	noteListCmd.Flags().StringVar(&noteListTags, "tag", "", "Comma-separated tag patterns (glob supported)")
	noteListCmd.Flags().StringVarP(&noteListQuery, "query", "q", "", "Filter by text in title or body")

	noteShowCmd.Flags().BoolVar(&noteShowHTML, "html", false, "Render the body as HTML")
}

// noteCmd is the parent command for note operations
var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Markdown note operations",
}

var noteAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Adds a note",
	Example: `  deskvault note add "Reading list" -b "- Dune"
  deskvault note add "Meeting" -f notes/meeting.md --tags work`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := readBody(noteBody, noteFile, cmd.InOrStdin())
		if err != nil {
			return err
		}
		if err := ensureUnlocked(cmd.Context()); err != nil {
			return err
		}
		note, err := sess.AddNote(cmd.Context(), vault.NoteInput{
			Title: strings.Join(args, " "),
			Body:  body,
			Tags:  cli.SplitList(noteTags),
		})
		if err != nil {
			return fmt.Errorf("failed to add note: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Note %s added\n", cli.ShortID(note.ID))
		return nil
	},
}

var noteListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists notes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := cli.NoteFilter{Tags: cli.SplitList(noteListTags), Query: noteListQuery}

		if err := ensureUnlocked(cmd.Context()); err != nil {
			return err
		}
		doc, err := sess.Document()
		if err != nil {
			return err
		}
		notes, err := filter.Apply(doc.Notes)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(notes) == 0 {
			fmt.Fprintln(out, "No notes found")
			return nil
		}
		return printNoteTable(out, notes)
	},
}

var noteShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Prints a note's markdown, or HTML with --html",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveNote(cmd, args[0])
		if err != nil {
			return err
		}
		note, err := sess.Note(id)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if noteShowHTML {
			return renderHTML(out, note.Body)
		}
		fmt.Fprintf(out, "# %s\n", note.Title)
		if len(note.Tags) > 0 {
			fmt.Fprintf(out, "Tags: %s\n", strings.Join(note.Tags, ", "))
		}
		fmt.Fprintf(out, "Updated: %s\n\n%s\n", formatWhen(note.UpdatedAt), note.Body)
		return nil
	},
}

var noteEditCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Changes a note; only the flags given are applied",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch vault.NotePatch
		flags := cmd.Flags()
		if flags.Changed("title") {
			patch.Title = &noteTitle
		}
		if flags.Changed("body") || flags.Changed("file") {
			body, err := readBody(noteBody, noteFile, cmd.InOrStdin())
			if err != nil {
				return err
			}
			patch.Body = &body
		}
		if flags.Changed("tags") {
			tags := cli.SplitList(noteTags)
			patch.Tags = &tags
		}
		if patch == (vault.NotePatch{}) {
			return fmt.Errorf("nothing to change: pass at least one of --title, --body, --file, --tags")
		}

		id, err := resolveNote(cmd, args[0])
		if err != nil {
			return err
		}
		note, err := sess.UpdateNote(cmd.Context(), id, patch)
		if err != nil {
			return fmt.Errorf("failed to update note: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Note %s updated\n", cli.ShortID(note.ID))
		return nil
	},
}

var noteRmCmd = &cobra.Command{
	Use:     "rm [id]",
	Aliases: []string{"delete"},
	Short:   "Deletes a note",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveNote(cmd, args[0])
		if err != nil {
			return err
		}
		if err := sess.DeleteNote(cmd.Context(), id); err != nil {
			return fmt.Errorf("failed to delete note: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Note %s deleted\n", cli.ShortID(id))
		return nil
	},
}

func resolveNote(cmd *cobra.Command, input string) (string, error) {
	if err := ensureUnlocked(cmd.Context()); err != nil {
		return "", err
	}
	doc, err := sess.Document()
	if err != nil {
		return "", err
	}
	return cli.ResolveID(input, noteIDs(doc))
}

// renderHTML converts a markdown body to HTML. Raw HTML in the body is
// omitted by the renderer's default (unsafe off).
func renderHTML(w io.Writer, body string) error {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(body), &buf); err != nil {
		return fmt.Errorf("failed to render note: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
