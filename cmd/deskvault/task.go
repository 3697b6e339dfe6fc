package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forest6511/deskvault/internal/cli"
	"github.com/forest6511/deskvault/pkg/document"
	"github.com/forest6511/deskvault/pkg/vault"
)

// Task flags
var (
	taskDescription string
	taskStatus      string
	taskOwner       string
	taskPriority    string
	taskTags        string
	taskTitle       string

	taskListStatus string
	taskListTags   string
	taskListOwner  string
	taskListQuery  string
)

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskShowCmd, taskEditCmd, taskMoveCmd, taskRmCmd)

	for _, c := range []*cobra.Command{taskAddCmd, taskEditCmd} {
		c.Flags().StringVarP(&taskDescription, "desc", "d", "", "Task description")
		c.Flags().StringVarP(&taskStatus, "status", "s", "", "Status: backlog, in_progress, blocked, done")
		c.Flags().StringVar(&taskOwner, "owner", "", "Owner")
		c.Flags().StringVarP(&taskPriority, "priority", "p", "", "Priority: A, B, C")
		c.Flags().StringVar(&taskTags, "tags", "", "Comma-separated tags (e.g., work,urgent)")
	}
	taskEditCmd.Flags().StringVar(&taskTitle, "title", "", "New title")

	taskListCmd.Flags().StringVarP(&taskListStatus, "status", "s", "", "Comma-separated statuses to show")
	taskListCmd.Flags().StringVar(&taskListTags, "tag", "", "Comma-separated tag patterns (glob supported)")
	taskListCmd.Flags().StringVar(&taskListOwner, "owner", "", "Filter by owner")
	taskListCmd.Flags().StringVarP(&taskListQuery, "query", "q", "", "Filter by text in title or description")
}

// taskCmd is the parent command for task operations
var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Kanban task operations",
}

var taskAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Adds a task",
	Example: `  deskvault task add "Write report" -p A --tags work
  deskvault task add "Fix the bike" --status in_progress`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := vault.TaskInput{
			Title:       strings.Join(args, " "),
			Description: taskDescription,
			Owner:       taskOwner,
			Tags:        cli.SplitList(taskTags),
		}
		if taskStatus != "" {
			status, err := document.ParseStatus(taskStatus)
			if err != nil {
				return err
			}
			in.Status = status
		}
		if taskPriority != "" {
			prio, err := document.ParsePriority(taskPriority)
			if err != nil {
				return err
			}
			in.Priority = prio
		}

		if err := ensureUnlocked(cmd.Context()); err != nil {
			return err
		}
		task, err := sess.AddTask(cmd.Context(), in)
		if err != nil {
			return fmt.Errorf("failed to add task: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Task %s added to %s\n", cli.ShortID(task.ID), task.Status)
		return nil
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists tasks in board order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		statuses, err := parseStatuses(taskListStatus)
		if err != nil {
			return err
		}
		filter := cli.TaskFilter{
			Statuses: statuses,
			Tags:     cli.SplitList(taskListTags),
			Owner:    taskListOwner,
			Query:    taskListQuery,
		}

		if err := ensureUnlocked(cmd.Context()); err != nil {
			return err
		}
		doc, err := sess.Document()
		if err != nil {
			return err
		}
		tasks, err := filter.Apply(doc.Tasks)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(tasks) == 0 {
			fmt.Fprintln(out, "No tasks found")
			return nil
		}
		sortTasks(tasks)
		return printTaskTable(out, tasks)
	},
}

var taskShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Shows a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveTask(cmd, args[0])
		if err != nil {
			return err
		}
		task, err := sess.Task(id)
		if err != nil {
			return err
		}
		printTask(cmd.OutOrStdout(), task)
		return nil
	},
}

var taskEditCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Changes task fields; only the flags given are applied",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch, err := taskPatchFromFlags(cmd)
		if err != nil {
			return err
		}
		id, err := resolveTask(cmd, args[0])
		if err != nil {
			return err
		}
		task, err := sess.UpdateTask(cmd.Context(), id, patch)
		if err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Task %s updated\n", cli.ShortID(task.ID))
		return nil
	},
}

var taskMoveCmd = &cobra.Command{
	Use:       "move [id] [status]",
	Short:     "Moves a task to another column",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"backlog", "in_progress", "blocked", "done"},
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := document.ParseStatus(args[1])
		if err != nil {
			return err
		}
		id, err := resolveTask(cmd, args[0])
		if err != nil {
			return err
		}
		before, err := sess.Task(id)
		if err != nil {
			return err
		}
		task, err := sess.MoveTask(cmd.Context(), id, status)
		if err != nil {
			return fmt.Errorf("failed to move task: %w", err)
		}

		out := cmd.OutOrStdout()
		if before.Status == task.Status {
			fmt.Fprintf(out, "Task %s is already %s\n", cli.ShortID(task.ID), task.Status)
			return nil
		}
		fmt.Fprintf(out, "Task %s moved from %s to %s\n", cli.ShortID(task.ID), before.Status, task.Status)
		return nil
	},
}

var taskRmCmd = &cobra.Command{
	Use:     "rm [id]",
	Aliases: []string{"delete"},
	Short:   "Deletes a task",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveTask(cmd, args[0])
		if err != nil {
			return err
		}
		if err := sess.DeleteTask(cmd.Context(), id); err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Task %s deleted\n", cli.ShortID(id))
		return nil
	},
}

// resolveTask unlocks the vault and maps a typed id or prefix to a task id.
func resolveTask(cmd *cobra.Command, input string) (string, error) {
	if err := ensureUnlocked(cmd.Context()); err != nil {
		return "", err
	}
	doc, err := sess.Document()
	if err != nil {
		return "", err
	}
	return cli.ResolveID(input, taskIDs(doc))
}

// taskPatchFromFlags builds a patch from the flags set on the command line.
func taskPatchFromFlags(cmd *cobra.Command) (vault.TaskPatch, error) {
	var patch vault.TaskPatch
	flags := cmd.Flags()

	if flags.Changed("title") {
		patch.Title = &taskTitle
	}
	if flags.Changed("desc") {
		patch.Description = &taskDescription
	}
	if flags.Changed("owner") {
		patch.Owner = &taskOwner
	}
	if flags.Changed("status") {
		status, err := document.ParseStatus(taskStatus)
		if err != nil {
			return patch, err
		}
		patch.Status = &status
	}
	if flags.Changed("priority") {
		prio, err := document.ParsePriority(taskPriority)
		if err != nil {
			return patch, err
		}
		patch.Priority = &prio
	}
	if flags.Changed("tags") {
		tags := cli.SplitList(taskTags)
		patch.Tags = &tags
	}

	if patch == (vault.TaskPatch{}) {
		return patch, fmt.Errorf("nothing to change: pass at least one of --title, --desc, --status, --owner, --priority, --tags")
	}
	return patch, nil
}
