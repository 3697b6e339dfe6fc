package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/forest6511/deskvault/internal/cli"
	"github.com/forest6511/deskvault/pkg/document"
	"github.com/forest6511/deskvault/pkg/vault"
)

// defaultActivityLimit is used when activity_list is called without a limit.
const defaultActivityLimit = 20

// TaskInfo is the wire form of a task.
type TaskInfo struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status"`
	Owner       string   `json:"owner,omitempty"`
	Priority    string   `json:"priority"`
	Tags        []string `json:"tags,omitempty"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
	DoneAt      string   `json:"done_at,omitempty"`
}

// TaskListInput represents input for task_list tool.
type TaskListInput struct {
	Status string `json:"status,omitempty"`
	Tag    string `json:"tag,omitempty"`
	Owner  string `json:"owner,omitempty"`
	Query  string `json:"query,omitempty"`
}

// TaskListOutput represents output for task_list tool.
type TaskListOutput struct {
	Tasks []TaskInfo `json:"tasks"`
}

// TaskAddInput represents input for task_add tool.
type TaskAddInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status,omitempty"`
	Owner       string   `json:"owner,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// TaskOutput represents output for task_add tool.
type TaskOutput struct {
	Task TaskInfo `json:"task"`
}

// TaskMoveInput represents input for task_move tool.
type TaskMoveInput struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// TaskMoveOutput represents output for task_move tool.
type TaskMoveOutput struct {
	Task TaskInfo `json:"task"`
	From string   `json:"from"`
}

// NoteInfo is a note without its body.
type NoteInfo struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Tags      []string `json:"tags,omitempty"`
	Length    int      `json:"length"`
	UpdatedAt string   `json:"updated_at"`
}

// NoteListInput represents input for note_list tool.
type NoteListInput struct {
	Tag   string `json:"tag,omitempty"`
	Query string `json:"query,omitempty"`
}

// NoteListOutput represents output for note_list tool.
type NoteListOutput struct {
	Notes []NoteInfo `json:"notes"`
}

// NoteGetInput represents input for note_get tool.
type NoteGetInput struct {
	ID string `json:"id"`
}

// NoteGetOutput represents output for note_get tool.
type NoteGetOutput struct {
	NoteInfo
	Body string `json:"body"`
}

// ActivityListInput represents input for activity_list tool.
type ActivityListInput struct {
	Limit int `json:"limit,omitempty"`
}

// ActivityInfo is one activity entry.
type ActivityInfo struct {
	Time string `json:"time"`
	Text string `json:"text"`
}

// ActivityListOutput represents output for activity_list tool.
type ActivityListOutput struct {
	Entries []ActivityInfo `json:"entries"`
	Total   int            `json:"total"`
}

// GoalGetInput represents input for goal_get tool.
type GoalGetInput struct{}

// GoalGetOutput represents output for goal_get tool.
type GoalGetOutput struct {
	Set      bool    `json:"set"`
	Title    string  `json:"title,omitempty"`
	Deadline string  `json:"deadline,omitempty"`
	Current  float64 `json:"current"`
	Target   float64 `json:"target"`
	Progress float64 `json:"progress"`
	Notes    string  `json:"notes,omitempty"`
}

// handleTaskList handles the task_list tool call.
func (s *Server) handleTaskList(_ context.Context, _ *mcp.CallToolRequest, input TaskListInput) (*mcp.CallToolResult, TaskListOutput, error) {
	if err := s.authorize("task_list"); err != nil {
		return nil, TaskListOutput{}, err
	}

	filter := cli.TaskFilter{Owner: input.Owner, Query: input.Query}
	if input.Status != "" {
		status, err := document.ParseStatus(input.Status)
		if err != nil {
			return nil, TaskListOutput{}, err
		}
		filter.Statuses = []document.Status{status}
	}
	if input.Tag != "" {
		filter.Tags = []string{input.Tag}
	}

	doc, err := s.session.Document()
	if err != nil {
		return nil, TaskListOutput{}, fmt.Errorf("failed to read vault: %w", err)
	}
	tasks, err := filter.Apply(doc.Tasks)
	if err != nil {
		return nil, TaskListOutput{}, err
	}

	output := TaskListOutput{Tasks: make([]TaskInfo, 0, len(tasks))}
	for _, t := range tasks {
		output.Tasks = append(output.Tasks, taskInfo(t))
	}
	return nil, output, nil
}

// handleTaskAdd handles the task_add tool call.
func (s *Server) handleTaskAdd(ctx context.Context, _ *mcp.CallToolRequest, input TaskAddInput) (*mcp.CallToolResult, TaskOutput, error) {
	if err := s.authorize("task_add"); err != nil {
		return nil, TaskOutput{}, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, TaskOutput{}, errors.New("title is required")
	}

	in := vault.TaskInput{
		Title:       input.Title,
		Description: input.Description,
		Owner:       input.Owner,
		Tags:        input.Tags,
	}
	if input.Status != "" {
		status, err := document.ParseStatus(input.Status)
		if err != nil {
			return nil, TaskOutput{}, err
		}
		in.Status = status
	}
	if input.Priority != "" {
		prio, err := document.ParsePriority(input.Priority)
		if err != nil {
			return nil, TaskOutput{}, err
		}
		in.Priority = prio
	}

	task, err := s.session.AddTask(ctx, in)
	if err != nil {
		return nil, TaskOutput{}, fmt.Errorf("failed to add task: %w", err)
	}
	s.logger.Info("MCP task added", "task", task.ID)
	return nil, TaskOutput{Task: taskInfo(task)}, nil
}

// handleTaskMove handles the task_move tool call.
func (s *Server) handleTaskMove(ctx context.Context, _ *mcp.CallToolRequest, input TaskMoveInput) (*mcp.CallToolResult, TaskMoveOutput, error) {
	if err := s.authorize("task_move"); err != nil {
		return nil, TaskMoveOutput{}, err
	}
	if input.ID == "" {
		return nil, TaskMoveOutput{}, errors.New("id is required")
	}
	status, err := document.ParseStatus(input.Status)
	if err != nil {
		return nil, TaskMoveOutput{}, err
	}

	doc, err := s.session.Document()
	if err != nil {
		return nil, TaskMoveOutput{}, fmt.Errorf("failed to read vault: %w", err)
	}
	ids := make([]string, len(doc.Tasks))
	for i, t := range doc.Tasks {
		ids[i] = t.ID
	}
	id, err := cli.ResolveID(input.ID, ids)
	if err != nil {
		return nil, TaskMoveOutput{}, err
	}
	from := doc.Tasks[doc.TaskIndex(id)].Status

	task, err := s.session.MoveTask(ctx, id, status)
	if err != nil {
		return nil, TaskMoveOutput{}, fmt.Errorf("failed to move task: %w", err)
	}
	s.logger.Info("MCP task moved", "task", task.ID, "from", from, "to", task.Status)
	return nil, TaskMoveOutput{Task: taskInfo(task), From: string(from)}, nil
}

// handleNoteList handles the note_list tool call.
func (s *Server) handleNoteList(_ context.Context, _ *mcp.CallToolRequest, input NoteListInput) (*mcp.CallToolResult, NoteListOutput, error) {
	if err := s.authorize("note_list"); err != nil {
		return nil, NoteListOutput{}, err
	}

	filter := cli.NoteFilter{Query: input.Query}
	if input.Tag != "" {
		filter.Tags = []string{input.Tag}
	}

	doc, err := s.session.Document()
	if err != nil {
		return nil, NoteListOutput{}, fmt.Errorf("failed to read vault: %w", err)
	}
	notes, err := filter.Apply(doc.Notes)
	if err != nil {
		return nil, NoteListOutput{}, err
	}

	output := NoteListOutput{Notes: make([]NoteInfo, 0, len(notes))}
	for _, n := range notes {
		output.Notes = append(output.Notes, noteInfo(n))
	}
	return nil, output, nil
}

// handleNoteGet handles the note_get tool call.
func (s *Server) handleNoteGet(_ context.Context, _ *mcp.CallToolRequest, input NoteGetInput) (*mcp.CallToolResult, NoteGetOutput, error) {
	if err := s.authorize("note_get"); err != nil {
		return nil, NoteGetOutput{}, err
	}
	if input.ID == "" {
		return nil, NoteGetOutput{}, errors.New("id is required")
	}

	doc, err := s.session.Document()
	if err != nil {
		return nil, NoteGetOutput{}, fmt.Errorf("failed to read vault: %w", err)
	}
	ids := make([]string, len(doc.Notes))
	for i, n := range doc.Notes {
		ids[i] = n.ID
	}
	id, err := cli.ResolveID(input.ID, ids)
	if err != nil {
		return nil, NoteGetOutput{}, err
	}

	note := doc.Notes[doc.NoteIndex(id)]
	return nil, NoteGetOutput{NoteInfo: noteInfo(note), Body: note.Body}, nil
}

// handleActivityList handles the activity_list tool call.
func (s *Server) handleActivityList(_ context.Context, _ *mcp.CallToolRequest, input ActivityListInput) (*mcp.CallToolResult, ActivityListOutput, error) {
	if err := s.authorize("activity_list"); err != nil {
		return nil, ActivityListOutput{}, err
	}
	if input.Limit < 0 {
		return nil, ActivityListOutput{}, errors.New("limit must not be negative")
	}
	limit := input.Limit
	if limit == 0 {
		limit = defaultActivityLimit
	}

	doc, err := s.session.Document()
	if err != nil {
		return nil, ActivityListOutput{}, fmt.Errorf("failed to read vault: %w", err)
	}
	entries := doc.RecentActivity(limit)

	output := ActivityListOutput{
		Entries: make([]ActivityInfo, 0, len(entries)),
		Total:   len(doc.Activity),
	}
	for _, e := range entries {
		output.Entries = append(output.Entries, ActivityInfo{Time: formatTime(e.Time), Text: e.Text})
	}
	return nil, output, nil
}

// handleGoalGet handles the goal_get tool call.
func (s *Server) handleGoalGet(_ context.Context, _ *mcp.CallToolRequest, _ GoalGetInput) (*mcp.CallToolResult, GoalGetOutput, error) {
	if err := s.authorize("goal_get"); err != nil {
		return nil, GoalGetOutput{}, err
	}

	doc, err := s.session.Document()
	if err != nil {
		return nil, GoalGetOutput{}, fmt.Errorf("failed to read vault: %w", err)
	}
	g := doc.Goals.Primary
	if g.IsZero() {
		return nil, GoalGetOutput{}, nil
	}
	return nil, GoalGetOutput{
		Set:      true,
		Title:    g.Title,
		Deadline: g.Deadline,
		Current:  g.Current,
		Target:   g.Target,
		Progress: g.Progress(),
		Notes:    g.Notes,
	}, nil
}

func taskInfo(t document.Task) TaskInfo {
	info := TaskInfo{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Owner:       t.Owner,
		Priority:    string(t.Priority),
		Tags:        t.Tags,
		CreatedAt:   formatTime(t.CreatedAt),
		UpdatedAt:   formatTime(t.UpdatedAt),
	}
	if t.DoneAt != nil {
		info.DoneAt = formatTime(*t.DoneAt)
	}
	return info
}

func noteInfo(n document.Note) NoteInfo {
	return NoteInfo{
		ID:        n.ID,
		Title:     n.Title,
		Tags:      n.Tags,
		Length:    utf8.RuneCountInString(n.Body),
		UpdatedAt: formatTime(n.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
