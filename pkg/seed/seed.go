// Package seed supplies the initial tasks, notes and goal merged into a
// vault when it is first created.
//
// Tasks and notes are two independent fetches. Callers treat a failure of
// either as "no seed data" for that part.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/forest6511/deskvault/pkg/document"
)

// ErrNoSeed is returned by a source that has nothing for the requested part.
var ErrNoSeed = errors.New("seed: no seed data")

// Notes is the second seed document: notes plus an optional primary goal.
type Notes struct {
	Notes []document.Note
	Goal  *document.Goal
}

// Source provides seed data.
type Source interface {
	Tasks(ctx context.Context) ([]document.Task, error)
	Notes(ctx context.Context) (*Notes, error)
}

// Empty is a Source with no seed data.
type Empty struct{}

func (Empty) Tasks(context.Context) ([]document.Task, error) { return nil, ErrNoSeed }
func (Empty) Notes(context.Context) (*Notes, error) { return nil, ErrNoSeed }

// Static serves fixed seed data. A non-nil TasksErr or NotesErr is returned
// instead of the corresponding data.
type Static struct {
	TaskList []document.Task
	NoteSet  Notes
	TasksErr error
	NotesErr error
}

func (s *Static) Tasks(ctx context.Context) ([]document.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.TasksErr != nil {
		return nil, s.TasksErr
	}
	out := make([]document.Task, len(s.TaskList))
	copy(out, s.TaskList)
	return out, nil
}

func (s *Static) Notes(ctx context.Context) (*Notes, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.NotesErr != nil {
		return nil, s.NotesErr
	}
	n := &Notes{Notes: make([]document.Note, len(s.NoteSet.Notes))}
	copy(n.Notes, s.NoteSet.Notes)
	if s.NoteSet.Goal != nil {
		g := *s.NoteSet.Goal
		n.Goal = &g
	}
	return n, nil
}

// taskFile is the on-disk shape of a seed task.
type taskFile struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	Status      string     `json:"status" yaml:"status"`
	Owner       string     `json:"owner" yaml:"owner"`
	Priority    string     `json:"priority" yaml:"priority"`
	Tags        []string   `json:"tags" yaml:"tags"`
	CreatedAt   *time.Time `json:"createdAt" yaml:"createdAt"`
}

type noteFile struct {
	ID    string   `json:"id" yaml:"id"`
	Title string   `json:"title" yaml:"title"`
	Body  string   `json:"body" yaml:"body"`
	Tags  []string `json:"tags" yaml:"tags"`
}

type goalFile struct {
	Title    string  `json:"title" yaml:"title"`
	Deadline string  `json:"deadline" yaml:"deadline"`
	Current  float64 `json:"current" yaml:"current"`
	Target   float64 `json:"target" yaml:"target"`
	Notes    string  `json:"notes" yaml:"notes"`
}

type tasksDoc struct {
	Tasks []taskFile `json:"tasks" yaml:"tasks"`
}

type notesDoc struct {
	Notes []noteFile `json:"notes" yaml:"notes"`
	Goal  *goalFile  `json:"goal" yaml:"goal"`
}

// task converts f. An unrecognized status or priority is passed through
// as written, so the merge can skip and report that task alone.
func (f taskFile) task() document.Task {
	t := document.Task{
		ID:          f.ID,
		Title:       f.Title,
		Description: f.Description,
		Status:      document.StatusBacklog,
		Owner:       f.Owner,
		Priority:    document.DefaultPriority,
		Tags:        document.NormalizeTags(f.Tags),
	}
	if f.Status != "" {
		t.Status = document.Status(f.Status)
		if s, err := document.ParseStatus(f.Status); err == nil {
			t.Status = s
		}
	}
	if f.Priority != "" {
		t.Priority = document.Priority(f.Priority)
		if p, err := document.ParsePriority(f.Priority); err == nil {
			t.Priority = p
		}
	}
	if f.CreatedAt != nil {
		t.CreatedAt = f.CreatedAt.UTC()
	}
	return t
}

func (f noteFile) note() document.Note {
	return document.Note{
		ID:    f.ID,
		Title: f.Title,
		Body:  f.Body,
		Tags:  document.NormalizeTags(f.Tags),
	}
}

func (f *goalFile) goal() *document.Goal {
	if f == nil {
		return nil
	}
	return &document.Goal{
		Title:    f.Title,
		Deadline: f.Deadline,
		Current:  f.Current,
		Target:   f.Target,
		Notes:    f.Notes,
	}
}
