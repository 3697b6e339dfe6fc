package vault

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/forest6511/deskvault/pkg/document"
)

// Input validation limits
const (
	MaxTitleLength    = 256         // Maximum task or note title length (runes)
	MaxTextSize       = 1024 * 1024 // 1 MB maximum description or note body
	MaxTagCount       = 10          // Maximum number of tags per item
	MaxTagLength      = 64          // Maximum length of each tag
	MaxActivityLength = 1024        // Maximum activity text length (runes)
)

var tagRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// TaskInput describes a new task. Zero Status and Priority mean backlog and
// the default priority.
type TaskInput struct {
	Title       string
	Description string
	Status      document.Status
	Owner       string
	Priority    document.Priority
	Tags        []string
}

// TaskPatch lists the task fields to change; nil fields are left alone.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *document.Status
	Owner       *string
	Priority    *document.Priority
	Tags        *[]string
}

// NoteInput describes a new note.
type NoteInput struct {
	Title string
	Body  string
	Tags  []string
}

// NotePatch lists the note fields to change; nil fields are left alone.
type NotePatch struct {
	Title *string
	Body  *string
	Tags  *[]string
}

// change is applied to a clone of the working document. It returns the
// activity text to record, or "" when nothing changed.
type change func(doc *document.Document, now time.Time) (string, error)

// apply runs fn against a clone of the working document, appends one
// activity entry, stamps meta.updatedAt, re-encrypts and writes the whole
// document. Only after the write succeeds does the clone replace the
// working copy, so any failure leaves both copies as they were.
func (s *Session) apply(ctx context.Context, fn change) error {
	if err := s.requireUnlocked(); err != nil {
		return err
	}

	now := s.clock()
	next := s.doc.Clone()
	text, err := fn(next, now)
	if err != nil {
		return err
	}
	if text == "" {
		return nil
	}
	next.AppendActivity(s.entry(now, text))
	return s.commit(ctx, next, now)
}

func (s *Session) commit(ctx context.Context, next *document.Document, now time.Time) error {
	next.Meta.UpdatedAt = now

	blob, err := seal(s.key, next)
	if err != nil {
		return err
	}
	if err := s.store.WriteBlob(ctx, blob); err != nil {
		s.logger.Error("failed to persist vault", "error", err)
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	s.doc = next
	return nil
}

// Mutate applies an arbitrary change to the document and records activity
// as its log entry. The result must still be a valid document. fn runs
// with the session locked and must not call back into it.
func (s *Session) Mutate(ctx context.Context, activity string, fn func(doc *document.Document) error) error {
	if err := validateActivity(activity); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.apply(ctx, func(doc *document.Document, now time.Time) (string, error) {
		doneAt := make(map[string]time.Time)
		for _, t := range doc.Tasks {
			if t.DoneAt != nil {
				doneAt[t.ID] = *t.DoneAt
			}
		}
		if err := fn(doc); err != nil {
			return "", err
		}
		valid, err := document.Validate(doc)
		if err != nil {
			return "", err
		}
		// A completion time, once recorded, survives any edit. Otherwise it
		// is only set by reaching done inside this change.
		for i := range valid.Tasks {
			t := &valid.Tasks[i]
			if at, ok := doneAt[t.ID]; ok {
				t.DoneAt = &at
				continue
			}
			t.DoneAt = nil
			if t.Status == document.StatusDone {
				at := now.UTC()
				t.DoneAt = &at
			}
		}
		*doc = *valid
		return activity, nil
	})
}

// Task returns a copy of the task with the given id.
func (s *Session) Task(id string) (document.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireUnlocked(); err != nil {
		return document.Task{}, err
	}
	i := s.doc.TaskIndex(id)
	if i < 0 {
		return document.Task{}, fmt.Errorf("%w: task %s", ErrNotFound, id)
	}
	return s.doc.Tasks[i].Clone(), nil
}

// Note returns a copy of the note with the given id.
func (s *Session) Note(id string) (document.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireUnlocked(); err != nil {
		return document.Note{}, err
	}
	i := s.doc.NoteIndex(id)
	if i < 0 {
		return document.Note{}, fmt.Errorf("%w: note %s", ErrNotFound, id)
	}
	return s.doc.Notes[i].Clone(), nil
}

// AddTask creates a task and returns it.
func (s *Session) AddTask(ctx context.Context, in TaskInput) (document.Task, error) {
	if in.Status == "" {
		in.Status = document.StatusBacklog
	}
	if in.Priority == "" {
		in.Priority = document.DefaultPriority
	}
	if err := validateTask(in.Title, in.Description, in.Status, in.Priority, in.Tags); err != nil {
		return document.Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var created document.Task
	err := s.apply(ctx, func(doc *document.Document, now time.Time) (string, error) {
		t := document.Task{
			ID:          s.newID(),
			Title:       strings.TrimSpace(in.Title),
			Description: in.Description,
			Status:      document.StatusBacklog,
			Owner:       strings.TrimSpace(in.Owner),
			Priority:    in.Priority,
			Tags:        document.NormalizeTags(in.Tags),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		t.SetStatus(in.Status, now)
		doc.Tasks = append(doc.Tasks, t)
		created = t.Clone()
		return fmt.Sprintf("Added task %q", t.Title), nil
	})
	return created, err
}

// UpdateTask applies patch to a task. A status change follows the same
// rules as MoveTask.
func (s *Session) UpdateTask(ctx context.Context, id string, patch TaskPatch) (document.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated document.Task
	err := s.apply(ctx, func(doc *document.Document, now time.Time) (string, error) {
		i := doc.TaskIndex(id)
		if i < 0 {
			return "", fmt.Errorf("%w: task %s", ErrNotFound, id)
		}
		t := &doc.Tasks[i]

		title, desc, status, prio, tags := t.Title, t.Description, t.Status, t.Priority, t.Tags
		if patch.Title != nil {
			title = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			desc = *patch.Description
		}
		if patch.Status != nil {
			status = *patch.Status
		}
		if patch.Priority != nil {
			prio = *patch.Priority
		}
		if patch.Tags != nil {
			tags = *patch.Tags
		}
		if err := validateTask(title, desc, status, prio, tags); err != nil {
			return "", err
		}

		oldStatus := t.Status
		t.Title, t.Description, t.Priority = title, desc, prio
		t.Tags = document.NormalizeTags(tags)
		if patch.Owner != nil {
			t.Owner = strings.TrimSpace(*patch.Owner)
		}
		t.UpdatedAt = now
		if status != oldStatus {
			t.SetStatus(status, now)
		}
		updated = t.Clone()

		if status != oldStatus {
			return fmt.Sprintf("Updated task %q and moved it from %s to %s", t.Title, oldStatus, status), nil
		}
		return fmt.Sprintf("Updated task %q", t.Title), nil
	})
	return updated, err
}

// MoveTask changes a task's status. The first move to done records doneAt,
// which later moves never change. Moving a task to its current status does
// nothing and is not persisted.
func (s *Session) MoveTask(ctx context.Context, id string, status document.Status) (document.Task, error) {
	if !status.Valid() {
		return document.Task{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var moved document.Task
	err := s.apply(ctx, func(doc *document.Document, now time.Time) (string, error) {
		i := doc.TaskIndex(id)
		if i < 0 {
			return "", fmt.Errorf("%w: task %s", ErrNotFound, id)
		}
		t := &doc.Tasks[i]
		from := t.Status
		if from == status {
			moved = t.Clone()
			return "", nil
		}
		t.SetStatus(status, now)
		moved = t.Clone()
		return fmt.Sprintf("Moved task %q from %s to %s", t.Title, from, status), nil
	})
	return moved, err
}

// DeleteTask removes a task.
func (s *Session) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.apply(ctx, func(doc *document.Document, now time.Time) (string, error) {
		i := doc.TaskIndex(id)
		if i < 0 {
			return "", fmt.Errorf("%w: task %s", ErrNotFound, id)
		}
		title := doc.Tasks[i].Title
		doc.Tasks = append(doc.Tasks[:i], doc.Tasks[i+1:]...)
		return fmt.Sprintf("Deleted task %q", title), nil
	})
}

// AddNote creates a note and returns it.
func (s *Session) AddNote(ctx context.Context, in NoteInput) (document.Note, error) {
	if err := validateNote(in.Title, in.Body, in.Tags); err != nil {
		return document.Note{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var created document.Note
	err := s.apply(ctx, func(doc *document.Document, now time.Time) (string, error) {
		n := document.Note{
			ID:        s.newID(),
			Title:     strings.TrimSpace(in.Title),
			Body:      in.Body,
			Tags:      document.NormalizeTags(in.Tags),
			UpdatedAt: now,
		}
		doc.Notes = append(doc.Notes, n)
		created = n.Clone()
		return fmt.Sprintf("Added note %q", n.Title), nil
	})
	return created, err
}

// UpdateNote applies patch to a note.
func (s *Session) UpdateNote(ctx context.Context, id string, patch NotePatch) (document.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated document.Note
	err := s.apply(ctx, func(doc *document.Document, now time.Time) (string, error) {
		i := doc.NoteIndex(id)
		if i < 0 {
			return "", fmt.Errorf("%w: note %s", ErrNotFound, id)
		}
		n := &doc.Notes[i]

		title, body, tags := n.Title, n.Body, n.Tags
		if patch.Title != nil {
			title = strings.TrimSpace(*patch.Title)
		}
		if patch.Body != nil {
			body = *patch.Body
		}
		if patch.Tags != nil {
			tags = *patch.Tags
		}
		if err := validateNote(title, body, tags); err != nil {
			return "", err
		}

		n.Title, n.Body, n.Tags = title, body, document.NormalizeTags(tags)
		n.UpdatedAt = now
		updated = n.Clone()
		return fmt.Sprintf("Edited note %q", n.Title), nil
	})
	return updated, err
}

// DeleteNote removes a note.
func (s *Session) DeleteNote(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.apply(ctx, func(doc *document.Document, now time.Time) (string, error) {
		i := doc.NoteIndex(id)
		if i < 0 {
			return "", fmt.Errorf("%w: note %s", ErrNotFound, id)
		}
		title := doc.Notes[i].Title
		doc.Notes = append(doc.Notes[:i], doc.Notes[i+1:]...)
		return fmt.Sprintf("Deleted note %q", title), nil
	})
}

// SetGoal replaces the primary goal.
func (s *Session) SetGoal(ctx context.Context, goal document.Goal) error {
	goal.Title = strings.TrimSpace(goal.Title)
	if goal.Title == "" {
		return fmt.Errorf("%w: goal title is required", ErrInvalidInput)
	}
	if !finite(goal.Current) || !finite(goal.Target) {
		return fmt.Errorf("%w: goal values must be finite numbers", ErrInvalidInput)
	}
	if goal.Target < 0 {
		return fmt.Errorf("%w: goal target must not be negative", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.apply(ctx, func(doc *document.Document, now time.Time) (string, error) {
		doc.Goals.Primary = goal
		return fmt.Sprintf("Set goal %q", goal.Title), nil
	})
}

// SetGoalProgress updates the primary goal's current value.
func (s *Session) SetGoalProgress(ctx context.Context, current float64) error {
	if !finite(current) {
		return fmt.Errorf("%w: goal progress must be a finite number", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.apply(ctx, func(doc *document.Document, now time.Time) (string, error) {
		g := &doc.Goals.Primary
		if g.IsZero() {
			return "", fmt.Errorf("%w: no goal set", ErrNotFound)
		}
		g.Current = current
		return fmt.Sprintf("Goal %q progress %s / %s", g.Title, formatAmount(g.Current), formatAmount(g.Target)), nil
	})
}

// LogActivity appends a free-text entry to the activity log.
func (s *Session) LogActivity(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if err := validateActivity(text); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.apply(ctx, func(doc *document.Document, now time.Time) (string, error) {
		return text, nil
	})
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func formatAmount(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

func validateTask(title, description string, status document.Status, priority document.Priority, tags []string) error {
	if err := validateTitle(title); err != nil {
		return err
	}
	if len(description) > MaxTextSize {
		return fmt.Errorf("%w: description exceeds %d bytes", ErrInvalidInput, MaxTextSize)
	}
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	if !priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, priority)
	}
	return validateTags(tags)
}

func validateNote(title, body string, tags []string) error {
	if err := validateTitle(title); err != nil {
		return err
	}
	if len(body) > MaxTextSize {
		return fmt.Errorf("%w: note body exceeds %d bytes", ErrInvalidInput, MaxTextSize)
	}
	return validateTags(tags)
}

func validateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters", ErrInvalidInput, MaxTitleLength)
	}
	return nil
}

func validateTags(tags []string) error {
	tags = document.NormalizeTags(tags)
	if len(tags) > MaxTagCount {
		return fmt.Errorf("%w: at most %d tags allowed", ErrInvalidInput, MaxTagCount)
	}
	for _, tag := range tags {
		if len(tag) > MaxTagLength || !tagRegex.MatchString(tag) {
			return fmt.Errorf("%w: invalid tag %q", ErrInvalidInput, tag)
		}
	}
	return nil
}

func validateActivity(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: activity text is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(text) > MaxActivityLength {
		return fmt.Errorf("%w: activity text exceeds %d characters", ErrInvalidInput, MaxActivityLength)
	}
	return nil
}
