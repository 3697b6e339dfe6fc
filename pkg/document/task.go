package document

import (
	"fmt"
	"slices"
	"time"
)

// Status is a task's kanban column.
type Status string

// Task statuses.
const (
	StatusBacklog    Status = "backlog"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusDone       Status = "done"
)

// Statuses lists every valid status in board order.
var Statuses = []Status{StatusBacklog, StatusInProgress, StatusBlocked, StatusDone}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return slices.Contains(Statuses, s)
}

// ParseStatus converts user input into a Status. "in-progress" is accepted as
// an alias for in_progress.
func ParseStatus(s string) (Status, error) {
	if s == "in-progress" {
		return StatusInProgress, nil
	}
	status := Status(s)
	if !status.Valid() {
		return "", fmt.Errorf("document: unknown status %q", s)
	}
	return status, nil
}

// Priority is a task's A/B/C priority.
type Priority string

// Task priorities.
const (
	PriorityA Priority = "A"
	PriorityB Priority = "B"
	PriorityC Priority = "C"
)

// DefaultPriority is assigned to tasks created or decoded without one.
const DefaultPriority = PriorityB

// Valid reports whether p is A, B or C.
func (p Priority) Valid() bool {
	return p == PriorityA || p == PriorityB || p == PriorityC
}

// ParsePriority converts user input ("a", "B", ...) into a Priority.
func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if len(s) == 1 && s[0] >= 'a' && s[0] <= 'c' {
		p = Priority(string(s[0] - 'a' + 'A'))
	}
	if !p.Valid() {
		return "", fmt.Errorf("document: unknown priority %q", s)
	}
	return p, nil
}

// Task is a single kanban task.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Owner       string     `json:"owner"`
	Priority    Priority   `json:"priority"`
	Tags        []string   `json:"tags"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DoneAt      *time.Time `json:"doneAt,omitempty"`
}

// SetStatus moves the task to status and stamps UpdatedAt. The first move
// to done records DoneAt; it is never cleared or overwritten afterwards,
// including when the task leaves done and comes back.
func (t *Task) SetStatus(status Status, now time.Time) {
	now = now.UTC()
	t.Status = status
	t.UpdatedAt = now
	if status == StatusDone && t.DoneAt == nil {
		t.DoneAt = &now
	}
}

// Done reports whether the task currently sits in the done column.
func (t *Task) Done() bool {
	return t.Status == StatusDone
}

// Clone returns a copy of t that shares no memory with it.
func (t Task) Clone() Task {
	t.Tags = slices.Clone(t.Tags)
	if t.DoneAt != nil {
		at := *t.DoneAt
		t.DoneAt = &at
	}
	return t
}
