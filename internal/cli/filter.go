package cli

import (
	"strings"

	"github.com/forest6511/deskvault/pkg/document"
)

// TaskFilter selects tasks for listings. Zero fields match everything.
type TaskFilter struct {
	Statuses []document.Status
	Tags     []string // glob patterns
	Owner    string
	Query    string // case-insensitive substring of title or description
}

// Match reports whether t passes the filter.
func (f TaskFilter) Match(t document.Task) (bool, error) {
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, t.Status) {
		return false, nil
	}
	if f.Owner != "" && !strings.EqualFold(f.Owner, t.Owner) {
		return false, nil
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(t.Title), q) && !strings.Contains(strings.ToLower(t.Description), q) {
			return false, nil
		}
	}
	return MatchAny(f.Tags, t.Tags)
}

// Apply returns the tasks that pass the filter, in order.
func (f TaskFilter) Apply(tasks []document.Task) ([]document.Task, error) {
	out := make([]document.Task, 0, len(tasks))
	for _, t := range tasks {
		ok, err := f.Match(t)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// NoteFilter selects notes for listings.
type NoteFilter struct {
	Tags  []string // glob patterns
	Query string   // case-insensitive substring of title or body
}

// Apply returns the notes that pass the filter, in order.
func (f NoteFilter) Apply(notes []document.Note) ([]document.Note, error) {
	q := strings.ToLower(f.Query)
	out := make([]document.Note, 0, len(notes))
	for _, n := range notes {
		if q != "" && !strings.Contains(strings.ToLower(n.Title), q) && !strings.Contains(strings.ToLower(n.Body), q) {
			continue
		}
		ok, err := MatchAny(f.Tags, n.Tags)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, n)
		}
	}
	return out, nil
}

func containsStatus(statuses []document.Status, s document.Status) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}
