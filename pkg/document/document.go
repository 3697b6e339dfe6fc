// Package document defines the plaintext vault document: tasks, notes, the
// activity log and goals, together with the canonical codec used to turn a
// document into the bytes that get encrypted.
//
// A Document is a plain value. It carries no key material and knows nothing
// about storage; the vault package owns the single working copy and decides
// when it is persisted.
package document

import (
	"slices"
	"strings"
	"time"
)

// CurrentVersion is the document schema version written by this package.
const CurrentVersion = 1

// Meta holds document-level bookkeeping.
type Meta struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Note is a free-form markdown note.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a copy of n that shares no memory with it.
func (n Note) Clone() Note {
	n.Tags = slices.Clone(n.Tags)
	return n
}

// Goal is a single tracked goal with numeric progress.
type Goal struct {
	Title    string  `json:"title"`
	Deadline string  `json:"deadline"`
	Current  float64 `json:"current"`
	Target   float64 `json:"target"`
	Notes    string  `json:"notes"`
}

// Progress returns completion as a percentage clamped to [0, 100].
// A goal without a positive target reports 0.
func (g Goal) Progress() float64 {
	if g.Target <= 0 {
		return 0
	}
	p := g.Current / g.Target * 100
	return min(max(p, 0), 100)
}

// IsZero reports whether the goal has never been set.
func (g Goal) IsZero() bool {
	return g == Goal{}
}

// Goals groups the document's goals.
type Goals struct {
	Primary Goal `json:"primary"`
}

// Document is the whole plaintext vault content.
type Document struct {
	Meta     Meta            `json:"meta"`
	Tasks    []Task          `json:"tasks"`
	Notes    []Note          `json:"notes"`
	Activity []ActivityEntry `json:"activity"`
	Goals    Goals           `json:"goals"`
}

// New returns an empty document stamped with now.
func New(now time.Time) *Document {
	now = now.UTC()
	return &Document{
		Meta: Meta{
			Version:   CurrentVersion,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Tasks:    []Task{},
		Notes:    []Note{},
		Activity: []ActivityEntry{},
	}
}

// Clone returns a deep copy of d. Mutating the copy never affects d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		Meta:     d.Meta,
		Tasks:    make([]Task, len(d.Tasks)),
		Notes:    make([]Note, len(d.Notes)),
		Activity: slices.Clone(d.Activity),
		Goals:    d.Goals,
	}
	if out.Activity == nil {
		out.Activity = []ActivityEntry{}
	}
	for i, t := range d.Tasks {
		out.Tasks[i] = t.Clone()
	}
	for i, n := range d.Notes {
		out.Notes[i] = n.Clone()
	}
	return out
}

// TaskIndex returns the index of the task with the given id, or -1.
func (d *Document) TaskIndex(id string) int {
	return slices.IndexFunc(d.Tasks, func(t Task) bool { return t.ID == id })
}

// NoteIndex returns the index of the note with the given id, or -1.
func (d *Document) NoteIndex(id string) int {
	return slices.IndexFunc(d.Notes, func(n Note) bool { return n.ID == id })
}

// Stats summarizes a document for dashboards.
type Stats struct {
	DaysActive   int
	TasksTotal   int
	TasksDone    int
	TasksBlocked int
	Notes        int
	Activity     int
}

// Stats computes summary counters as of now. DaysActive counts the creation
// day as day one.
func (d *Document) Stats(now time.Time) Stats {
	s := Stats{
		TasksTotal: len(d.Tasks),
		Notes:      len(d.Notes),
		Activity:   len(d.Activity),
	}
	if !d.Meta.CreatedAt.IsZero() && !now.Before(d.Meta.CreatedAt) {
		s.DaysActive = int(now.Sub(d.Meta.CreatedAt)/(24*time.Hour)) + 1
	}
	for _, t := range d.Tasks {
		switch t.Status {
		case StatusDone:
			s.TasksDone++
		case StatusBlocked:
			s.TasksBlocked++
		}
	}
	return s
}

// NormalizeTags trims, de-duplicates and sorts tags, dropping empty ones.
// The result is never nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			out = append(out, tag)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
