package vault

import (
	"context"
	"errors"
	"time"

	"github.com/forest6511/deskvault/pkg/document"
	"github.com/forest6511/deskvault/pkg/seed"
)

// mergeSeed unions seed tasks and notes into doc by id, keeping entries
// already present. Tasks and notes are fetched independently; a failure of
// either only means that part contributes nothing. It returns how many
// tasks and notes were added.
func (s *Session) mergeSeed(ctx context.Context, doc *document.Document, now time.Time) (nTasks, nNotes int) {
	tasks, err := s.seed.Tasks(ctx)
	if err != nil {
		s.logSeedError("tasks", err)
	}
	for i, t := range tasks {
		if !t.Status.Valid() || !t.Priority.Valid() {
			s.logger.Warn("skipping seed task", "index", i, "id", t.ID, "status", t.Status, "priority", t.Priority)
			continue
		}
		if t.ID == "" {
			t.ID = s.newID()
		}
		if doc.TaskIndex(t.ID) >= 0 {
			s.logger.Debug("skipping duplicate seed task", "index", i, "id", t.ID)
			continue
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		if t.UpdatedAt.IsZero() {
			t.UpdatedAt = t.CreatedAt
		}
		if t.Done() && t.DoneAt == nil {
			at := now
			t.DoneAt = &at
		}
		t.Tags = document.NormalizeTags(t.Tags)
		doc.Tasks = append(doc.Tasks, t)
		nTasks++
	}

	notes, err := s.seed.Notes(ctx)
	if err != nil {
		s.logSeedError("notes", err)
		return nTasks, nNotes
	}
	if notes == nil {
		return nTasks, nNotes
	}
	for _, n := range notes.Notes {
		if n.ID == "" {
			n.ID = s.newID()
		}
		if doc.NoteIndex(n.ID) >= 0 {
			continue
		}
		if n.UpdatedAt.IsZero() {
			n.UpdatedAt = now
		}
		n.Tags = document.NormalizeTags(n.Tags)
		doc.Notes = append(doc.Notes, n)
		nNotes++
	}
	if g := notes.Goal; g != nil && doc.Goals.Primary.IsZero() {
		if finite(g.Current) && finite(g.Target) {
			doc.Goals.Primary = *g
		} else {
			s.logger.Warn("skipping seed goal with non-finite values")
		}
	}
	return nTasks, nNotes
}

func (s *Session) logSeedError(part string, err error) {
	if errors.Is(err, seed.ErrNoSeed) {
		s.logger.Debug("no seed data", "part", part)
		return
	}
	s.logger.Warn("seed data unavailable", "part", part, "error", err)
}
