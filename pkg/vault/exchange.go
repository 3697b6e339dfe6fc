package vault

import (
	"context"
	"fmt"
	"time"

	"github.com/forest6511/deskvault/pkg/document"
)

// Export records an export in the activity log, persists it, and returns a
// deep copy of the resulting document. The copy already contains the
// export entry.
func (s *Session) Export(ctx context.Context) (*document.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.apply(ctx, func(doc *document.Document, now time.Time) (string, error) {
		return "Exported vault", nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("vault exported", "tasks", len(s.doc.Tasks), "notes", len(s.doc.Notes))
	return s.doc.Clone(), nil
}

// Import replaces the whole working document with doc. The document is
// validated first; a malformed document returns an error wrapping
// ErrMalformedDocument and the current state is kept.
func (s *Session) Import(ctx context.Context, doc *document.Document) error {
	next, err := document.Validate(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireUnlocked(); err != nil {
		return err
	}
	now := s.clock()
	next.AppendActivity(s.entry(now, fmt.Sprintf("Imported vault (%d tasks, %d notes)", len(next.Tasks), len(next.Notes))))
	if err := s.commit(ctx, next, now); err != nil {
		return err
	}
	s.logger.Info("vault imported", "tasks", len(next.Tasks), "notes", len(next.Notes))
	return nil
}
