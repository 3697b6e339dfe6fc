package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/forest6511/deskvault/pkg/document"
)

// Dir reads seed data from tasks.{json,yaml,yml} and notes.{json,yaml,yml}
// in a directory.
type Dir struct {
	path string
}

// NewDir returns a Source reading from path. The directory is not touched
// until a fetch.
func NewDir(path string) *Dir {
	return &Dir{path: path}
}

func (d *Dir) Tasks(ctx context.Context) ([]document.Task, error) {
	var doc tasksDoc
	if err := d.load(ctx, "tasks", &doc); err != nil {
		return nil, err
	}
	out := make([]document.Task, 0, len(doc.Tasks))
	for _, f := range doc.Tasks {
		out = append(out, f.task())
	}
	return out, nil
}

func (d *Dir) Notes(ctx context.Context) (*Notes, error) {
	var doc notesDoc
	if err := d.load(ctx, "notes", &doc); err != nil {
		return nil, err
	}
	out := &Notes{Goal: doc.Goal.goal()}
	for _, f := range doc.Notes {
		out.Notes = append(out.Notes, f.note())
	}
	return out, nil
}

// load decodes the first of base.json, base.yaml, base.yml that exists.
func (d *Dir) load(ctx context.Context, base string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		path := filepath.Join(d.path, base+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("seed: read %s: %w", path, err)
		}

		if ext == ".json" {
			err = json.Unmarshal(data, v)
		} else {
			err = yaml.Unmarshal(data, v)
		}
		if err != nil {
			return fmt.Errorf("seed: parse %s: %w", path, err)
		}
		return nil
	}
	return fmt.Errorf("%w: no %s file in %s", ErrNoSeed, base, d.path)
}
