package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/fxamacker/cbor/v2"
)

// ErrMalformed is returned when bytes or a caller-supplied document do not
// describe a valid vault document. Wrapped errors add the offending field.
var ErrMalformed = errors.New("document: malformed document")

// encMode uses Core Deterministic Encoding (RFC 8949 §4.2) so the same
// document always encodes to the same bytes. Times are RFC 3339 text.
var encMode cbor.EncMode

// decMode rejects duplicate map keys; unknown fields are ignored.
var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encOptions.NilContainers = cbor.NilContainerAsEmpty
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("document: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic("document: CBOR decoder initialization failed: " + err.Error())
	}
}

// wireDocument mirrors Document with optional parts as pointers or nil
// slices so absence can be told apart from an empty value.
type wireDocument struct {
	Meta     *Meta           `json:"meta"`
	Tasks    []Task          `json:"tasks"`
	Notes    []Note          `json:"notes"`
	Activity []ActivityEntry `json:"activity"`
	Goals    *Goals          `json:"goals"`
}

// Encode serializes d to canonical CBOR.
func Encode(d *Document) ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil document", ErrMalformed)
	}
	data, err := encMode.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("document: encode: %w", err)
	}
	return data, nil
}

// Decode parses CBOR produced by Encode. Missing tasks, notes, activity or
// goals decode to empty values; a missing meta or a wrongly typed part is
// ErrMalformed.
func Decode(data []byte) (*Document, error) {
	var w wireDocument
	if err := decMode.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return w.document()
}

// EncodeJSON serializes d as indented JSON for the export file.
func EncodeJSON(d *Document) ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil document", ErrMalformed)
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("document: encode json: %w", err)
	}
	return data, nil
}

// DecodeJSON parses a JSON document with the same rules as Decode.
func DecodeJSON(data []byte) (*Document, error) {
	var w wireDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return w.document()
}

// Validate checks a caller-built document with the same rules as Decode and
// returns a normalized deep copy. d itself is left untouched.
func Validate(d *Document) (*Document, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil document", ErrMalformed)
	}
	c := d.Clone()
	w := wireDocument{
		Meta:     &c.Meta,
		Tasks:    c.Tasks,
		Notes:    c.Notes,
		Activity: c.Activity,
		Goals:    &c.Goals,
	}
	return w.document()
}

func (w *wireDocument) document() (*Document, error) {
	if w.Meta == nil {
		return nil, fmt.Errorf("%w: missing meta", ErrMalformed)
	}
	if w.Meta.Version < 1 || w.Meta.Version > CurrentVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformed, w.Meta.Version)
	}

	d := &Document{
		Meta: Meta{
			Version:   w.Meta.Version,
			CreatedAt: w.Meta.CreatedAt.UTC(),
			UpdatedAt: w.Meta.UpdatedAt.UTC(),
		},
		Tasks:    make([]Task, 0, len(w.Tasks)),
		Notes:    make([]Note, 0, len(w.Notes)),
		Activity: make([]ActivityEntry, 0, min(len(w.Activity), MaxActivity)),
	}
	if w.Goals != nil {
		d.Goals = *w.Goals
	}
	if g := d.Goals.Primary; !finite(g.Current) || !finite(g.Target) {
		return nil, fmt.Errorf("%w: goals.primary: current and target must be finite", ErrMalformed)
	}

	seen := make(map[string]struct{}, len(w.Tasks))
	for i, t := range w.Tasks {
		if t.ID == "" {
			return nil, fmt.Errorf("%w: tasks[%d]: missing id", ErrMalformed, i)
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("%w: tasks[%d]: duplicate id %q", ErrMalformed, i, t.ID)
		}
		seen[t.ID] = struct{}{}

		if t.Status == "" {
			t.Status = StatusBacklog
		}
		if !t.Status.Valid() {
			return nil, fmt.Errorf("%w: tasks[%d]: unknown status %q", ErrMalformed, i, t.Status)
		}
		if t.Priority == "" {
			t.Priority = DefaultPriority
		}
		if !t.Priority.Valid() {
			return nil, fmt.Errorf("%w: tasks[%d]: unknown priority %q", ErrMalformed, i, t.Priority)
		}

		t.Tags = NormalizeTags(t.Tags)
		t.CreatedAt = t.CreatedAt.UTC()
		t.UpdatedAt = t.UpdatedAt.UTC()
		if t.DoneAt != nil {
			at := t.DoneAt.UTC()
			t.DoneAt = &at
		} else if t.Status == StatusDone {
			// A done task always carries a completion time.
			at := t.UpdatedAt
			t.DoneAt = &at
		}
		d.Tasks = append(d.Tasks, t)
	}

	clear(seen)
	for i, n := range w.Notes {
		if n.ID == "" {
			return nil, fmt.Errorf("%w: notes[%d]: missing id", ErrMalformed, i)
		}
		if _, dup := seen[n.ID]; dup {
			return nil, fmt.Errorf("%w: notes[%d]: duplicate id %q", ErrMalformed, i, n.ID)
		}
		seen[n.ID] = struct{}{}

		n.Tags = NormalizeTags(n.Tags)
		n.UpdatedAt = n.UpdatedAt.UTC()
		d.Notes = append(d.Notes, n)
	}

	for _, e := range w.Activity[:min(len(w.Activity), MaxActivity)] {
		e.Time = e.Time.UTC()
		d.Activity = append(d.Activity, e)
	}

	return d, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
