package document

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"pgregory.net/rapid"
)

// =============================================================================
// Generators
// =============================================================================

func timeGenerator() *rapid.Generator[time.Time] {
	return rapid.Custom(func(t *rapid.T) time.Time {
		sec := rapid.Int64Range(0, 4102444800).Draw(t, "sec") // up to 2100-01-01
		nsec := rapid.Int64Range(0, 999_999_999).Draw(t, "nsec")
		return time.Unix(sec, nsec).UTC()
	})
}

func tagsGenerator() *rapid.Generator[[]string] {
	return rapid.SliceOfN(rapid.StringMatching(`[a-z]{1,8}`), 0, 4)
}

func documentGenerator() *rapid.Generator[*Document] {
	return rapid.Custom(func(t *rapid.T) *Document {
		d := New(timeGenerator().Draw(t, "createdAt"))
		d.Meta.UpdatedAt = timeGenerator().Draw(t, "updatedAt")

		nTasks := rapid.IntRange(0, 8).Draw(t, "nTasks")
		for i := 0; i < nTasks; i++ {
			task := Task{
				ID:          fmt.Sprintf("task-%d", i),
				Title:       rapid.StringMatching(`[A-Za-z0-9 ]{0,30}`).Draw(t, "title"),
				Description: rapid.String().Draw(t, "description"),
				Status:      rapid.SampledFrom(Statuses).Draw(t, "status"),
				Owner:       rapid.StringMatching(`[a-z]{0,10}`).Draw(t, "owner"),
				Priority:    rapid.SampledFrom([]Priority{PriorityA, PriorityB, PriorityC}).Draw(t, "priority"),
				Tags:        NormalizeTags(tagsGenerator().Draw(t, "tags")),
				CreatedAt:   timeGenerator().Draw(t, "taskCreated"),
				UpdatedAt:   timeGenerator().Draw(t, "taskUpdated"),
			}
			if task.Status == StatusDone || rapid.Bool().Draw(t, "wasDone") {
				at := timeGenerator().Draw(t, "doneAt")
				task.DoneAt = &at
			}
			d.Tasks = append(d.Tasks, task)
		}

		nNotes := rapid.IntRange(0, 5).Draw(t, "nNotes")
		for i := 0; i < nNotes; i++ {
			d.Notes = append(d.Notes, Note{
				ID:        fmt.Sprintf("note-%d", i),
				Title:     rapid.StringMatching(`[A-Za-z ]{0,20}`).Draw(t, "noteTitle"),
				Body:      rapid.String().Draw(t, "body"),
				Tags:      NormalizeTags(tagsGenerator().Draw(t, "noteTags")),
				UpdatedAt: timeGenerator().Draw(t, "noteUpdated"),
			})
		}

		nActivity := rapid.IntRange(0, 20).Draw(t, "nActivity")
		for i := 0; i < nActivity; i++ {
			d.Activity = append(d.Activity, ActivityEntry{
				ID:   fmt.Sprintf("act-%d", i),
				Time: timeGenerator().Draw(t, "activityTime"),
				Text: rapid.String().Draw(t, "text"),
			})
		}

		if rapid.Bool().Draw(t, "hasGoal") {
			d.Goals.Primary = Goal{
				Title:    rapid.StringMatching(`[A-Za-z ]{1,20}`).Draw(t, "goalTitle"),
				Deadline: rapid.StringMatching(`[A-Za-z0-9 ]{0,12}`).Draw(t, "deadline"),
				Current:  float64(rapid.IntRange(0, 100000).Draw(t, "current")),
				Target:   float64(rapid.IntRange(1, 100000).Draw(t, "target")),
				Notes:    rapid.String().Draw(t, "goalNotes"),
			}
		}
		return d
	})
}

// =============================================================================
// Round-trip properties
// =============================================================================

func testCodec_RoundTrip_Properties(t *rapid.T) {
	d := documentGenerator().Draw(t, "document")

	first, err := Encode(d)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(first)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	second, err := Encode(decoded)
	if err != nil {
		t.Fatalf("re-Encode: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("decode(encode(d)) does not re-encode to the same bytes")
	}

	if len(decoded.Tasks) != len(d.Tasks) || len(decoded.Notes) != len(d.Notes) || len(decoded.Activity) != len(d.Activity) {
		t.Fatalf("collection sizes changed: tasks %d->%d notes %d->%d activity %d->%d",
			len(d.Tasks), len(decoded.Tasks), len(d.Notes), len(decoded.Notes), len(d.Activity), len(decoded.Activity))
	}
	for i := range d.Tasks {
		want, got := d.Tasks[i], decoded.Tasks[i]
		if got.ID != want.ID || got.Title != want.Title || got.Status != want.Status || !got.UpdatedAt.Equal(want.UpdatedAt) {
			t.Fatalf("task %d changed: got %+v, want %+v", i, got, want)
		}
		if (got.DoneAt == nil) != (want.DoneAt == nil) || (got.DoneAt != nil && !got.DoneAt.Equal(*want.DoneAt)) {
			t.Fatalf("task %d doneAt changed: got %v, want %v", i, got.DoneAt, want.DoneAt)
		}
	}
	if decoded.Goals.Primary != d.Goals.Primary {
		t.Fatalf("goal changed: got %+v, want %+v", decoded.Goals.Primary, d.Goals.Primary)
	}
}

func TestCodec_RoundTrip_Properties(t *testing.T) {
	rapid.Check(t, testCodec_RoundTrip_Properties)
}

func FuzzCodec_RoundTrip_Properties(f *testing.F) {
	f.Fuzz(rapid.MakeFuzz(testCodec_RoundTrip_Properties))
}

func testCodec_JSONRoundTrip_Properties(t *rapid.T) {
	d := documentGenerator().Draw(t, "document")

	data, err := EncodeJSON(d)
	if err != nil {
		t.Fatalf("EncodeJSON: %v", err)
	}
	decoded, err := DecodeJSON(data)
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}

	want, _ := Encode(d)
	got, _ := Encode(decoded)
	if !bytes.Equal(want, got) {
		t.Fatalf("JSON round trip changed the document")
	}
}

func TestCodec_JSONRoundTrip_Properties(t *testing.T) {
	rapid.Check(t, testCodec_JSONRoundTrip_Properties)
}

// =============================================================================
// Decode rules
// =============================================================================

func TestEncodeDeterministic(t *testing.T) {
	d := New(time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC))
	d.Tasks = append(d.Tasks, Task{ID: "a", Title: "x", Status: StatusBacklog, Priority: PriorityA, Tags: []string{"b", "a"}})

	first, err := Encode(d)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	second, err := Encode(d.Clone())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("Encode is not deterministic: %x != %x", first, second)
	}
}

func TestDecodeDefaults(t *testing.T) {
	raw, err := cbor.Marshal(map[string]any{
		"meta": map[string]any{"version": 1},
	})
	if err != nil {
		t.Fatalf("cbor.Marshal: %v", err)
	}

	d, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if d.Tasks == nil || d.Notes == nil || d.Activity == nil {
		t.Error("Decode() should default missing collections to empty, non-nil slices")
	}
	if !d.Goals.Primary.IsZero() {
		t.Errorf("Decode() goal = %+v, want zero goal", d.Goals.Primary)
	}
}

func TestDecodeTaskDefaults(t *testing.T) {
	data := []byte(`{
		"meta": {"version": 1},
		"tasks": [
			{"id": "t1", "title": "no status or priority", "tags": [" x ", "x", ""]},
			{"id": "t2", "title": "done without doneAt", "status": "done", "updatedAt": "2026-03-01T10:00:00Z"}
		]
	}`)

	d, err := DecodeJSON(data)
	if err != nil {
		t.Fatalf("DecodeJSON() error = %v", err)
	}

	if got := d.Tasks[0]; got.Status != StatusBacklog || got.Priority != DefaultPriority {
		t.Errorf("task defaults = (%q, %q), want (%q, %q)", got.Status, got.Priority, StatusBacklog, DefaultPriority)
	}
	if got := d.Tasks[0].Tags; len(got) != 1 || got[0] != "x" {
		t.Errorf("tags = %q, want [x]", got)
	}
	want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if got := d.Tasks[1].DoneAt; got == nil || !got.Equal(want) {
		t.Errorf("doneAt = %v, want %v", got, want)
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{"missing meta", `{"tasks": []}`, "missing meta"},
		{"version zero", `{"meta": {"version": 0}}`, "unsupported version"},
		{"future version", `{"meta": {"version": 99}}`, "unsupported version"},
		{"tasks not a sequence", `{"meta": {"version": 1}, "tasks": {"id": "x"}}`, ""},
		{"notes not a sequence", `{"meta": {"version": 1}, "notes": "hello"}`, ""},
		{"task without id", `{"meta": {"version": 1}, "tasks": [{"title": "x"}]}`, "missing id"},
		{"duplicate task id", `{"meta": {"version": 1}, "tasks": [{"id": "a"}, {"id": "a"}]}`, "duplicate id"},
		{"duplicate note id", `{"meta": {"version": 1}, "notes": [{"id": "n"}, {"id": "n"}]}`, "duplicate id"},
		{"unknown status", `{"meta": {"version": 1}, "tasks": [{"id": "a", "status": "archived"}]}`, "unknown status"},
		{"unknown priority", `{"meta": {"version": 1}, "tasks": [{"id": "a", "priority": "Z"}]}`, "unknown priority"},
		{"not json", `not json at all`, ""},
		{"top-level array", `[1, 2, 3]`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeJSON([]byte(tt.json))
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("DecodeJSON() error = %v, want ErrMalformed", err)
			}
			if tt.want != "" && !strings.Contains(err.Error(), tt.want) {
				t.Errorf("DecodeJSON() error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestDecodeCBORMalformed(t *testing.T) {
	tasksAsMap, err := cbor.Marshal(map[string]any{
		"meta":  map[string]any{"version": 1},
		"tasks": map[string]any{"id": "x"},
	})
	if err != nil {
		t.Fatalf("cbor.Marshal: %v", err)
	}

	valid, err := Encode(New(time.Now()))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty input", nil},
		{"garbage", []byte{0xff, 0x00, 0x13}},
		{"tasks as map", tasksAsMap},
		{"trailing bytes", append(append([]byte(nil), valid...), 0x01)},
		{"truncated", valid[:len(valid)-1]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.data); !errors.Is(err, ErrMalformed) {
				t.Errorf("Decode() error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestDecodeTrimsActivity(t *testing.T) {
	d := New(time.Now())
	for i := 0; i < MaxActivity+50; i++ {
		d.Activity = append(d.Activity, ActivityEntry{ID: fmt.Sprint(i), Text: fmt.Sprintf("entry %d", i)})
	}

	data, err := Encode(d)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(decoded.Activity) != MaxActivity {
		t.Fatalf("activity length = %d, want %d", len(decoded.Activity), MaxActivity)
	}
	if decoded.Activity[0].ID != "0" || decoded.Activity[MaxActivity-1].ID != fmt.Sprint(MaxActivity-1) {
		t.Errorf("decode kept the wrong end of the activity log")
	}
}

func TestValidateDoesNotModifyInput(t *testing.T) {
	d := New(time.Now())
	d.Tasks = append(d.Tasks, Task{ID: "a", Tags: []string{"z", "a", "z"}})

	v, err := Validate(d)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(d.Tasks[0].Tags) != 3 || d.Tasks[0].Status != "" {
		t.Error("Validate() modified its input")
	}
	if got := v.Tasks[0].Tags; len(got) != 2 || got[0] != "a" {
		t.Errorf("Validate() tags = %q, want [a z]", got)
	}

	if _, err := Validate(nil); !errors.Is(err, ErrMalformed) {
		t.Errorf("Validate(nil) error = %v, want ErrMalformed", err)
	}
}

func TestValidateRejectsNonFiniteGoal(t *testing.T) {
	tests := []struct {
		name string
		goal Goal
	}{
		{"NaN current", Goal{Title: "g", Current: math.NaN(), Target: 10}},
		{"infinite target", Goal{Title: "g", Target: math.Inf(1)}},
		{"negative infinite current", Goal{Title: "g", Current: math.Inf(-1), Target: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(time.Now())
			d.Goals.Primary = tt.goal
			if _, err := Validate(d); !errors.Is(err, ErrMalformed) {
				t.Errorf("Validate() error = %v, want ErrMalformed", err)
			}

			// CBOR can carry NaN and Inf, so Decode must catch them too.
			data, err := Encode(d)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if _, err := Decode(data); !errors.Is(err, ErrMalformed) {
				t.Errorf("Decode() error = %v, want ErrMalformed", err)
			}
		})
	}
}
