package document

import (
	"fmt"
	"slices"
	"testing"
	"time"
)

var t0 = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func TestAppendActivityCap(t *testing.T) {
	d := New(t0)
	for i := 0; i < 600; i++ {
		d.AppendActivity(ActivityEntry{
			ID:   fmt.Sprint(i),
			Time: t0.Add(time.Duration(i) * time.Second),
			Text: fmt.Sprintf("entry %d", i),
		})
	}

	if len(d.Activity) != MaxActivity {
		t.Fatalf("len(Activity) = %d, want %d", len(d.Activity), MaxActivity)
	}
	// Most recent first: entry 599 at the head, entry 100 at the tail.
	for i, e := range d.Activity {
		if want := fmt.Sprint(599 - i); e.ID != want {
			t.Fatalf("Activity[%d].ID = %s, want %s", i, e.ID, want)
		}
	}
}

func TestRecentActivity(t *testing.T) {
	d := New(t0)
	for i := 0; i < 5; i++ {
		d.AppendActivity(ActivityEntry{ID: fmt.Sprint(i)})
	}

	tests := []struct {
		n    int
		want []string
	}{
		{2, []string{"4", "3"}},
		{0, []string{"4", "3", "2", "1", "0"}},
		{50, []string{"4", "3", "2", "1", "0"}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.n), func(t *testing.T) {
			var got []string
			for _, e := range d.RecentActivity(tt.n) {
				got = append(got, e.ID)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("RecentActivity(%d) = %v, want %v", tt.n, got, tt.want)
			}
		})
	}
}

func TestSetStatusDoneAtMonotonic(t *testing.T) {
	task := Task{ID: "t", Title: "Write report", Status: StatusBacklog}

	task.SetStatus(StatusInProgress, t0)
	if task.DoneAt != nil {
		t.Fatal("DoneAt set before the task was ever done")
	}

	firstDone := t0.Add(time.Hour)
	task.SetStatus(StatusDone, firstDone)
	if task.DoneAt == nil || !task.DoneAt.Equal(firstDone) {
		t.Fatalf("DoneAt = %v, want %v", task.DoneAt, firstDone)
	}

	// Editing other fields leaves DoneAt alone.
	task.Title = "Write final report"
	task.Description = "with appendix"
	task.UpdatedAt = t0.Add(2 * time.Hour)
	if !task.DoneAt.Equal(firstDone) {
		t.Errorf("DoneAt changed after an edit: %v", task.DoneAt)
	}

	task.SetStatus(StatusBlocked, t0.Add(3*time.Hour))
	task.SetStatus(StatusDone, t0.Add(4*time.Hour))
	if !task.DoneAt.Equal(firstDone) {
		t.Errorf("DoneAt reset by done -> blocked -> done: got %v, want %v", task.DoneAt, firstDone)
	}
	if !task.UpdatedAt.Equal(t0.Add(4 * time.Hour)) {
		t.Errorf("UpdatedAt = %v, want last transition time", task.UpdatedAt)
	}
}

func TestCloneIsDeep(t *testing.T) {
	done := t0
	d := New(t0)
	d.Tasks = append(d.Tasks, Task{ID: "a", Tags: []string{"x"}, DoneAt: &done})
	d.Notes = append(d.Notes, Note{ID: "n", Tags: []string{"y"}})
	d.AppendActivity(ActivityEntry{ID: "e", Text: "hello"})

	c := d.Clone()
	c.Tasks[0].Tags[0] = "changed"
	*c.Tasks[0].DoneAt = t0.Add(time.Hour)
	c.Notes[0].Tags[0] = "changed"
	c.Activity[0].Text = "changed"
	c.Tasks = append(c.Tasks, Task{ID: "b"})

	if d.Tasks[0].Tags[0] != "x" || d.Notes[0].Tags[0] != "y" {
		t.Error("Clone shares tag slices with the original")
	}
	if !d.Tasks[0].DoneAt.Equal(t0) {
		t.Error("Clone shares DoneAt with the original")
	}
	if d.Activity[0].Text != "hello" {
		t.Error("Clone shares the activity slice with the original")
	}
	if len(d.Tasks) != 1 {
		t.Error("appending to the clone changed the original")
	}

	var nilDoc *Document
	if nilDoc.Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}

func TestStats(t *testing.T) {
	d := New(t0)
	d.Tasks = []Task{
		{ID: "1", Status: StatusDone},
		{ID: "2", Status: StatusDone},
		{ID: "3", Status: StatusBlocked},
		{ID: "4", Status: StatusBacklog},
	}
	d.Notes = []Note{{ID: "n"}}

	s := d.Stats(t0.Add(49 * time.Hour))
	want := Stats{DaysActive: 3, TasksTotal: 4, TasksDone: 2, TasksBlocked: 1, Notes: 1}
	if s != want {
		t.Errorf("Stats() = %+v, want %+v", s, want)
	}

	if got := d.Stats(t0.Add(-time.Hour)).DaysActive; got != 0 {
		t.Errorf("DaysActive before creation = %d, want 0", got)
	}
}

func TestGoalProgress(t *testing.T) {
	tests := []struct {
		name string
		goal Goal
		want float64
	}{
		{"half", Goal{Current: 50, Target: 100}, 50},
		{"over target", Goal{Current: 150, Target: 100}, 100},
		{"negative", Goal{Current: -5, Target: 100}, 0},
		{"no target", Goal{Current: 10}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.goal.Progress(); got != tt.want {
				t.Errorf("Progress() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"backlog", StatusBacklog, false},
		{"in_progress", StatusInProgress, false},
		{"in-progress", StatusInProgress, false},
		{"blocked", StatusBlocked, false},
		{"done", StatusDone, false},
		{"", "", true},
		{"archived", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStatus(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseStatus(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in      string
		want    Priority
		wantErr bool
	}{
		{"A", PriorityA, false},
		{"b", PriorityB, false},
		{"c", PriorityC, false},
		{"D", "", true},
		{"", "", true},
		{"AA", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePriority(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePriority(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParsePriority(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{"work", " home ", "", "work", "admin"})
	want := []string{"admin", "home", "work"}
	if !slices.Equal(got, want) {
		t.Errorf("NormalizeTags() = %q, want %q", got, want)
	}
	if NormalizeTags(nil) == nil {
		t.Error("NormalizeTags(nil) should return an empty, non-nil slice")
	}
}
