package schedule

import (
	"errors"
	"strings"
	"testing"
)

func hourlyScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s := New(nil)
	for i, title := range []string{"Email", "Standup", "Focus"} {
		if _, err := s.Create(title, i*60, 60); err != nil {
			t.Fatalf("Create %s failed: %v", title, err)
		}
	}
	return s
}

func TestCreateRejectsOverlap(t *testing.T) {
	s := hourlyScheduler(t)

	_, err := s.Create("Clash", 30, 60)
	if !errors.Is(err, ErrOverlap) {
		t.Fatalf("Expected ErrOverlap, got %v", err)
	}
	if got := len(s.Tasks()); got != 3 {
		t.Errorf("Expected 3 tasks, got %d", got)
	}
}

func TestCreateAssignsSteps(t *testing.T) {
	s := New(nil)
	task, err := s.Create("Lunch", 12*60+7, 44)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if task.StartIndex != 48 || task.DurationSteps != 2 {
		t.Errorf("Expected [48,50), got [%d,%d)", task.StartIndex, task.End())
	}
	if task.ID != 1 {
		t.Errorf("Expected id 1, got %d", task.ID)
	}

	short, err := s.Create("Break", 15*60, 5)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if short.DurationSteps != 1 {
		t.Errorf("Expected minimum duration of 1 step, got %d", short.DurationSteps)
	}

	late, err := s.Create("Late", 23*60+30, 120)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if late.End() != StepsPerDay {
		t.Errorf("Expected task clipped at end of day, ends at %d", late.End())
	}
}

func TestCreateValidation(t *testing.T) {
	s := New(nil)
	if _, err := s.Create("  ", 0, 60); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid for empty title, got %v", err)
	}
	if _, err := s.Create("Night", 24*60, 15); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid for start past midnight, got %v", err)
	}
	if _, err := s.Create("Before", -15, 15); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid for negative start, got %v", err)
	}
}

func TestIDsAreNotReused(t *testing.T) {
	s := hourlyScheduler(t)
	if err := s.Delete(3, true); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	task, _ := s.Create("Next", 600, 15)
	if task.ID != 4 {
		t.Errorf("Expected id 4, got %d", task.ID)
	}

	restored := New([]Task{{ID: 7, Title: "x", StartIndex: 0, DurationSteps: 1}})
	task, _ = restored.Create("y", 60, 15)
	if task.ID != 8 {
		t.Errorf("Expected id 8 after loading id 7, got %d", task.ID)
	}
}

func TestNewDropsInvalidStoredTasks(t *testing.T) {
	s := New([]Task{
		{ID: 1, Title: "Keep", StartIndex: 8, DurationSteps: 4},
		{ID: 0, Title: "No id", StartIndex: 20, DurationSteps: 1},
		{ID: 1, Title: "Duplicate", StartIndex: 30, DurationSteps: 1},
		{ID: 2, Title: "  ", StartIndex: 40, DurationSteps: 1},
		{ID: 3, Title: "Before midnight", StartIndex: -1, DurationSteps: 2},
		{ID: 4, Title: "Past midnight", StartIndex: 94, DurationSteps: 4},
		{ID: 5, Title: "Empty", StartIndex: 50, DurationSteps: 0},
		{ID: 6, Title: "Clash", StartIndex: 10, DurationSteps: 4},
		{ID: 9, Title: "Late", StartIndex: 90, DurationSteps: 2},
	})

	got := s.Tasks()
	if len(got) != 2 || got[0].Title != "Keep" || got[1].Title != "Late" {
		t.Fatalf("Expected Keep and Late, got %v", got)
	}
	task, err := s.Create("Next", 0, 15)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if task.ID != 10 {
		t.Errorf("Expected id 10, got %d", task.ID)
	}
	if _, err := s.Create("Into clash slot", 10*15, 15); !errors.Is(err, ErrOverlap) {
		t.Errorf("Expected ErrOverlap against Keep, got %v", err)
	}
}

func TestHasOverlap(t *testing.T) {
	s := New([]Task{{ID: 1, Title: "existing", StartIndex: 12, DurationSteps: 4}})

	tests := []struct {
		name      string
		candidate Task
		want      bool
	}{
		{"partial left", Task{StartIndex: 10, DurationSteps: 4}, true},
		{"partial right", Task{StartIndex: 14, DurationSteps: 4}, true},
		{"containment", Task{StartIndex: 13, DurationSteps: 1}, true},
		{"contains", Task{StartIndex: 8, DurationSteps: 12}, true},
		{"identical", Task{StartIndex: 12, DurationSteps: 4}, true},
		{"adjacent before", Task{StartIndex: 10, DurationSteps: 2}, false},
		{"adjacent after", Task{StartIndex: 16, DurationSteps: 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.HasOverlap(tt.candidate, 0); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}

	if s.HasOverlap(Task{StartIndex: 12, DurationSteps: 4}, 1) {
		t.Error("Expected the excluded task to be ignored")
	}
}

func TestMoveRevertsOnOverlap(t *testing.T) {
	s := hourlyScheduler(t)
	before := s.Tasks()

	got, err := s.Move(1, 6)
	if !errors.Is(err, ErrOverlap) {
		t.Fatalf("Expected ErrOverlap, got %v", err)
	}
	if got.StartIndex != 0 {
		t.Errorf("Expected reverted start 0, got %d", got.StartIndex)
	}
	after := s.Tasks()
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("Expected %v unchanged, got %v", before[i], after[i])
		}
	}
}

func TestMoveCommits(t *testing.T) {
	s := hourlyScheduler(t)
	got, err := s.Move(3, 40)
	if err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if got.StartIndex != 40 || got.DurationSteps != 4 {
		t.Errorf("Expected [40,44), got [%d,%d)", got.StartIndex, got.End())
	}

	got, err = s.Move(3, 200)
	if err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if got.End() != StepsPerDay {
		t.Errorf("Expected task kept inside the day, ends at %d", got.End())
	}
}

func TestMoveToMinutesSnaps(t *testing.T) {
	s := hourlyScheduler(t)
	got, err := s.MoveToMinutes(3, 10*60+8)
	if err != nil {
		t.Fatalf("MoveToMinutes failed: %v", err)
	}
	if got.StartIndex != 41 {
		t.Errorf("Expected step 41, got %d", got.StartIndex)
	}
}

func TestResize(t *testing.T) {
	s := hourlyScheduler(t)

	if _, err := s.Resize(1, 5); !errors.Is(err, ErrOverlap) {
		t.Errorf("Expected ErrOverlap growing into the next task, got %v", err)
	}
	got, err := s.Resize(1, 0)
	if err != nil {
		t.Fatalf("Resize failed: %v", err)
	}
	if got.DurationSteps != 1 {
		t.Errorf("Expected minimum duration 1, got %d", got.DurationSteps)
	}
	got, err = s.Resize(3, 500)
	if err != nil {
		t.Fatalf("Resize failed: %v", err)
	}
	if got.End() != StepsPerDay {
		t.Errorf("Expected resize bounded by end of day, ends at %d", got.End())
	}
	got, err = s.ResizeToMinutes(1, 38)
	if err != nil {
		t.Fatalf("ResizeToMinutes failed: %v", err)
	}
	if got.DurationSteps != 3 {
		t.Errorf("Expected 3 steps, got %d", got.DurationSteps)
	}
}

func TestEditTitleAndDelete(t *testing.T) {
	s := hourlyScheduler(t)
	got, err := s.EditTitle(2, "Retro")
	if err != nil || got.Title != "Retro" {
		t.Fatalf("Expected title Retro, got %q (%v)", got.Title, err)
	}
	if _, err := s.EditTitle(2, ""); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid, got %v", err)
	}

	if err := s.Delete(2, false); !errors.Is(err, ErrUnconfirmed) {
		t.Errorf("Expected ErrUnconfirmed, got %v", err)
	}
	if err := s.Delete(2, true); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete(2, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := s.Move(2, 50); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestParseClock(t *testing.T) {
	m, err := ParseClock("09:45")
	if err != nil || m != 585 {
		t.Errorf("Expected 585, got %d (%v)", m, err)
	}
	if _, err := ParseClock("25:00"); err == nil {
		t.Error("Expected error for 25:00")
	}
	if FormatClock(585) != "09:45" {
		t.Errorf("Expected 09:45, got %s", FormatClock(585))
	}
}

func TestRender(t *testing.T) {
	s := hourlyScheduler(t)
	out := Render(s.Tasks())
	if !strings.Contains(out, "Standup") {
		t.Errorf("Expected rendered title, got:\n%s", out)
	}
	if got := strings.Count(out, "\n"); got != 24 {
		t.Errorf("Expected 24 rows, got %d", got)
	}
}
