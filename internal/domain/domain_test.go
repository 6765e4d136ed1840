package domain

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestNewTaskDefaultsAndTrim(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	task, ok, err := NewTask(TaskInput{ID: 1000, Text: "  Ship it  "}, now)
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	if !ok {
		t.Fatal("expected task to be created")
	}
	if task.Text != "Ship it" {
		t.Fatalf("unexpected text %q", task.Text)
	}
	if task.Priority != PriorityLow || task.Status != StatusCreated {
		t.Fatalf("unexpected defaults %q/%q", task.Priority, task.Status)
	}
	if !task.CreatedAt.Equal(now) || !task.UpdatedAt.Equal(now) {
		t.Fatal("expected timestamps to match now")
	}
}

func TestNewTaskEmptyTextIsNoop(t *testing.T) {
	for _, text := range []string{"", "   ", "\t\n"} {
		_, ok, err := NewTask(TaskInput{ID: 1, Text: text}, time.Now())
		if err != nil {
			t.Fatalf("NewTask(%q) error = %v", text, err)
		}
		if ok {
			t.Fatalf("NewTask(%q) created a task", text)
		}
	}
}

func TestNewTaskValidation(t *testing.T) {
	now := time.Now()
	if _, _, err := NewTask(TaskInput{ID: 0, Text: "x"}, now); err != ErrInvalidID {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, _, err := NewTask(TaskInput{ID: 1, Text: "x", Priority: "urgent"}, now); err != ErrInvalidPriority {
		t.Fatalf("expected ErrInvalidPriority, got %v", err)
	}
	if _, _, err := NewTask(TaskInput{ID: 1, Text: "x", Status: "blocked"}, now); err != ErrInvalidStatus {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestTaskReplace(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	task, _, _ := NewTask(TaskInput{ID: 7, Text: "draft"}, now)
	later := now.Add(time.Minute)
	ok, err := task.Replace(" final ", PriorityHigh, StatusCompleted, later)
	if err != nil || !ok {
		t.Fatalf("Replace() = %v, %v", ok, err)
	}
	if task.Text != "final" || task.Priority != PriorityHigh || task.Status != StatusCompleted {
		t.Fatalf("unexpected task after replace %#v", task)
	}
	if !task.UpdatedAt.Equal(later) || !task.CreatedAt.Equal(now) {
		t.Fatal("expected only updated_at to move")
	}

	ok, err = task.Replace("  ", PriorityLow, StatusCreated, later.Add(time.Minute))
	if err != nil || ok {
		t.Fatalf("Replace(empty) = %v, %v; want no-op", ok, err)
	}
	if task.Text != "final" {
		t.Fatalf("empty replace mutated text to %q", task.Text)
	}
}

func TestParsePriorityAndStatus(t *testing.T) {
	priorities := map[string]Priority{"": PriorityLow, "high": PriorityHigh, " Medium ": PriorityMedium, "LOW": PriorityLow}
	for raw, want := range priorities {
		got, err := ParsePriority(raw)
		if err != nil || got != want {
			t.Fatalf("ParsePriority(%q) = %q, %v; want %q", raw, got, err, want)
		}
	}
	if _, err := ParsePriority("critical"); !errors.Is(err, ErrInvalidPriority) {
		t.Fatalf("expected ErrInvalidPriority, got %v", err)
	}

	statuses := map[string]Status{"": StatusCreated, "started": StatusStarted, "in_progress": StatusInProgress, "In-Progress": StatusInProgress, "in progress": StatusInProgress, "completed": StatusCompleted}
	for raw, want := range statuses {
		got, err := ParseStatus(raw)
		if err != nil || got != want {
			t.Fatalf("ParseStatus(%q) = %q, %v; want %q", raw, got, err, want)
		}
	}
	if _, err := ParseStatus("done"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestPaletteLookups(t *testing.T) {
	gradients := []struct {
		priority Priority
		want     Gradient
	}{
		{PriorityHigh, Gradient{"#FF6B6B", "#FF8787"}},
		{PriorityMedium, Gradient{"#4DABF7", "#74C0FC"}},
		{PriorityLow, Gradient{"#51CF66", "#69DB7C"}},
		{Priority("other"), Gradient{"#CED4DA", "#DEE2E6"}},
	}
	for _, tc := range gradients {
		if got := PriorityGradient(tc.priority); got != tc.want {
			t.Fatalf("PriorityGradient(%q) = %#v, want %#v", tc.priority, got, tc.want)
		}
	}

	badges := map[Status]string{
		StatusCreated:    "#868E96",
		StatusStarted:    "#4C6EF5",
		StatusInProgress: "#FAB005",
		StatusCompleted:  "#40C057",
		Status("other"):  "#CED4DA",
	}
	for status, want := range badges {
		if got := StatusBadgeColor(status); got != want {
			t.Fatalf("StatusBadgeColor(%q) = %q, want %q", status, got, want)
		}
	}
}

func TestBoxValidate(t *testing.T) {
	valid := Box{X: 1, Y: 2, Width: 0, Height: 3}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	invalid := []Box{
		{X: math.NaN(), Width: 1, Height: 1},
		{Y: math.Inf(1), Width: 1, Height: 1},
		{Width: -1, Height: 1},
		{Width: 1, Height: -0.5},
	}
	for _, box := range invalid {
		if err := box.Validate(); !errors.Is(err, ErrInvalidMeasurement) {
			t.Fatalf("Validate(%#v) = %v, want ErrInvalidMeasurement", box, err)
		}
	}
}
