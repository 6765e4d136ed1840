package domain

import (
	"slices"
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

var validPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Status is the progress badge shown on a card.
type Status string

const (
	StatusCreated    Status = "Created"
	StatusStarted    Status = "Started"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

var validStatuses = []Status{StatusCreated, StatusStarted, StatusInProgress, StatusCompleted}

// Priorities returns the selectable priorities in form order.
func Priorities() []Priority {
	return slices.Clone(validPriorities)
}

// Statuses returns the selectable statuses in form order.
func Statuses() []Status {
	return slices.Clone(validStatuses)
}

// ParsePriority parses a priority name case-insensitively. Empty input yields PriorityLow.
func ParsePriority(raw string) (Priority, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return PriorityLow, nil
	}
	for _, p := range validPriorities {
		if strings.EqualFold(raw, string(p)) {
			return p, nil
		}
	}
	return "", ErrInvalidPriority
}

// ParseStatus parses a status name case-insensitively. Empty input yields StatusCreated.
func ParseStatus(raw string) (Status, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return StatusCreated, nil
	}
	normalized := strings.NewReplacer("_", " ", "-", " ").Replace(raw)
	for _, s := range validStatuses {
		if strings.EqualFold(normalized, string(s)) {
			return s, nil
		}
	}
	return "", ErrInvalidStatus
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	return slices.Contains(validPriorities, p)
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return slices.Contains(validStatuses, s)
}

// Task is one board item. ID is the creation timestamp in Unix milliseconds.
type Task struct {
	ID        int64     `json:"id" yaml:"id"`
	Text      string    `json:"text" yaml:"text"`
	Priority  Priority  `json:"priority" yaml:"priority"`
	Status    Status    `json:"status" yaml:"status"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

type TaskInput struct {
	ID       int64
	Text     string
	Priority Priority
	Status   Status
}

// NewTask builds a task from raw form values. The bool result is false when the
// trimmed text is empty, in which case no task should be stored.
func NewTask(in TaskInput, now time.Time) (Task, bool, error) {
	in.Text = strings.TrimSpace(in.Text)
	if in.Text == "" {
		return Task{}, false, nil
	}
	if in.ID <= 0 {
		return Task{}, false, ErrInvalidID
	}
	if in.Priority == "" {
		in.Priority = PriorityLow
	}
	if !in.Priority.Valid() {
		return Task{}, false, ErrInvalidPriority
	}
	if in.Status == "" {
		in.Status = StatusCreated
	}
	if !in.Status.Valid() {
		return Task{}, false, ErrInvalidStatus
	}
	return Task{
		ID:        in.ID,
		Text:      in.Text,
		Priority:  in.Priority,
		Status:    in.Status,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}, true, nil
}

// Replace overwrites the editable fields in place. It reports false and leaves
// the task untouched when the trimmed text is empty.
func (t *Task) Replace(text string, priority Priority, status Status, now time.Time) (bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return false, nil
	}
	if priority == "" {
		priority = PriorityLow
	}
	if !priority.Valid() {
		return false, ErrInvalidPriority
	}
	if status == "" {
		status = StatusCreated
	}
	if !status.Valid() {
		return false, ErrInvalidStatus
	}
	t.Text = text
	t.Priority = priority
	t.Status = status
	t.UpdatedAt = now.UTC()
	return true, nil
}
