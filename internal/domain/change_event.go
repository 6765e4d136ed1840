package domain

import "time"

// ChangeOperation describes one board activity operation.
type ChangeOperation string

// ChangeOperation values used by the in-session activity feed.
const (
	ChangeOperationCreate  ChangeOperation = "create"
	ChangeOperationUpdate  ChangeOperation = "update"
	ChangeOperationDelete  ChangeOperation = "delete"
	ChangeOperationMeasure ChangeOperation = "measure"
)

// ChangeEvent represents a single activity-feed entry for a task.
type ChangeEvent struct {
	ID         string            `json:"id"`
	TaskID     int64             `json:"task_id"`
	Operation  ChangeOperation   `json:"operation"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}
