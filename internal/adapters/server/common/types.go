// Package common provides transport-agnostic server contracts used by the HTTP,
// MCP and websocket adapters.
package common

import (
	"context"
	"errors"

	"github.com/evanschultz/vboard/internal/app"
	"github.com/evanschultz/vboard/internal/domain"
	"github.com/evanschultz/vboard/internal/layout"
)

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// CreateTaskRequest stores transport input for task creation. Priority and
// status are the loose spellings accepted by domain.ParsePriority and ParseStatus.
type CreateTaskRequest struct {
	Text     string `json:"text"`
	Priority string `json:"priority,omitempty"`
	Status   string `json:"status,omitempty"`
}

// UpdateTaskRequest stores transport input for task replacement.
type UpdateTaskRequest struct {
	TaskID   int64  `json:"-"`
	Text     string `json:"text"`
	Priority string `json:"priority,omitempty"`
	Status   string `json:"status,omitempty"`
}

// MeasureTaskRequest carries one rendered card box reported by a client renderer.
type MeasureTaskRequest struct {
	TaskID int64 `json:"-"`
	domain.Box
}

// MutationResult reports whether a create or update changed the board.
// Applied is false for the no-op cases (empty text, unknown id).
type MutationResult struct {
	Applied bool         `json:"applied"`
	Task    *domain.Task `json:"task,omitempty"`
}

// DeleteResult reports whether a delete removed a task.
type DeleteResult struct {
	Applied bool  `json:"applied"`
	TaskID  int64 `json:"task_id"`
}

// BoardService is the task and layout surface shared by all transports.
type BoardService interface {
	ListTasks(context.Context) ([]domain.Task, error)
	GetTask(context.Context, int64) (domain.Task, error)
	CreateTask(context.Context, CreateTaskRequest) (MutationResult, error)
	UpdateTask(context.Context, UpdateTaskRequest) (MutationResult, error)
	DeleteTask(context.Context, int64) (DeleteResult, error)
	MeasureTask(context.Context, MeasureTaskRequest) (layout.Result, error)
	Board(context.Context) (app.Board, error)
	ListActivity(context.Context, int) ([]domain.ChangeEvent, error)
}

// BoardFeed streams board events to push transports.
type BoardFeed interface {
	SnapshotEvent(context.Context) (app.BoardEvent, error)
	Subscribe(buffer int) (<-chan app.BoardEvent, func())
}
