package common

import (
	"context"
	"errors"
	"fmt"

	"github.com/evanschultz/vboard/internal/app"
	"github.com/evanschultz/vboard/internal/domain"
	"github.com/evanschultz/vboard/internal/layout"
)

// AppServiceAdapter maps transport contracts onto app.Service.
type AppServiceAdapter struct {
	service *app.Service
}

// NewAppServiceAdapter builds one common adapter over an app.Service instance.
func NewAppServiceAdapter(service *app.Service) *AppServiceAdapter {
	return &AppServiceAdapter{service: service}
}

// errUnconfigured is returned when the adapter has no service.
var errUnconfigured = fmt.Errorf("app service adapter is not configured: %w", ErrInvalidRequest)

// ListTasks lists tasks in insertion order.
func (a *AppServiceAdapter) ListTasks(ctx context.Context) ([]domain.Task, error) {
	if a == nil || a.service == nil {
		return nil, errUnconfigured
	}
	tasks, err := a.service.ListTasks(ctx)
	if err != nil {
		return nil, mapAppError("list tasks", err)
	}
	return tasks, nil
}

// GetTask returns one task.
func (a *AppServiceAdapter) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	if a == nil || a.service == nil {
		return domain.Task{}, errUnconfigured
	}
	task, err := a.service.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, mapAppError(fmt.Sprintf("get task %d", id), err)
	}
	return task, nil
}

// CreateTask parses loose priority/status input and creates one task.
func (a *AppServiceAdapter) CreateTask(ctx context.Context, in CreateTaskRequest) (MutationResult, error) {
	if a == nil || a.service == nil {
		return MutationResult{}, errUnconfigured
	}
	priority, status, err := parseTaskFields(in.Priority, in.Status)
	if err != nil {
		return MutationResult{}, mapAppError("create task", err)
	}
	task, ok, err := a.service.CreateTask(ctx, app.CreateTaskInput{Text: in.Text, Priority: priority, Status: status})
	if err != nil {
		return MutationResult{}, mapAppError("create task", err)
	}
	if !ok {
		return MutationResult{}, nil
	}
	return MutationResult{Applied: true, Task: &task}, nil
}

// UpdateTask replaces one task. Unknown ids are reported as not applied, not as errors.
func (a *AppServiceAdapter) UpdateTask(ctx context.Context, in UpdateTaskRequest) (MutationResult, error) {
	if a == nil || a.service == nil {
		return MutationResult{}, errUnconfigured
	}
	priority, status, err := parseTaskFields(in.Priority, in.Status)
	if err != nil {
		return MutationResult{}, mapAppError("update task", err)
	}
	task, ok, err := a.service.UpdateTask(ctx, app.UpdateTaskInput{
		TaskID:   in.TaskID,
		Text:     in.Text,
		Priority: priority,
		Status:   status,
	})
	if err != nil {
		return MutationResult{}, mapAppError("update task", err)
	}
	if !ok {
		return MutationResult{}, nil
	}
	return MutationResult{Applied: true, Task: &task}, nil
}

// DeleteTask removes one task.
func (a *AppServiceAdapter) DeleteTask(ctx context.Context, id int64) (DeleteResult, error) {
	if a == nil || a.service == nil {
		return DeleteResult{}, errUnconfigured
	}
	ok, err := a.service.DeleteTask(ctx, id)
	if err != nil {
		return DeleteResult{}, mapAppError("delete task", err)
	}
	return DeleteResult{Applied: ok, TaskID: id}, nil
}

// MeasureTask feeds one measured box to the placement engine.
func (a *AppServiceAdapter) MeasureTask(ctx context.Context, in MeasureTaskRequest) (layout.Result, error) {
	if a == nil || a.service == nil {
		return layout.Result{}, errUnconfigured
	}
	res, err := a.service.MeasureTask(ctx, in.TaskID, in.Box)
	if err != nil {
		return layout.Result{}, mapAppError("measure task", err)
	}
	return res, nil
}

// Board returns the full render state.
func (a *AppServiceAdapter) Board(ctx context.Context) (app.Board, error) {
	if a == nil || a.service == nil {
		return app.Board{}, errUnconfigured
	}
	board, err := a.service.Board(ctx)
	if err != nil {
		return app.Board{}, mapAppError("board", err)
	}
	return board, nil
}

// ListActivity returns recent activity, newest first.
func (a *AppServiceAdapter) ListActivity(_ context.Context, limit int) ([]domain.ChangeEvent, error) {
	if a == nil || a.service == nil {
		return nil, errUnconfigured
	}
	if limit < 0 {
		return nil, fmt.Errorf("limit must be >= 0: %w", ErrInvalidRequest)
	}
	return a.service.ListActivity(limit), nil
}

// SnapshotEvent returns the current board wrapped as a snapshot event.
func (a *AppServiceAdapter) SnapshotEvent(ctx context.Context) (app.BoardEvent, error) {
	if a == nil || a.service == nil {
		return app.BoardEvent{}, errUnconfigured
	}
	event, err := a.service.SnapshotEvent(ctx)
	if err != nil {
		return app.BoardEvent{}, mapAppError("snapshot", err)
	}
	return event, nil
}

// Subscribe registers one board event listener.
func (a *AppServiceAdapter) Subscribe(buffer int) (<-chan app.BoardEvent, func()) {
	return a.service.Subscribe(buffer)
}

// parseTaskFields normalizes loose priority/status spellings.
func parseTaskFields(rawPriority, rawStatus string) (domain.Priority, domain.Status, error) {
	priority, err := domain.ParsePriority(rawPriority)
	if err != nil {
		return "", "", fmt.Errorf("priority %q: %w", rawPriority, err)
	}
	status, err := domain.ParseStatus(rawStatus)
	if err != nil {
		return "", "", fmt.Errorf("status %q: %w", rawStatus, err)
	}
	return priority, status, nil
}

// mapAppError maps app/domain errors into transport-layer error sentinels.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, app.ErrNotFound):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidPriority),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidMeasurement):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
