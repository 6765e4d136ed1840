package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/evanschultz/vboard/internal/app"
	"github.com/evanschultz/vboard/internal/domain"
)

// Repository is the default task store: an ordered slice held for the life of
// the process.
type Repository struct {
	mu    sync.RWMutex
	tasks []domain.Task
}

// New returns an empty store.
func New() *Repository {
	return &Repository{}
}

// indexLocked returns the slice index of id or -1. Callers hold r.mu.
func (r *Repository) indexLocked(id int64) int {
	return slices.IndexFunc(r.tasks, func(t domain.Task) bool { return t.ID == id })
}

// CreateTask appends t. Ids must be unique.
func (r *Repository) CreateTask(_ context.Context, t domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexLocked(t.ID) >= 0 {
		return fmt.Errorf("task %d already exists", t.ID)
	}
	r.tasks = append(r.tasks, t)
	return nil
}

// UpdateTask replaces the task with t.ID at its current position.
func (r *Repository) UpdateTask(_ context.Context, t domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(t.ID)
	if i < 0 {
		return app.ErrNotFound
	}
	r.tasks[i] = t
	return nil
}

// GetTask returns task.
func (r *Repository) GetTask(_ context.Context, id int64) (domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.indexLocked(id)
	if i < 0 {
		return domain.Task{}, app.ErrNotFound
	}
	return r.tasks[i], nil
}

// ListTasks returns a copy of all tasks in insertion order.
func (r *Repository) ListTasks(context.Context) ([]domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Task, len(r.tasks))
	copy(out, r.tasks)
	return out, nil
}

// DeleteTask deletes task.
func (r *Repository) DeleteTask(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(id)
	if i < 0 {
		return app.ErrNotFound
	}
	r.tasks = slices.Delete(r.tasks, i, i+1)
	return nil
}
