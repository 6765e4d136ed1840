package app

import (
	"context"

	"github.com/evanschultz/vboard/internal/domain"
)

// Repository stores tasks in insertion order. UpdateTask replaces in place and
// never moves a task; UpdateTask, GetTask and DeleteTask return ErrNotFound for
// unknown ids.
type Repository interface {
	CreateTask(context.Context, domain.Task) error
	UpdateTask(context.Context, domain.Task) error
	GetTask(context.Context, int64) (domain.Task, error)
	ListTasks(context.Context) ([]domain.Task, error)
	DeleteTask(context.Context, int64) error
}
