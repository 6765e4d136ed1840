package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"sync"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/evanschultz/vboard/internal/domain"
	"github.com/evanschultz/vboard/internal/layout"
)

// defaultActivityLimit bounds the in-session activity feed.
const defaultActivityLimit = 200

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	Layout        layout.Params
	ActivityLimit int
	Logger        *charmLog.Logger
	// EventIDs generates activity and board event ids. Defaults to uuid.NewString.
	EventIDs func() string
}

// Service owns the task store and the placement engine for one session. All
// operations are serialized so each event runs to completion before the next.
type Service struct {
	mu            sync.Mutex
	repo          Repository
	idGen         IDGenerator
	clock         Clock
	eventIDs      func() string
	engine        *layout.Engine
	logger        *charmLog.Logger
	activity      []domain.ChangeEvent
	activityLimit int

	// lastID is the largest id handed out or imported; new ids stay above it.
	lastID int64
	// seq numbers board events in the order they were recorded.
	seq uint64

	subsMu  sync.Mutex
	subs    map[int]chan BoardEvent
	nextSub int
}

// NewService constructs a new value for this package.
func NewService(repo Repository, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if clock == nil {
		clock = time.Now
	}
	if idGen == nil {
		idGen = NewTimestampIDGenerator(clock)
	}
	if cfg.ActivityLimit <= 0 {
		cfg.ActivityLimit = defaultActivityLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = charmLog.New(io.Discard)
	}
	if cfg.EventIDs == nil {
		cfg.EventIDs = uuid.NewString
	}
	return &Service{
		repo:          repo,
		idGen:         idGen,
		clock:         clock,
		eventIDs:      cfg.EventIDs,
		engine:        layout.NewEngine(cfg.Layout),
		logger:        cfg.Logger,
		activityLimit: cfg.ActivityLimit,
		subs:          map[int]chan BoardEvent{},
	}
}

// LayoutParams returns the effective placement parameters.
func (s *Service) LayoutParams() layout.Params {
	return s.engine.Params()
}

// CreateTaskInput holds input values for create task operations.
type CreateTaskInput struct {
	Text     string
	Priority domain.Priority
	Status   domain.Status
}

// UpdateTaskInput holds input values for update task operations.
type UpdateTaskInput struct {
	TaskID   int64
	Text     string
	Priority domain.Priority
	Status   domain.Status
}

// CreateTask appends a task. It reports false without touching the store when
// the trimmed text is empty.
func (s *Service) CreateTask(ctx context.Context, in CreateTaskInput) (domain.Task, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(ctx, s.nextIDLocked(), in)
}

// nextIDLocked draws a generator id, bumped past every id already in use.
// Callers hold s.mu.
func (s *Service) nextIDLocked() int64 {
	id := s.idGen()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// createLocked stores one task under the given id and publishes the change.
// Callers hold s.mu.
func (s *Service) createLocked(ctx context.Context, id int64, in CreateTaskInput) (domain.Task, bool, error) {
	task, ok, err := domain.NewTask(domain.TaskInput{
		ID:       id,
		Text:     in.Text,
		Priority: in.Priority,
		Status:   in.Status,
	}, s.clock())
	if err != nil || !ok {
		return domain.Task{}, false, err
	}
	if err := s.repo.CreateTask(ctx, task); err != nil {
		return domain.Task{}, false, fmt.Errorf("create task: %w", err)
	}
	s.lastID = max(s.lastID, task.ID)
	event := s.recordLocked(ctx, domain.ChangeOperationCreate, task.ID, map[string]string{
		"priority": string(task.Priority),
		"status":   string(task.Status),
	})
	s.logger.Debug("task created", "task_id", task.ID, "priority", task.Priority, "status", task.Status)
	s.publish(event)
	return task, true, nil
}

// UpdateTask replaces the fields of an existing task in place. Unknown ids and
// empty text are no-ops reported by the bool result.
func (s *Service) UpdateTask(ctx context.Context, in UpdateTaskInput) (domain.Task, bool, error) {
	s.mu.Lock()
	task, err := s.repo.GetTask(ctx, in.TaskID)
	if errors.Is(err, ErrNotFound) {
		s.mu.Unlock()
		return domain.Task{}, false, nil
	}
	if err != nil {
		s.mu.Unlock()
		return domain.Task{}, false, fmt.Errorf("get task: %w", err)
	}
	ok, err := task.Replace(in.Text, in.Priority, in.Status, s.clock())
	if err != nil || !ok {
		s.mu.Unlock()
		return domain.Task{}, false, err
	}
	if err := s.repo.UpdateTask(ctx, task); err != nil {
		s.mu.Unlock()
		if errors.Is(err, ErrNotFound) {
			return domain.Task{}, false, nil
		}
		return domain.Task{}, false, fmt.Errorf("update task: %w", err)
	}
	event := s.recordLocked(ctx, domain.ChangeOperationUpdate, task.ID, map[string]string{
		"priority": string(task.Priority),
		"status":   string(task.Status),
	})
	s.publish(event)
	s.mu.Unlock()

	s.logger.Debug("task updated", "task_id", task.ID)
	return task, true, nil
}

// DeleteTask removes a task and its placement. It reports false when the id is unknown.
func (s *Service) DeleteTask(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	err := s.repo.DeleteTask(ctx, id)
	if errors.Is(err, ErrNotFound) {
		s.mu.Unlock()
		return false, nil
	}
	if err != nil {
		s.mu.Unlock()
		return false, fmt.Errorf("delete task: %w", err)
	}
	s.engine.Forget(id)
	event := s.recordLocked(ctx, domain.ChangeOperationDelete, id, nil)
	s.publish(event)
	s.mu.Unlock()

	s.logger.Debug("task deleted", "task_id", id)
	return true, nil
}

// GetTask returns one task or ErrNotFound.
func (s *Service) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.GetTask(ctx, id)
}

// ListTasks returns tasks in insertion order.
func (s *Service) ListTasks(ctx context.Context) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.ListTasks(ctx)
}

// MeasureTask feeds one measured card box into the placement engine and
// returns the resolved placement. Unknown ids return ErrNotFound.
func (s *Service) MeasureTask(ctx context.Context, id int64, measured domain.Box) (layout.Result, error) {
	if err := measured.Validate(); err != nil {
		return layout.Result{}, err
	}
	s.mu.Lock()
	live, err := s.liveIDsLocked(ctx)
	if err != nil {
		s.mu.Unlock()
		return layout.Result{}, err
	}
	if !slices.Contains(live, id) {
		s.mu.Unlock()
		return layout.Result{}, fmt.Errorf("measure task %d: %w", id, ErrNotFound)
	}
	res, err := s.engine.Measure(id, measured, live)
	if err != nil {
		s.mu.Unlock()
		return layout.Result{}, fmt.Errorf("measure task %d: %w", id, err)
	}
	event := s.recordLocked(ctx, domain.ChangeOperationMeasure, id, map[string]string{
		"iterations": strconv.Itoa(res.Iterations),
		"converged":  strconv.FormatBool(res.Converged),
	})
	s.publish(event)
	s.mu.Unlock()

	if !res.Converged {
		s.logger.Warn("placement iteration cap reached; keeping last candidate",
			"task_id", id, "iterations", res.Iterations, "x", res.Placement.X, "y", res.Placement.Y)
	}
	if res.Overflow {
		s.logger.Debug("placement extends past canvas width", "task_id", id, "x", res.Placement.X, "width", res.Placement.Width)
	}
	return res, nil
}

// Placements returns placements for live tasks ordered by id. Placements for
// tasks that no longer exist are dropped.
func (s *Service) Placements(ctx context.Context) ([]domain.Placement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	live, err := s.liveIDsLocked(ctx)
	if err != nil {
		return nil, err
	}
	s.engine.Prune(live)
	return s.engine.Placements(), nil
}

// ListActivity returns up to limit recent activity events, newest first.
// A non-positive limit returns the whole feed.
func (s *Service) ListActivity(limit int) []domain.ChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ChangeEvent, 0, len(s.activity))
	for i := len(s.activity) - 1; i >= 0; i-- {
		out = append(out, s.activity[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// liveIDsLocked lists current task ids. Callers hold s.mu.
func (s *Service) liveIDsLocked(ctx context.Context) ([]int64, error) {
	tasks, err := s.repo.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	ids := make([]int64, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	return ids, nil
}

// recordLocked appends one activity entry and builds the matching board event
// with the next sequence number. Callers hold s.mu and publish the event
// before releasing it, so subscribers see events in sequence order.
func (s *Service) recordLocked(ctx context.Context, op domain.ChangeOperation, taskID int64, meta map[string]string) BoardEvent {
	change := domain.ChangeEvent{
		ID:         s.eventIDs(),
		TaskID:     taskID,
		Operation:  op,
		Metadata:   meta,
		OccurredAt: s.clock().UTC(),
	}
	s.activity = append(s.activity, change)
	if overflow := len(s.activity) - s.activityLimit; overflow > 0 {
		s.activity = slices.Delete(s.activity, 0, overflow)
	}

	s.seq++
	event := BoardEvent{
		Seq:     s.seq,
		Type:    eventTypeFor(op),
		TaskID:  taskID,
		EventID: change.ID,
		At:      change.OccurredAt,
	}
	if s.hasSubscribers() {
		board, err := s.boardLocked(ctx)
		if err != nil {
			s.logger.Warn("board snapshot for event failed", "task_id", taskID, "err", err)
		} else {
			event.Board = &board
		}
	}
	return event
}
