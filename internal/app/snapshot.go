package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evanschultz/vboard/internal/domain"
	"github.com/evanschultz/vboard/internal/layout"
)

// SnapshotVersion defines a package constant value.
const SnapshotVersion = "vboard.snapshot.v1"

// Provisional card size in canvas units, used for cards not yet measured.
const (
	ProvisionalCardWidth  = 180
	ProvisionalCardHeight = 80
)

// Card is one task as the board draws it.
type Card struct {
	Task      domain.Task      `json:"task" yaml:"task"`
	Placement domain.Placement `json:"placement" yaml:"placement"`
	// Measured is false while Placement is still the provisional default position.
	Measured   bool            `json:"measured" yaml:"measured"`
	Gradient   domain.Gradient `json:"gradient" yaml:"gradient"`
	BadgeColor string          `json:"badge_color" yaml:"badge_color"`
}

// Board is the full render state of the session: canvas size and cards in insertion order.
type Board struct {
	Canvas domain.Canvas `json:"canvas" yaml:"canvas"`
	Cards  []Card        `json:"cards" yaml:"cards"`
}

// BoardEventType names the change that produced a BoardEvent.
type BoardEventType string

// BoardEventType values.
const (
	BoardEventSnapshot     BoardEventType = "snapshot"
	BoardEventTaskCreated  BoardEventType = "task.created"
	BoardEventTaskUpdated  BoardEventType = "task.updated"
	BoardEventTaskDeleted  BoardEventType = "task.deleted"
	BoardEventTaskMeasured BoardEventType = "task.measured"
)

// BoardEvent is delivered to subscribers after every mutation or measurement.
// Seq increases by one per recorded change. A snapshot carries the Seq of the
// last change it already reflects.
type BoardEvent struct {
	Seq     uint64         `json:"seq"`
	Type    BoardEventType `json:"type"`
	TaskID  int64          `json:"task_id,omitempty"`
	EventID string         `json:"event_id"`
	At      time.Time      `json:"at"`
	Board   *Board         `json:"board,omitempty"`
}

// eventTypeFor maps an activity operation to its board event type.
func eventTypeFor(op domain.ChangeOperation) BoardEventType {
	switch op {
	case domain.ChangeOperationCreate:
		return BoardEventTaskCreated
	case domain.ChangeOperationUpdate:
		return BoardEventTaskUpdated
	case domain.ChangeOperationDelete:
		return BoardEventTaskDeleted
	default:
		return BoardEventTaskMeasured
	}
}

// Board returns the current board. Unmeasured cards sit at their default position.
func (s *Service) Board(ctx context.Context) (Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boardLocked(ctx)
}

// SnapshotEvent wraps the current board in a snapshot event for new subscribers.
func (s *Service) SnapshotEvent(ctx context.Context) (BoardEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	board, err := s.boardLocked(ctx)
	if err != nil {
		return BoardEvent{}, err
	}
	return BoardEvent{
		Seq:     s.seq,
		Type:    BoardEventSnapshot,
		EventID: s.eventIDs(),
		At:      s.clock().UTC(),
		Board:   &board,
	}, nil
}

// boardLocked builds the board. Callers hold s.mu.
func (s *Service) boardLocked(ctx context.Context) (Board, error) {
	tasks, err := s.repo.ListTasks(ctx)
	if err != nil {
		return Board{}, fmt.Errorf("list tasks: %w", err)
	}
	live := make([]int64, 0, len(tasks))
	for _, task := range tasks {
		live = append(live, task.ID)
	}
	s.engine.Prune(live)

	params := s.engine.Params()
	board := Board{Canvas: params.Canvas, Cards: make([]Card, 0, len(tasks))}
	for _, task := range tasks {
		placement, measured := s.engine.Placement(task.ID)
		if !measured {
			placement = domain.Placement{
				ID:  task.ID,
				Box: layout.DefaultBox(task.ID, params.Canvas, ProvisionalCardWidth, ProvisionalCardHeight),
			}
		}
		board.Cards = append(board.Cards, Card{
			Task:       task,
			Placement:  placement,
			Measured:   measured,
			Gradient:   domain.PriorityGradient(task.Priority),
			BadgeColor: domain.StatusBadgeColor(task.Status),
		})
	}
	return board, nil
}

// Snapshot is a portable copy of the session board.
type Snapshot struct {
	Version    string         `json:"version" yaml:"version"`
	ExportedAt time.Time      `json:"exported_at" yaml:"exported_at"`
	Canvas     domain.Canvas  `json:"canvas" yaml:"canvas"`
	Tasks      []SnapshotTask `json:"tasks" yaml:"tasks"`
}

// SnapshotTask is one task in a snapshot. Box is the measured card box, when known.
type SnapshotTask struct {
	ID       int64           `json:"id,omitempty" yaml:"id,omitempty"`
	Text     string          `json:"text" yaml:"text"`
	Priority domain.Priority `json:"priority" yaml:"priority"`
	Status   domain.Status   `json:"status" yaml:"status"`
	Box      *domain.Box     `json:"box,omitempty" yaml:"box,omitempty"`
}

// ExportSnapshot handles export snapshot.
func (s *Service) ExportSnapshot(ctx context.Context) (Snapshot, error) {
	board, err := s.Board(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: s.clock().UTC(),
		Canvas:     board.Canvas,
		Tasks:      make([]SnapshotTask, 0, len(board.Cards)),
	}
	for _, card := range board.Cards {
		task := SnapshotTask{
			ID:       card.Task.ID,
			Text:     card.Task.Text,
			Priority: card.Task.Priority,
			Status:   card.Task.Status,
		}
		if card.Measured {
			box := card.Placement.Box
			task.Box = &box
		}
		snap.Tasks = append(snap.Tasks, task)
	}
	return snap, nil
}

// Validate validates the requested operation.
func (snap Snapshot) Validate() error {
	if v := strings.TrimSpace(snap.Version); v != "" && v != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version %q", snap.Version)
	}
	seen := make(map[int64]int, len(snap.Tasks))
	for i, task := range snap.Tasks {
		if task.ID < 0 {
			return fmt.Errorf("tasks[%d]: %w", i, domain.ErrInvalidID)
		}
		if task.ID > 0 {
			if first, dup := seen[task.ID]; dup {
				return fmt.Errorf("tasks[%d]: %w %d (also tasks[%d])", i, ErrDuplicateID, task.ID, first)
			}
			seen[task.ID] = i
		}
		if task.Priority != "" && !task.Priority.Valid() {
			return fmt.Errorf("tasks[%d]: %w", i, domain.ErrInvalidPriority)
		}
		if task.Status != "" && !task.Status.Valid() {
			return fmt.Errorf("tasks[%d]: %w", i, domain.ErrInvalidStatus)
		}
		if task.Box != nil {
			if err := task.Box.Validate(); err != nil {
				return fmt.Errorf("tasks[%d]: %w", i, err)
			}
		}
	}
	return nil
}

// ImportSnapshot adds every snapshot task to the session in order, then feeds
// known boxes through the placement engine. A positive snapshot id is kept
// and must not collide with a live task; tasks without one get fresh ids past
// every imported id. Tasks with empty text are skipped. It returns the created
// tasks.
func (s *Service) ImportSnapshot(ctx context.Context, snap Snapshot) ([]domain.Task, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	created, boxes, err := s.importTasks(ctx, snap.Tasks)
	if err != nil {
		return created, err
	}
	for i, task := range created {
		if boxes[i] == nil {
			continue
		}
		if _, err := s.MeasureTask(ctx, task.ID, *boxes[i]); err != nil {
			return created, err
		}
	}
	return created, nil
}

// importTasks creates the snapshot tasks in one critical section so no other
// create can claim an imported id midway.
func (s *Service) importTasks(ctx context.Context, tasks []SnapshotTask) ([]domain.Task, []*domain.Box, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var maxID int64
	for i, in := range tasks {
		if in.ID <= 0 || strings.TrimSpace(in.Text) == "" {
			continue
		}
		_, err := s.repo.GetTask(ctx, in.ID)
		switch {
		case err == nil:
			return nil, nil, fmt.Errorf("tasks[%d]: %w %d", i, ErrDuplicateID, in.ID)
		case !errors.Is(err, ErrNotFound):
			return nil, nil, fmt.Errorf("get task: %w", err)
		}
		maxID = max(maxID, in.ID)
	}
	s.lastID = max(s.lastID, maxID)

	created := make([]domain.Task, 0, len(tasks))
	boxes := make([]*domain.Box, 0, len(tasks))
	for _, in := range tasks {
		id := in.ID
		if id <= 0 {
			id = s.nextIDLocked()
		}
		task, ok, err := s.createLocked(ctx, id, CreateTaskInput{
			Text:     in.Text,
			Priority: in.Priority,
			Status:   in.Status,
		})
		if err != nil {
			return created, boxes, err
		}
		if !ok {
			continue
		}
		created = append(created, task)
		boxes = append(boxes, in.Box)
	}
	return created, boxes, nil
}
