package layout

import (
	"slices"

	"github.com/evanschultz/vboard/internal/domain"
)

// Engine holds the current placement for every measured card. It is not safe
// for concurrent use; callers serialize access.
type Engine struct {
	params     Params
	placements map[int64]domain.Placement
}

// NewEngine constructs an engine with p, filling unset fields with defaults.
func NewEngine(p Params) *Engine {
	return &Engine{
		params:     p.normalized(),
		placements: map[int64]domain.Placement{},
	}
}

// Params returns the effective loop parameters.
func (e *Engine) Params() Params {
	return e.params
}

// Measure records a measured box for id. Placements whose ids are not in live
// are dropped first; id itself is always treated as live.
func (e *Engine) Measure(id int64, measured domain.Box, live []int64) (Result, error) {
	if err := measured.Validate(); err != nil {
		return Result{}, err
	}
	e.Prune(append(slices.Clone(live), id))

	others := make([]domain.Placement, 0, len(e.placements))
	for otherID, placement := range e.placements {
		if otherID != id {
			others = append(others, placement)
		}
	}
	res := Adjust(id, measured, others, e.params)
	e.placements[id] = res.Placement
	return res, nil
}

// Forget removes the placement for id, if any.
func (e *Engine) Forget(id int64) {
	delete(e.placements, id)
}

// Prune drops placements whose ids are not in live and returns how many were removed.
func (e *Engine) Prune(live []int64) int {
	keep := make(map[int64]struct{}, len(live))
	for _, id := range live {
		keep[id] = struct{}{}
	}
	removed := 0
	for id := range e.placements {
		if _, ok := keep[id]; !ok {
			delete(e.placements, id)
			removed++
		}
	}
	return removed
}

// Placement returns the stored placement for id.
func (e *Engine) Placement(id int64) (domain.Placement, bool) {
	p, ok := e.placements[id]
	return p, ok
}

// Placements returns all stored placements ordered by id.
func (e *Engine) Placements() []domain.Placement {
	out := make([]domain.Placement, 0, len(e.placements))
	for _, p := range e.placements {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b domain.Placement) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	return out
}

// Reset drops every placement.
func (e *Engine) Reset() {
	clear(e.placements)
}
