// Package layout places vision-board cards on a fixed canvas without overlap.
//
// Placement is a two-stage pipeline. Before a card has been rendered its box
// is unknown, so DefaultBox derives a provisional position from the task id
// alone. Once the renderer reports the measured box, Adjust nudges it down
// (and, past the wrap line, one column right) until it no longer collides
// with any other placement. Both stages are pure; Engine only keeps the
// resulting id to placement map.
package layout

import (
	"math"

	"github.com/evanschultz/vboard/internal/domain"
)

// Spreading constants for the provisional position, in percent of the canvas.
const (
	xSpread float64 = 13.37
	ySpread float64 = 7.91
	xRange  float64 = 70
	yRange  float64 = 80
)

// Defaults for the adjustment loop, in canvas units.
const (
	DefaultVerticalStep   = 20
	DefaultHorizontalStep = 20
	DefaultWrapY          = 400
	DefaultMaxIterations  = 10000
	DefaultCanvasWidth    = 600
	DefaultCanvasHeight   = 500
)

// Params configures the adjustment loop.
type Params struct {
	VerticalStep   float64
	HorizontalStep float64
	WrapY          float64
	MaxIterations  int
	Canvas         domain.Canvas
}

// DefaultParams returns the stock step sizes, wrap line and canvas.
func DefaultParams() Params {
	return Params{
		VerticalStep:   DefaultVerticalStep,
		HorizontalStep: DefaultHorizontalStep,
		WrapY:          DefaultWrapY,
		MaxIterations:  DefaultMaxIterations,
		Canvas:         domain.Canvas{Width: DefaultCanvasWidth, Height: DefaultCanvasHeight},
	}
}

// normalized fills zero or negative fields with defaults.
func (p Params) normalized() Params {
	d := DefaultParams()
	if p.VerticalStep <= 0 {
		p.VerticalStep = d.VerticalStep
	}
	if p.HorizontalStep <= 0 {
		p.HorizontalStep = d.HorizontalStep
	}
	if p.WrapY <= 0 {
		p.WrapY = d.WrapY
	}
	if p.MaxIterations <= 0 {
		p.MaxIterations = d.MaxIterations
	}
	if p.Canvas.Width <= 0 {
		p.Canvas.Width = d.Canvas.Width
	}
	if p.Canvas.Height <= 0 {
		p.Canvas.Height = d.Canvas.Height
	}
	return p
}

// Result describes one adjustment run.
type Result struct {
	Placement  domain.Placement `json:"placement"`
	Iterations int              `json:"iterations"`
	// Converged is false when MaxIterations was reached and the last candidate was kept.
	Converged bool `json:"converged"`
	// Overflow is true when the placement extends past the canvas width.
	Overflow bool `json:"overflow"`
}

// DefaultFractions returns the provisional position of a task card as
// percentages of the canvas: x in [0,70) and y in [0,80).
func DefaultFractions(id int64) (xFrac, yFrac float64) {
	v := float64(id)
	return math.Mod(v*xSpread, xRange), math.Mod(v*ySpread, yRange)
}

// DefaultBox converts DefaultFractions into canvas units for a card of the given size.
func DefaultBox(id int64, canvas domain.Canvas, width, height float64) domain.Box {
	xFrac, yFrac := DefaultFractions(id)
	return domain.Box{
		X:      xFrac / 100 * canvas.Width,
		Y:      yFrac / 100 * canvas.Height,
		Width:  width,
		Height: height,
	}
}

// Collide reports whether a and b overlap on both axes. Touching edges collide.
func Collide(a, b domain.Box) bool {
	return !(a.X+a.Width < b.X ||
		a.X > b.X+b.Width ||
		a.Y+a.Height < b.Y ||
		a.Y > b.Y+b.Height)
}

func collidesAny(candidate domain.Box, others []domain.Placement) bool {
	for _, other := range others {
		if Collide(candidate, other.Box) {
			return true
		}
	}
	return false
}

// Adjust resolves a measured box for id against others. Placements in others
// sharing id are ignored. The loop stops after p.MaxIterations nudges and keeps
// the last candidate.
func Adjust(id int64, measured domain.Box, others []domain.Placement, p Params) Result {
	p = p.normalized()
	filtered := make([]domain.Placement, 0, len(others))
	for _, other := range others {
		if other.ID != id {
			filtered = append(filtered, other)
		}
	}

	candidate := measured
	iterations := 0
	converged := true
	for collidesAny(candidate, filtered) {
		if iterations >= p.MaxIterations {
			converged = false
			break
		}
		candidate.Y += p.VerticalStep
		if candidate.Y > p.WrapY {
			candidate.Y = 0
			candidate.X += p.HorizontalStep
		}
		iterations++
	}

	return Result{
		Placement:  domain.Placement{ID: id, Box: candidate},
		Iterations: iterations,
		Converged:  converged,
		Overflow:   candidate.X+candidate.Width > p.Canvas.Width,
	}
}
