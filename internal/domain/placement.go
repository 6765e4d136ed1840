package domain

import "math"

// Box is an axis-aligned rectangle in canvas units; X and Y are the top-left corner.
type Box struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Validate rejects boxes the adjustment loop cannot reason about.
func (b Box) Validate() error {
	for _, v := range []float64{b.X, b.Y, b.Width, b.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrInvalidMeasurement
		}
	}
	if b.Width < 0 || b.Height < 0 {
		return ErrInvalidMeasurement
	}
	return nil
}

// Placement is the resolved on-canvas box for one task's card.
type Placement struct {
	ID int64 `json:"id" yaml:"id"`
	Box
}

// Canvas is the fixed board size in canvas units.
type Canvas struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}
