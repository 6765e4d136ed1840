package layout

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evanschultz/vboard/internal/domain"
)

func box(x, y, w, h float64) domain.Box {
	return domain.Box{X: x, Y: y, Width: w, Height: h}
}

func TestDefaultFractions(t *testing.T) {
	x, y := DefaultFractions(1000)
	assert.Equal(t, 0.0, x)
	assert.Equal(t, 70.0, y)

	x, y = DefaultFractions(1)
	assert.Equal(t, 13.37, x)
	assert.Equal(t, 7.91, y)

	id := int64(1708531200123)
	x, y = DefaultFractions(id)
	assert.Equal(t, math.Mod(float64(id)*13.37, 70), x)
	assert.Equal(t, math.Mod(float64(id)*7.91, 80), y)
	assert.GreaterOrEqual(t, x, 0.0)
	assert.Less(t, x, 70.0)
	assert.GreaterOrEqual(t, y, 0.0)
	assert.Less(t, y, 80.0)
}

func TestDefaultBoxScalesToCanvas(t *testing.T) {
	got := DefaultBox(1, domain.Canvas{Width: 1000, Height: 500}, 120, 60)
	assert.InDelta(t, 133.7, got.X, 1e-9)
	assert.InDelta(t, 39.55, got.Y, 1e-9)
	assert.Equal(t, 120.0, got.Width)
	assert.Equal(t, 60.0, got.Height)
}

func TestCollideSymmetric(t *testing.T) {
	boxes := []domain.Box{
		box(0, 0, 10, 10),
		box(10, 0, 10, 10),
		box(5, 5, 1, 1),
		box(20.5, 0, 3, 3),
		box(0, 10, 10, 10),
		box(-5, -5, 4.9, 4.9),
		box(3, 3, 0, 0),
	}
	for i, a := range boxes {
		for j, b := range boxes {
			assert.Equalf(t, Collide(a, b), Collide(b, a), "boxes %d and %d", i, j)
		}
	}
}

func TestCollideBoundaryInclusive(t *testing.T) {
	cases := []struct {
		name string
		a, b domain.Box
		want bool
	}{
		{"shared vertical edge", box(0, 0, 10, 10), box(10, 0, 10, 10), true},
		{"shared horizontal edge", box(0, 0, 10, 10), box(0, 10, 10, 10), true},
		{"shared corner", box(0, 0, 10, 10), box(10, 10, 5, 5), true},
		{"contained", box(0, 0, 10, 10), box(2, 2, 1, 1), true},
		{"gap on x", box(0, 0, 10, 10), box(10.01, 0, 10, 10), false},
		{"gap on y", box(0, 0, 10, 10), box(0, 10.01, 10, 10), false},
		{"overlap on x only", box(0, 0, 10, 10), box(5, 30, 10, 10), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Collide(tc.a, tc.b))
		})
	}
}

func TestAdjustWithoutCollisionKeepsMeasuredBox(t *testing.T) {
	others := []domain.Placement{{ID: 1, Box: box(0, 0, 50, 50)}}
	res := Adjust(2, box(100, 100, 20, 20), others, DefaultParams())
	assert.True(t, res.Converged)
	assert.Zero(t, res.Iterations)
	assert.Equal(t, box(100, 100, 20, 20), res.Placement.Box)
	assert.Equal(t, int64(2), res.Placement.ID)
}

func TestAdjustMovesDownPastTouchingEdge(t *testing.T) {
	others := []domain.Placement{{ID: 1, Box: box(0, 0, 100, 40)}}
	res := Adjust(2, box(0, 0, 100, 40), others, DefaultParams())
	require.True(t, res.Converged)
	// y=40 touches and still collides; y=60 is the first free row.
	assert.Equal(t, 60.0, res.Placement.Y)
	assert.Equal(t, 0.0, res.Placement.X)
	assert.Equal(t, 3, res.Iterations)
}

func TestAdjustWrapsToNextColumn(t *testing.T) {
	others := []domain.Placement{{ID: 1, Box: box(0, 380, 10, 100)}}
	res := Adjust(2, box(0, 390, 10, 10), others, DefaultParams())
	require.True(t, res.Converged)
	// 390 -> 410 wraps to y=0 and x=20, which is clear of the other card.
	assert.Equal(t, box(20, 0, 10, 10), res.Placement.Box)
	assert.Equal(t, 1, res.Iterations)
}

func TestAdjustIgnoresOwnPreviousPlacement(t *testing.T) {
	others := []domain.Placement{{ID: 5, Box: box(0, 0, 100, 100)}}
	res := Adjust(5, box(0, 0, 100, 100), others, DefaultParams())
	assert.Zero(t, res.Iterations)
	assert.Equal(t, box(0, 0, 100, 100), res.Placement.Box)
}

func TestAdjustStopsAtIterationCap(t *testing.T) {
	wall := []domain.Placement{{ID: 1, Box: box(0, 0, 1e9, 1e9)}}
	p := DefaultParams()
	p.MaxIterations = 50
	res := Adjust(2, box(0, 0, 10, 10), wall, p)
	assert.False(t, res.Converged)
	assert.Equal(t, 50, res.Iterations)
	assert.True(t, Collide(res.Placement.Box, wall[0].Box))
}

func TestAdjustReportsOverflow(t *testing.T) {
	p := DefaultParams()
	p.Canvas = domain.Canvas{Width: 100, Height: 500}
	others := []domain.Placement{{ID: 1, Box: box(0, 0, 30, 500)}}
	res := Adjust(2, box(0, 0, 90, 10), others, p)
	require.True(t, res.Converged)
	assert.True(t, res.Overflow)
	assert.Greater(t, res.Placement.X, 30.0)
}

func TestEngineIdenticalBoxesConverge(t *testing.T) {
	engine := NewEngine(DefaultParams())
	live := []int64{}
	for id := int64(1); id <= 12; id++ {
		live = append(live, id)
		res, err := engine.Measure(id, box(40, 40, 120, 60), live)
		require.NoError(t, err)
		require.True(t, res.Converged, "id %d did not converge", id)
	}
	placements := engine.Placements()
	require.Len(t, placements, 12)
	for i := range placements {
		for j := i + 1; j < len(placements); j++ {
			assert.Falsef(t, Collide(placements[i].Box, placements[j].Box), "placements %d and %d collide", placements[i].ID, placements[j].ID)
		}
	}
}

func TestEngineRemeasureStartsFromRawBox(t *testing.T) {
	engine := NewEngine(DefaultParams())
	_, err := engine.Measure(1, box(0, 0, 100, 40), []int64{1})
	require.NoError(t, err)
	res, err := engine.Measure(2, box(0, 0, 100, 40), []int64{1, 2})
	require.NoError(t, err)
	require.Equal(t, 60.0, res.Placement.Y)

	res, err = engine.Measure(2, box(300, 300, 100, 40), []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, box(300, 300, 100, 40), res.Placement.Box)

	// Back at the colliding raw spot the card jumps through the loop again.
	res, err = engine.Measure(2, box(0, 10, 100, 40), []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 50.0, res.Placement.Y)
}

func TestEngineMeasurePrunesDeadIDs(t *testing.T) {
	engine := NewEngine(DefaultParams())
	_, _ = engine.Measure(1, box(0, 0, 100, 40), []int64{1})
	_, _ = engine.Measure(2, box(0, 200, 100, 40), []int64{1, 2})

	// Task 2 is gone; task 3 may take its spot without being nudged.
	res, err := engine.Measure(3, box(0, 200, 100, 40), []int64{1})
	require.NoError(t, err)
	assert.Zero(t, res.Iterations)
	_, ok := engine.Placement(2)
	assert.False(t, ok)
	assert.Len(t, engine.Placements(), 2)
}

func TestEngineForgetAndPrune(t *testing.T) {
	engine := NewEngine(Params{})
	for id := int64(1); id <= 3; id++ {
		_, err := engine.Measure(id, box(float64(id)*200, 0, 10, 10), []int64{1, 2, 3})
		require.NoError(t, err)
	}
	engine.Forget(2)
	_, ok := engine.Placement(2)
	assert.False(t, ok)

	assert.Equal(t, 1, engine.Prune([]int64{1}))
	got := engine.Placements()
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)

	engine.Reset()
	assert.Empty(t, engine.Placements())
}

func TestEngineRejectsInvalidMeasurement(t *testing.T) {
	engine := NewEngine(DefaultParams())
	_, err := engine.Measure(1, box(math.NaN(), 0, 10, 10), []int64{1})
	assert.ErrorIs(t, err, domain.ErrInvalidMeasurement)
	assert.Empty(t, engine.Placements())
}

func TestNewEngineFillsDefaults(t *testing.T) {
	got := NewEngine(Params{VerticalStep: 5}).Params()
	assert.Equal(t, 5.0, got.VerticalStep)
	assert.Equal(t, float64(DefaultHorizontalStep), got.HorizontalStep)
	assert.Equal(t, float64(DefaultWrapY), got.WrapY)
	assert.Equal(t, DefaultMaxIterations, got.MaxIterations)
	assert.Equal(t, domain.Canvas{Width: DefaultCanvasWidth, Height: DefaultCanvasHeight}, got.Canvas)
}
