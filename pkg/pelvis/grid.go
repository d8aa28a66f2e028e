package pelvis

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"pelvicpics/internal/logging"
	"pelvicpics/internal/models"
	"pelvicpics/pkg/vecmath"
)

// Row is one row of the landmark grid. Index 0 is never populated so that
// column numbers from landmark names index the row directly. A nil cell is
// an explicitly empty position.
type Row []*models.Landmark

// Grid is the sparse row/column arrangement of a subject's landmarks.
// Index 0 is never populated; rows between populated rows are empty but present.
type Grid []Row

// BuildGrid places every landmark whose name encodes a row and column into a
// grid. Landmarks are visited in the given order; a later landmark with the
// same row and column replaces an earlier one.
func BuildGrid(landmarks []*models.Landmark, naming Naming, logger *zap.Logger) Grid {
	logger = logging.OrNop(logger)

	grid := Grid{nil}
	for _, l := range landmarks {
		row, col, ok := naming.ParseRowCol(l.Name)
		if !ok || row < 1 || col < 1 {
			if !naming.IsReference(l.Name) {
				logger.Debug("landmark name has no row/column", zap.String("landmark", l.Name))
			}
			continue
		}
		if limit := naming.maxIndex(); row > limit || col > limit {
			logger.Warn("landmark row/column beyond limit",
				zap.String("landmark", l.Name), zap.Int("row", row), zap.Int("col", col), zap.Int("max", limit))
			continue
		}

		for len(grid) <= row {
			grid = append(grid, Row{nil})
		}
		for len(grid[row]) <= col {
			grid[row] = append(grid[row], nil)
		}

		if prev := grid[row][col]; prev != nil {
			logger.Warn("duplicate row/column landmark",
				zap.String("kept", l.Name), zap.String("replaced", prev.Name),
				zap.Int("row", row), zap.Int("col", col))
		}
		grid[row][col] = l
	}
	return grid
}

// NumRows returns the highest row number in the grid
func (g Grid) NumRows() int {
	if len(g) == 0 {
		return 0
	}
	return len(g) - 1
}

// Row returns the row with the given number, or nil when out of range
func (g Grid) Row(n int) Row {
	if n < 1 || n >= len(g) {
		return nil
	}
	return g[n]
}

// At returns the landmark at row, col or nil
func (g Grid) At(row, col int) *models.Landmark {
	r := g.Row(row)
	if col < 1 || col >= len(r) {
		return nil
	}
	return r[col]
}

// LeftEdge returns the index of the first populated cell scanning from column 1
func (r Row) LeftEdge() (int, bool) {
	for i := 1; i < len(r); i++ {
		if r[i] != nil {
			return i, true
		}
	}
	return 0, false
}

// RightEdge returns the index of the first populated cell scanning from the end
func (r Row) RightEdge() (int, bool) {
	for i := len(r) - 1; i >= 1; i-- {
		if r[i] != nil {
			return i, true
		}
	}
	return 0, false
}

// RightEdgeOffset returns the right edge as a negative offset from the end
// of the row, so the last cell is -1
func (r Row) RightEdgeOffset() (int, bool) {
	i, ok := r.RightEdge()
	if !ok {
		return 0, false
	}
	return i - len(r), true
}

// Center returns the index midway between the edges, rounding halves away
// from zero. The right edge enters the average as its offset from the end
// plus the row length. The cell at the returned index may be empty.
func (r Row) Center() (int, bool) {
	left, ok := r.LeftEdge()
	if !ok {
		return 0, false
	}
	rightOffset, ok := r.RightEdgeOffset()
	if !ok {
		return 0, false
	}
	return CenterIndex(left, rightOffset, len(r)), true
}

// CenterIndex averages a left index with a right edge given as a negative
// offset from the end of a row of the given length
func CenterIndex(left, rightOffset, length int) int {
	return int(math.Round(float64(left+length+rightOffset) / 2))
}

// Width sums the distances between adjacent populated cells, left to right.
// Pairs that straddle an empty cell are skipped, so this is a path length
// over contiguous runs rather than an edge-to-edge chord.
func (r Row) Width() float64 {
	var steps []r3.Vec
	for i := 2; i < len(r); i++ {
		if r[i-1] != nil && r[i] != nil {
			steps = append(steps, vecmath.Between(r[i-1].Coords, r[i].Coords))
		}
	}
	return vecmath.MagnitudeSum(steps)
}

// Widths returns the width of every row from 1 to NumRows, in row order.
// Rows with no landmarks have width 0 so row k is always at index k-1.
func (g Grid) Widths() []float64 {
	widths := make([]float64, 0, g.NumRows())
	for n := 1; n < len(g); n++ {
		widths = append(widths, g[n].Width())
	}
	return widths
}
