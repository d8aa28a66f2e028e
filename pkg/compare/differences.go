package compare

import (
	"gonum.org/v1/gonum/spatial/r3"

	"pelvicpics/internal/models"
	"pelvicpics/pkg/pelvis"
	"pelvicpics/pkg/vecmath"
)

// Edge identifies which end of a row a difference was measured at
type Edge string

const (
	LeftEdge  Edge = "left"
	RightEdge Edge = "right"
)

// Difference is the displacement between corresponding row edges of two
// normalized subjects
type Difference struct {
	Row  int
	Edge Edge

	From *models.Landmark
	To   *models.Landmark

	// Vector runs from From to To
	Vector   r3.Vec
	Distance float64
}

// EdgeDifferences pairs the left and right edges of every row present in
// both subjects. Rows missing from either subject, or without a landmark,
// are skipped.
func EdgeDifferences(a, b *pelvis.Subject) []Difference {
	var out []Difference
	for n := 1; n <= a.Grid.NumRows() && n <= b.Grid.NumRows(); n++ {
		ra, rb := a.Grid.Row(n), b.Grid.Row(n)

		la, okA := ra.LeftEdge()
		lb, okB := rb.LeftEdge()
		if !okA || !okB {
			continue
		}
		out = append(out, difference(n, LeftEdge, ra[la], rb[lb]))

		// a row with a left edge always has a right edge
		ria, _ := ra.RightEdge()
		rib, _ := rb.RightEdge()
		out = append(out, difference(n, RightEdge, ra[ria], rb[rib]))
	}
	return out
}

func difference(row int, edge Edge, from, to *models.Landmark) Difference {
	v := vecmath.Between(from.Coords, to.Coords)
	return Difference{
		Row:      row,
		Edge:     edge,
		From:     from,
		To:       to,
		Vector:   v,
		Distance: vecmath.Magnitude(v),
	}
}
