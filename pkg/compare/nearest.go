package compare

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"

	"pelvicpics/internal/models"
	"pelvicpics/pkg/pelvis"
)

// Match pairs a landmark with the closest landmark of another subject
type Match struct {
	Landmark *models.Landmark
	Nearest  *models.Landmark
	Distance float64

	// Consistent is set when both landmarks carry the same name. A mismatch
	// usually means a point was labelled differently between annotations.
	Consistent bool
}

// NearestMatches finds, for every landmark of a, the nearest landmark of b.
// Both subjects should be normalized into the same frame first.
func NearestMatches(a, b *pelvis.Subject) []Match {
	targets := b.Landmarks()
	if len(targets) == 0 {
		return nil
	}
	points := make(landmarkPoints, len(targets))
	for i, l := range targets {
		points[i] = landmarkPoint{l}
	}
	tree := kdtree.New(points, false)

	var out []Match
	for _, l := range a.Landmarks() {
		nearest, d2 := tree.Nearest(landmarkPoint{l})
		if nearest == nil {
			continue
		}
		n := nearest.(landmarkPoint).Landmark
		out = append(out, Match{
			Landmark:   l,
			Nearest:    n,
			Distance:   math.Sqrt(d2),
			Consistent: n.Name == l.Name,
		})
	}
	return out
}

// landmarkPoint adapts a landmark to kdtree.Comparable
type landmarkPoint struct {
	*models.Landmark
}

func (p landmarkPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(landmarkPoint)
	return p.Component(int(d)) - q.Component(int(d))
}

func (p landmarkPoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance
func (p landmarkPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(landmarkPoint)
	dx := p.Coords.X - q.Coords.X
	dy := p.Coords.Y - q.Coords.Y
	dz := p.Coords.Z - q.Coords.Z
	return dx*dx + dy*dy + dz*dz
}

// landmarkPoints satisfies kdtree.Interface
type landmarkPoints []landmarkPoint

func (p landmarkPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p landmarkPoints) Len() int                              { return len(p) }
func (p landmarkPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p landmarkPoints) Pivot(d kdtree.Dim) int {
	plane := landmarkPlane{landmarkPoints: p, Dim: d}
	return kdtree.Partition(plane, kdtree.MedianOfRandoms(plane, 100))
}

// landmarkPlane implements kdtree.SortSlicer along one dimension
type landmarkPlane struct {
	landmarkPoints
	kdtree.Dim
}

func (p landmarkPlane) Less(i, j int) bool {
	return p.landmarkPoints[i].Component(int(p.Dim)) < p.landmarkPoints[j].Component(int(p.Dim))
}

func (p landmarkPlane) Slice(start, end int) kdtree.SortSlicer {
	return landmarkPlane{landmarkPoints: p.landmarkPoints[start:end], Dim: p.Dim}
}

func (p landmarkPlane) Swap(i, j int) {
	p.landmarkPoints[i], p.landmarkPoints[j] = p.landmarkPoints[j], p.landmarkPoints[i]
}
