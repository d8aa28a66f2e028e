// Package gap computes the paravaginal gap: the distance from a landmark to
// the nearer of the two lines running from the pubic symphysis to the left
// and right ischial spines.
package gap

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"pelvicpics/internal/logging"
	"pelvicpics/internal/models"
	"pelvicpics/pkg/vecmath"
)

// NegligiblySmall is the dot-product threshold below which a landmark is
// considered to project behind the pubic symphysis
const NegligiblySmall = 1e-4

// Side identifies which pubis to ischial spine line a gap was measured against
type Side int

const (
	Left Side = iota
	Right
	// Symphysis means the gap vector connects directly to the pubic symphysis
	Symphysis
)

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "symphysis"
	}
}

// Lines holds the two reference lines, both anchored at the pubic symphysis
type Lines struct {
	// Origin is the pubic symphysis position
	Origin r3.Vec

	// LeftPIS is the vector from the pubic symphysis to the left ischial spine
	LeftPIS r3.Vec

	// RightPIS is the vector from the pubic symphysis to the right ischial spine
	RightPIS r3.Vec

	// AxialIndex is the coordinate index of the inferior-superior axis
	AxialIndex int
}

// Result is the gap measured for one landmark
type Result struct {
	// Vector is the gap vector from the chosen line to the landmark
	Vector r3.Vec

	// Distance is the magnitude of Vector
	Distance float64

	// Axial is Vector's value along the inferior-superior axis
	Axial float64

	// Planar is the magnitude of Vector once the axial value is zeroed
	Planar float64

	// Side records which line (or the symphysis itself) the gap was measured to
	Side Side
}

// Calculator measures gaps against a fixed pair of lines
type Calculator struct {
	lines  Lines
	logger *zap.Logger
}

// NewCalculator creates a gap calculator for the given lines
func NewCalculator(lines Lines, logger *zap.Logger) *Calculator {
	logger = logging.OrNop(logger)
	if vecmath.IsZero(lines.LeftPIS) || vecmath.IsZero(lines.RightPIS) {
		logger.Warn("degenerate pubis to ischial spine line",
			zap.Bool("leftZero", vecmath.IsZero(lines.LeftPIS)),
			zap.Bool("rightZero", vecmath.IsZero(lines.RightPIS)))
	}
	return &Calculator{lines: lines, logger: logger}
}

// Measure computes the gap for a point
func (c *Calculator) Measure(name string, point r3.Vec) Result {
	fidVector := vecmath.Between(c.lines.Origin, point)

	leftPerp := vecmath.PerpendicularComponent(c.lines.LeftPIS, fidVector)
	rightPerp := vecmath.PerpendicularComponent(c.lines.RightPIS, fidVector)

	res := Result{Vector: leftPerp, Side: Left}
	if vecmath.Magnitude(rightPerp) < vecmath.Magnitude(leftPerp) {
		res = Result{Vector: rightPerp, Side: Right}
	}

	// The nearest point on a line lying behind the symphysis is anatomically
	// impossible, so connect straight to the symphysis instead.
	if r3.Dot(c.lines.LeftPIS, fidVector) < -NegligiblySmall ||
		r3.Dot(c.lines.RightPIS, fidVector) < -NegligiblySmall {
		c.logger.Debug("connecting landmark to pubic symphysis", zap.String("landmark", name))
		res = Result{Vector: fidVector, Side: Symphysis}
	}

	res.Distance = vecmath.Magnitude(res.Vector)
	res.Axial = models.Component(res.Vector, c.lines.AxialIndex)
	res.Planar = vecmath.Magnitude(models.WithComponent(res.Vector, c.lines.AxialIndex, 0))

	if math.IsNaN(res.Distance) {
		// only reachable with non-finite input coordinates
		c.logger.Warn("gap is undefined", zap.String("landmark", name))
		res = Result{Side: res.Side}
	}
	return res
}

// Annotate measures the gap for l and stores it on the landmark
func (c *Calculator) Annotate(l *models.Landmark) Result {
	res := c.Measure(l.Name, l.Coords)
	l.SetGap(res.Distance, res.Axial, res.Planar)
	return res
}
