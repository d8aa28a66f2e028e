package pics

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"pelvicpics/pkg/pelvis"
	"pelvicpics/pkg/vecmath"
)

// Transform is a 4x4 homogeneous matrix applied to row vectors [x y z 1]
type Transform struct {
	m *mat.Dense
}

// NewTransform builds the matrix that maps original coordinates into the
// frame. Column j holds the j-th new axis (per coding) in original
// components; the fourth row carries the translation that sends the frame
// origin to zero.
func NewTransform(f *Frame, coding AxisCoding) *Transform {
	axes := f.Axes(coding)

	m := mat.NewDense(4, 4, nil)
	for j, axis := range axes {
		m.Set(0, j, axis.X)
		m.Set(1, j, axis.Y)
		m.Set(2, j, axis.Z)
	}

	// Translate by the origin offset expressed in the new axes, found by
	// pushing -origin through the rotation-only matrix.
	t := &Transform{m: m}
	shift := t.apply(r3.Scale(-1, f.Origin), 0)
	m.Set(3, 0, shift.X)
	m.Set(3, 1, shift.Y)
	m.Set(3, 2, shift.Z)
	m.Set(3, 3, 1)
	return t
}

// NewScaleTransform scales every coordinate by k about the origin
func NewScaleTransform(k float64) *Transform {
	return &Transform{m: mat.NewDense(4, 4, []float64{
		k, 0, 0, 0,
		0, k, 0, 0,
		0, 0, k, 0,
		0, 0, 0, 1,
	})}
}

// NewAxisScaleTransform scales only the coordinate at axis by k
func NewAxisScaleTransform(axis int, k float64) *Transform {
	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		m.Set(i, i, 1)
	}
	m.Set(axis, axis, k)
	return &Transform{m: m}
}

// Matrix returns the underlying 4x4 matrix
func (t *Transform) Matrix() mat.Matrix {
	return t.m
}

// Apply transforms a point, dropping the homogeneous coordinate
func (t *Transform) Apply(v r3.Vec) r3.Vec {
	return t.apply(v, 1)
}

func (t *Transform) apply(v r3.Vec, w float64) r3.Vec {
	row := mat.NewDense(1, 4, []float64{v.X, v.Y, v.Z, w})
	var out mat.Dense
	out.Mul(row, t.m)
	return r3.Vec{X: out.At(0, 0), Y: out.At(0, 1), Z: out.At(0, 2)}
}

func (t *Transform) String() string {
	return fmt.Sprintf("%v", mat.Formatted(t.m, mat.Prefix(""), mat.Squeeze()))
}

// Apply transforms every landmark of s in place
func Apply(s *pelvis.Subject, t *Transform) {
	for _, l := range s.Landmarks() {
		l.Coords = t.Apply(l.Coords)
	}
}

// ScaleToSCIPPLength scales all landmarks about the origin so the SCIPP line
// has the given length
func ScaleToSCIPPLength(s *pelvis.Subject, length float64) error {
	scipp, err := s.SCIPPLine()
	if err != nil {
		return err
	}
	current := vecmath.Magnitude(scipp)
	if current == 0 {
		return fmt.Errorf("subject %q: zero-length SCIPP line: %w", s.ID, ErrDegenerateFrame)
	}
	Apply(s, NewScaleTransform(length/current))
	return nil
}

// ScaleToIISLength scales landmarks along the left-right axis only so the
// inter-ischial-spine distance has the given length
func ScaleToIISLength(s *pelvis.Subject, length float64, coding AxisCoding) error {
	iis, err := s.InterIschialLine()
	if err != nil {
		return err
	}
	current := vecmath.Magnitude(iis)
	if current == 0 {
		return fmt.Errorf("subject %q: ischial spines coincide: %w", s.ID, ErrDegenerateFrame)
	}
	Apply(s, NewAxisScaleTransform(coding.LRIndex(), length/current))
	return nil
}
