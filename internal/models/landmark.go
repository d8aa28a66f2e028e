package models

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Landmark represents a single named fiducial point placed on an MRI scan
type Landmark struct {
	// Name is the label given to the point when it was placed, e.g. "PS" or "A2L5"
	Name string

	// Coords holds the position of the point. Raw scanner (RAS) coordinates at
	// load time, replaced in place by the normalizer.
	Coords r3.Vec

	// Gap is the distance to the nearer pubis to ischial spine line.
	// Nil until the reference landmarks of the owning subject are known.
	Gap *float64

	// GapAxial is the component of the gap vector along the inferior-superior axis
	GapAxial *float64

	// GapPlanar is the magnitude of the gap vector with the axial component removed
	GapPlanar *float64
}

// NewLandmark creates a landmark with the given raw coordinates
func NewLandmark(name string, x, y, z float64) *Landmark {
	return &Landmark{
		Name:   name,
		Coords: r3.Vec{X: x, Y: y, Z: z},
	}
}

// Component returns the coordinate at index 0 (X), 1 (Y) or 2 (Z)
func (l *Landmark) Component(axis int) float64 {
	return Component(l.Coords, axis)
}

// SetGap stores the three paravaginal gap values
func (l *Landmark) SetGap(gap, axial, planar float64) {
	l.Gap = &gap
	l.GapAxial = &axial
	l.GapPlanar = &planar
}

// HasGap reports whether the gap values have been computed
func (l *Landmark) HasGap() bool {
	return l.Gap != nil
}

// Clone returns a deep copy of the landmark
func (l *Landmark) Clone() *Landmark {
	c := &Landmark{Name: l.Name, Coords: l.Coords}
	if l.Gap != nil {
		c.SetGap(*l.Gap, *l.GapAxial, *l.GapPlanar)
	}
	return c
}

func (l *Landmark) String() string {
	return fmt.Sprintf("%s: (%.3f, %.3f, %.3f)", l.Name, l.Coords.X, l.Coords.Y, l.Coords.Z)
}

// Component returns v's coordinate at index 0 (X), 1 (Y) or 2 (Z)
func Component(v r3.Vec, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	case 2:
		return v.Z
	default:
		panic("illegal dimension")
	}
}

// WithComponent returns a copy of v with the coordinate at axis replaced by value
func WithComponent(v r3.Vec, axis int, value float64) r3.Vec {
	switch axis {
	case 0:
		v.X = value
	case 1:
		v.Y = value
	case 2:
		v.Z = value
	default:
		panic("illegal dimension")
	}
	return v
}
