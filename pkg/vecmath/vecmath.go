// Package vecmath provides the small set of 3D vector operations needed to
// reason about landmark geometry. All vectors are gonum r3.Vec values.
package vecmath

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Between returns the vector from start to end
func Between(start, end r3.Vec) r3.Vec {
	return r3.Sub(end, start)
}

// Magnitude returns the Euclidean length of v
func Magnitude(v r3.Vec) float64 {
	return r3.Norm(v)
}

// MagnitudeSum returns the sum of the lengths of vs
func MagnitudeSum(vs []r3.Vec) float64 {
	total := 0.0
	for _, v := range vs {
		total += Magnitude(v)
	}
	return total
}

// Normalize returns v scaled to unit length.
// The zero vector normalizes to the zero vector instead of NaN.
func Normalize(v r3.Vec) r3.Vec {
	if IsZero(v) {
		return r3.Vec{}
	}
	return r3.Unit(v)
}

// IsZero reports whether v has zero magnitude
func IsZero(v r3.Vec) bool {
	return Magnitude(v) == 0
}

// Scale returns v multiplied by k
func Scale(v r3.Vec, k float64) r3.Vec {
	return r3.Scale(k, v)
}

// ParallelComponent returns the projection of v onto the direction of reference
func ParallelComponent(reference, v r3.Vec) r3.Vec {
	unit := Normalize(reference)
	return Scale(unit, r3.Dot(unit, v))
}

// PerpendicularComponent returns the part of v orthogonal to reference
func PerpendicularComponent(reference, v r3.Vec) r3.Vec {
	return r3.Sub(v, ParallelComponent(reference, v))
}

// Orthogonalize returns the cross product a x b. The result is not normalized.
func Orthogonalize(a, b r3.Vec) r3.Vec {
	return r3.Cross(a, b)
}

// AngleBetween returns the angle between a and b in radians, in [0, pi].
// The second return is false when either vector has zero length and the
// angle is undefined.
func AngleBetween(a, b r3.Vec) (float64, bool) {
	if IsZero(a) || IsZero(b) {
		return 0, false
	}
	cos := r3.Cos(a, b)
	// rounding can push |cos| just past 1
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos), true
}

// RadToDeg converts radians to degrees
func RadToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
