// Package pics re-expresses a subject's landmarks in the pelvic inclination
// correction system: an anatomy-defined frame centred on the pubic symphysis
// whose antero-posterior axis is tilted so the SCIPP line sits at a fixed
// standing-posture angle.
package pics

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"pelvicpics/internal/logging"
	"pelvicpics/pkg/pelvis"
	"pelvicpics/pkg/vecmath"
)

// DesiredSCIPPAngle is the standing-posture SCIPP line angle, -34 degrees in radians
const DesiredSCIPPAngle = -0.593411946

// ErrDegenerateFrame is returned when the reference landmarks do not span a frame
var ErrDegenerateFrame = errors.New("degenerate reference geometry")

// Canonical radiological axes in scanner RAS coordinates
var (
	canonicalLR = r3.Vec{X: -1} // increases to the patient's left
	canonicalAP = r3.Vec{Y: -1} // increases posteriorly
	canonicalIS = r3.Vec{Z: 1}  // increases superiorly
)

// AxisCoding selects which new axis becomes X, Y and Z
type AxisCoding int

const (
	// Lisse puts X left, Y posterior, Z superior
	Lisse AxisCoding = iota
	// PICS3D puts X posterior, Y superior, Z left
	PICS3D
)

// ParseAxisCoding parses "lisse" or "pics3d", case-insensitively
func ParseAxisCoding(s string) (AxisCoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lisse":
		return Lisse, nil
	case "pics3d":
		return PICS3D, nil
	}
	return 0, fmt.Errorf("unknown axis coding %q", s)
}

func (c AxisCoding) String() string {
	switch c {
	case Lisse:
		return "lisse"
	case PICS3D:
		return "pics3d"
	}
	return fmt.Sprintf("AxisCoding(%d)", int(c))
}

// LRIndex returns the coordinate index of the left-right axis
func (c AxisCoding) LRIndex() int {
	if c == PICS3D {
		return 2
	}
	return 0
}

// APIndex returns the coordinate index of the antero-posterior axis
func (c AxisCoding) APIndex() int {
	if c == PICS3D {
		return 0
	}
	return 1
}

// ISIndex returns the coordinate index of the inferior-superior axis
func (c AxisCoding) ISIndex() int {
	return 3 - c.LRIndex() - c.APIndex()
}

// Frame is a subject-specific orthonormal frame expressed in the original coordinates
type Frame struct {
	LR r3.Vec
	AP r3.Vec
	IS r3.Vec

	// SpineAxis is the unit right-to-left ischial spine line before its AP
	// component is removed. Pitch is measured on it.
	SpineAxis r3.Vec

	// Origin is the pubic symphysis in original coordinates
	Origin r3.Vec

	// SCIPPAngle is the measured angle of the SCIPP line in the old Y-Z plane
	SCIPPAngle float64

	// Adjustment is the rotation applied to reach the desired SCIPP angle
	Adjustment float64

	// Tilt holds the angles between each new axis and its radiological counterpart
	Tilt pelvis.TiltAngles
}

// Axes returns the frame axes in the order the coding assigns them to X, Y and Z
func (f *Frame) Axes(coding AxisCoding) [3]r3.Vec {
	if coding == PICS3D {
		return [3]r3.Vec{f.AP, f.IS, f.LR}
	}
	return [3]r3.Vec{f.LR, f.AP, f.IS}
}

// BuildFrame derives the left-right, antero-posterior and inferior-superior
// axes of a subject from its four reference landmarks.
//
// The AP axis is found by measuring the SCIPP line against the old Y axis in
// the old Y-Z plane and rotating by the difference to desiredAngle. The
// rotation is about the old left-right axis, not the new one, which is only
// known once AP is. The LR axis is the inter-spine line with any AP
// component removed, and IS completes a right-handed frame.
func BuildFrame(s *pelvis.Subject, desiredAngle float64, logger *zap.Logger) (*Frame, error) {
	logger = logging.OrNop(logger)
	ps, lis, ris, scj, err := s.References()
	if err != nil {
		return nil, err
	}

	spineLine := vecmath.Between(ris.Coords, lis.Coords)
	if vecmath.IsZero(spineLine) {
		logger.Warn("ischial spines coincide", zap.String("subject", s.ID))
		return nil, fmt.Errorf("subject %q: ischial spines coincide: %w", s.ID, ErrDegenerateFrame)
	}

	scipp := vecmath.Normalize(vecmath.Between(ps.Coords, scj.Coords))
	if scipp.Y == 0 && scipp.Z == 0 {
		logger.Warn("SCIPP line has no extent in the Y-Z plane", zap.String("subject", s.ID))
		return nil, fmt.Errorf("subject %q: SCIPP angle undefined: %w", s.ID, ErrDegenerateFrame)
	}

	scippAngle := math.Atan(scipp.Z / scipp.Y)
	adjustment := desiredAngle - scippAngle
	logger.Debug("SCIPP angle",
		zap.String("subject", s.ID),
		zap.Float64("measuredDeg", vecmath.RadToDeg(scippAngle)),
		zap.Float64("adjustmentDeg", vecmath.RadToDeg(adjustment)))

	// Rotating the SCIPP line up means rotating the reference axis down.
	ap := vecmath.Normalize(r3.Vec{X: 0, Y: -math.Cos(adjustment), Z: math.Sin(adjustment)})

	is := vecmath.Normalize(vecmath.Orthogonalize(spineLine, ap))
	if vecmath.IsZero(is) {
		logger.Warn("inter-spine line is parallel to the AP axis", zap.String("subject", s.ID))
		return nil, fmt.Errorf("subject %q: inter-spine line parallel to AP axis: %w", s.ID, ErrDegenerateFrame)
	}
	lr := vecmath.Orthogonalize(ap, is)

	logger.Debug("collinearity of inter-spine line and AP axis",
		zap.String("subject", s.ID),
		zap.Float64("dot", r3.Dot(vecmath.Normalize(spineLine), ap)))

	f := &Frame{
		LR:         lr,
		AP:         ap,
		IS:         is,
		SpineAxis:  vecmath.Normalize(spineLine),
		Origin:     ps.Coords,
		SCIPPAngle: scippAngle,
		Adjustment: adjustment,
	}
	f.Tilt = tiltAngles(f)
	return f, nil
}

// tiltAngles compares the frame with the standard radiological axes. Pitch
// uses the raw inter-spine line so it does not depend on the AP correction.
func tiltAngles(f *Frame) pelvis.TiltAngles {
	pitch, _ := vecmath.AngleBetween(canonicalLR, f.SpineAxis)
	roll, _ := vecmath.AngleBetween(canonicalAP, f.AP)
	yaw, _ := vecmath.AngleBetween(canonicalIS, f.IS)
	return pelvis.TiltAngles{Pitch: pitch, Roll: roll, Yaw: yaw}
}
