package pics

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats/scalar"

	"pelvicpics/internal/logging"
	"pelvicpics/internal/models"
	"pelvicpics/pkg/pelvis"
	"pelvicpics/pkg/vecmath"
)

// Options controls how subjects are normalized
type Options struct {
	// Coding assigns the new axes to X, Y and Z
	Coding AxisCoding

	// DesiredSCIPPAngle is the target SCIPP angle in radians
	DesiredSCIPPAngle float64

	// ScaleBySCIPPLine rescales every subject so the SCIPP line has SCIPPLength
	ScaleBySCIPPLine bool
	SCIPPLength      float64

	// ScaleByIISLine rescales the left-right axis so the spines are IISLength apart
	ScaleByIISLine bool
	IISLength      float64

	// VerifyTolerance is the largest acceptable SCIPP angle residual in radians
	VerifyTolerance float64

	// CreateIIS adds the inter-ischial-spine mid-point landmark
	CreateIIS bool
}

// DefaultOptions returns the standard normalization settings
func DefaultOptions() Options {
	return Options{
		Coding:            PICS3D,
		DesiredSCIPPAngle: DesiredSCIPPAngle,
		SCIPPLength:       100,
		IISLength:         100,
		VerifyTolerance:   0.01,
	}
}

// Verification is the outcome of checking a normalized subject's SCIPP angle
type Verification struct {
	Subject string

	// Angle is the SCIPP line angle measured in the new frame
	Angle float64

	// Expected is the angle the frame construction aims for
	Expected float64

	// Residual is Angle - Expected
	Residual float64

	// Defined is false when the SCIPP line has no antero-posterior extent
	Defined bool

	// WithinTolerance reports whether |Residual| is acceptable
	WithinTolerance bool
}

// Result describes one normalized subject
type Result struct {
	Frame        *Frame
	Transform    *Transform
	Verification Verification
}

// Normalizer moves subjects into the frame described by its options
type Normalizer struct {
	opts   Options
	logger *zap.Logger
}

// NewNormalizer creates a normalizer. Scaling options are announced once here
// since they make every later measurement relative.
func NewNormalizer(opts Options, logger *zap.Logger) *Normalizer {
	logger = logging.OrNop(logger)
	if opts.ScaleBySCIPPLine {
		logger.Warn("scaling by SCIPP line: all measurements are RELATIVE, not absolute millimetres",
			zap.Float64("scippLength", opts.SCIPPLength))
	}
	if opts.ScaleByIISLine {
		logger.Warn("scaling by inter-ischial-spine line: all measurements are RELATIVE, not absolute millimetres",
			zap.Float64("iisLength", opts.IISLength))
	}
	return &Normalizer{opts: opts, logger: logger}
}

// Options returns the normalizer's settings
func (n *Normalizer) Options() Options {
	return n.opts
}

// Normalize transforms every landmark of s into the frame, applies any
// requested scaling, recomputes derived properties and verifies the result.
// Coordinates are mutated in place; a subject must be normalized only once.
func (n *Normalizer) Normalize(s *pelvis.Subject) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	frame, err := BuildFrame(s, n.opts.DesiredSCIPPAngle, n.logger)
	if err != nil {
		return nil, err
	}
	tilt := frame.Tilt
	s.Tilt = &tilt

	t := NewTransform(frame, n.opts.Coding)
	n.logger.Debug("transformation matrix", zap.String("subject", s.ID), zap.Stringer("matrix", t))
	Apply(s, t)

	if n.opts.ScaleBySCIPPLine {
		if err := ScaleToSCIPPLength(s, n.opts.SCIPPLength); err != nil {
			return nil, err
		}
	}
	if n.opts.ScaleByIISLine {
		if err := ScaleToIISLength(s, n.opts.IISLength, n.opts.Coding); err != nil {
			return nil, err
		}
	}

	props := pelvis.Properties{AxialIndex: n.opts.Coding.ISIndex(), CreateIIS: n.opts.CreateIIS}
	if err := s.ComputeProperties(props, n.logger); err != nil {
		return nil, err
	}

	v, err := n.Verify(s)
	if err != nil {
		return nil, err
	}
	return &Result{Frame: frame, Transform: t, Verification: v}, nil
}

// Verify measures the SCIPP line angle of a normalized subject against the
// target. A large residual is logged and returned, never treated as an error.
func (n *Normalizer) Verify(s *pelvis.Subject) (Verification, error) {
	v := Verification{Subject: s.ID, Expected: -n.opts.DesiredSCIPPAngle}

	scipp, err := s.SCIPPLine()
	if err != nil {
		return v, err
	}
	scipp = vecmath.Normalize(scipp)

	ap := models.Component(scipp, n.opts.Coding.APIndex())
	is := models.Component(scipp, n.opts.Coding.ISIndex())
	if ap == 0 {
		n.logger.Warn("SCIPP angle undefined after normalization", zap.String("subject", s.ID))
		return v, nil
	}

	v.Defined = true
	v.Angle = math.Atan(is / ap)
	v.Residual = v.Angle - v.Expected
	v.WithinTolerance = scalar.EqualWithinAbs(v.Angle, v.Expected, n.opts.VerifyTolerance)

	fields := []zap.Field{
		zap.String("subject", s.ID),
		zap.Float64("angleDeg", vecmath.RadToDeg(v.Angle)),
		zap.Float64("expectedDeg", vecmath.RadToDeg(v.Expected)),
		zap.Float64("residualDeg", vecmath.RadToDeg(v.Residual)),
	}
	if v.WithinTolerance {
		n.logger.Debug("final SCIPP angle", fields...)
	} else {
		n.logger.Warn("final SCIPP angle differs from target", fields...)
	}
	return v, nil
}
