package pics

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gonum.org/v1/gonum/spatial/r3"

	"pelvicpics/internal/models"
	"pelvicpics/pkg/pelvis"
	"pelvicpics/pkg/vecmath"
)

const eps = 1e-9

// alignedSubject already stands at the target SCIPP angle with its spines on
// the X axis, so the derived frame matches the radiological axes exactly.
func alignedSubject(t *testing.T) *pelvis.Subject {
	t.Helper()
	s := pelvis.NewSubject("aligned", pelvis.DefaultNaming())
	s.Add(models.NewLandmark("PS", 10, 20, 30))
	s.Add(models.NewLandmark("L_IS", -40, -60, 50))
	s.Add(models.NewLandmark("R_IS", 60, -60, 50))
	s.Add(models.NewLandmark("SCJ", 10, -80, 30+100*math.Tan(-DesiredSCIPPAngle)))
	s.Add(models.NewLandmark("A1L1", -20, -10, 40))
	s.Add(models.NewLandmark("A1L2", 40, -10, 40))
	return s
}

// tiltedSubject has an arbitrary posture and a slightly skewed spine line
func tiltedSubject() *pelvis.Subject {
	s := pelvis.NewSubject("tilted", pelvis.DefaultNaming())
	s.Add(models.NewLandmark("PS", 1.5, -3, 12))
	s.Add(models.NewLandmark("L_IS", -48, -75, 31))
	s.Add(models.NewLandmark("R_IS", 52, -82, 26))
	s.Add(models.NewLandmark("SCJ", 4, -112, 70))
	s.Add(models.NewLandmark("A1L1", -18, -30, 40))
	s.Add(models.NewLandmark("A1L2", 0, -31, 42))
	s.Add(models.NewLandmark("A1L3", 19, -29, 39))
	s.Add(models.NewLandmark("A2L2", 2, -50, 55))
	return s
}

func assertVecInDelta(t *testing.T, want, got r3.Vec, delta float64, msgAndArgs ...interface{}) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, delta, msgAndArgs...)
	assert.InDelta(t, want.Y, got.Y, delta, msgAndArgs...)
	assert.InDelta(t, want.Z, got.Z, delta, msgAndArgs...)
}

func TestParseAxisCoding(t *testing.T) {
	c, err := ParseAxisCoding("PICS3D")
	require.NoError(t, err)
	assert.Equal(t, PICS3D, c)

	c, err = ParseAxisCoding(" lisse ")
	require.NoError(t, err)
	assert.Equal(t, Lisse, c)

	_, err = ParseAxisCoding("ras")
	assert.Error(t, err)
}

func TestAxisIndices(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2}, []int{Lisse.LRIndex(), Lisse.APIndex(), Lisse.ISIndex()})
	assert.Equal(t, []int{2, 0, 1}, []int{PICS3D.LRIndex(), PICS3D.APIndex(), PICS3D.ISIndex()})
}

func TestBuildFrameIsOrthonormal(t *testing.T) {
	f, err := BuildFrame(tiltedSubject(), DesiredSCIPPAngle, zaptest.NewLogger(t))
	require.NoError(t, err)

	for name, axis := range map[string]r3.Vec{"LR": f.LR, "AP": f.AP, "IS": f.IS} {
		assert.InDelta(t, 1, r3.Norm(axis), eps, name)
	}
	assert.InDelta(t, 0, r3.Dot(f.LR, f.AP), eps)
	assert.InDelta(t, 0, r3.Dot(f.LR, f.IS), eps)
	assert.InDelta(t, 0, r3.Dot(f.AP, f.IS), eps)

	// right-handed
	assertVecInDelta(t, f.IS, r3.Cross(f.LR, f.AP), eps)
	assert.Equal(t, r3.Vec{X: 1.5, Y: -3, Z: 12}, f.Origin)
}

func TestAlignedSubjectHasNoTilt(t *testing.T) {
	f, err := BuildFrame(alignedSubject(t), DesiredSCIPPAngle, nil)
	require.NoError(t, err)

	assert.InDelta(t, 0, f.Adjustment, eps)
	assertVecInDelta(t, canonicalLR, f.LR, eps)
	assertVecInDelta(t, canonicalAP, f.AP, eps)
	assertVecInDelta(t, canonicalIS, f.IS, eps)

	// acos loses precision near zero, so compare loosely
	assert.InDelta(t, 0, f.Tilt.Pitch, 1e-6)
	assert.InDelta(t, 0, f.Tilt.Roll, 1e-6)
	assert.InDelta(t, 0, f.Tilt.Yaw, 1e-6)
}

func TestPitchFollowsInterSpineLine(t *testing.T) {
	f, err := BuildFrame(tiltedSubject(), DesiredSCIPPAngle, nil)
	require.NoError(t, err)

	spine := vecmath.Normalize(r3.Vec{X: -100, Y: 7, Z: 5})
	assertVecInDelta(t, spine, f.SpineAxis, eps)

	want, ok := vecmath.AngleBetween(canonicalLR, spine)
	require.True(t, ok)
	assert.InDelta(t, want, f.Tilt.Pitch, eps)

	// the orthogonalized LR axis drops the AP component and points elsewhere
	lrPitch, _ := vecmath.AngleBetween(canonicalLR, f.LR)
	assert.NotEqual(t, math.Round(want*1e6), math.Round(lrPitch*1e6))
	assert.InDelta(t, 0, r3.Dot(f.LR, f.AP), eps)
}

func TestBuildFrameDegenerate(t *testing.T) {
	cases := map[string]struct {
		lis, ris, scj r3.Vec
		desired       float64
	}{
		"spines coincide": {
			lis: r3.Vec{X: 5, Y: -70, Z: 20}, ris: r3.Vec{X: 5, Y: -70, Z: 20},
			scj: r3.Vec{Y: -100, Z: 60}, desired: DesiredSCIPPAngle,
		},
		"SCIPP along X": {
			lis: r3.Vec{X: -50, Y: -70, Z: 20}, ris: r3.Vec{X: 50, Y: -70, Z: 20},
			scj: r3.Vec{X: 30}, desired: DesiredSCIPPAngle,
		},
		"spine line along AP": {
			lis: r3.Vec{Y: -80, Z: 20}, ris: r3.Vec{Y: -20, Z: 20},
			scj: r3.Vec{Y: -100}, desired: 0,
		},
	}
	for name, c := range cases {
		s := pelvis.NewSubject(name, pelvis.DefaultNaming())
		s.Add(models.NewLandmark("PS", 0, 0, 0))
		s.Add(&models.Landmark{Name: "L_IS", Coords: c.lis})
		s.Add(&models.Landmark{Name: "R_IS", Coords: c.ris})
		s.Add(&models.Landmark{Name: "SCJ", Coords: c.scj})

		_, err := BuildFrame(s, c.desired, zaptest.NewLogger(t))
		assert.True(t, errors.Is(err, ErrDegenerateFrame), name)
	}
}

func TestNormalizeMovesSymphysisToOrigin(t *testing.T) {
	for _, coding := range []AxisCoding{Lisse, PICS3D} {
		opts := DefaultOptions()
		opts.Coding = coding
		s := tiltedSubject()

		res, err := NewNormalizer(opts, zaptest.NewLogger(t)).Normalize(s)
		require.NoError(t, err, coding.String())

		ps, _ := s.Get("PS")
		assertVecInDelta(t, r3.Vec{}, ps.Coords, eps, coding.String())

		require.True(t, res.Verification.Defined)
		// the skewed spine line leaves a small residual from rotating about the old axis
		assert.InDelta(t, 0, res.Verification.Residual, 1e-3, coding.String())
		assert.True(t, res.Verification.WithinTolerance)
		assert.InDelta(t, -DesiredSCIPPAngle, res.Verification.Angle, 1e-3)
		require.NotNil(t, s.Tilt)
	}
}

func TestNormalizePreservesDistances(t *testing.T) {
	before := tiltedSubject()
	after := tiltedSubject()
	_, err := NewNormalizer(DefaultOptions(), nil).Normalize(after)
	require.NoError(t, err)

	names := before.Names()
	for i := range names {
		for j := i + 1; j < len(names); j++ {
			a0, _ := before.Get(names[i])
			b0, _ := before.Get(names[j])
			a1, _ := after.Get(names[i])
			b1, _ := after.Get(names[j])
			assert.InDelta(t,
				vecmath.Magnitude(vecmath.Between(a0.Coords, b0.Coords)),
				vecmath.Magnitude(vecmath.Between(a1.Coords, b1.Coords)),
				1e-9, "%s-%s", names[i], names[j])
		}
	}
}

func TestNormalizeAlignedPICS3D(t *testing.T) {
	s := alignedSubject(t)
	_, err := NewNormalizer(DefaultOptions(), nil).Normalize(s)
	require.NoError(t, err)

	// X posterior, Y superior, Z left
	scj, _ := s.Get("SCJ")
	assertVecInDelta(t, r3.Vec{X: 100, Y: 100 * math.Tan(-DesiredSCIPPAngle)}, scj.Coords, 1e-9)

	lis, _ := s.Get("L_IS")
	assertVecInDelta(t, r3.Vec{X: 80, Y: 20, Z: 50}, lis.Coords, 1e-9)

	ris, _ := s.Get("R_IS")
	assertVecInDelta(t, r3.Vec{X: 80, Y: 20, Z: -50}, ris.Coords, 1e-9)

	// gaps are recomputed in the new frame with Y as the axial index
	a11, _ := s.Get("A1L1")
	require.True(t, a11.HasGap())
	want := vecmath.PerpendicularComponent(lis.Coords, a11.Coords)
	assert.InDelta(t, vecmath.Magnitude(want), *a11.Gap, 1e-9)
	assert.InDelta(t, want.Y, *a11.GapAxial, 1e-9)
	assert.Equal(t, []float64{60}, roundAll(s.Widths))
}

func TestNormalizeAlignedLisse(t *testing.T) {
	s := alignedSubject(t)
	opts := DefaultOptions()
	opts.Coding = Lisse
	_, err := NewNormalizer(opts, nil).Normalize(s)
	require.NoError(t, err)

	// X left, Y posterior, Z superior
	lis, _ := s.Get("L_IS")
	assertVecInDelta(t, r3.Vec{X: 50, Y: 80, Z: 20}, lis.Coords, 1e-9)
}

func TestNormalizeMissingReference(t *testing.T) {
	s := pelvis.NewSubject("partial", pelvis.DefaultNaming())
	s.Add(models.NewLandmark("PS", 0, 0, 0))
	s.Add(models.NewLandmark("L_IS", 1, 0, 0))

	_, err := NewNormalizer(DefaultOptions(), nil).Normalize(s)
	var missing *pelvis.MissingLandmarkError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"R_IS", "SCJ"}, missing.Names)
}

func TestScaleBySCIPPLine(t *testing.T) {
	s := tiltedSubject()
	opts := DefaultOptions()
	opts.ScaleBySCIPPLine = true
	opts.SCIPPLength = 100

	res, err := NewNormalizer(opts, zaptest.NewLogger(t)).Normalize(s)
	require.NoError(t, err)

	scipp, err := s.SCIPPLine()
	require.NoError(t, err)
	assert.InDelta(t, 100, vecmath.Magnitude(scipp), 1e-9)
	// uniform scaling keeps the angle
	assert.True(t, res.Verification.WithinTolerance)
	assert.InDelta(t, 0, res.Verification.Residual, 1e-3)
}

func TestScaleByIISLine(t *testing.T) {
	s := alignedSubject(t)
	opts := DefaultOptions()
	opts.ScaleByIISLine = true
	opts.IISLength = 200

	_, err := NewNormalizer(opts, nil).Normalize(s)
	require.NoError(t, err)

	lis, _ := s.Get("L_IS")
	assertVecInDelta(t, r3.Vec{X: 80, Y: 20, Z: 100}, lis.Coords, 1e-9)
	scj, _ := s.Get("SCJ")
	assert.InDelta(t, 100, scj.Coords.X, 1e-9)
}

func TestTransformMatrixLayout(t *testing.T) {
	f := &Frame{
		LR:     r3.Vec{X: 1},
		AP:     r3.Vec{Y: 1},
		IS:     r3.Vec{Z: 1},
		Origin: r3.Vec{X: 1, Y: 2, Z: 3},
	}
	tr := NewTransform(f, PICS3D)
	m := tr.Matrix()

	// columns hold AP, IS, LR
	assert.Equal(t, 1.0, m.At(1, 0))
	assert.Equal(t, 1.0, m.At(2, 1))
	assert.Equal(t, 1.0, m.At(0, 2))
	assert.Equal(t, []float64{-2, -3, -1, 1}, []float64{m.At(3, 0), m.At(3, 1), m.At(3, 2), m.At(3, 3)})

	assert.Equal(t, r3.Vec{}, tr.Apply(f.Origin))
	assert.Equal(t, r3.Vec{X: 1, Y: 1, Z: 1}, tr.Apply(r3.Vec{X: 2, Y: 3, Z: 4}))
	assert.NotEmpty(t, tr.String())
}

func TestNormalizeReportsResidualWithoutFailing(t *testing.T) {
	s := pelvis.NewSubject("skewed", pelvis.DefaultNaming())
	s.Add(models.NewLandmark("PS", 0, 0, 0))
	s.Add(models.NewLandmark("L_IS", -50, -60, 30))
	s.Add(models.NewLandmark("R_IS", 50, -80, 0))
	s.Add(models.NewLandmark("SCJ", 20, -100, 50))

	opts := DefaultOptions()
	res, err := NewNormalizer(opts, zaptest.NewLogger(t)).Normalize(s)
	require.NoError(t, err)

	v := res.Verification
	assert.True(t, v.Defined)
	assert.False(t, v.WithinTolerance)
	assert.Greater(t, math.Abs(v.Residual), opts.VerifyTolerance)
	assert.Equal(t, "skewed", v.Subject)
}

func TestVerifyUndefinedAngle(t *testing.T) {
	s := pelvis.NewSubject("flat", pelvis.DefaultNaming())
	s.Add(models.NewLandmark("PS", 0, 0, 0))
	s.Add(models.NewLandmark("L_IS", 0, 0, 50))
	s.Add(models.NewLandmark("R_IS", 0, 0, -50))
	s.Add(models.NewLandmark("SCJ", 0, 100, 0))

	v, err := NewNormalizer(DefaultOptions(), nil).Verify(s)
	require.NoError(t, err)
	assert.False(t, v.Defined)
	assert.False(t, v.WithinTolerance)
}

func roundAll(vs []float64) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = math.Round(v*1e6) / 1e6
	}
	return out
}
