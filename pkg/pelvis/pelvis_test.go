package pelvis

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gonum.org/v1/gonum/spatial/r3"

	"pelvicpics/internal/models"
)

func newTestSubject() *Subject {
	s := NewSubject("subject-1", DefaultNaming())
	s.Add(models.NewLandmark("PS", 0, 0, 0))
	s.Add(models.NewLandmark("L_IS", 50, 100, 0))
	s.Add(models.NewLandmark("R_IS", -50, 100, 0))
	s.Add(models.NewLandmark("SCJ", 0, 120, 80))
	return s
}

func TestParseRowCol(t *testing.T) {
	n := DefaultNaming()
	cases := []struct {
		name     string
		row, col int
		ok       bool
	}{
		{"A2L5", 2, 5, true},
		{"a10l3", 10, 3, true},
		{"A1L1 (Os)", 1, 1, true},
		{"(Os) A3L12", 3, 12, true},
		{"PS", 0, 0, false},
		{"L_IS", 0, 0, false},
		{"A2", 0, 0, false},
		{"fornix", 0, 0, false},
	}
	for _, c := range cases {
		row, col, ok := n.ParseRowCol(c.name)
		assert.Equal(t, c.ok, ok, c.name)
		assert.Equal(t, c.row, row, c.name)
		assert.Equal(t, c.col, col, c.name)
	}
}

func TestCompileIndexPattern(t *testing.T) {
	_, err := CompileIndexPattern(`[Aa](\d+)[Ll](\d+)`)
	require.NoError(t, err)

	_, err = CompileIndexPattern(`A(\d+`)
	assert.Error(t, err)

	_, err = CompileIndexPattern(`A(\d+)`)
	assert.Error(t, err)
}

func TestBuildGridPlacesByName(t *testing.T) {
	names := []string{"A2L5", "A1L1", "A1L3", "A3L2", "PS", "junk"}
	var ls []*models.Landmark
	for i, name := range names {
		ls = append(ls, models.NewLandmark(name, float64(i), 0, 0))
	}

	g := BuildGrid(ls, DefaultNaming(), zaptest.NewLogger(t))
	require.Equal(t, 3, g.NumRows())

	for _, l := range ls {
		row, col, ok := DefaultNaming().ParseRowCol(l.Name)
		if !ok {
			continue
		}
		assert.Same(t, l, g.At(row, col), l.Name)
	}

	// unfilled cells are present and empty
	require.Len(t, g.Row(2), 6)
	assert.Nil(t, g.At(2, 1))
	assert.Nil(t, g.At(1, 2))
	assert.Nil(t, g.Row(0))
	assert.Nil(t, g.Row(4))
}

func TestBuildGridRejectsIndicesBeyondLimit(t *testing.T) {
	ls := []*models.Landmark{
		models.NewLandmark("A100000000L1", 0, 0, 0),
		models.NewLandmark("A1L100000000", 0, 0, 0),
		models.NewLandmark("A2L3", 0, 0, 0),
	}
	g := BuildGrid(ls, DefaultNaming(), zaptest.NewLogger(t))
	assert.Equal(t, 2, g.NumRows())
	assert.Len(t, g.Row(1), 1)

	n := DefaultNaming()
	n.MaxIndex = 2
	g = BuildGrid(ls, n, nil)
	assert.Equal(t, 0, g.NumRows())
}

func TestBuildGridRejectsZeroIndices(t *testing.T) {
	g := BuildGrid([]*models.Landmark{models.NewLandmark("A0L1", 0, 0, 0)}, DefaultNaming(), nil)
	assert.Equal(t, 0, g.NumRows())
}

func TestEdgesAndCenter(t *testing.T) {
	l := models.NewLandmark("x", 0, 0, 0)
	// cells 1, 2 and 4 populated in a row of length 5
	row := Row{nil, l, l, nil, l}

	left, ok := row.LeftEdge()
	require.True(t, ok)
	assert.Equal(t, 1, left)

	right, ok := row.RightEdge()
	require.True(t, ok)
	assert.Equal(t, 4, right)

	offset, ok := row.RightEdgeOffset()
	require.True(t, ok)
	assert.Equal(t, -1, offset)

	center, ok := row.Center()
	require.True(t, ok)
	// round((1 + 5 + -1) / 2) = round(2.5)
	assert.Equal(t, 3, center)
}

func TestCenterIndexWorkedExample(t *testing.T) {
	assert.Equal(t, 2, CenterIndex(0, -1, 5))
}

func TestEmptyRowHasNoEdges(t *testing.T) {
	row := Row{nil, nil, nil}
	_, ok := row.LeftEdge()
	assert.False(t, ok)
	_, ok = row.RightEdge()
	assert.False(t, ok)
	_, ok = row.Center()
	assert.False(t, ok)
}

func TestRowWidthSkipsGaps(t *testing.T) {
	row := Row{
		nil,
		models.NewLandmark("A1L1", 0, 0, 0),
		models.NewLandmark("A1L2", 3, 4, 0),
		nil,
		models.NewLandmark("A1L4", 100, 0, 0),
		models.NewLandmark("A1L5", 100, 0, 2),
	}
	// 5 for L1-L2, L2-L4 straddles a gap and is skipped, 2 for L4-L5
	assert.InDelta(t, 7.0, row.Width(), 1e-12)
}

func TestWidthsAlignByRow(t *testing.T) {
	ls := []*models.Landmark{
		models.NewLandmark("A1L1", 0, 0, 0),
		models.NewLandmark("A1L2", 10, 0, 0),
		models.NewLandmark("A3L1", 0, 0, 0),
		models.NewLandmark("A3L2", 0, 4, 0),
	}
	g := BuildGrid(ls, DefaultNaming(), nil)
	if diff := cmp.Diff([]float64{10, 0, 4}, g.Widths()); diff != "" {
		t.Errorf("widths mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateReportsMissing(t *testing.T) {
	s := NewSubject("subject-2", DefaultNaming())
	s.Add(models.NewLandmark("PS", 0, 0, 0))
	s.Add(models.NewLandmark("SCJ", 0, 1, 1))

	err := s.Validate()
	var missing *MissingLandmarkError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "subject-2", missing.Subject)
	assert.Equal(t, []string{"L_IS", "R_IS"}, missing.Names)
	assert.Contains(t, err.Error(), "L_IS")

	assert.Error(t, s.ComputeProperties(Properties{AxialIndex: 2}, nil))
}

func TestReferenceLinesNeedOnlyTheirEndpoints(t *testing.T) {
	s := NewSubject("subject-3", DefaultNaming())
	s.Add(models.NewLandmark("PS", 0, 0, 0))
	s.Add(models.NewLandmark("L_IS", 50, 0, 0))
	s.Add(models.NewLandmark("R_IS", -50, 0, 0))

	iis, err := s.InterIschialLine()
	require.NoError(t, err)
	assert.Equal(t, r3.Vec{X: 100}, iis)

	_, err = s.SCIPPLine()
	var missing *MissingLandmarkError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"SCJ"}, missing.Names)

	spines := NewSubject("subject-4", DefaultNaming())
	spines.Add(models.NewLandmark("PS", 0, 0, 0))
	spines.Add(models.NewLandmark("SCJ", 0, 1, 1))
	_, err = spines.InterIschialLine()
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"R_IS", "L_IS"}, missing.Names)
}

func TestComputeProperties(t *testing.T) {
	s := newTestSubject()
	s.Add(models.NewLandmark("A1L1", -30, 60, 10))
	s.Add(models.NewLandmark("A1L2", 30, 60, 10))

	require.NoError(t, s.ComputeProperties(Properties{AxialIndex: 2}, zaptest.NewLogger(t)))

	assert.Equal(t, "PS", s.PubicSymphysis.Name)
	assert.Equal(t, 50.0, s.LeftPIS.X)
	assert.Equal(t, -50.0, s.RightPIS.X)
	assert.Equal(t, []float64{60}, s.Widths)

	for _, l := range s.Landmarks() {
		assert.True(t, l.HasGap(), l.Name)
	}
	a11, _ := s.Get("A1L1")
	assert.InDelta(t, 10, *a11.Gap, 1e-9)
	assert.InDelta(t, 10, *a11.GapAxial, 1e-9)
	assert.InDelta(t, 0, *a11.GapPlanar, 1e-9)

	ps, _ := s.Get("PS")
	assert.Equal(t, 0.0, *ps.Gap)
}

func TestComputePropertiesCreatesIIS(t *testing.T) {
	s := newTestSubject()
	require.NoError(t, s.ComputeProperties(Properties{AxialIndex: 2, CreateIIS: true}, nil))

	iis, ok := s.Get("IIS")
	require.True(t, ok)
	assert.Equal(t, 0.0, iis.Coords.X)
	assert.Equal(t, 100.0, iis.Coords.Y)
	assert.Equal(t, 0, s.Grid.NumRows())
}

func TestInsertionOrderAndReplace(t *testing.T) {
	s := newTestSubject()
	s.Add(models.NewLandmark("PS", 1, 1, 1))
	assert.Equal(t, []string{"PS", "L_IS", "R_IS", "SCJ"}, s.Names())
	ps, _ := s.Get("PS")
	assert.Equal(t, 1.0, ps.Coords.X)
	assert.Equal(t, 4, s.Len())
}

func TestCloneIsDeep(t *testing.T) {
	s := newTestSubject()
	c := s.Clone("copy")
	cps, _ := c.Get("PS")
	cps.Coords.X = 99

	ps, _ := s.Get("PS")
	assert.Equal(t, 0.0, ps.Coords.X)
	assert.Equal(t, "copy", c.ID)
}

func TestTiltDegrees(t *testing.T) {
	p, r, y := TiltAngles{Pitch: 0.593411946}.Degrees()
	assert.InDelta(t, 34, p, 1e-6)
	assert.Equal(t, 0.0, r)
	assert.Equal(t, 0.0, y)
}
