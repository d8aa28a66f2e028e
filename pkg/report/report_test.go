package report

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"pelvicpics/internal/models"
	"pelvicpics/pkg/compare"
	"pelvicpics/pkg/pelvis"
	"pelvicpics/pkg/statistics"
)

func cohort(t *testing.T) (*statistics.SubjectGroupStatistics, *statistics.StatCollection) {
	t.Helper()

	group := statistics.NewSubjectGroupStatistics()
	collection := statistics.NewStatCollection(nil)
	for i, width := range []float64{30, 40} {
		s := pelvis.NewSubject("subject", pelvis.DefaultNaming())
		s.Widths = []float64{width, 10}
		s.Tilt = &pelvis.TiltAngles{}
		group.AddSubject(s)

		l := models.NewLandmark("PS", float64(i*2), 0, 0)
		l.SetGap(4, 2, 2)
		collection.Add("PS", l)
	}
	return group, collection
}

func TestWriteText(t *testing.T) {
	group, collection := cohort(t)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, group, collection))
	out := buf.String()

	assert.Contains(t, out, "statistics for 2 subjects")
	assert.Contains(t, out, "Row # 1 mean width: 35.0000 std dev: 5.0000 (n=2)")
	assert.Contains(t, out, "Row # 2 mean width: 10.0000 std dev: 0.0000 (n=2)")
	assert.Contains(t, out, "Pitch correction angle mean: 0.0000 deg")
	assert.Contains(t, out, "Statistics for PS (n=2)")
	assert.Contains(t, out, "Mean fiducial: PS: (1.000, 0.000, 0.000)")
	assert.Contains(t, out, "X std dev: 1.0000")
	assert.Contains(t, out, "Mean paravaginal gap (diagonal): 4.0000")
}

func TestWriteSubject(t *testing.T) {
	s := pelvis.NewSubject("s1", pelvis.DefaultNaming())
	s.Add(models.NewLandmark("PS", 0, 0, 0))
	s.Add(models.NewLandmark("L_IS", 50, 0, 0))
	s.Add(models.NewLandmark("R_IS", -50, 0, 0))
	s.Widths = []float64{12.5}

	var buf bytes.Buffer
	require.NoError(t, WriteSubject(&buf, s))
	out := buf.String()

	assert.Contains(t, out, "Subject s1")
	assert.Contains(t, out, "SCJ: missing")
	assert.Contains(t, out, "Inter-ischial-spine distance: 100.0000")
	assert.NotContains(t, out, "SCIPP line length")
	assert.Contains(t, out, "Row # 1: 12.5000")
}

func TestWriteComparison(t *testing.T) {
	comparisons := []compare.Comparison{
		{Name: "PS", InCohort: true, X: compare.Measure{Value: 9, N: 4, Outlier: true}},
		{Name: "A9L9"},
	}
	widths := []compare.WidthComparison{{Row: 1, Measure: compare.Measure{Value: 3}}}

	var buf bytes.Buffer
	require.NoError(t, WriteComparison(&buf, comparisons, widths))
	out := buf.String()

	assert.Contains(t, out, "PS (n=4)")
	assert.Contains(t, out, "  X 9.0000")
	assert.True(t, strings.Contains(out, " *\n"), "outlier should be flagged")
	assert.Contains(t, out, "A9L9: not present in cohort")
	assert.Contains(t, out, "Row # 1: 3.0000, not present in cohort")
}

func TestWriteHTML(t *testing.T) {
	group, collection := cohort(t)

	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, group, collection))
	out := buf.String()

	assert.Contains(t, out, "<html")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<td>PS</td>")
}

func TestExportWorkbook(t *testing.T) {
	group, collection := cohort(t)
	comparisons := []compare.Comparison{
		{Name: "PS", InCohort: true, HasGap: true, X: compare.Measure{Value: 1, N: 2}},
	}

	path := filepath.Join(t.TempDir(), "cohort.xlsx")
	require.NoError(t, ExportWorkbook(path, group, collection, comparisons))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetLandmarks, SheetRowWidths, SheetTilt, SheetComparison}, f.GetSheetList())

	rows, err := f.GetRows(SheetLandmarks)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Name", rows[0][0])
	assert.Equal(t, []string{"PS", "2", "1"}, rows[1][:3])

	rows, err = f.GetRows(SheetRowWidths)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"1", "2", "35", "5"}, rows[1][:4])

	rows, err = f.GetRows(SheetTilt)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Yaw", rows[3][0])

	rows, err = f.GetRows(SheetComparison)
	require.NoError(t, err)
	// X, Y, Z and gap rows under the header
	assert.Len(t, rows, 5)
}

func TestExportWorkbookWithoutComparisons(t *testing.T) {
	group, collection := cohort(t)
	path := filepath.Join(t.TempDir(), "cohort.xlsx")
	require.NoError(t, ExportWorkbook(path, group, collection, nil))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.NotContains(t, f.GetSheetList(), SheetComparison)
}

func TestWriteDifferences(t *testing.T) {
	from := models.NewLandmark("A1L1", 0, 0, 0)
	to := models.NewLandmark("A1L2", 3, 4, 0)
	diffs := []compare.Difference{{Row: 1, Edge: compare.LeftEdge, From: from, To: to, Distance: 5}}
	matches := []compare.Match{
		{Landmark: from, Nearest: from, Consistent: true},
		{Landmark: from, Nearest: to, Distance: 5},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteDifferences(&buf, diffs, matches))
	out := buf.String()

	assert.Contains(t, out, "Row # 1 left edge: A1L1 -> A1L2 distance 5.0000")
	assert.Contains(t, out, "A1L1 -> A1L2 distance 5.0000\n")
	assert.Equal(t, 1, strings.Count(out, "differently named"))
}
