package statistics

import (
	"github.com/montanaflynn/stats"

	"pelvicpics/pkg/pelvis"
)

// SubjectGroupStatistics gathers cohort-wide row widths and tilt angles.
// Values are only collected on AddSubject; summaries are computed on demand.
type SubjectGroupStatistics struct {
	subjects []string

	// widths[k] holds row k+1's width from every subject that has that row
	widths [][]float64

	// tilt angles in degrees
	pitch []float64
	roll  []float64
	yaw   []float64
}

// NewSubjectGroupStatistics creates an empty group
func NewSubjectGroupStatistics() *SubjectGroupStatistics {
	return &SubjectGroupStatistics{}
}

// AddSubject appends the subject's row widths and tilt angles. The width
// lists grow to the longest subject seen.
func (g *SubjectGroupStatistics) AddSubject(s *pelvis.Subject) {
	g.subjects = append(g.subjects, s.ID)

	for i, w := range s.Widths {
		for len(g.widths) <= i {
			g.widths = append(g.widths, nil)
		}
		g.widths[i] = append(g.widths[i], w)
	}

	if s.Tilt != nil {
		pitch, roll, yaw := s.Tilt.Degrees()
		g.pitch = append(g.pitch, pitch)
		g.roll = append(g.roll, roll)
		g.yaw = append(g.yaw, yaw)
	}
}

// AddSubjects adds every subject in order
func (g *SubjectGroupStatistics) AddSubjects(subjects []*pelvis.Subject) {
	for _, s := range subjects {
		g.AddSubject(s)
	}
}

// Len returns the number of subjects added
func (g *SubjectGroupStatistics) Len() int {
	return len(g.subjects)
}

// Subjects returns the IDs of the subjects added, in order
func (g *SubjectGroupStatistics) Subjects() []string {
	return append([]string(nil), g.subjects...)
}

// NumRows returns the highest row number seen in any subject
func (g *SubjectGroupStatistics) NumRows() int {
	return len(g.widths)
}

// RowWidths returns the widths collected for a 1-based row number
func (g *SubjectGroupStatistics) RowWidths(row int) []float64 {
	if row < 1 || row > len(g.widths) {
		return nil
	}
	return append([]float64(nil), g.widths[row-1]...)
}

// WidthSummaries summarizes every row, row 1 first
func (g *SubjectGroupStatistics) WidthSummaries() []Summary {
	out := make([]Summary, len(g.widths))
	for i, ws := range g.widths {
		out[i] = Describe(ws)
	}
	return out
}

// MeanWidths returns the mean width of every row, row 1 first
func (g *SubjectGroupStatistics) MeanWidths() []float64 {
	out := make([]float64, len(g.widths))
	for i, s := range g.WidthSummaries() {
		out[i] = s.Mean
	}
	return out
}

// Tilt summarizes pitch, roll and yaw in degrees
func (g *SubjectGroupStatistics) Tilt() (pitch, roll, yaw Summary) {
	return Describe(g.pitch), Describe(g.roll), Describe(g.yaw)
}

// TiltDegrees returns the collected pitch, roll and yaw values in degrees
func (g *SubjectGroupStatistics) TiltDegrees() (pitch, roll, yaw []float64) {
	return append([]float64(nil), g.pitch...),
		append([]float64(nil), g.roll...),
		append([]float64(nil), g.yaw...)
}

// Describe summarizes xs with a population standard deviation. An empty
// slice yields the zero Summary.
func Describe(xs []float64) Summary {
	if len(xs) == 0 {
		return Summary{}
	}
	data := stats.Float64Data(xs)
	mean, std := popMeanStdDev(xs)
	minimum, _ := data.Min()
	maximum, _ := data.Max()
	median, _ := data.Median()
	return Summary{
		N:      len(xs),
		Mean:   mean,
		StdDev: std,
		Min:    minimum,
		Max:    maximum,
		Median: median,
	}
}
