// Package report renders cohort statistics, single-subject readouts and
// exemplar comparisons as plain text, as an HTML page and as an Excel
// workbook.
package report

import (
	"fmt"
	"io"

	"pelvicpics/pkg/compare"
	"pelvicpics/pkg/pelvis"
	"pelvicpics/pkg/statistics"
	"pelvicpics/pkg/vecmath"
)

const banner = "================"

// errWriter remembers the first write error so report bodies can be
// written without checking every line
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

// WriteText writes the cohort report: row widths, tilt correction angles,
// then the statistics of every collated landmark in collation order
func WriteText(w io.Writer, group *statistics.SubjectGroupStatistics, collection *statistics.StatCollection) error {
	ew := &errWriter{w: w}

	ew.printf("%s\n", banner)
	ew.printf("Vaginal property statistics for %d subjects\n", group.Len())
	ew.printf("Vaginal width list:\n")
	for i, s := range group.WidthSummaries() {
		ew.printf("Row # %d mean width: %.4f std dev: %.4f (n=%d)\n", i+1, s.Mean, s.StdDev, s.N)
	}
	ew.printf("%s\n", banner)

	pitch, roll, yaw := group.Tilt()
	ew.printf("Pitch correction angle mean: %.4f deg, std dev: %.4f deg\n", pitch.Mean, pitch.StdDev)
	ew.printf("Roll correction angle mean: %.4f deg, std dev: %.4f deg\n", roll.Mean, roll.StdDev)
	ew.printf("Yaw correction angle mean: %.4f deg, std dev: %.4f deg\n", yaw.Mean, yaw.StdDev)
	ew.printf("%s\n", banner)

	for _, f := range collection.All() {
		ew.printf("%s\n", banner)
		ew.printf("Statistics for %s (n=%d)\n", f.Name, f.Len())
		ew.printf("Mean fiducial: %s\n", f.Mean)
		ew.printf("X std dev: %.4f\n", f.StdDev.X)
		ew.printf("Y std dev: %.4f\n", f.StdDev.Y)
		ew.printf("Z std dev: %.4f\n", f.StdDev.Z)
		ew.printf("Mean paravaginal gap (diagonal): %.4f\n", f.Gap.Mean)
		ew.printf("Paravaginal gap std dev (diagonal): %.4f\n", f.Gap.StdDev)
		ew.printf("Mean paravaginal gap (vertical): %.4f\n", f.GapAxial.Mean)
		ew.printf("Paravaginal gap std dev (vertical): %.4f\n", f.GapAxial.StdDev)
		ew.printf("Mean paravaginal gap (horizontal): %.4f\n", f.GapPlanar.Mean)
		ew.printf("Paravaginal gap std dev (horizontal): %.4f\n", f.GapPlanar.StdDev)
	}
	ew.printf("%s\n", banner)
	return ew.err
}

// WriteSubject writes the readout for one normalized subject
func WriteSubject(w io.Writer, s *pelvis.Subject) error {
	ew := &errWriter{w: w}

	ew.printf("%s\n", banner)
	ew.printf("Subject %s\n", s.ID)
	for _, name := range s.Naming().ReferenceNames() {
		if l, ok := s.Get(name); ok {
			ew.printf("  %s\n", l)
		} else {
			ew.printf("  %s: missing\n", name)
		}
	}

	if scipp, err := s.SCIPPLine(); err == nil {
		ew.printf("SCIPP line length: %.4f\n", vecmath.Magnitude(scipp))
	}
	if iis, err := s.InterIschialLine(); err == nil {
		ew.printf("Inter-ischial-spine distance: %.4f\n", vecmath.Magnitude(iis))
	}

	if s.Tilt != nil {
		pitch, roll, yaw := s.Tilt.Degrees()
		ew.printf("Tilt correction (deg): pitch %.4f, roll %.4f, yaw %.4f\n", pitch, roll, yaw)
	}

	ew.printf("Row widths:\n")
	for i, width := range s.Widths {
		ew.printf("  Row # %d: %.4f\n", i+1, width)
	}
	return ew.err
}

// WriteComparison writes where an exemplar falls in the cohort. Outliers are
// flagged with a trailing '*'.
func WriteComparison(w io.Writer, comparisons []compare.Comparison, widths []compare.WidthComparison) error {
	ew := &errWriter{w: w}

	ew.printf("%s\n", banner)
	ew.printf("Exemplar compared to cohort\n")
	for _, c := range comparisons {
		if !c.InCohort {
			ew.printf("%s: not present in cohort\n", c.Name)
			continue
		}
		ew.printf("%s (n=%d)\n", c.Name, c.X.N)
		for _, axis := range []struct {
			label string
			m     compare.Measure
		}{{"X", c.X}, {"Y", c.Y}, {"Z", c.Z}} {
			ew.printf("  %s %s\n", axis.label, formatMeasure(axis.m))
		}
		if c.HasGap {
			ew.printf("  gap %s\n", formatMeasure(c.Gap))
		}
	}

	if len(widths) > 0 {
		ew.printf("%s\n", banner)
		ew.printf("Row widths\n")
	}
	for _, wc := range widths {
		if !wc.InCohort {
			ew.printf("Row # %d: %.4f, not present in cohort\n", wc.Row, wc.Value)
			continue
		}
		ew.printf("Row # %d %s\n", wc.Row, formatMeasure(wc.Measure))
	}
	return ew.err
}

func formatMeasure(m compare.Measure) string {
	flag := ""
	if m.Outlier {
		flag = " *"
	}
	return fmt.Sprintf("%.4f (mean %.4f, sd %.4f, z %.2f, quartiles %.4f/%.4f/%.4f)%s",
		m.Value, m.Mean, m.StdDev, m.ZScore, m.Q1, m.Median, m.Q3, flag)
}

// WriteDifferences writes the row edge displacements between two subjects,
// followed by every landmark whose nearest counterpart carries another name
func WriteDifferences(w io.Writer, diffs []compare.Difference, matches []compare.Match) error {
	ew := &errWriter{w: w}

	ew.printf("%s\n", banner)
	ew.printf("Row edge differences\n")
	for _, d := range diffs {
		ew.printf("Row # %d %s edge: %s -> %s distance %.4f (%.4f, %.4f, %.4f)\n",
			d.Row, d.Edge, d.From.Name, d.To.Name, d.Distance, d.Vector.X, d.Vector.Y, d.Vector.Z)
	}

	inconsistent := 0
	for _, m := range matches {
		if m.Consistent {
			continue
		}
		if inconsistent == 0 {
			ew.printf("%s\n", banner)
			ew.printf("Landmarks nearest to a differently named point\n")
		}
		inconsistent++
		ew.printf("%s -> %s distance %.4f\n", m.Landmark.Name, m.Nearest.Name, m.Distance)
	}
	return ew.err
}
