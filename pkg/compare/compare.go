// Package compare places one exemplar subject within the range of a cohort:
// per landmark coordinate, paravaginal gap and row width it reports the
// cohort distribution, the exemplar's z-score and whether the exemplar would
// be drawn as an outlier on a box plot.
package compare

import (
	"github.com/montanaflynn/stats"

	"pelvicpics/pkg/statistics"
)

// Measure compares one exemplar value with the cohort's values for the same quantity
type Measure struct {
	Value float64

	// Cohort distribution
	N      int
	Mean   float64
	StdDev float64
	Q1     float64
	Median float64
	Q3     float64

	// ZScore is zero when the cohort has no spread
	ZScore float64

	// Outlier is set when Value lies beyond 1.5 IQR from the quartiles
	Outlier bool
}

// Comparison holds the measures for one standardized landmark name
type Comparison struct {
	Name string

	// InCohort is false when no cohort subject has this landmark
	InCohort bool

	X, Y, Z Measure

	// HasGap is false when the exemplar landmark has no gap value
	HasGap bool
	Gap    Measure
}

// WidthComparison holds the width measure for one row
type WidthComparison struct {
	Row      int
	InCohort bool
	Measure
}

// Compare measures every landmark of the exemplar, in exemplar order,
// against the cohort landmarks of the same name
func Compare(exemplar, cohort *statistics.StatCollection) []Comparison {
	var out []Comparison
	for _, ex := range exemplar.All() {
		c := Comparison{Name: ex.Name, HasGap: ex.Gap.N > 0}
		cs, ok := cohort.Get(ex.Name)
		c.InCohort = ok && cs.Len() > 0

		var xs, ys, zs, gaps []float64
		if c.InCohort {
			xs, ys, zs = cs.Coordinates(0), cs.Coordinates(1), cs.Coordinates(2)
			gaps = cs.GapValues()
		}
		c.X = measure(ex.Mean.Coords.X, xs)
		c.Y = measure(ex.Mean.Coords.Y, ys)
		c.Z = measure(ex.Mean.Coords.Z, zs)
		if c.HasGap {
			c.Gap = measure(ex.Gap.Mean, gaps)
		}
		out = append(out, c)
	}
	return out
}

// CompareWidths measures the exemplar's mean width of every row against the
// cohort's widths for that row
func CompareWidths(exemplar, cohort *statistics.SubjectGroupStatistics) []WidthComparison {
	var out []WidthComparison
	for i, w := range exemplar.MeanWidths() {
		row := i + 1
		values := cohort.RowWidths(row)
		out = append(out, WidthComparison{
			Row:      row,
			InCohort: len(values) > 0,
			Measure:  measure(w, values),
		})
	}
	return out
}

func measure(value float64, cohort []float64) Measure {
	m := Measure{Value: value}
	if len(cohort) == 0 {
		return m
	}

	s := statistics.Describe(cohort)
	m.N, m.Mean, m.StdDev, m.Median = s.N, s.Mean, s.StdDev, s.Median
	if m.StdDev > 0 {
		m.ZScore = (value - m.Mean) / m.StdDev
	}

	if len(cohort) == 1 {
		m.Q1, m.Q3 = cohort[0], cohort[0]
	} else {
		q, err := stats.Quartile(cohort)
		if err != nil {
			return m
		}
		m.Q1, m.Q3 = q.Q1, q.Q3
	}

	iqr := m.Q3 - m.Q1
	m.Outlier = value < m.Q1-1.5*iqr || value > m.Q3+1.5*iqr
	return m
}
