// Package statistics collates same-named landmarks across normalized subjects
// and summarizes them: mean position, per-axis population standard deviation
// and the three paravaginal gap measures, plus cohort-wide row widths and
// tilt angles.
package statistics

import (
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"pelvicpics/internal/logging"
	"pelvicpics/internal/models"
)

// Summary describes one distribution of values
type Summary struct {
	N      int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	Median float64
}

// FiducialStatistics accumulates the landmarks contributed under one
// standardized name, one per subject, and keeps their statistics current
type FiducialStatistics struct {
	Name string

	landmarks []*models.Landmark
	logger    *zap.Logger

	// Mean is the averaged landmark
	Mean *models.Landmark

	// StdDev holds the population standard deviation of X, Y and Z
	StdDev r3.Vec

	// Gap statistics over contributing landmarks that have gap values.
	// Empty distributions report a zero mean and standard deviation.
	Gap       Summary
	GapAxial  Summary
	GapPlanar Summary
}

// NewFiducialStatistics creates an empty bucket
func NewFiducialStatistics(name string, logger *zap.Logger) *FiducialStatistics {
	logger = logging.OrNop(logger)
	return &FiducialStatistics{Name: name, logger: logger}
}

// Add appends a landmark and recomputes every statistic
func (f *FiducialStatistics) Add(l *models.Landmark) {
	if l == nil {
		return
	}
	f.landmarks = append(f.landmarks, l)
	f.update()
}

// Len returns the number of contributing landmarks
func (f *FiducialStatistics) Len() int {
	return len(f.landmarks)
}

// Landmarks returns the contributing landmarks in the order they were added
func (f *FiducialStatistics) Landmarks() []*models.Landmark {
	out := make([]*models.Landmark, len(f.landmarks))
	copy(out, f.landmarks)
	return out
}

// Coordinates returns the contributing values of one coordinate axis
func (f *FiducialStatistics) Coordinates(axis int) []float64 {
	out := make([]float64, 0, len(f.landmarks))
	for _, l := range f.landmarks {
		out = append(out, l.Component(axis))
	}
	return out
}

// GapValues returns the contributing total gap values
func (f *FiducialStatistics) GapValues() []float64 {
	gaps, _, _ := f.gapValues()
	return gaps
}

func (f *FiducialStatistics) gapValues() (gaps, axial, planar []float64) {
	for _, l := range f.landmarks {
		if l.Gap != nil {
			gaps = append(gaps, *l.Gap)
		}
		if l.GapAxial != nil {
			axial = append(axial, *l.GapAxial)
		}
		if l.GapPlanar != nil {
			planar = append(planar, *l.GapPlanar)
		}
	}
	return gaps, axial, planar
}

func (f *FiducialStatistics) update() {
	var mean r3.Vec
	mean.X, f.StdDev.X = popMeanStdDev(f.Coordinates(0))
	mean.Y, f.StdDev.Y = popMeanStdDev(f.Coordinates(1))
	mean.Z, f.StdDev.Z = popMeanStdDev(f.Coordinates(2))
	f.Mean = &models.Landmark{Name: f.Name, Coords: mean}

	gaps, axial, planar := f.gapValues()
	if len(gaps) == 0 {
		f.logger.Debug("no gap values", zap.String("landmark", f.Name))
	}
	f.Gap = Describe(gaps)
	f.GapAxial = Describe(axial)
	f.GapPlanar = Describe(planar)
}

// popMeanStdDev returns the mean and population standard deviation, or
// zeros for an empty slice
func popMeanStdDev(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	return stat.PopMeanStdDev(xs, nil)
}
