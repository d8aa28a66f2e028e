package statistics

import (
	"go.uber.org/zap"

	"pelvicpics/internal/logging"
	"pelvicpics/internal/models"
	"pelvicpics/pkg/pelvis"
)

// StatCollection maps standardized landmark names to their statistics,
// remembering the order in which names were first seen
type StatCollection struct {
	names  []string
	stats  map[string]*FiducialStatistics
	logger *zap.Logger
}

// NewStatCollection creates an empty collection
func NewStatCollection(logger *zap.Logger) *StatCollection {
	logger = logging.OrNop(logger)
	return &StatCollection{
		stats:  make(map[string]*FiducialStatistics),
		logger: logger,
	}
}

// Add contributes a landmark under a standardized name, creating the bucket
// on first use. Callers adding from several goroutines must serialize.
func (c *StatCollection) Add(name string, l *models.Landmark) {
	f, ok := c.stats[name]
	if !ok {
		f = NewFiducialStatistics(name, c.logger)
		c.stats[name] = f
		c.names = append(c.names, name)
	}
	f.Add(l)
}

// Get returns the statistics for a name
func (c *StatCollection) Get(name string) (*FiducialStatistics, bool) {
	f, ok := c.stats[name]
	return f, ok
}

// Names returns every name in first-seen order
func (c *StatCollection) Names() []string {
	return append([]string(nil), c.names...)
}

// All returns every bucket in first-seen order
func (c *StatCollection) All() []*FiducialStatistics {
	out := make([]*FiducialStatistics, 0, len(c.names))
	for _, name := range c.names {
		out = append(out, c.stats[name])
	}
	return out
}

// Len returns the number of names
func (c *StatCollection) Len() int {
	return len(c.names)
}

// MeanSubject builds a subject whose landmarks are the averaged landmarks of
// the collection, named by their standardized names. Call ComputeProperties
// on the result to derive gaps and widths for the averaged anatomy.
func (c *StatCollection) MeanSubject(id string, naming pelvis.Naming) *pelvis.Subject {
	s := pelvis.NewSubject(id, naming)
	for _, f := range c.All() {
		if f.Mean != nil {
			s.Add(f.Mean.Clone())
		}
	}
	return s
}

// Options selects the collation strategies beyond the reference landmarks
type Options struct {
	LeftEdges           bool
	RightEdges          bool
	Center              bool
	AllIndividualPoints bool
}

// Aggregate collates subjects into a new collection: reference landmarks
// always, then row edges and centers, then every row/column landmark, as
// enabled by opts
func Aggregate(subjects []*pelvis.Subject, opts Options, logger *zap.Logger) (*StatCollection, error) {
	c := NewStatCollection(logger)
	if err := c.CollateReferencePoints(subjects); err != nil {
		return nil, err
	}
	if opts.LeftEdges || opts.RightEdges || opts.Center {
		c.CollateEdges(subjects, opts)
	}
	if opts.AllIndividualPoints {
		c.CollateRowColumn(subjects)
	}
	return c, nil
}

// CollateReferencePoints adds each subject's reference landmarks, plus the
// inter-ischial-spine point when the subject has one. A subject missing a
// reference landmark aborts the collation.
func (c *StatCollection) CollateReferencePoints(subjects []*pelvis.Subject) error {
	for _, s := range subjects {
		if err := s.Validate(); err != nil {
			c.logger.Error("cannot collate reference points", zap.String("subject", s.ID), zap.Error(err))
			return err
		}
		naming := s.Naming()
		for _, name := range naming.ReferenceNames() {
			l, _ := s.Get(name)
			c.Add(name, l)
		}
		if naming.InterIschialSpine == "" {
			continue
		}
		if iis, ok := s.Get(naming.InterIschialSpine); ok {
			c.Add(naming.InterIschialSpine, iis)
		}
	}
	return nil
}

// CollateEdges adds each row's left edge, right edge and center landmark
// under their prefixed names. Every edge and center is located for every
// row; opts only decides which of them are added.
func (c *StatCollection) CollateEdges(subjects []*pelvis.Subject, opts Options) {
	for _, s := range subjects {
		naming := s.Naming()
		for n := 1; n <= s.Grid.NumRows(); n++ {
			row := s.Grid.Row(n)

			left, hasLeft := row.LeftEdge()
			if hasLeft {
				c.logger.Debug("left edge", zap.String("subject", s.ID), zap.Int("row", n), zap.String("landmark", row[left].Name))
				if opts.LeftEdges {
					c.Add(naming.LeftEdgeName(n), row[left])
				}
			}

			right, hasRight := row.RightEdge()
			if hasRight {
				c.logger.Debug("right edge", zap.String("subject", s.ID), zap.Int("row", n), zap.String("landmark", row[right].Name))
				if opts.RightEdges {
					c.Add(naming.RightEdgeName(n), row[right])
				}
			}

			if !hasLeft || !hasRight {
				continue
			}
			mid, _ := row.Center()
			if row[mid] == nil {
				c.logger.Debug("row center is an empty cell", zap.String("subject", s.ID), zap.Int("row", n), zap.Int("col", mid))
				continue
			}
			if opts.Center {
				c.Add(naming.CenterName(n), row[mid])
			}
		}
	}
}

// CollateRowColumn adds every row/column landmark under its standard name
func (c *StatCollection) CollateRowColumn(subjects []*pelvis.Subject) {
	for _, s := range subjects {
		for n := 1; n <= s.Grid.NumRows(); n++ {
			for col, l := range s.Grid.Row(n) {
				if l == nil {
					continue
				}
				c.Add(pelvis.StandardName(n, col), l)
			}
		}
	}
}
