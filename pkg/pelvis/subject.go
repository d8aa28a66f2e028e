// Package pelvis models the landmarks captured for one imaging subject and
// the properties derived from them: reference vectors, the row/column grid,
// per-row widths and paravaginal gaps.
package pelvis

import (
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"pelvicpics/internal/logging"
	"pelvicpics/internal/models"
	"pelvicpics/pkg/gap"
	"pelvicpics/pkg/vecmath"
)

// Subject holds the landmarks for one scan, indexed by name
type Subject struct {
	// ID identifies the subject, typically the source file path
	ID string

	naming    Naming
	names     []string
	landmarks map[string]*models.Landmark

	// Reference landmarks, cached by ComputeProperties
	PubicSymphysis    *models.Landmark
	LeftIschialSpine  *models.Landmark
	RightIschialSpine *models.Landmark
	SCJoint           *models.Landmark

	// LeftPIS and RightPIS run from the pubic symphysis to each ischial spine
	LeftPIS  r3.Vec
	RightPIS r3.Vec

	// Grid arranges the row/column named landmarks
	Grid Grid

	// Widths holds the path-length width of rows 1..n at index 0..n-1
	Widths []float64

	// Tilt holds the pelvic tilt correction angles once a frame has been
	// derived for the subject
	Tilt *TiltAngles
}

// TiltAngles are the angles between each derived axis and its standard
// radiological counterpart, in radians
type TiltAngles struct {
	// Pitch is measured on the left-right axis
	Pitch float64
	// Roll is measured on the antero-posterior axis
	Roll float64
	// Yaw is measured on the inferior-superior axis
	Yaw float64
}

// Degrees returns pitch, roll and yaw converted to degrees
func (t TiltAngles) Degrees() (pitch, roll, yaw float64) {
	return vecmath.RadToDeg(t.Pitch), vecmath.RadToDeg(t.Roll), vecmath.RadToDeg(t.Yaw)
}

// NewSubject creates an empty subject
func NewSubject(id string, naming Naming) *Subject {
	return &Subject{
		ID:        id,
		naming:    naming,
		landmarks: make(map[string]*models.Landmark),
	}
}

// Naming returns the naming conventions the subject was created with
func (s *Subject) Naming() Naming {
	return s.naming
}

// Add stores a landmark, replacing any landmark with the same name
func (s *Subject) Add(l *models.Landmark) {
	if _, exists := s.landmarks[l.Name]; !exists {
		s.names = append(s.names, l.Name)
	}
	s.landmarks[l.Name] = l
}

// Get returns the landmark with the given name
func (s *Subject) Get(name string) (*models.Landmark, bool) {
	l, ok := s.landmarks[name]
	return l, ok
}

// Len returns the number of landmarks
func (s *Subject) Len() int {
	return len(s.names)
}

// Names returns landmark names in insertion order
func (s *Subject) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Landmarks returns the landmarks in insertion order
func (s *Subject) Landmarks() []*models.Landmark {
	out := make([]*models.Landmark, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, s.landmarks[name])
	}
	return out
}

// Validate checks that all four reference landmarks are present
func (s *Subject) Validate() error {
	var missing []string
	for _, name := range s.naming.ReferenceNames() {
		if _, ok := s.landmarks[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &MissingLandmarkError{Subject: s.ID, Names: missing}
	}
	return nil
}

// References returns the four reference landmarks: pubic symphysis, left
// ischial spine, right ischial spine and sacrococcygeal joint
func (s *Subject) References() (ps, lis, ris, scj *models.Landmark, err error) {
	if err := s.Validate(); err != nil {
		return nil, nil, nil, nil, err
	}
	n := s.naming
	return s.landmarks[n.PubicSymphysis], s.landmarks[n.LeftIschialSpine],
		s.landmarks[n.RightIschialSpine], s.landmarks[n.SCJoint], nil
}

// SCIPPLine returns the vector from the pubic symphysis to the sacrococcygeal joint
func (s *Subject) SCIPPLine() (r3.Vec, error) {
	ps, scj, err := s.pair(s.naming.PubicSymphysis, s.naming.SCJoint)
	if err != nil {
		return r3.Vec{}, err
	}
	return vecmath.Between(ps.Coords, scj.Coords), nil
}

// InterIschialLine returns the vector from the right to the left ischial spine
func (s *Subject) InterIschialLine() (r3.Vec, error) {
	ris, lis, err := s.pair(s.naming.RightIschialSpine, s.naming.LeftIschialSpine)
	if err != nil {
		return r3.Vec{}, err
	}
	return vecmath.Between(ris.Coords, lis.Coords), nil
}

// pair looks up two landmarks, naming every one that is absent
func (s *Subject) pair(from, to string) (*models.Landmark, *models.Landmark, error) {
	var missing []string
	a, ok := s.landmarks[from]
	if !ok {
		missing = append(missing, from)
	}
	b, ok := s.landmarks[to]
	if !ok {
		missing = append(missing, to)
	}
	if len(missing) > 0 {
		return nil, nil, &MissingLandmarkError{Subject: s.ID, Names: missing}
	}
	return a, b, nil
}

// Properties controls ComputeProperties
type Properties struct {
	// AxialIndex is the coordinate index of the inferior-superior axis
	AxialIndex int

	// CreateIIS adds a landmark midway between the ischial spines
	CreateIIS bool
}

// ComputeProperties caches the reference landmarks and rebuilds every derived
// value from the current coordinates: PIS vectors, grid, widths and gaps.
// It must be called again after coordinates change.
func (s *Subject) ComputeProperties(props Properties, logger *zap.Logger) error {
	logger = logging.OrNop(logger)
	ps, lis, ris, scj, err := s.References()
	if err != nil {
		return err
	}
	s.PubicSymphysis, s.LeftIschialSpine, s.RightIschialSpine, s.SCJoint = ps, lis, ris, scj

	s.LeftPIS = vecmath.Between(ps.Coords, lis.Coords)
	s.RightPIS = vecmath.Between(ps.Coords, ris.Coords)

	if props.CreateIIS && s.naming.InterIschialSpine != "" {
		mid := r3.Scale(0.5, r3.Add(lis.Coords, ris.Coords))
		s.Add(&models.Landmark{Name: s.naming.InterIschialSpine, Coords: mid})
	}

	calc := gap.NewCalculator(gap.Lines{
		Origin:     ps.Coords,
		LeftPIS:    s.LeftPIS,
		RightPIS:   s.RightPIS,
		AxialIndex: props.AxialIndex,
	}, logger.With(zap.String("subject", s.ID)))
	for _, l := range s.Landmarks() {
		calc.Annotate(l)
	}

	s.Grid = BuildGrid(s.Landmarks(), s.naming, logger.With(zap.String("subject", s.ID)))
	s.Widths = s.Grid.Widths()
	return nil
}

// Clone returns a deep copy of the subject's landmarks under a new ID.
// Derived values are not copied; call ComputeProperties on the copy.
func (s *Subject) Clone(id string) *Subject {
	c := NewSubject(id, s.naming)
	for _, l := range s.Landmarks() {
		c.Add(l.Clone())
	}
	return c
}

func (s *Subject) String() string {
	return fmt.Sprintf("subject %s (%d landmarks)", s.ID, len(s.names))
}
