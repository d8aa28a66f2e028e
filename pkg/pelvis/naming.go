package pelvis

import (
	"fmt"
	"regexp"
	"strconv"
)

// DefaultIndexPattern matches a row marker A and a column marker L, each
// followed by digits, anywhere in a landmark name
const DefaultIndexPattern = `[Aa](\d+)[Ll](\d+)`

// DefaultMaxIndex bounds the row and column numbers placed in a grid
const DefaultMaxIndex = 100

// Naming holds the landmark naming conventions for one study
type Naming struct {
	PubicSymphysis    string
	SCJoint           string
	LeftIschialSpine  string
	RightIschialSpine string
	// InterIschialSpine names the synthesized mid-point between the spines
	InterIschialSpine string

	// IndexPattern must contain exactly two capture groups: row then column
	IndexPattern *regexp.Regexp

	// MaxIndex is the largest row or column accepted; 0 means DefaultMaxIndex
	MaxIndex int

	LeftEdgePrefix  string
	RightEdgePrefix string
	CenterPrefix    string
}

// DefaultNaming returns the conventional landmark names
func DefaultNaming() Naming {
	return Naming{
		PubicSymphysis:    "PS",
		SCJoint:           "SCJ",
		LeftIschialSpine:  "L_IS",
		RightIschialSpine: "R_IS",
		InterIschialSpine: "IIS",
		IndexPattern:      regexp.MustCompile(DefaultIndexPattern),
		MaxIndex:          DefaultMaxIndex,
		LeftEdgePrefix:    "L_",
		RightEdgePrefix:   "R_",
		CenterPrefix:      "Mid_",
	}
}

// CompileIndexPattern compiles a row/column pattern and checks it has the
// two capture groups the indexer needs
func CompileIndexPattern(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid index pattern %q: %w", pattern, err)
	}
	if re.NumSubexp() != 2 {
		return nil, fmt.Errorf("index pattern %q must have 2 capture groups, has %d", pattern, re.NumSubexp())
	}
	return re, nil
}

// ReferenceNames returns the four required reference landmark names in a fixed order
func (n Naming) ReferenceNames() []string {
	return []string{n.PubicSymphysis, n.LeftIschialSpine, n.RightIschialSpine, n.SCJoint}
}

// IsReference reports whether name is one of the reference landmarks.
// The synthesized inter-ischial-spine point also counts as a reference.
func (n Naming) IsReference(name string) bool {
	switch name {
	case n.PubicSymphysis, n.SCJoint, n.LeftIschialSpine, n.RightIschialSpine, n.InterIschialSpine:
		return true
	}
	return false
}

// ParseRowCol extracts the row and column encoded in a landmark name.
// ok is false for reference landmarks and names that do not match the pattern.
func (n Naming) ParseRowCol(name string) (row, col int, ok bool) {
	if n.IsReference(name) {
		return 0, 0, false
	}
	m := n.IndexPattern.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, false
	}
	row, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	col, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}
	return row, col, true
}

// maxIndex returns the effective row and column limit
func (n Naming) maxIndex() int {
	if n.MaxIndex <= 0 {
		return DefaultMaxIndex
	}
	return n.MaxIndex
}

// StandardName is the cross-subject key for a row/column landmark
func StandardName(row, col int) string {
	return fmt.Sprintf("A%dL%d", row, col)
}

// LeftEdgeName is the cross-subject key for a row's left edge
func (n Naming) LeftEdgeName(row int) string {
	return n.LeftEdgePrefix + strconv.Itoa(row)
}

// RightEdgeName is the cross-subject key for a row's right edge
func (n Naming) RightEdgeName(row int) string {
	return n.RightEdgePrefix + strconv.Itoa(row)
}

// CenterName is the cross-subject key for a row's center
func (n Naming) CenterName(row int) string {
	return n.CenterPrefix + strconv.Itoa(row)
}
