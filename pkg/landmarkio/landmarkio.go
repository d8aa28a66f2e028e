// Package landmarkio loads subjects from 3D Slicer landmark files: markups
// FCSV tables, MRML scenes (both the 4.0-4.2 annotation form and the 4.3+
// markups storage form) and legacy single-point ACSV annotation files.
package landmarkio

import (
	"bufio"
	"encoding/csv"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"pelvicpics/internal/logging"
	"pelvicpics/internal/models"
	"pelvicpics/pkg/pelvis"
)

// Column layout of a Slicer 4.3+ markups FCSV row
const (
	fcsvXIndex    = 1
	fcsvYIndex    = 2
	fcsvZIndex    = 3
	fcsvNameIndex = 11
)

// MRML element and attribute names
const (
	annotationElement = "AnnotationFiducials"
	annotationName    = "name"
	annotationCoords  = "ctrlPtsCoord"

	markupsStorageElement = "MarkupsFiducialStorage"
	markupsFileName       = "fileName"
)

// ErrUnsupportedFormat is returned for files with an unknown extension
var ErrUnsupportedFormat = errors.New("unsupported landmark file format")

// Loader reads landmark files into subjects
type Loader struct {
	naming pelvis.Naming
	logger *zap.Logger
}

// NewLoader creates a loader that builds subjects with the given naming
func NewLoader(naming pelvis.Naming, logger *zap.Logger) *Loader {
	logger = logging.OrNop(logger)
	return &Loader{naming: naming, logger: logger}
}

// LoadFile reads one subject. The subject ID is the path. Directories are
// swept for ACSV files, each contributing one landmark.
func (l *Loader) LoadFile(path string) (*pelvis.Subject, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error opening landmark file: %w", err)
	}
	if info.IsDir() {
		return l.LoadDir(path)
	}

	s := pelvis.NewSubject(path, l.naming)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".fcsv", ".csv":
		err = l.readFCSVFile(path, s)
	case ".mrml":
		err = l.readMRML(path, s)
	case ".acsv":
		var lm *models.Landmark
		if lm, err = l.readACSVFile(path); err == nil {
			s.Add(lm)
		}
	default:
		err = fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, err
	}

	l.logger.Debug("loaded subject", zap.String("subject", path), zap.Int("landmarks", s.Len()))
	return s, nil
}

// Read parses FCSV content from r into a new subject
func (l *Loader) Read(r io.Reader, id string) (*pelvis.Subject, error) {
	s := pelvis.NewSubject(id, l.naming)
	if err := l.readFCSV(r, id, s); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadDir walks dir and loads every ACSV file into a single subject
func (l *Loader) LoadDir(dir string) (*pelvis.Subject, error) {
	s := pelvis.NewSubject(dir, l.naming)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".acsv") {
			l.logger.Debug("ignoring file", zap.String("file", path))
			return nil
		}
		lm, err := l.readACSVFile(path)
		if err != nil {
			return err
		}
		s.Add(lm)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error sweeping %s: %w", dir, err)
	}
	return s, nil
}

func (l *Loader) readFCSVFile(path string, s *pelvis.Subject) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening landmark file: %w", err)
	}
	defer f.Close()
	return l.readFCSV(f, path, s)
}

// readFCSV adds every landmark row of a markups table. Lines containing '#'
// and lines too short to carry a name are skipped.
func (l *Loader) readFCSV(r io.Reader, source string, s *pelvis.Subject) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.Contains(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}

		cr := csv.NewReader(strings.NewReader(line))
		cr.FieldsPerRecord = -1
		cr.LazyQuotes = true
		fields, err := cr.Read()
		if err != nil {
			return fmt.Errorf("%s:%d: %w", source, lineNo, err)
		}
		if len(fields) <= fcsvNameIndex {
			l.logger.Debug("skipping short line", zap.String("file", source), zap.Int("line", lineNo))
			continue
		}

		lm, err := newLandmark(fields[fcsvNameIndex], fields[fcsvXIndex], fields[fcsvYIndex], fields[fcsvZIndex])
		if err != nil {
			return fmt.Errorf("%s:%d: %w", source, lineNo, err)
		}
		s.Add(lm)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading %s: %w", source, err)
	}
	return nil
}

// readMRML reads annotation fiducials embedded in the scene and markups
// tables referenced by it. Relative table paths resolve against the scene.
func (l *Loader) readMRML(path string, s *pelvis.Subject) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening scene: %w", err)
	}
	defer f.Close()

	var tables []string
	dec := xml.NewDecoder(f)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("error parsing scene %s: %w", path, err)
		}
		el, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch el.Name.Local {
		case annotationElement:
			name := attr(el, annotationName)
			coords := strings.Fields(attr(el, annotationCoords))
			if len(coords) != 3 {
				return fmt.Errorf("scene %s: fiducial %q has malformed %s", path, name, annotationCoords)
			}
			lm, err := newLandmark(name, coords[0], coords[1], coords[2])
			if err != nil {
				return fmt.Errorf("scene %s: %w", path, err)
			}
			s.Add(lm)
		case markupsStorageElement:
			if table := attr(el, markupsFileName); table != "" {
				tables = append(tables, table)
			}
		}
	}

	for _, table := range tables {
		if !filepath.IsAbs(table) {
			table = filepath.Join(filepath.Dir(path), table)
		}
		if err := l.readFCSVFile(table, s); err != nil {
			return err
		}
	}
	return nil
}

// readACSVFile reads a legacy annotation file holding one named point
func (l *Loader) readACSVFile(path string) (*models.Landmark, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening annotation file: %w", err)
	}
	defer f.Close()

	var name string
	var coords []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.Index(line, "# Name = "); i >= 0 {
			name = strings.TrimSpace(line[i+len("# Name = "):])
		}
		if strings.Contains(line, "point|") {
			parts := strings.Split(line, "|")
			if len(parts) != 6 {
				return nil, fmt.Errorf("%s: invalid coordinate line", path)
			}
			coords = parts[1:4]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	if name == "" || coords == nil {
		return nil, fmt.Errorf("%s: missing name or coordinates", path)
	}
	lm, err := newLandmark(name, coords[0], coords[1], coords[2])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lm, nil
}

func newLandmark(name, xs, ys, zs string) (*models.Landmark, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("landmark has no name")
	}
	var v [3]float64
	for i, s := range []string{xs, ys, zs} {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("landmark %q: bad coordinate %q: %w", name, s, err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("landmark %q: coordinate %q is not finite", name, s)
		}
		v[i] = f
	}
	return models.NewLandmark(name, v[0], v[1], v[2]), nil
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
