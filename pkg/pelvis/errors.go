package pelvis

import (
	"fmt"
	"strings"
)

// MissingLandmarkError reports reference landmarks absent from a subject
type MissingLandmarkError struct {
	Subject string
	Names   []string
}

func (e *MissingLandmarkError) Error() string {
	return fmt.Sprintf("subject %q is missing reference landmark(s): %s", e.Subject, strings.Join(e.Names, ", "))
}
