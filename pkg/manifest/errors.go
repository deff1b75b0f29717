package manifest

import "fmt"

// Error reports a malformed or incomplete manifest. It is fatal to course
// activation: the caller surfaces it to the uploader and never retries.
type Error struct {
	CourseID string
	Reason   string
}

func (e *Error) Error() string {
	if e.CourseID == "" {
		return fmt.Sprintf("manifest: %s", e.Reason)
	}
	return fmt.Sprintf("manifest %s: %s", e.CourseID, e.Reason)
}

func errorf(courseID, format string, args ...any) error {
	return &Error{CourseID: courseID, Reason: fmt.Sprintf(format, args...)}
}
