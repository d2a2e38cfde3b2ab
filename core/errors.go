package core

import "github.com/pkg/errors"

var (
	// ErrHasDependents is returned by delete operations when dependent rows
	// still reference the target; the dependents must be removed first.
	ErrHasDependents = errors.New("record has dependent records")

	// ErrStoreUnavailable is returned when the backing store is unreachable or
	// timed out; the operation is safe to retry with backoff.
	ErrStoreUnavailable = errors.New("backing store unavailable")
)

// Constraint rules: which cross-record invariant a rejected write would break.
const (
	RuleUniqueEmail      = "unique_email"
	RuleUniqueEnrollment = "unique_enrollment"
	RuleTeacherRole      = "course_owner_must_be_teacher"
	RuleAccountRef       = "account_not_found"
	RuleStudentRef       = "student_not_found"
	RuleCourseRef        = "course_not_found"
)

// ConstraintError is a rejected write that would break a cross-record
// invariant. Rule identifies the invariant; nothing is inserted or updated.
type ConstraintError struct {
	Rule string
	Err  error
}

func NewConstraintError(rule, msg string) error {
	return &ConstraintError{Rule: rule, Err: errors.New(msg)}
}

func (e *ConstraintError) Error() string {
	if e.Err == nil {
		return e.Rule
	}
	return e.Err.Error()
}

// AsConstraintError unwraps err down to a *ConstraintError if there is one.
func AsConstraintError(err error) (*ConstraintError, bool) {
	cerr, ok := errors.Cause(err).(*ConstraintError)
	return cerr, ok
}

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
