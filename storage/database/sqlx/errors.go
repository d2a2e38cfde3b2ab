package sqlxrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"net"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

// constraint names (see fs/migrations) -> violated invariant
var constraintRules = map[string]string{
	"account_email_key":             core.RuleUniqueEmail,
	"enrollment_student_course_key": core.RuleUniqueEnrollment,
	"course_teacher_id_fkey":        core.RuleAccountRef,
	"student_account_id_fkey":       core.RuleAccountRef,
	"enrollment_student_id_fkey":    core.RuleStudentRef,
	"enrollment_course_id_fkey":     core.RuleCourseRef,
	"activity_student_id_fkey":      core.RuleStudentRef,
	"activity_course_id_fkey":       core.RuleCourseRef,
}

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// trapErr maps driver-level failures to the typed outcomes the core expects:
// missing rows to notFound, constraint violations to core.ConstraintError and
// connectivity/timeout failures to core.ErrStoreUnavailable. Anything else is
// wrapped with msg.
func trapErr(err error, notFound error, msg string) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return notFound
	}
	if err == driver.ErrBadConn || err == context.DeadlineExceeded || err == context.Canceled {
		return core.ErrStoreUnavailable
	}
	if _, ok := err.(net.Error); ok {
		return core.ErrStoreUnavailable
	}

	if pqErr, ok := err.(*pq.Error); ok {
		switch string(pqErr.Code) {
		case pqUniqueViolation:
			return constraintError(pqErr)
		case pqForeignKeyViolation:
			// Deleting a referenced row trips the referencing table's FK; pg
			// then reports the parent table, not the constraint's own. That is
			// a dependents refusal, not a dangling reference.
			if owner := strings.SplitN(pqErr.Constraint, "_", 2)[0]; owner != pqErr.Table {
				return core.ErrHasDependents
			}
			return constraintError(pqErr)
		}
	}
	return errors.Wrap(err, msg)
}

func constraintError(pqErr *pq.Error) error {
	if rule, ok := constraintRules[pqErr.Constraint]; ok {
		return &core.ConstraintError{Rule: rule, Err: pqErr}
	}
	return &core.ConstraintError{Rule: pqErr.Constraint, Err: pqErr}
}
