package auth

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/account"
)

type (
	Action string
	Kind   string
)

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"

	KindAccount    Kind = "account"
	KindCourse     Kind = "course"
	KindStudent    Kind = "student"
	KindEnrollment Kind = "enrollment"
	KindActivity   Kind = "activity"
)

// Deny reasons
const (
	ReasonUnauthenticated = "unauthenticated"
	ReasonWrongRole       = "wrong_role"
	ReasonNotOwner        = "not_owner"
)

// Target describes the entity an action is requested on. ID is zero for
// collection-level actions (create, list). CourseID and StudentID carry the
// foreign keys of enrollment/activity targets so ownership can be resolved.
type Target struct {
	Kind      Kind
	ID        int
	AccountID int // owning account id, for account targets
	CourseID  int
	StudentID int
}

type Decision struct {
	Allowed bool
	Reason  string
}

func Allow() Decision             { return Decision{Allowed: true} }
func Deny(reason string) Decision { return Decision{Reason: reason} }

// OwnershipSource resolves ownership facts from the domain store.
type OwnershipSource interface {
	// CourseOwner returns the owning teacher account id of a course.
	CourseOwner(ctx context.Context, courseID int) (int, error)
	// StudentAccount returns the account id linked to a student profile,
	// or 0 when the profile has no login account.
	StudentAccount(ctx context.Context, studentID int) (int, error)
}

// Gate decides whether a claimed role may perform an action on a target. It is
// the single policy table consulted by every mutating operation; handlers must
// not re-implement per-route checks.
type Gate struct {
	src OwnershipSource
}

func NewGate(src OwnershipSource) *Gate {
	return &Gate{src: src}
}

// Authorize applies the policy table. A non-nil error means an ownership
// lookup failed; the decision is then zero-valued and must not be trusted.
func (g *Gate) Authorize(ctx context.Context, claims Claims, action Action, target Target) (Decision, error) {
	if claims.AccountID == 0 {
		return Deny(ReasonUnauthenticated), nil
	}

	switch target.Kind {
	case KindAccount:
		return g.authorizeAccount(claims, action, target), nil
	case KindCourse:
		return g.authorizeCourse(ctx, claims, action, target)
	case KindStudent:
		return g.authorizeStudent(ctx, claims, action, target)
	case KindEnrollment, KindActivity:
		return g.authorizeCourseScoped(ctx, claims, action, target)
	}
	return Deny(ReasonNotOwner), nil
}

// authorizeAccount: subjects act on their own account only; teachers may list.
func (g *Gate) authorizeAccount(claims Claims, action Action, target Target) Decision {
	if action == ActionRead && target.ID == 0 { // collection listing
		if claims.Role == account.RoleTeacher {
			return Allow()
		}
		return Deny(ReasonWrongRole)
	}
	if target.AccountID == claims.AccountID {
		return Allow()
	}
	return Deny(ReasonNotOwner)
}

// authorizeCourse: reads are open to any authenticated subject; create needs
// the teacher role; update/delete need the owning teacher.
func (g *Gate) authorizeCourse(ctx context.Context, claims Claims, action Action, target Target) (Decision, error) {
	if action == ActionRead {
		return Allow(), nil
	}
	if claims.Role != account.RoleTeacher {
		return Deny(ReasonWrongRole), nil
	}
	if action == ActionCreate {
		return Allow(), nil
	}

	owner, err := g.src.CourseOwner(ctx, target.ID)
	if err != nil {
		return Decision{}, errors.Wrap(err, "resolving course owner")
	}
	if owner != claims.AccountID {
		return Deny(ReasonNotOwner), nil
	}
	return Allow(), nil
}

// authorizeStudent: teachers manage profiles; a profile's linked account may
// read and update itself.
func (g *Gate) authorizeStudent(ctx context.Context, claims Claims, action Action, target Target) (Decision, error) {
	if claims.Role == account.RoleTeacher {
		return Allow(), nil
	}
	if action == ActionCreate || action == ActionDelete {
		return Deny(ReasonWrongRole), nil
	}
	if target.ID == 0 { // collection listing
		return Deny(ReasonWrongRole), nil
	}

	linked, err := g.src.StudentAccount(ctx, target.ID)
	if err != nil {
		return Decision{}, errors.Wrap(err, "resolving student account link")
	}
	if linked == 0 || linked != claims.AccountID {
		return Deny(ReasonNotOwner), nil
	}
	return Allow(), nil
}

// authorizeCourseScoped: enrollments and activities are managed by the owning
// teacher of their course; the student's linked account may read its own and,
// for enrollments, self-enroll.
func (g *Gate) authorizeCourseScoped(ctx context.Context, claims Claims, action Action, target Target) (Decision, error) {
	if claims.Role == account.RoleTeacher {
		if target.CourseID == 0 { // listings not scoped to one course
			return Allow(), nil
		}
		owner, err := g.src.CourseOwner(ctx, target.CourseID)
		if err != nil {
			return Decision{}, errors.Wrap(err, "resolving course owner")
		}
		if owner != claims.AccountID {
			return Deny(ReasonNotOwner), nil
		}
		return Allow(), nil
	}

	// students: reads of their own rows, plus self-enrollment
	selfService := action == ActionRead || (target.Kind == KindEnrollment && action == ActionCreate)
	if !selfService {
		return Deny(ReasonWrongRole), nil
	}
	if target.StudentID == 0 {
		return Deny(ReasonWrongRole), nil
	}
	linked, err := g.src.StudentAccount(ctx, target.StudentID)
	if err != nil {
		return Decision{}, errors.Wrap(err, "resolving student account link")
	}
	if linked == 0 || linked != claims.AccountID {
		return Deny(ReasonNotOwner), nil
	}
	return Allow(), nil
}
