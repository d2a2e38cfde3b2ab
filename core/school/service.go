package school

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
)

var (
	// errors
	ErrNotFound = errors.New("record not found")
)

type (
	// Repository owns the four relations. Listings return newest-created
	// first; an empty slice, not an error, when nothing matches.
	Repository interface {
		// courses
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourseByID(ctx context.Context, id int) (Course, error)
		QueryAllCourses(ctx context.Context) ([]Course, error)
		QueryCoursesByTeacher(ctx context.Context, teacherID int) ([]Course, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		// CourseHasDependents reports whether enrollments or activities still
		// reference the course.
		CourseHasDependents(ctx context.Context, id int) (bool, error)
		DeleteCourse(ctx context.Context, id int) error

		// students
		CreateStudent(ctx context.Context, std Student) (Student, error)
		GetStudentByID(ctx context.Context, id int) (Student, error)
		QueryAllStudents(ctx context.Context) ([]Student, error)
		// QueryStudentsByCourse joins through enrollments.
		QueryStudentsByCourse(ctx context.Context, courseID int) ([]Student, error)
		UpdateStudent(ctx context.Context, std Student) (Student, error)
		StudentHasDependents(ctx context.Context, id int) (bool, error)
		DeleteStudent(ctx context.Context, id int) error

		// enrollments
		// CreateEnrollment rejects a duplicate (student, course) pair with a
		// core.ConstraintError even under concurrent creation.
		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		GetEnrollmentByID(ctx context.Context, id int) (Enrollment, error)
		QueryEnrollmentsByStudent(ctx context.Context, studentID int) ([]Enrollment, error)
		QueryEnrollmentsByCourse(ctx context.Context, courseID int) ([]Enrollment, error)
		EnrollmentExists(ctx context.Context, studentID, courseID int) (bool, error)
		DeleteEnrollment(ctx context.Context, id int) error

		// activities
		CreateActivity(ctx context.Context, act Activity) (Activity, error)
		GetActivityByID(ctx context.Context, id int) (Activity, error)
		QueryAllActivities(ctx context.Context) ([]Activity, error)
		QueryActivitiesByStudent(ctx context.Context, studentID int) ([]Activity, error)
		QueryActivitiesByCourse(ctx context.Context, courseID int) ([]Activity, error)
		UpdateActivity(ctx context.Context, act Activity) (Activity, error)
		DeleteActivity(ctx context.Context, id int) error
	}

	// AccountGetter is the slice of the account service the school domain
	// needs to resolve teacher references.
	AccountGetter interface {
		GetByID(ctx context.Context, id int) (account.Account, error)
	}

	Service struct {
		repo     Repository
		accounts AccountGetter
	}
)

func NewService(repo Repository, accounts AccountGetter) *Service {
	return &Service{repo: repo, accounts: accounts}
}

// Courses

// CreateCourse enforces that the owning account exists and carries the
// teacher role before inserting.
func (svc *Service) CreateCourse(ctx context.Context, nc NewCourse) (Course, error) {
	if err := svc.checkTeacherRef(ctx, nc.TeacherID); err != nil {
		return Course{}, err
	}

	now := time.Now().UTC()
	return svc.repo.CreateCourse(ctx, Course{
		Title:       nc.Title,
		Description: nc.Description,
		TeacherID:   nc.TeacherID,
		Category:    nc.Category,
		Level:       nc.Level,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) GetCourseByID(ctx context.Context, id int) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *Service) QueryCourses(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryAllCourses(ctx)
}

func (svc *Service) CoursesByTeacher(ctx context.Context, teacherID int) ([]Course, error) {
	return svc.repo.QueryCoursesByTeacher(ctx, teacherID)
}

func (svc *Service) UpdateCourse(ctx context.Context, id int, uc UpdateCourse) (Course, error) {
	crs, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}

	if uc.Title != "" {
		crs.Title = uc.Title
	}
	if uc.Description != nil {
		crs.Description = core.CleanString(*uc.Description)
	}
	if uc.Category != nil {
		crs.Category = core.CleanString(*uc.Category)
	}
	if uc.Level != nil {
		crs.Level = core.CleanString(*uc.Level)
	}
	crs.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, crs)
}

// DeleteCourse refuses with core.ErrHasDependents while enrollments or
// activities still reference the course; nothing is ever orphaned.
func (svc *Service) DeleteCourse(ctx context.Context, id int) error {
	hasDeps, err := svc.repo.CourseHasDependents(ctx, id)
	if err != nil {
		return err
	}
	if hasDeps {
		return core.ErrHasDependents
	}
	return svc.repo.DeleteCourse(ctx, id)
}

// Students

func (svc *Service) CreateStudent(ctx context.Context, ns NewStudent) (Student, error) {
	if ns.AccountID != nil {
		if _, err := svc.accounts.GetByID(ctx, *ns.AccountID); err != nil {
			if errors.Cause(err) == account.ErrNotFound {
				return Student{}, core.NewConstraintError(core.RuleAccountRef, "linked account does not exist")
			}
			return Student{}, errors.Wrap(err, "resolving linked account")
		}
	}

	now := time.Now().UTC()
	return svc.repo.CreateStudent(ctx, Student{
		Name:      ns.Name,
		Email:     ns.Email,
		AccountID: ns.AccountID,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) GetStudentByID(ctx context.Context, id int) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *Service) QueryStudents(ctx context.Context) ([]Student, error) {
	return svc.repo.QueryAllStudents(ctx)
}

func (svc *Service) StudentsByCourse(ctx context.Context, courseID int) ([]Student, error) {
	return svc.repo.QueryStudentsByCourse(ctx, courseID)
}

func (svc *Service) UpdateStudent(ctx context.Context, id int, us UpdateStudent) (Student, error) {
	std, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}

	if us.Name != "" {
		std.Name = us.Name
	}
	if us.Email != "" {
		std.Email = us.Email
	}
	std.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudent(ctx, std)
}

func (svc *Service) DeleteStudent(ctx context.Context, id int) error {
	hasDeps, err := svc.repo.StudentHasDependents(ctx, id)
	if err != nil {
		return err
	}
	if hasDeps {
		return core.ErrHasDependents
	}
	return svc.repo.DeleteStudent(ctx, id)
}

// Enrollments

// Enroll registers a student in a course. Both references must resolve and the
// (student, course) pair must not already exist; the repository's uniqueness
// constraint is the arbiter when two identical enrollments race.
func (svc *Service) Enroll(ctx context.Context, ne NewEnrollment) (Enrollment, error) {
	if _, err := svc.repo.GetStudentByID(ctx, ne.StudentID); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Enrollment{}, core.NewConstraintError(core.RuleStudentRef, "student does not exist")
		}
		return Enrollment{}, errors.Wrap(err, "resolving student")
	}
	if _, err := svc.repo.GetCourseByID(ctx, ne.CourseID); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Enrollment{}, core.NewConstraintError(core.RuleCourseRef, "course does not exist")
		}
		return Enrollment{}, errors.Wrap(err, "resolving course")
	}

	exists, err := svc.repo.EnrollmentExists(ctx, ne.StudentID, ne.CourseID)
	if err != nil {
		return Enrollment{}, err
	}
	if exists {
		return Enrollment{}, core.NewConstraintError(core.RuleUniqueEnrollment, "student is already enrolled in this course")
	}

	return svc.repo.CreateEnrollment(ctx, Enrollment{
		StudentID: ne.StudentID,
		CourseID:  ne.CourseID,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *Service) GetEnrollmentByID(ctx context.Context, id int) (Enrollment, error) {
	return svc.repo.GetEnrollmentByID(ctx, id)
}

func (svc *Service) EnrollmentsByStudent(ctx context.Context, studentID int) ([]Enrollment, error) {
	return svc.repo.QueryEnrollmentsByStudent(ctx, studentID)
}

func (svc *Service) EnrollmentsByCourse(ctx context.Context, courseID int) ([]Enrollment, error) {
	return svc.repo.QueryEnrollmentsByCourse(ctx, courseID)
}

func (svc *Service) Unenroll(ctx context.Context, id int) error {
	return svc.repo.DeleteEnrollment(ctx, id)
}

// Activities

func (svc *Service) RecordActivity(ctx context.Context, na NewActivity) (Activity, error) {
	if _, err := svc.repo.GetStudentByID(ctx, na.StudentID); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Activity{}, core.NewConstraintError(core.RuleStudentRef, "student does not exist")
		}
		return Activity{}, errors.Wrap(err, "resolving student")
	}
	if _, err := svc.repo.GetCourseByID(ctx, na.CourseID); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Activity{}, core.NewConstraintError(core.RuleCourseRef, "course does not exist")
		}
		return Activity{}, errors.Wrap(err, "resolving course")
	}

	return svc.repo.CreateActivity(ctx, Activity{
		StudentID:   na.StudentID,
		CourseID:    na.CourseID,
		Type:        na.Type,
		Description: na.Description,
		CreatedAt:   time.Now().UTC(),
	})
}

func (svc *Service) GetActivityByID(ctx context.Context, id int) (Activity, error) {
	return svc.repo.GetActivityByID(ctx, id)
}

func (svc *Service) QueryActivities(ctx context.Context) ([]Activity, error) {
	return svc.repo.QueryAllActivities(ctx)
}

func (svc *Service) ActivitiesByStudent(ctx context.Context, studentID int) ([]Activity, error) {
	return svc.repo.QueryActivitiesByStudent(ctx, studentID)
}

func (svc *Service) ActivitiesByCourse(ctx context.Context, courseID int) ([]Activity, error) {
	return svc.repo.QueryActivitiesByCourse(ctx, courseID)
}

func (svc *Service) UpdateActivity(ctx context.Context, id int, ua UpdateActivity) (Activity, error) {
	act, err := svc.repo.GetActivityByID(ctx, id)
	if err != nil {
		return Activity{}, err
	}

	if ua.Type != "" {
		act.Type = ua.Type
	}
	if ua.Description != nil {
		act.Description = core.CleanString(*ua.Description)
	}
	return svc.repo.UpdateActivity(ctx, act)
}

func (svc *Service) DeleteActivity(ctx context.Context, id int) error {
	return svc.repo.DeleteActivity(ctx, id)
}

// Ownership facts (auth.OwnershipSource)

// CourseOwner returns a course's owning teacher account id.
func (svc *Service) CourseOwner(ctx context.Context, courseID int) (int, error) {
	crs, err := svc.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		return 0, err
	}
	return crs.TeacherID, nil
}

// StudentAccount returns the account id linked to a student profile, or 0.
func (svc *Service) StudentAccount(ctx context.Context, studentID int) (int, error) {
	std, err := svc.repo.GetStudentByID(ctx, studentID)
	if err != nil {
		return 0, err
	}
	if std.AccountID == nil {
		return 0, nil
	}
	return *std.AccountID, nil
}

func (svc *Service) checkTeacherRef(ctx context.Context, teacherID int) error {
	acct, err := svc.accounts.GetByID(ctx, teacherID)
	if err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return core.NewConstraintError(core.RuleAccountRef, "owning account does not exist")
		}
		return errors.Wrap(err, "resolving owning account")
	}
	if !acct.IsTeacher() {
		return core.NewConstraintError(core.RuleTeacherRole, "owning account is not a teacher")
	}
	return nil
}
