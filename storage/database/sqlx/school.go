package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

type schoolRepository struct {
	db      *sqlx.DB
	timeout time.Duration
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sqlx.DB, conf *core.Config) *schoolRepository {
	return &schoolRepository{db: db, timeout: conf.Database.Timeout}
}

func (repo schoolRepository) context(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, repo.timeout)
}

// Courses

func (repo schoolRepository) CreateCourse(ctx context.Context, crs school.Course) (school.Course, error) {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	query := `
		INSERT INTO course (title, description, teacher_id, category, level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	err := repo.db.QueryRowContext(
		ctx, query,
		crs.Title, crs.Description, crs.TeacherID, crs.Category, crs.Level, crs.CreatedAt, crs.UpdatedAt,
	).Scan(&crs.ID)
	if err != nil {
		return school.Course{}, trapErr(err, school.ErrNotFound, "inserting course")
	}
	return crs, nil
}

func (repo schoolRepository) GetCourseByID(ctx context.Context, id int) (school.Course, error) {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	var crs school.Course
	if err := repo.db.GetContext(ctx, &crs, `SELECT * FROM course WHERE id = $1`, id); err != nil {
		return school.Course{}, trapErr(err, school.ErrNotFound, "finding course by ID")
	}
	return crs, nil
}

func (repo schoolRepository) QueryAllCourses(ctx context.Context) ([]school.Course, error) {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	courses := make([]school.Course, 0)
	if err := repo.db.SelectContext(ctx, &courses, `SELECT * FROM course ORDER BY created_at DESC, id DESC`); err != nil {
		return nil, trapErr(err, school.ErrNotFound, "querying courses")
	}
	return courses, nil
}

func (repo schoolRepository) QueryCoursesByTeacher(ctx context.Context, teacherID int) ([]school.Course, error) {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	courses := make([]school.Course, 0)
	query := `SELECT * FROM course WHERE teacher_id = $1 ORDER BY created_at DESC, id DESC`
	if err := repo.db.SelectContext(ctx, &courses, query, teacherID); err != nil {
		return nil, trapErr(err, school.ErrNotFound, "querying courses by teacher")
	}
	return courses, nil
}

func (repo schoolRepository) UpdateCourse(ctx context.Context, crs school.Course) (school.Course, error) {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	query := `
		UPDATE course
		SET title = $1, description = $2, category = $3, level = $4, updated_at = $5
		WHERE id = $6`
	res, err := repo.db.ExecContext(ctx, query, crs.Title, crs.Description, crs.Category, crs.Level, crs.UpdatedAt, crs.ID)
	if err != nil {
		return school.Course{}, trapErr(err, school.ErrNotFound, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return school.Course{}, school.ErrNotFound
	}
	return crs, nil
}

func (repo schoolRepository) CourseHasDependents(ctx context.Context, id int) (bool, error) {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	query := `
		SELECT EXISTS (
			SELECT 1 FROM enrollment WHERE course_id = $1
			UNION
			SELECT 1 FROM activity WHERE course_id = $1
		)`
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, trapErr(err, school.ErrNotFound, "checking course dependents")
	}
	return exists, nil
}

func (repo schoolRepository) DeleteCourse(ctx context.Context, id int) error {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	if _, err := repo.db.ExecContext(ctx, `DELETE FROM course WHERE id = $1`, id); err != nil {
		return trapErr(err, school.ErrNotFound, "deleting course")
	}
	return nil
}

// Students

func (repo schoolRepository) CreateStudent(ctx context.Context, std school.Student) (school.Student, error) {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	query := `
		INSERT INTO student (name, email, account_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err := repo.db.QueryRowContext(
		ctx, query,
		std.Name, std.Email, std.AccountID, std.CreatedAt, std.UpdatedAt,
	).Scan(&std.ID)
	if err != nil {
		return school.Student{}, trapErr(err, school.ErrNotFound, "inserting student")
	}
	return std, nil
}

func (repo schoolRepository) GetStudentByID(ctx context.Context, id int) (school.Student, error) {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	var std school.Student
	if err := repo.db.GetContext(ctx, &std, `SELECT * FROM student WHERE id = $1`, id); err != nil {
		return school.Student{}, trapErr(err, school.ErrNotFound, "finding student by ID")
	}
	return std, nil
}

func (repo schoolRepository) QueryAllStudents(ctx context.Context) ([]school.Student, error) {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	students := make([]school.Student, 0)
	if err := repo.db.SelectContext(ctx, &students, `SELECT * FROM student ORDER BY created_at DESC, id DESC`); err != nil {
		return nil, trapErr(err, school.ErrNotFound, "querying students")
	}
	return students, nil
}

func (repo schoolRepository) QueryStudentsByCourse(ctx context.Context, courseID int) ([]school.Student, error) {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	students := make([]school.Student, 0)
	query := `
		SELECT s.* FROM student s
		INNER JOIN enrollment e ON s.id = e.student_id
		WHERE e.course_id = $1
		ORDER BY e.created_at DESC, e.id DESC`
	if err := repo.db.SelectContext(ctx, &students, query, courseID); err != nil {
		return nil, trapErr(err, school.ErrNotFound, "querying students by course")
	}
	return students, nil
}

func (repo schoolRepository) UpdateStudent(ctx context.Context, std school.Student) (school.Student, error) {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	query := `
		UPDATE student
		SET name = $1, email = $2, updated_at = $3
		WHERE id = $4`
	res, err := repo.db.ExecContext(ctx, query, std.Name, std.Email, std.UpdatedAt, std.ID)
	if err != nil {
		return school.Student{}, trapErr(err, school.ErrNotFound, "updating student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return school.Student{}, school.ErrNotFound
	}
	return std, nil
}

func (repo schoolRepository) StudentHasDependents(ctx context.Context, id int) (bool, error) {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	query := `
		SELECT EXISTS (
			SELECT 1 FROM enrollment WHERE student_id = $1
			UNION
			SELECT 1 FROM activity WHERE student_id = $1
		)`
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, trapErr(err, school.ErrNotFound, "checking student dependents")
	}
	return exists, nil
}

func (repo schoolRepository) DeleteStudent(ctx context.Context, id int) error {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	if _, err := repo.db.ExecContext(ctx, `DELETE FROM student WHERE id = $1`, id); err != nil {
		return trapErr(err, school.ErrNotFound, "deleting student")
	}
	return nil
}

// Enrollments

// CreateEnrollment relies on the enrollment_student_course_key unique index:
// concurrent duplicates surface as a core.ConstraintError via trapErr.
func (repo schoolRepository) CreateEnrollment(ctx context.Context, enr school.Enrollment) (school.Enrollment, error) {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	query := `
		INSERT INTO enrollment (student_id, course_id, created_at)
		VALUES ($1, $2, $3)
		RETURNING id`
	err := repo.db.QueryRowContext(ctx, query, enr.StudentID, enr.CourseID, enr.CreatedAt).Scan(&enr.ID)
	if err != nil {
		return school.Enrollment{}, trapErr(err, school.ErrNotFound, "inserting enrollment")
	}
	return enr, nil
}

func (repo schoolRepository) GetEnrollmentByID(ctx context.Context, id int) (school.Enrollment, error) {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	var enr school.Enrollment
	if err := repo.db.GetContext(ctx, &enr, `SELECT * FROM enrollment WHERE id = $1`, id); err != nil {
		return school.Enrollment{}, trapErr(err, school.ErrNotFound, "finding enrollment by ID")
	}
	return enr, nil
}

func (repo schoolRepository) QueryEnrollmentsByStudent(ctx context.Context, studentID int) ([]school.Enrollment, error) {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	enrs := make([]school.Enrollment, 0)
	query := `SELECT * FROM enrollment WHERE student_id = $1 ORDER BY created_at DESC, id DESC`
	if err := repo.db.SelectContext(ctx, &enrs, query, studentID); err != nil {
		return nil, trapErr(err, school.ErrNotFound, "querying enrollments by student")
	}
	return enrs, nil
}

func (repo schoolRepository) QueryEnrollmentsByCourse(ctx context.Context, courseID int) ([]school.Enrollment, error) {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	enrs := make([]school.Enrollment, 0)
	query := `SELECT * FROM enrollment WHERE course_id = $1 ORDER BY created_at DESC, id DESC`
	if err := repo.db.SelectContext(ctx, &enrs, query, courseID); err != nil {
		return nil, trapErr(err, school.ErrNotFound, "querying enrollments by course")
	}
	return enrs, nil
}

func (repo schoolRepository) EnrollmentExists(ctx context.Context, studentID, courseID int) (bool, error) {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM enrollment WHERE student_id = $1 AND course_id = $2)`
	if err := repo.db.GetContext(ctx, &exists, query, studentID, courseID); err != nil {
		return false, trapErr(err, school.ErrNotFound, "checking enrollment existence")
	}
	return exists, nil
}

func (repo schoolRepository) DeleteEnrollment(ctx context.Context, id int) error {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	if _, err := repo.db.ExecContext(ctx, `DELETE FROM enrollment WHERE id = $1`, id); err != nil {
		return trapErr(err, school.ErrNotFound, "deleting enrollment")
	}
	return nil
}

// Activities

func (repo schoolRepository) CreateActivity(ctx context.Context, act school.Activity) (school.Activity, error) {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	query := `
		INSERT INTO activity (student_id, course_id, type, description, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err := repo.db.QueryRowContext(
		ctx, query,
		act.StudentID, act.CourseID, act.Type, act.Description, act.CreatedAt,
	).Scan(&act.ID)
	if err != nil {
		return school.Activity{}, trapErr(err, school.ErrNotFound, "inserting activity")
	}
	return act, nil
}

func (repo schoolRepository) GetActivityByID(ctx context.Context, id int) (school.Activity, error) {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	var act school.Activity
	if err := repo.db.GetContext(ctx, &act, `SELECT * FROM activity WHERE id = $1`, id); err != nil {
		return school.Activity{}, trapErr(err, school.ErrNotFound, "finding activity by ID")
	}
	return act, nil
}

func (repo schoolRepository) QueryAllActivities(ctx context.Context) ([]school.Activity, error) {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	acts := make([]school.Activity, 0)
	if err := repo.db.SelectContext(ctx, &acts, `SELECT * FROM activity ORDER BY created_at DESC, id DESC`); err != nil {
		return nil, trapErr(err, school.ErrNotFound, "querying activities")
	}
	return acts, nil
}

func (repo schoolRepository) QueryActivitiesByStudent(ctx context.Context, studentID int) ([]school.Activity, error) {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	acts := make([]school.Activity, 0)
	query := `SELECT * FROM activity WHERE student_id = $1 ORDER BY created_at DESC, id DESC`
	if err := repo.db.SelectContext(ctx, &acts, query, studentID); err != nil {
		return nil, trapErr(err, school.ErrNotFound, "querying activities by student")
	}
	return acts, nil
}

func (repo schoolRepository) QueryActivitiesByCourse(ctx context.Context, courseID int) ([]school.Activity, error) {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	acts := make([]school.Activity, 0)
	query := `SELECT * FROM activity WHERE course_id = $1 ORDER BY created_at DESC, id DESC`
	if err := repo.db.SelectContext(ctx, &acts, query, courseID); err != nil {
		return nil, trapErr(err, school.ErrNotFound, "querying activities by course")
	}
	return acts, nil
}

func (repo schoolRepository) UpdateActivity(ctx context.Context, act school.Activity) (school.Activity, error) {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	query := `
		UPDATE activity
		SET type = $1, description = $2
		WHERE id = $3`
	res, err := repo.db.ExecContext(ctx, query, act.Type, act.Description, act.ID)
	if err != nil {
		return school.Activity{}, trapErr(err, school.ErrNotFound, "updating activity")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return school.Activity{}, school.ErrNotFound
	}
	return act, nil
}

func (repo schoolRepository) DeleteActivity(ctx context.Context, id int) error {
	ctx, cancel := repo.context(ctx)
	defer cancel()

	if _, err := repo.db.ExecContext(ctx, `DELETE FROM activity WHERE id = $1`, id); err != nil {
		return trapErr(err, school.ErrNotFound, "deleting activity")
	}
	return nil
}
