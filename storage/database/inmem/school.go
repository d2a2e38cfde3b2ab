package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

type schoolRepository struct {
	db *DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db}
}

// Courses

func (repo *schoolRepository) CreateCourse(ctx context.Context, crs school.Course) (school.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.accounts[crs.TeacherID]; !ok {
		return school.Course{}, core.NewConstraintError(core.RuleAccountRef, "owning account does not exist")
	}

	repo.db.coursePK++
	crs.ID = repo.db.coursePK
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *schoolRepository) GetCourseByID(ctx context.Context, id int) (school.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if crs, ok := repo.db.courses[id]; ok {
		return *crs, nil
	}
	return school.Course{}, school.ErrNotFound
}

func (repo *schoolRepository) QueryAllCourses(ctx context.Context) ([]school.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	courses := make([]school.Course, 0, len(repo.db.courses))
	for _, crs := range repo.db.courses {
		courses = append(courses, *crs)
	}
	sortNewestFirst(len(courses),
		func(i int) (time.Time, int) { return courses[i].CreatedAt, courses[i].ID },
		func(i, j int) { courses[i], courses[j] = courses[j], courses[i] },
	)
	return courses, nil
}

func (repo *schoolRepository) QueryCoursesByTeacher(ctx context.Context, teacherID int) ([]school.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	courses := make([]school.Course, 0)
	for _, crs := range repo.db.courses {
		if crs.TeacherID == teacherID {
			courses = append(courses, *crs)
		}
	}
	sortNewestFirst(len(courses),
		func(i int) (time.Time, int) { return courses[i].CreatedAt, courses[i].ID },
		func(i, j int) { courses[i], courses[j] = courses[j], courses[i] },
	)
	return courses, nil
}

func (repo *schoolRepository) UpdateCourse(ctx context.Context, crs school.Course) (school.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.courses[crs.ID]; !ok {
		return school.Course{}, school.ErrNotFound
	}
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *schoolRepository) CourseHasDependents(ctx context.Context, id int) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, enr := range repo.db.enrollments {
		if enr.CourseID == id {
			return true, nil
		}
	}
	for _, act := range repo.db.activities {
		if act.CourseID == id {
			return true, nil
		}
	}
	return false, nil
}

func (repo *schoolRepository) DeleteCourse(ctx context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.courses, id)
	return nil
}

// Students

func (repo *schoolRepository) CreateStudent(ctx context.Context, std school.Student) (school.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if std.AccountID != nil {
		if _, ok := repo.db.accounts[*std.AccountID]; !ok {
			return school.Student{}, core.NewConstraintError(core.RuleAccountRef, "linked account does not exist")
		}
	}

	repo.db.studentPK++
	std.ID = repo.db.studentPK
	repo.db.students[std.ID] = &std
	return std, nil
}

func (repo *schoolRepository) GetStudentByID(ctx context.Context, id int) (school.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if std, ok := repo.db.students[id]; ok {
		return *std, nil
	}
	return school.Student{}, school.ErrNotFound
}

func (repo *schoolRepository) QueryAllStudents(ctx context.Context) ([]school.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]school.Student, 0, len(repo.db.students))
	for _, std := range repo.db.students {
		students = append(students, *std)
	}
	sortNewestFirst(len(students),
		func(i int) (time.Time, int) { return students[i].CreatedAt, students[i].ID },
		func(i, j int) { students[i], students[j] = students[j], students[i] },
	)
	return students, nil
}

func (repo *schoolRepository) QueryStudentsByCourse(ctx context.Context, courseID int) ([]school.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	// walk enrollments newest first so the student order follows them
	enrs := repo.enrollmentsByCourse(courseID)
	students := make([]school.Student, 0, len(enrs))
	for _, enr := range enrs {
		if std, ok := repo.db.students[enr.StudentID]; ok {
			students = append(students, *std)
		}
	}
	return students, nil
}

func (repo *schoolRepository) UpdateStudent(ctx context.Context, std school.Student) (school.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.students[std.ID]; !ok {
		return school.Student{}, school.ErrNotFound
	}
	repo.db.students[std.ID] = &std
	return std, nil
}

func (repo *schoolRepository) StudentHasDependents(ctx context.Context, id int) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, enr := range repo.db.enrollments {
		if enr.StudentID == id {
			return true, nil
		}
	}
	for _, act := range repo.db.activities {
		if act.StudentID == id {
			return true, nil
		}
	}
	return false, nil
}

func (repo *schoolRepository) DeleteStudent(ctx context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.students, id)
	return nil
}

// Enrollments

// CreateEnrollment checks references and the (student, course) pair inside the
// write lock; concurrent duplicates cannot both land.
func (repo *schoolRepository) CreateEnrollment(ctx context.Context, enr school.Enrollment) (school.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.students[enr.StudentID]; !ok {
		return school.Enrollment{}, core.NewConstraintError(core.RuleStudentRef, "student does not exist")
	}
	if _, ok := repo.db.courses[enr.CourseID]; !ok {
		return school.Enrollment{}, core.NewConstraintError(core.RuleCourseRef, "course does not exist")
	}
	for _, existing := range repo.db.enrollments {
		if existing.StudentID == enr.StudentID && existing.CourseID == enr.CourseID {
			return school.Enrollment{}, core.NewConstraintError(core.RuleUniqueEnrollment, "student is already enrolled in this course")
		}
	}

	repo.db.enrollmentPK++
	enr.ID = repo.db.enrollmentPK
	repo.db.enrollments[enr.ID] = &enr
	return enr, nil
}

func (repo *schoolRepository) GetEnrollmentByID(ctx context.Context, id int) (school.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if enr, ok := repo.db.enrollments[id]; ok {
		return *enr, nil
	}
	return school.Enrollment{}, school.ErrNotFound
}

func (repo *schoolRepository) QueryEnrollmentsByStudent(ctx context.Context, studentID int) ([]school.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	enrs := make([]school.Enrollment, 0)
	for _, enr := range repo.db.enrollments {
		if enr.StudentID == studentID {
			enrs = append(enrs, *enr)
		}
	}
	sortNewestFirst(len(enrs),
		func(i int) (time.Time, int) { return enrs[i].CreatedAt, enrs[i].ID },
		func(i, j int) { enrs[i], enrs[j] = enrs[j], enrs[i] },
	)
	return enrs, nil
}

func (repo *schoolRepository) QueryEnrollmentsByCourse(ctx context.Context, courseID int) ([]school.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.enrollmentsByCourse(courseID), nil
}

// enrollmentsByCourse must be called with the lock held.
func (repo *schoolRepository) enrollmentsByCourse(courseID int) []school.Enrollment {
	enrs := make([]school.Enrollment, 0)
	for _, enr := range repo.db.enrollments {
		if enr.CourseID == courseID {
			enrs = append(enrs, *enr)
		}
	}
	sortNewestFirst(len(enrs),
		func(i int) (time.Time, int) { return enrs[i].CreatedAt, enrs[i].ID },
		func(i, j int) { enrs[i], enrs[j] = enrs[j], enrs[i] },
	)
	return enrs
}

func (repo *schoolRepository) EnrollmentExists(ctx context.Context, studentID, courseID int) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, enr := range repo.db.enrollments {
		if enr.StudentID == studentID && enr.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *schoolRepository) DeleteEnrollment(ctx context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.enrollments, id)
	return nil
}

// Activities

func (repo *schoolRepository) CreateActivity(ctx context.Context, act school.Activity) (school.Activity, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.students[act.StudentID]; !ok {
		return school.Activity{}, core.NewConstraintError(core.RuleStudentRef, "student does not exist")
	}
	if _, ok := repo.db.courses[act.CourseID]; !ok {
		return school.Activity{}, core.NewConstraintError(core.RuleCourseRef, "course does not exist")
	}

	repo.db.activityPK++
	act.ID = repo.db.activityPK
	repo.db.activities[act.ID] = &act
	return act, nil
}

func (repo *schoolRepository) GetActivityByID(ctx context.Context, id int) (school.Activity, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if act, ok := repo.db.activities[id]; ok {
		return *act, nil
	}
	return school.Activity{}, school.ErrNotFound
}

func (repo *schoolRepository) QueryAllActivities(ctx context.Context) ([]school.Activity, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	acts := make([]school.Activity, 0, len(repo.db.activities))
	for _, act := range repo.db.activities {
		acts = append(acts, *act)
	}
	sortNewestFirst(len(acts),
		func(i int) (time.Time, int) { return acts[i].CreatedAt, acts[i].ID },
		func(i, j int) { acts[i], acts[j] = acts[j], acts[i] },
	)
	return acts, nil
}

func (repo *schoolRepository) QueryActivitiesByStudent(ctx context.Context, studentID int) ([]school.Activity, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	acts := make([]school.Activity, 0)
	for _, act := range repo.db.activities {
		if act.StudentID == studentID {
			acts = append(acts, *act)
		}
	}
	sortNewestFirst(len(acts),
		func(i int) (time.Time, int) { return acts[i].CreatedAt, acts[i].ID },
		func(i, j int) { acts[i], acts[j] = acts[j], acts[i] },
	)
	return acts, nil
}

func (repo *schoolRepository) QueryActivitiesByCourse(ctx context.Context, courseID int) ([]school.Activity, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	acts := make([]school.Activity, 0)
	for _, act := range repo.db.activities {
		if act.CourseID == courseID {
			acts = append(acts, *act)
		}
	}
	sortNewestFirst(len(acts),
		func(i int) (time.Time, int) { return acts[i].CreatedAt, acts[i].ID },
		func(i, j int) { acts[i], acts[j] = acts[j], acts[i] },
	)
	return acts, nil
}

func (repo *schoolRepository) UpdateActivity(ctx context.Context, act school.Activity) (school.Activity, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.activities[act.ID]; !ok {
		return school.Activity{}, school.ErrNotFound
	}
	repo.db.activities[act.ID] = &act
	return act, nil
}

func (repo *schoolRepository) DeleteActivity(ctx context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.activities, id)
	return nil
}

// sortNewestFirst orders by created time descending, id descending on ties.
func sortNewestFirst(n int, key func(i int) (time.Time, int), swap func(i, j int)) {
	sort.Sort(&newestFirst{n: n, key: key, swap: swap})
}

type newestFirst struct {
	n    int
	key  func(i int) (time.Time, int)
	swap func(i, j int)
}

func (s *newestFirst) Len() int { return s.n }

func (s *newestFirst) Less(i, j int) bool {
	ti, idi := s.key(i)
	tj, idj := s.key(j)
	if ti.Equal(tj) {
		return idi > idj
	}
	return ti.After(tj)
}

func (s *newestFirst) Swap(i, j int) { s.swap(i, j) }
