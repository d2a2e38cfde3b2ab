package school

import (
	"time"

	"github.com/trezcool/shule/core"
)

// Course is a taught unit owned by a teacher account.
type Course struct {
	ID          int       `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	TeacherID   int       `json:"teacher_id" db:"teacher_id"`
	Category    string    `json:"category" db:"category"`
	Level       string    `json:"level" db:"level"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// Student is a person enrolled in courses. AccountID links an optional login
// account; a profile may exist for an enrolled-but-not-registered person.
type Student struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	AccountID *int      `json:"account_id" db:"account_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// Enrollment records a Student's registration in a Course. A given
// (student, course) pair exists at most once.
type Enrollment struct {
	ID        int       `json:"id" db:"id"`
	StudentID int       `json:"student_id" db:"student_id"`
	CourseID  int       `json:"course_id" db:"course_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
}

// Activity is a free-form record of something a student did in a course.
type Activity struct {
	ID          int       `json:"id" db:"id"`
	StudentID   int       `json:"student_id" db:"student_id"`
	CourseID    int       `json:"course_id" db:"course_id"`
	Type        string    `json:"type" db:"type"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	TeacherID   int    `json:"teacher_id" validate:"required"`
	Category    string `json:"category"`
	Level       string `json:"level"`
}

func (nc *NewCourse) Validate() error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Category = core.CleanString(nc.Category)
	nc.Level = core.CleanString(nc.Level)
	return core.Validate.Struct(nc)
}

// UpdateCourse defines the mutable Course fields; the owning teacher is not
// one of them.
type UpdateCourse struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Level       *string `json:"level"`
}

func (uc *UpdateCourse) Validate() error {
	uc.Title = core.CleanString(uc.Title)
	return core.Validate.Struct(uc)
}

// NewStudent contains information needed to create a new Student profile.
type NewStudent struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	AccountID *int   `json:"account_id"`
}

func (ns *NewStudent) Validate() error {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.NormalizeEmail(ns.Email)
	return core.Validate.Struct(ns)
}

// UpdateStudent defines the mutable Student fields; the account link is not
// one of them.
type UpdateStudent struct {
	Name  string `json:"name"`
	Email string `json:"email" validate:"omitempty,email"`
}

func (us *UpdateStudent) Validate() error {
	us.Name = core.CleanString(us.Name)
	us.Email = core.NormalizeEmail(us.Email)
	return core.Validate.Struct(us)
}

// NewEnrollment contains information needed to enroll a Student in a Course.
type NewEnrollment struct {
	StudentID int `json:"student_id" validate:"required"`
	CourseID  int `json:"course_id" validate:"required"`
}

func (ne *NewEnrollment) Validate() error {
	return core.Validate.Struct(ne)
}

// NewActivity contains information needed to record a new Activity.
type NewActivity struct {
	StudentID   int    `json:"student_id" validate:"required"`
	CourseID    int    `json:"course_id" validate:"required"`
	Type        string `json:"type" validate:"required"`
	Description string `json:"description"`
}

func (na *NewActivity) Validate() error {
	na.Type = core.CleanString(na.Type)
	na.Description = core.CleanString(na.Description)
	return core.Validate.Struct(na)
}

// UpdateActivity defines the mutable Activity fields; the student and course
// references are not among them.
type UpdateActivity struct {
	Type        string  `json:"type"`
	Description *string `json:"description"`
}

func (ua *UpdateActivity) Validate() error {
	ua.Type = core.CleanString(ua.Type)
	return core.Validate.Struct(ua)
}
