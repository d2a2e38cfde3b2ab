package echoapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/trezcool/shule/core/account"
	"github.com/trezcool/shule/core/school"
)

func (app *testApp) createCourse(t *testing.T, title string, teacherID int) school.Course {
	t.Helper()
	crs, err := app.schoolSvc.CreateCourse(context.Background(), school.NewCourse{Title: title, TeacherID: teacherID})
	if err != nil {
		t.Fatalf("createCourse() failed: %v", err)
	}
	return crs
}

func (app *testApp) createStudent(t *testing.T, name, email string, accountID *int) school.Student {
	t.Helper()
	std, err := app.schoolSvc.CreateStudent(context.Background(), school.NewStudent{Name: name, Email: email, AccountID: accountID})
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return std
}

func TestSchoolAPI_courseLifecycle(t *testing.T) {
	app := newTestApp(t)
	teacher := app.createAccount(t, "Prof. Ahmed", "ahmed@test.cd", account.RoleTeacher)
	teacherToken := app.token(t, teacher)

	// create
	rec := app.request(t, http.MethodPost, "/v1/courses", teacherToken, marshalObj(t, map[string]string{
		"title":       "Algebra I",
		"description": "intro algebra",
		"category":    "math",
		"level":       "beginner",
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create course code = %d, want %d; body: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var crs school.Course
	decodeObj(t, rec, &crs)
	if crs.TeacherID != teacher.ID {
		t.Errorf("create course teacherID = %d, want caller %d", crs.TeacherID, teacher.ID)
	}

	// update
	rec = app.request(t, http.MethodPut, "/v1/courses/"+itoa(crs.ID), teacherToken, marshalObj(t, map[string]string{
		"title": "Algebra I (revised)",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("update course code = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	decodeObj(t, rec, &crs)
	if crs.Title != "Algebra I (revised)" {
		t.Errorf("update course title = %s", crs.Title)
	}
	if crs.Category != "math" {
		t.Errorf("update course clobbered category = %s", crs.Category)
	}

	// delete
	rec = app.request(t, http.MethodDelete, "/v1/courses/"+itoa(crs.ID), teacherToken)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete course code = %d, want %d; body: %s", rec.Code, http.StatusNoContent, rec.Body.String())
	}
	rec = app.request(t, http.MethodGet, "/v1/courses/"+itoa(crs.ID), teacherToken)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get deleted course code = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestSchoolAPI_createCourse_ownerIsCaller(t *testing.T) {
	app := newTestApp(t)
	caller := app.createAccount(t, "Prof. Ahmed", "ahmed@test.cd", account.RoleTeacher)
	other := app.createAccount(t, "Prof. Other", "other@test.cd", account.RoleTeacher)

	// a bound teacher_id pointing at someone else is ignored
	rec := app.request(t, http.MethodPost, "/v1/courses", app.token(t, caller), marshalObj(t, map[string]interface{}{
		"title":      "Algebra I",
		"teacher_id": other.ID,
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create course code = %d, want %d; body: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var crs school.Course
	decodeObj(t, rec, &crs)
	if crs.TeacherID != caller.ID {
		t.Errorf("create course teacherID = %d, want caller %d", crs.TeacherID, caller.ID)
	}
}

func TestSchoolAPI_courseAccessControl(t *testing.T) {
	app := newTestApp(t)
	owner := app.createAccount(t, "Prof. Ahmed", "ahmed@test.cd", account.RoleTeacher)
	other := app.createAccount(t, "Prof. Other", "other@test.cd", account.RoleTeacher)
	student := app.createAccount(t, "Ali", "ali@test.cd", account.RoleStudent)

	crs := app.createCourse(t, "Algebra I", owner.ID)
	body := marshalObj(t, map[string]string{"title": "Hijacked"})

	tests := []struct {
		name     string
		method   string
		path     string
		token    string
		body     []byte
		wantCode int
	}{
		{name: "anonymous cannot read", method: http.MethodGet, path: "/v1/courses",
			wantCode: http.StatusUnauthorized},
		{name: "student reads courses", method: http.MethodGet, path: "/v1/courses",
			token: app.token(t, student), wantCode: http.StatusOK},
		{name: "student cannot create", method: http.MethodPost, path: "/v1/courses",
			token: app.token(t, student), body: marshalObj(t, map[string]string{"title": "Nope"}),
			wantCode: http.StatusForbidden},
		{name: "student cannot update", method: http.MethodPut, path: "/v1/courses/" + itoa(crs.ID),
			token: app.token(t, student), body: body, wantCode: http.StatusForbidden},
		{name: "non-owner teacher cannot update", method: http.MethodPut, path: "/v1/courses/" + itoa(crs.ID),
			token: app.token(t, other), body: body, wantCode: http.StatusForbidden},
		{name: "non-owner teacher cannot delete", method: http.MethodDelete, path: "/v1/courses/" + itoa(crs.ID),
			token: app.token(t, other), wantCode: http.StatusForbidden},
		{name: "owner updates", method: http.MethodPut, path: "/v1/courses/" + itoa(crs.ID),
			token: app.token(t, owner), body: body, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.request(t, tt.method, tt.path, tt.token, tt.body)
			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d; body: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}
}

func TestSchoolAPI_enrollments(t *testing.T) {
	app := newTestApp(t)
	teacher := app.createAccount(t, "Prof. Ahmed", "ahmed@test.cd", account.RoleTeacher)
	teacherToken := app.token(t, teacher)

	crs := app.createCourse(t, "Algebra I", teacher.ID)
	std := app.createStudent(t, "Ali", "ali@test.cd", nil)

	body := marshalObj(t, map[string]int{"student_id": std.ID, "course_id": crs.ID})

	rec := app.request(t, http.MethodPost, "/v1/enrollments", teacherToken, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("enroll code = %d, want %d; body: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	// the same pair again conflicts
	rec = app.request(t, http.MethodPost, "/v1/enrollments", teacherToken, body)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate enroll code = %d, want %d; body: %s", rec.Code, http.StatusConflict, rec.Body.String())
	}

	// dangling student reference conflicts too
	rec = app.request(t, http.MethodPost, "/v1/enrollments", teacherToken,
		marshalObj(t, map[string]int{"student_id": 999, "course_id": crs.ID}))
	if rec.Code != http.StatusConflict {
		t.Errorf("dangling enroll code = %d, want %d; body: %s", rec.Code, http.StatusConflict, rec.Body.String())
	}

	// the roster shows the enrolled student
	rec = app.request(t, http.MethodGet, "/v1/courses/"+itoa(crs.ID)+"/students", teacherToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("course students code = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if wantData := marshalObj(t, []school.Student{std}); !jsonBytesEqual(t, rec.Body.Bytes(), wantData) {
		t.Errorf("course students = %s, want %s", rec.Body.String(), wantData)
	}
}

func TestSchoolAPI_selfEnrollment(t *testing.T) {
	app := newTestApp(t)
	teacher := app.createAccount(t, "Prof. Ahmed", "ahmed@test.cd", account.RoleTeacher)
	aliAcct := app.createAccount(t, "Ali", "ali@test.cd", account.RoleStudent)
	maryAcct := app.createAccount(t, "Mary", "mary@test.cd", account.RoleStudent)

	crs := app.createCourse(t, "Algebra I", teacher.ID)
	aliProfile := app.createStudent(t, "Ali", "ali@test.cd", &aliAcct.ID)

	body := marshalObj(t, map[string]int{"student_id": aliProfile.ID, "course_id": crs.ID})

	// someone else's linked profile is off limits
	rec := app.request(t, http.MethodPost, "/v1/enrollments", app.token(t, maryAcct), body)
	if rec.Code != http.StatusForbidden {
		t.Errorf("foreign self-enroll code = %d, want %d; body: %s", rec.Code, http.StatusForbidden, rec.Body.String())
	}

	// the linked account self-enrolls
	rec = app.request(t, http.MethodPost, "/v1/enrollments", app.token(t, aliAcct), body)
	if rec.Code != http.StatusCreated {
		t.Errorf("self-enroll code = %d, want %d; body: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
}

func TestSchoolAPI_deleteCourseWithEnrollmentsConflicts(t *testing.T) {
	app := newTestApp(t)
	teacher := app.createAccount(t, "Prof. Ahmed", "ahmed@test.cd", account.RoleTeacher)
	teacherToken := app.token(t, teacher)

	crs := app.createCourse(t, "Algebra I", teacher.ID)
	std := app.createStudent(t, "Ali", "ali@test.cd", nil)
	if _, err := app.schoolSvc.Enroll(context.Background(), school.NewEnrollment{StudentID: std.ID, CourseID: crs.ID}); err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}

	rec := app.request(t, http.MethodDelete, "/v1/courses/"+itoa(crs.ID), teacherToken)
	if rec.Code != http.StatusConflict {
		t.Errorf("delete enrolled course code = %d, want %d; body: %s", rec.Code, http.StatusConflict, rec.Body.String())
	}
}

func TestSchoolAPI_activities(t *testing.T) {
	app := newTestApp(t)
	teacher := app.createAccount(t, "Prof. Ahmed", "ahmed@test.cd", account.RoleTeacher)
	aliAcct := app.createAccount(t, "Ali", "ali@test.cd", account.RoleStudent)
	teacherToken := app.token(t, teacher)

	crs := app.createCourse(t, "Algebra I", teacher.ID)
	std := app.createStudent(t, "Ali", "ali@test.cd", &aliAcct.ID)

	// teacher records an activity
	rec := app.request(t, http.MethodPost, "/v1/activities", teacherToken, marshalObj(t, map[string]interface{}{
		"student_id":  std.ID,
		"course_id":   crs.ID,
		"type":        "quiz",
		"description": "quiz 1 completed",
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("record activity code = %d, want %d; body: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	// the student cannot
	rec = app.request(t, http.MethodPost, "/v1/activities", app.token(t, aliAcct), marshalObj(t, map[string]interface{}{
		"student_id": std.ID,
		"course_id":  crs.ID,
		"type":       "self-grade",
	}))
	if rec.Code != http.StatusForbidden {
		t.Errorf("student record activity code = %d, want %d", rec.Code, http.StatusForbidden)
	}

	// but the student reads their own feed
	rec = app.request(t, http.MethodGet, "/v1/students/"+itoa(std.ID)+"/activities", app.token(t, aliAcct))
	if rec.Code != http.StatusOK {
		t.Fatalf("student activities code = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var acts []school.Activity
	decodeObj(t, rec, &acts)
	if len(acts) != 1 || acts[0].Type != "quiz" {
		t.Errorf("student activities = %+v, want a single quiz record", acts)
	}
}
