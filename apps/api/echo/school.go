package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/school"
)

type schoolApi struct {
	svc  *school.Service
	gate *auth.Gate
}

func registerSchoolAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := schoolApi{
		svc:  opts.SchoolSvc,
		gate: opts.Gate,
	}

	cg := g.Group("/courses", jwt)
	cg.POST("", api.createCourse)
	cg.GET("", api.queryCourses)
	cg.GET("/:id", api.retrieveCourse)
	cg.PUT("/:id", api.updateCourse)
	cg.DELETE("/:id", api.destroyCourse)
	cg.GET("/:id/students", api.queryCourseStudents)
	cg.GET("/:id/enrollments", api.queryCourseEnrollments)
	cg.GET("/:id/activities", api.queryCourseActivities)

	sg := g.Group("/students", jwt)
	sg.POST("", api.createStudent)
	sg.GET("", api.queryStudents)
	sg.GET("/:id", api.retrieveStudent)
	sg.PUT("/:id", api.updateStudent)
	sg.DELETE("/:id", api.destroyStudent)
	sg.GET("/:id/enrollments", api.queryStudentEnrollments)
	sg.GET("/:id/activities", api.queryStudentActivities)

	eg := g.Group("/enrollments", jwt)
	eg.POST("", api.enroll)
	eg.GET("/:id", api.retrieveEnrollment)
	eg.DELETE("/:id", api.unenroll)

	ag := g.Group("/activities", jwt)
	ag.POST("", api.recordActivity)
	ag.GET("", api.queryActivities)
	ag.GET("/:id", api.retrieveActivity)
	ag.PUT("/:id", api.updateActivity)
	ag.DELETE("/:id", api.destroyActivity)
}

// Course handlers

func (api *schoolApi) createCourse(ctx echo.Context) error {
	if err := authorize(ctx, api.gate, auth.ActionCreate, auth.Target{Kind: auth.KindCourse}); err != nil {
		return err
	}

	var data school.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}

	// the owning teacher is always the caller; any bound teacher_id is ignored
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	data.TeacherID = claims.AccountID

	if err := data.Validate(); err != nil {
		return err
	}

	crs, err := api.svc.CreateCourse(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *schoolApi) queryCourses(ctx echo.Context) error {
	if err := authorize(ctx, api.gate, auth.ActionRead, auth.Target{Kind: auth.KindCourse}); err != nil {
		return err
	}

	courses, err := api.svc.QueryCourses(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *schoolApi) retrieveCourse(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = authorize(ctx, api.gate, auth.ActionRead, auth.Target{Kind: auth.KindCourse, ID: id}); err != nil {
		return err
	}

	crs, err := api.svc.GetCourseByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *schoolApi) updateCourse(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = authorize(ctx, api.gate, auth.ActionUpdate, auth.Target{Kind: auth.KindCourse, ID: id}); err != nil {
		return err
	}

	var data school.UpdateCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	crs, err := api.svc.UpdateCourse(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *schoolApi) destroyCourse(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = authorize(ctx, api.gate, auth.ActionDelete, auth.Target{Kind: auth.KindCourse, ID: id}); err != nil {
		return err
	}

	if err = api.svc.DeleteCourse(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *schoolApi) queryCourseStudents(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = authorize(ctx, api.gate, auth.ActionRead, auth.Target{Kind: auth.KindEnrollment, CourseID: id}); err != nil {
		return err
	}

	students, err := api.svc.StudentsByCourse(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying students by course")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *schoolApi) queryCourseEnrollments(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = authorize(ctx, api.gate, auth.ActionRead, auth.Target{Kind: auth.KindEnrollment, CourseID: id}); err != nil {
		return err
	}

	enrs, err := api.svc.EnrollmentsByCourse(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying enrollments by course")
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *schoolApi) queryCourseActivities(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = authorize(ctx, api.gate, auth.ActionRead, auth.Target{Kind: auth.KindActivity, CourseID: id}); err != nil {
		return err
	}

	acts, err := api.svc.ActivitiesByCourse(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying activities by course")
	}
	return ctx.JSON(http.StatusOK, acts)
}

// Student handlers

func (api *schoolApi) createStudent(ctx echo.Context) error {
	if err := authorize(ctx, api.gate, auth.ActionCreate, auth.Target{Kind: auth.KindStudent}); err != nil {
		return err
	}

	var data school.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	std, err := api.svc.CreateStudent(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api *schoolApi) queryStudents(ctx echo.Context) error {
	if err := authorize(ctx, api.gate, auth.ActionRead, auth.Target{Kind: auth.KindStudent}); err != nil {
		return err
	}

	students, err := api.svc.QueryStudents(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *schoolApi) retrieveStudent(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = authorize(ctx, api.gate, auth.ActionRead, auth.Target{Kind: auth.KindStudent, ID: id}); err != nil {
		return err
	}

	std, err := api.svc.GetStudentByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *schoolApi) updateStudent(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = authorize(ctx, api.gate, auth.ActionUpdate, auth.Target{Kind: auth.KindStudent, ID: id}); err != nil {
		return err
	}

	var data school.UpdateStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	std, err := api.svc.UpdateStudent(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *schoolApi) destroyStudent(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = authorize(ctx, api.gate, auth.ActionDelete, auth.Target{Kind: auth.KindStudent, ID: id}); err != nil {
		return err
	}

	if err = api.svc.DeleteStudent(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *schoolApi) queryStudentEnrollments(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = authorize(ctx, api.gate, auth.ActionRead, auth.Target{Kind: auth.KindEnrollment, StudentID: id}); err != nil {
		return err
	}

	enrs, err := api.svc.EnrollmentsByStudent(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying enrollments by student")
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *schoolApi) queryStudentActivities(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = authorize(ctx, api.gate, auth.ActionRead, auth.Target{Kind: auth.KindActivity, StudentID: id}); err != nil {
		return err
	}

	acts, err := api.svc.ActivitiesByStudent(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying activities by student")
	}
	return ctx.JSON(http.StatusOK, acts)
}

// Enrollment handlers

func (api *schoolApi) enroll(ctx echo.Context) error {
	var data school.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	target := auth.Target{Kind: auth.KindEnrollment, StudentID: data.StudentID, CourseID: data.CourseID}
	if err := authorize(ctx, api.gate, auth.ActionCreate, target); err != nil {
		return err
	}

	enr, err := api.svc.Enroll(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *schoolApi) retrieveEnrollment(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	enr, err := api.svc.GetEnrollmentByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	target := auth.Target{Kind: auth.KindEnrollment, ID: id, StudentID: enr.StudentID, CourseID: enr.CourseID}
	if err = authorize(ctx, api.gate, auth.ActionRead, target); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *schoolApi) unenroll(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	enr, err := api.svc.GetEnrollmentByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	target := auth.Target{Kind: auth.KindEnrollment, ID: id, StudentID: enr.StudentID, CourseID: enr.CourseID}
	if err = authorize(ctx, api.gate, auth.ActionDelete, target); err != nil {
		return err
	}

	if err = api.svc.Unenroll(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Activity handlers

func (api *schoolApi) recordActivity(ctx echo.Context) error {
	var data school.NewActivity
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewActivity")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	target := auth.Target{Kind: auth.KindActivity, StudentID: data.StudentID, CourseID: data.CourseID}
	if err := authorize(ctx, api.gate, auth.ActionCreate, target); err != nil {
		return err
	}

	act, err := api.svc.RecordActivity(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, act)
}

func (api *schoolApi) queryActivities(ctx echo.Context) error {
	if err := authorize(ctx, api.gate, auth.ActionRead, auth.Target{Kind: auth.KindActivity}); err != nil {
		return err
	}

	acts, err := api.svc.QueryActivities(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying activities")
	}
	return ctx.JSON(http.StatusOK, acts)
}

func (api *schoolApi) retrieveActivity(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	act, err := api.svc.GetActivityByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	target := auth.Target{Kind: auth.KindActivity, ID: id, StudentID: act.StudentID, CourseID: act.CourseID}
	if err = authorize(ctx, api.gate, auth.ActionRead, target); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, act)
}

func (api *schoolApi) updateActivity(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	act, err := api.svc.GetActivityByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	target := auth.Target{Kind: auth.KindActivity, ID: id, StudentID: act.StudentID, CourseID: act.CourseID}
	if err = authorize(ctx, api.gate, auth.ActionUpdate, target); err != nil {
		return err
	}

	var data school.UpdateActivity
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateActivity")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	act, err = api.svc.UpdateActivity(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, act)
}

func (api *schoolApi) destroyActivity(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	act, err := api.svc.GetActivityByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	target := auth.Target{Kind: auth.KindActivity, ID: id, StudentID: act.StudentID, CourseID: act.CourseID}
	if err = authorize(ctx, api.gate, auth.ActionDelete, target); err != nil {
		return err
	}

	if err = api.svc.DeleteActivity(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
