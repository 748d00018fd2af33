package handler

import "github.com/gin-gonic/gin"

// Handlers groups every HTTP handler mounted under the API prefix.
type Handlers struct {
	Courses     *CourseHandler
	Lessons     *LessonHandler
	Students    *StudentHandler
	Enrollments *EnrollmentHandler
	Metrics     *MetricsHandler
	// Media is nil unless the local storage backend is active.
	Media *MediaHandler
}

// RegisterRoutes mounts the API routes on the router group.
func RegisterRoutes(r gin.IRouter, h Handlers) {
	courses := r.Group("/courses")
	courses.GET("", h.Courses.List)
	courses.GET("/selection", h.Courses.Selection)
	courses.GET("/export", h.Courses.Export)
	courses.GET("/:id", h.Courses.Get)
	courses.GET("/:id/lessons", h.Lessons.ListByCourse)
	courses.POST("", h.Courses.Create)
	courses.PUT("/:id", h.Courses.Update)
	courses.DELETE("/:id", h.Courses.Delete)

	lessons := r.Group("/lessons")
	lessons.GET("/:id", h.Lessons.Get)
	lessons.POST("", h.Lessons.Create)
	lessons.PUT("/:id", h.Lessons.Update)
	lessons.DELETE("/:id", h.Lessons.Delete)

	students := r.Group("/students")
	students.GET("", h.Students.List)
	students.GET("/selection", h.Students.Selection)
	students.GET("/export", h.Students.Export)
	students.GET("/:id", h.Students.Get)
	students.POST("", h.Students.Create)
	students.PUT("/:id", h.Students.Update)
	students.DELETE("/:id", h.Students.Delete)

	enrollments := r.Group("/enrollments")
	enrollments.POST("", h.Enrollments.Enroll)
	enrollments.PUT("", h.Enrollments.ReplaceAll)
	enrollments.GET("/course/:courseId", h.Enrollments.ListByCourse)
	enrollments.GET("/student/:studentId", h.Enrollments.ListByStudent)
	enrollments.DELETE("/student/:studentId/course/:courseId", h.Enrollments.Unenroll)

	if h.Metrics != nil {
		r.GET("/system/metrics", h.Metrics.Summary)
	}
	if h.Media != nil {
		r.GET("/media/*key", h.Media.Serve)
	}
}
