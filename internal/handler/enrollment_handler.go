package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Amiineben/StudyWave-attendence/internal/models"
	"github.com/Amiineben/StudyWave-attendence/internal/service"
	appErrors "github.com/Amiineben/StudyWave-attendence/pkg/errors"
	"github.com/Amiineben/StudyWave-attendence/pkg/response"
)

// EnrollmentHandler exposes the enroll and drop endpoints. The student
// identity always comes from the token, never from the payload.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
	courses     *service.CourseService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService, courses *service.CourseService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, courses: courses}
}

// Enroll godoc
// @Summary Enroll in a course
// @Description Take a seat on the course if capacity allows
// @Tags Enrollments
// @Produce json
// @Param id path string true "Course ID"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses/{id}/enroll [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	enrollment, err := h.enrollments.Enroll(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Drop godoc
// @Summary Drop a course
// @Description Release the seat; the historical record stays
// @Tags Enrollments
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /courses/{id}/drop [post]
func (h *EnrollmentHandler) Drop(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	enrollment, err := h.enrollments.Drop(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Roster godoc
// @Summary List enrolled students
// @Description Active roster of the course; owning instructor or admin
// @Tags Enrollments
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /courses/{id}/enrollments [get]
func (h *EnrollmentHandler) Roster(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	courseID := c.Param("id")
	course, err := h.courses.Get(c.Request.Context(), courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if claims.Role != models.RoleAdmin && course.InstructorID != claims.UserID {
		response.Error(c, appErrors.ErrNotOwner)
		return
	}

	roster, err := h.enrollments.Roster(c.Request.Context(), courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}
