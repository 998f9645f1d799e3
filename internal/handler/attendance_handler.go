package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Amiineben/StudyWave-attendence/internal/models"
	"github.com/Amiineben/StudyWave-attendence/internal/service"
	appErrors "github.com/Amiineben/StudyWave-attendence/pkg/errors"
	"github.com/Amiineben/StudyWave-attendence/pkg/response"
)

// AttendanceHandler records attendance from scanned session descriptors.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Record godoc
// @Summary Record attendance
// @Description Validate the scanned descriptor and store one attendance fact per course and day
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body models.SessionDescriptor true "Session descriptor"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Record(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var descriptor models.SessionDescriptor
	if err := c.ShouldBindJSON(&descriptor); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidDescriptor.Code, http.StatusBadRequest, "malformed session descriptor"))
		return
	}

	record, err := h.attendance.RecordAttendance(c.Request.Context(), claims.UserID, descriptor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}
