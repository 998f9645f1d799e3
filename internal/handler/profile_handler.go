package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Amiineben/StudyWave-attendence/internal/service"
	appErrors "github.com/Amiineben/StudyWave-attendence/pkg/errors"
	"github.com/Amiineben/StudyWave-attendence/pkg/response"
)

// ProfileHandler exposes the caller's own enrollment view and the mirror
// reconciliation trigger.
type ProfileHandler struct {
	enrollments *service.EnrollmentService
	profile     *service.ProfileSyncService
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(enrollments *service.EnrollmentService, profile *service.ProfileSyncService) *ProfileHandler {
	return &ProfileHandler{enrollments: enrollments, profile: profile}
}

// MyCourses godoc
// @Summary List own enrollments
// @Description Every enrollment row of the caller, active and historical
// @Tags Profile
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/courses [get]
func (h *ProfileHandler) MyCourses(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	enrollments, err := h.enrollments.ListByStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil)
}

// Reconcile godoc
// @Summary Reconcile profile mirror
// @Description Align the profile's enrolled-course list with the registry
// @Tags Profile
// @Produce json
// @Success 204 {object} response.Envelope
// @Router /me/courses/reconcile [post]
func (h *ProfileHandler) Reconcile(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.profile.Reconcile(c.Request.Context(), claims.UserID); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reconcile profile"))
		return
	}
	response.NoContent(c)
}
