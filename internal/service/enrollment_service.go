package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/Amiineben/StudyWave-attendence/internal/models"
	appErrors "github.com/Amiineben/StudyWave-attendence/pkg/errors"
)

type enrollmentRepository interface {
	Enroll(ctx context.Context, courseID, studentID string) (*models.Enrollment, error)
	Drop(ctx context.Context, courseID, studentID string) (*models.Enrollment, error)
	ListActiveByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error)
}

type profileSyncer interface {
	EnqueueAdd(studentID, courseID string) error
	EnqueueRemove(studentID, courseID string) error
}

// EnrollmentService exposes the seat-bounded enroll and drop operations.
// Capacity enforcement itself lives in the repository transaction; the
// service maps outcomes and triggers the best-effort profile mirror.
type EnrollmentService struct {
	repo    enrollmentRepository
	profile profileSyncer
	metrics *MetricsService
	logger  *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, profile profileSyncer, metrics *MetricsService, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, profile: profile, metrics: metrics, logger: logger}
}

// Enroll registers the student on the course, reactivating a dropped record
// when one exists. Capacity and re-enrollment compete for the same budget
// inside one atomic repository step.
func (s *EnrollmentService) Enroll(ctx context.Context, courseID, studentID string) (*models.Enrollment, error) {
	if courseID == "" || studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course and student are required")
	}

	enrollment, err := s.repo.Enroll(ctx, courseID, studentID)
	if err != nil {
		s.recordOutcome("enroll", err)
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}
	if s.metrics != nil {
		s.metrics.RecordEnrollment("enroll", "success")
	}

	if s.profile != nil {
		if err := s.profile.EnqueueAdd(studentID, courseID); err != nil {
			s.logger.Warn("failed to enqueue profile sync",
				zap.String("student_id", studentID),
				zap.String("course_id", courseID),
				zap.Error(err))
		}
	}

	return enrollment, nil
}

// Drop marks the student's enrollment as dropped. A drop without an enrolled
// record reports NotEnrolled, including repeated drops.
func (s *EnrollmentService) Drop(ctx context.Context, courseID, studentID string) (*models.Enrollment, error) {
	if courseID == "" || studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course and student are required")
	}

	enrollment, err := s.repo.Drop(ctx, courseID, studentID)
	if err != nil {
		s.recordOutcome("drop", err)
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop enrollment")
	}
	if s.metrics != nil {
		s.metrics.RecordEnrollment("drop", "success")
	}

	if s.profile != nil {
		if err := s.profile.EnqueueRemove(studentID, courseID); err != nil {
			s.logger.Warn("failed to enqueue profile sync",
				zap.String("student_id", studentID),
				zap.String("course_id", courseID),
				zap.Error(err))
		}
	}

	return enrollment, nil
}

// Roster returns the currently enrolled students for a course.
func (s *EnrollmentService) Roster(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error) {
	roster, err := s.repo.ListActiveByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return roster, nil
}

// ListByStudent returns every enrollment row the student owns, including
// dropped and completed history.
func (s *EnrollmentService) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	enrollments, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	return enrollments, nil
}

func (s *EnrollmentService) recordOutcome(operation string, err error) {
	if s.metrics == nil {
		return
	}
	appErr := appErrors.FromError(err)
	s.metrics.RecordEnrollment(operation, appErr.Code)
}
