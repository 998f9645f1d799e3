package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Amiineben/StudyWave-attendence/internal/models"
	appErrors "github.com/Amiineben/StudyWave-attendence/pkg/errors"
)

type attendanceRepository interface {
	Insert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error)
}

type enrollmentChecker interface {
	IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error)
}

// AttendanceService validates submitted session descriptors and records
// attendance facts.
type AttendanceService struct {
	repo        attendanceRepository
	courses     courseReader
	enrollments enrollmentChecker
	cache       *CacheService
	metrics     *MetricsService
	window      time.Duration
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAttendanceService constructs AttendanceService.
func NewAttendanceService(repo attendanceRepository, courses courseReader, enrollments enrollmentChecker, cache *CacheService, metrics *MetricsService, window time.Duration, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if window <= 0 {
		window = 30 * time.Minute
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		repo:        repo,
		courses:     courses,
		enrollments: enrollments,
		cache:       cache,
		metrics:     metrics,
		window:      window,
		validator:   validate,
		logger:      logger,
	}
}

// RecordAttendance checks the descriptor against the course, the student's
// enrollment and the validity window, then inserts the daily fact. The insert
// is conditional on the composite key, so a second submission the same day
// reports DuplicateAttendance and leaves the first record unchanged.
func (s *AttendanceService) RecordAttendance(ctx context.Context, studentID string, descriptor models.SessionDescriptor) (*models.AttendanceRecord, error) {
	record, err := s.recordAttendance(ctx, studentID, descriptor)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordAttendance(appErrors.FromError(err).Code)
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordAttendance("success")
	}
	return record, nil
}

func (s *AttendanceService) recordAttendance(ctx context.Context, studentID string, descriptor models.SessionDescriptor) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(descriptor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidDescriptor.Code, appErrors.ErrInvalidDescriptor.Status, "incomplete session descriptor")
	}
	if descriptor.Type != models.SessionDescriptorType {
		return nil, appErrors.Clone(appErrors.ErrInvalidDescriptor, "unexpected descriptor type")
	}

	course, err := s.courses.FindByID(ctx, descriptor.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrCourseUnavailable, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if !course.Published {
		return nil, appErrors.Clone(appErrors.ErrCourseUnavailable, "course not published")
	}
	if descriptor.CourseCode != course.Code || descriptor.IssuerID != course.InstructorID {
		return nil, appErrors.Clone(appErrors.ErrInvalidDescriptor, "descriptor does not match course")
	}

	enrolled, err := s.enrollments.IsEnrolled(ctx, course.ID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify enrollment")
	}
	if !enrolled {
		return nil, appErrors.ErrNotEnrolled
	}

	// Both bounds inclusive: a descriptor presented at exactly issuedAt is
	// accepted, one past issuedAt+window is rejected.
	now := time.Now().UTC()
	issuedAt := descriptor.IssuedAt.UTC()
	if now.Before(issuedAt) || now.After(issuedAt.Add(s.window)) {
		return nil, appErrors.ErrExpiredSession
	}

	record := &models.AttendanceRecord{
		CourseID:   course.ID,
		StudentID:  studentID,
		Date:       time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		SessionID:  descriptor.SessionID,
		Status:     models.AttendanceStatusPresent,
		RecordedAt: now,
	}

	stored, err := s.repo.Insert(ctx, record)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, fmt.Sprintf("stats:course:%s*", course.ID)); err != nil {
			s.logger.Warn("failed to invalidate stats cache", zap.String("course_id", course.ID), zap.Error(err))
		}
	}

	return stored, nil
}
