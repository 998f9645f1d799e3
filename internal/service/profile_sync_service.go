package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Amiineben/StudyWave-attendence/internal/models"
	"github.com/Amiineben/StudyWave-attendence/pkg/config"
	"github.com/Amiineben/StudyWave-attendence/pkg/jobs"
)

type profileRepository interface {
	AddCourse(ctx context.Context, studentID, courseID string) error
	RemoveCourse(ctx context.Context, studentID, courseID string) error
	ListCourses(ctx context.Context, studentID string) ([]string, error)
}

type enrollmentReader interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error)
}

const (
	profileSyncAdd    = "profile.add_course"
	profileSyncRemove = "profile.remove_course"
)

type profileSyncPayload struct {
	StudentID string
	CourseID  string
}

// ProfileSyncService mirrors enrollment changes onto the student profile's
// enrolled-course list. The mirror write happens outside the registry
// transaction; jobs are idempotent and retried a bounded number of times.
type ProfileSyncService struct {
	repo        profileRepository
	enrollments enrollmentReader
	queue       *jobs.Queue
	logger      *zap.Logger
}

// NewProfileSyncService constructs the service and its worker queue.
func NewProfileSyncService(repo profileRepository, enrollments enrollmentReader, cfg config.ProfileSyncConfig, logger *zap.Logger) *ProfileSyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ProfileSyncService{repo: repo, enrollments: enrollments, logger: logger}
	s.queue = jobs.NewQueue("profile-sync", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the background workers.
func (s *ProfileSyncService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *ProfileSyncService) Stop() {
	s.queue.Stop()
}

// EnqueueAdd schedules mirroring of a new enrollment.
func (s *ProfileSyncService) EnqueueAdd(studentID, courseID string) error {
	return s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    profileSyncAdd,
		Payload: profileSyncPayload{StudentID: studentID, CourseID: courseID},
	})
}

// EnqueueRemove schedules removal of a dropped enrollment from the mirror.
func (s *ProfileSyncService) EnqueueRemove(studentID, courseID string) error {
	return s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    profileSyncRemove,
		Payload: profileSyncPayload{StudentID: studentID, CourseID: courseID},
	})
}

// Reconcile aligns the profile mirror with the registry's enrollment rows for
// one student. Safe to run repeatedly.
func (s *ProfileSyncService) Reconcile(ctx context.Context, studentID string) error {
	enrollments, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return fmt.Errorf("load enrollments: %w", err)
	}
	enrolled := make(map[string]bool, len(enrollments))
	for _, e := range enrollments {
		if e.Status == models.EnrollmentStatusEnrolled {
			enrolled[e.CourseID] = true
		}
	}

	mirrored, err := s.repo.ListCourses(ctx, studentID)
	if err != nil {
		return fmt.Errorf("load profile mirror: %w", err)
	}
	mirrorSet := make(map[string]bool, len(mirrored))
	for _, courseID := range mirrored {
		mirrorSet[courseID] = true
	}

	for courseID := range enrolled {
		if !mirrorSet[courseID] {
			if err := s.repo.AddCourse(ctx, studentID, courseID); err != nil {
				return err
			}
		}
	}
	for courseID := range mirrorSet {
		if !enrolled[courseID] {
			if err := s.repo.RemoveCourse(ctx, studentID, courseID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *ProfileSyncService) handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(profileSyncPayload)
	if !ok {
		s.logger.Error("unexpected profile sync payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	switch job.Type {
	case profileSyncAdd:
		return s.repo.AddCourse(ctx, payload.StudentID, payload.CourseID)
	case profileSyncRemove:
		return s.repo.RemoveCourse(ctx, payload.StudentID, payload.CourseID)
	default:
		s.logger.Error("unknown profile sync job type", zap.String("type", job.Type))
		return nil
	}
}
