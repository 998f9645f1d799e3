package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Amiineben/StudyWave-attendence/internal/models"
	appErrors "github.com/Amiineben/StudyWave-attendence/pkg/errors"
)

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// SessionService issues short-lived attendance session descriptors. Nothing is
// persisted; the descriptor is self-contained and verified at recording time,
// which also means it cannot be revoked before its window elapses.
type SessionService struct {
	courses courseReader
	window  time.Duration
	logger  *zap.Logger
}

// NewSessionService constructs SessionService.
func NewSessionService(courses courseReader, window time.Duration, logger *zap.Logger) *SessionService {
	if window <= 0 {
		window = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{courses: courses, window: window, logger: logger}
}

// Window exposes the configured validity window.
func (s *SessionService) Window() time.Duration {
	return s.window
}

// IssueSession produces a fresh descriptor for the course. Only the owning
// instructor may issue.
func (s *SessionService) IssueSession(ctx context.Context, courseID, instructorID string) (*models.IssuedSession, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.InstructorID != instructorID {
		return nil, appErrors.ErrNotOwner
	}

	sessionID, err := generateSessionID()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate session id")
	}

	issuedAt := time.Now().UTC()
	descriptor := models.SessionDescriptor{
		Type:       models.SessionDescriptorType,
		CourseID:   course.ID,
		CourseCode: course.Code,
		SessionID:  sessionID,
		IssuerID:   course.InstructorID,
		IssuedAt:   issuedAt,
	}

	s.logger.Info("session issued",
		zap.String("course_id", course.ID),
		zap.String("session_id", sessionID),
		zap.Time("expires_at", issuedAt.Add(s.window)))

	return &models.IssuedSession{
		Descriptor: descriptor,
		ExpiresAt:  issuedAt.Add(s.window),
	}, nil
}

// generateSessionID returns 128 bits of entropy, url-safe.
func generateSessionID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
