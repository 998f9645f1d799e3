package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Amiineben/StudyWave-attendence/internal/models"
	appErrors "github.com/Amiineben/StudyWave-attendence/pkg/errors"
	"github.com/Amiineben/StudyWave-attendence/pkg/export"
	"github.com/Amiineben/StudyWave-attendence/pkg/storage"
)

type statsAttendanceReader interface {
	CountDistinctDates(ctx context.Context, courseID string) (int, error)
	CountByEnrolledStudent(ctx context.Context, courseID string) ([]models.StudentAttendanceCount, error)
}

// ExportResult describes a rendered statistics export and its download token.
type ExportResult struct {
	FileName  string    `json:"file_name"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StatsService aggregates attendance facts for a course's owning instructor.
type StatsService struct {
	courses    courseReader
	attendance statsAttendanceReader
	cache      *CacheService
	store      *storage.LocalStorage
	signer     *storage.SignedURLSigner
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	logger     *zap.Logger
}

// NewStatsService constructs StatsService.
func NewStatsService(courses courseReader, attendance statsAttendanceReader, cache *CacheService, store *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{
		courses:    courses,
		attendance: attendance,
		cache:      cache,
		store:      store,
		signer:     signer,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		logger:     logger,
	}
}

// CourseStats returns total session-days, per-student attended counts and
// rates, and the average over the currently enrolled roster. Dropped
// students' historical records stay stored but are not part of the roster.
func (s *StatsService) CourseStats(ctx context.Context, courseID, instructorID string) (*models.CourseAttendanceStats, error) {
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

	cacheKey := fmt.Sprintf("stats:course:%s", courseID)
	if s.cache != nil {
		var cached models.CourseAttendanceStats
		if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
			return &cached, nil
		}
	}

	totalSessions, err := s.attendance.CountDistinctDates(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count sessions")
	}
	counts, err := s.attendance.CountByEnrolledStudent(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate attendance")
	}

	stats := &models.CourseAttendanceStats{
		CourseID:      course.ID,
		CourseCode:    course.Code,
		TotalSessions: totalSessions,
		Students:      make([]models.StudentAttendanceStat, 0, len(counts)),
		GeneratedAt:   time.Now().UTC(),
	}

	var rateSum float64
	for _, c := range counts {
		rate := 0.0
		if totalSessions > 0 {
			rate = roundRate(float64(c.Attended) / float64(totalSessions))
		}
		rateSum += rate
		stats.Students = append(stats.Students, models.StudentAttendanceStat{
			StudentID:   c.StudentID,
			StudentName: c.StudentName,
			Attended:    c.Attended,
			Rate:        rate,
		})
	}
	if len(stats.Students) > 0 {
		stats.AverageRate = roundRate(rateSum / float64(len(stats.Students)))
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, stats, 0); err != nil {
			s.logger.Warn("failed to cache stats", zap.String("course_id", courseID), zap.Error(err))
		}
	}

	return stats, nil
}

// Export renders the statistics as CSV or PDF, stores the file and returns a
// signed download token.
func (s *StatsService) Export(ctx context.Context, courseID, instructorID, format string) (*ExportResult, error) {
	stats, err := s.CourseStats(ctx, courseID, instructorID)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Headers: []string{"Student", "Attended", "Rate"},
		Rows:    make([]map[string]string, 0, len(stats.Students)),
	}
	for _, st := range stats.Students {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":  st.StudentName,
			"Attended": strconv.Itoa(st.Attended),
			"Rate":     fmt.Sprintf("%.2f", st.Rate),
		})
	}

	var (
		payload []byte
		ext     string
	)
	switch format {
	case "csv", "":
		ext = "csv"
		payload, err = s.csv.Render(dataset)
	case "pdf":
		ext = "pdf"
		payload, err = s.pdf.Render(dataset, fmt.Sprintf("Attendance %s", stats.CourseCode))
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	fileName := fmt.Sprintf("attendance-%s-%d.%s", stats.CourseCode, time.Now().UTC().Unix(), ext)
	if _, err := s.store.Save(fileName, payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(uuid.NewString(), fileName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export url")
	}

	return &ExportResult{FileName: fileName, Token: token, ExpiresAt: expiresAt}, nil
}

// Open resolves a signed token to a stored export file.
func (s *StatsService) Open(token string) (string, error) {
	_, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	return s.store.Path(relPath), nil
}

func roundRate(v float64) float64 {
	return math.Round(v*10000) / 10000
}
