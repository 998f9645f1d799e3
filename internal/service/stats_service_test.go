package service

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Amiineben/StudyWave-attendence/internal/models"
	appErrors "github.com/Amiineben/StudyWave-attendence/pkg/errors"
	"github.com/Amiineben/StudyWave-attendence/pkg/storage"
)

type mockStatsReader struct {
	totalSessions int
	counts        []models.StudentAttendanceCount
}

func (m *mockStatsReader) CountDistinctDates(ctx context.Context, courseID string) (int, error) {
	return m.totalSessions, nil
}

func (m *mockStatsReader) CountByEnrolledStudent(ctx context.Context, courseID string) ([]models.StudentAttendanceCount, error) {
	return m.counts, nil
}

func newStatsService(t *testing.T, reader *mockStatsReader) *StatsService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	return NewStatsService(&mockCourseReader{course: publishedCourse()}, reader, nil, store, signer, zap.NewNop())
}

func TestCourseStatsComputesRates(t *testing.T) {
	reader := &mockStatsReader{
		totalSessions: 10,
		counts: []models.StudentAttendanceCount{
			{StudentID: "stu-1", StudentName: "Amel B", Attended: 10},
			{StudentID: "stu-2", StudentName: "Karim Z", Attended: 5},
			{StudentID: "stu-3", StudentName: "Lina T", Attended: 0},
		},
	}
	svc := newStatsService(t, reader)

	stats, err := svc.CourseStats(context.Background(), "course-1", "inst-1")
	require.NoError(t, err)
	require.Equal(t, 10, stats.TotalSessions)
	require.Len(t, stats.Students, 3)
	require.InDelta(t, 1.0, stats.Students[0].Rate, 1e-9)
	require.InDelta(t, 0.5, stats.Students[1].Rate, 1e-9)
	require.InDelta(t, 0.0, stats.Students[2].Rate, 1e-9)
	require.InDelta(t, 0.5, stats.AverageRate, 1e-9)
}

func TestCourseStatsZeroSessions(t *testing.T) {
	reader := &mockStatsReader{
		totalSessions: 0,
		counts: []models.StudentAttendanceCount{
			{StudentID: "stu-1", StudentName: "Amel B", Attended: 0},
		},
	}
	svc := newStatsService(t, reader)

	stats, err := svc.CourseStats(context.Background(), "course-1", "inst-1")
	require.NoError(t, err)
	require.Equal(t, 0, stats.TotalSessions)
	require.InDelta(t, 0.0, stats.Students[0].Rate, 1e-9)
	require.InDelta(t, 0.0, stats.AverageRate, 1e-9)
}

func TestCourseStatsNotOwner(t *testing.T) {
	svc := newStatsService(t, &mockStatsReader{})

	_, err := svc.CourseStats(context.Background(), "course-1", "inst-9")
	require.ErrorIs(t, err, appErrors.ErrNotOwner)
}

func TestExportCSVRoundtrip(t *testing.T) {
	reader := &mockStatsReader{
		totalSessions: 4,
		counts: []models.StudentAttendanceCount{
			{StudentID: "stu-1", StudentName: "Amel B", Attended: 3},
		},
	}
	svc := newStatsService(t, reader)

	result, err := svc.Export(context.Background(), "course-1", "inst-1", "csv")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(result.FileName, ".csv"))
	require.NotEmpty(t, result.Token)

	path, err := svc.Open(result.Token)
	require.NoError(t, err)

	payload, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(payload), "Amel B")
	require.Contains(t, string(payload), "0.75")
}

func TestExportPDFProducesFile(t *testing.T) {
	reader := &mockStatsReader{
		totalSessions: 2,
		counts: []models.StudentAttendanceCount{
			{StudentID: "stu-1", StudentName: "Amel B", Attended: 1},
		},
	}
	svc := newStatsService(t, reader)

	result, err := svc.Export(context.Background(), "course-1", "inst-1", "pdf")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(result.FileName, ".pdf"))

	path, err := svc.Open(result.Token)
	require.NoError(t, err)

	payload, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	svc := newStatsService(t, &mockStatsReader{})

	_, err := svc.Export(context.Background(), "course-1", "inst-1", "xlsx")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestOpenRejectsTamperedToken(t *testing.T) {
	reader := &mockStatsReader{totalSessions: 1, counts: []models.StudentAttendanceCount{{StudentID: "stu-1", StudentName: "Amel B", Attended: 1}}}
	svc := newStatsService(t, reader)

	result, err := svc.Export(context.Background(), "course-1", "inst-1", "csv")
	require.NoError(t, err)

	tampered := result.Token[:len(result.Token)-2] + "zz"
	_, err = svc.Open(tampered)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}
