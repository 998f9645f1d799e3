package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Amiineben/StudyWave-attendence/internal/models"
	appErrors "github.com/Amiineben/StudyWave-attendence/pkg/errors"
)

// seatMockRepo mimics the storage contract: the capacity check and the write
// are one serialised step, so at most capacity students become enrolled.
type seatMockRepo struct {
	mu       sync.Mutex
	capacity int
	enrolled map[string]bool
	dropErr  error
}

func newSeatMockRepo(capacity int) *seatMockRepo {
	return &seatMockRepo{capacity: capacity, enrolled: make(map[string]bool)}
}

func (m *seatMockRepo) Enroll(ctx context.Context, courseID, studentID string) (*models.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enrolled[studentID] {
		return nil, appErrors.ErrAlreadyEnrolled
	}
	if len(m.enrolled) >= m.capacity {
		return nil, appErrors.ErrCapacityExceeded
	}
	m.enrolled[studentID] = true
	return &models.Enrollment{ID: "enr-" + studentID, CourseID: courseID, StudentID: studentID, Status: models.EnrollmentStatusEnrolled}, nil
}

func (m *seatMockRepo) Drop(ctx context.Context, courseID, studentID string) (*models.Enrollment, error) {
	if m.dropErr != nil {
		return nil, m.dropErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enrolled[studentID] {
		return nil, appErrors.ErrNotEnrolled
	}
	delete(m.enrolled, studentID)
	return &models.Enrollment{ID: "enr-" + studentID, CourseID: courseID, StudentID: studentID, Status: models.EnrollmentStatusDropped}, nil
}

func (m *seatMockRepo) ListActiveByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.EnrollmentDetail, 0, len(m.enrolled))
	for studentID := range m.enrolled {
		out = append(out, models.EnrollmentDetail{Enrollment: models.Enrollment{CourseID: courseID, StudentID: studentID, Status: models.EnrollmentStatusEnrolled}})
	}
	return out, nil
}

func (m *seatMockRepo) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enrolled[studentID] {
		return nil, nil
	}
	return []models.Enrollment{{CourseID: "course-1", StudentID: studentID, Status: models.EnrollmentStatusEnrolled}}, nil
}

type recordingSyncer struct {
	mu      sync.Mutex
	added   []string
	removed []string
}

func (r *recordingSyncer) EnqueueAdd(studentID, courseID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.added = append(r.added, studentID)
	return nil
}

func (r *recordingSyncer) EnqueueRemove(studentID, courseID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, studentID)
	return nil
}

func TestEnrollTriggersProfileMirror(t *testing.T) {
	repo := newSeatMockRepo(5)
	syncer := &recordingSyncer{}
	svc := NewEnrollmentService(repo, syncer, nil, zap.NewNop())

	enrollment, err := svc.Enroll(context.Background(), "course-1", "stu-1")
	require.NoError(t, err)
	require.Equal(t, models.EnrollmentStatusEnrolled, enrollment.Status)
	require.Equal(t, []string{"stu-1"}, syncer.added)
}

func TestEnrollValidatesInput(t *testing.T) {
	svc := NewEnrollmentService(newSeatMockRepo(5), nil, nil, zap.NewNop())

	_, err := svc.Enroll(context.Background(), "", "stu-1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestDropNotEnrolled(t *testing.T) {
	svc := NewEnrollmentService(newSeatMockRepo(5), nil, nil, zap.NewNop())

	_, err := svc.Drop(context.Background(), "course-1", "stu-1")
	require.ErrorIs(t, err, appErrors.ErrNotEnrolled)
}

func TestDropTriggersProfileMirror(t *testing.T) {
	repo := newSeatMockRepo(5)
	syncer := &recordingSyncer{}
	svc := NewEnrollmentService(repo, syncer, nil, zap.NewNop())

	_, err := svc.Enroll(context.Background(), "course-1", "stu-1")
	require.NoError(t, err)

	enrollment, err := svc.Drop(context.Background(), "course-1", "stu-1")
	require.NoError(t, err)
	require.Equal(t, models.EnrollmentStatusDropped, enrollment.Status)
	require.Equal(t, []string{"stu-1"}, syncer.removed)
}

func TestConcurrentEnrollNeverOversubscribes(t *testing.T) {
	const capacity = 10
	const students = 50

	repo := newSeatMockRepo(capacity)
	svc := NewEnrollmentService(repo, nil, nil, zap.NewNop())

	var wg sync.WaitGroup
	results := make(chan error, students)
	for i := 0; i < students; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.Enroll(context.Background(), "course-1", "stu-"+string(rune('A'+n%26))+string(rune('a'+n/26)))
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var successes, capacityErrs int
	for err := range results {
		switch {
		case err == nil:
			successes++
		default:
			var appErr *appErrors.Error
			require.ErrorAs(t, err, &appErr)
			require.Equal(t, appErrors.ErrCapacityExceeded.Code, appErr.Code)
			capacityErrs++
		}
	}
	require.Equal(t, capacity, successes)
	require.Equal(t, students-capacity, capacityErrs)

	roster, err := svc.Roster(context.Background(), "course-1")
	require.NoError(t, err)
	require.Len(t, roster, capacity)
}
