package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Amiineben/StudyWave-attendence/internal/models"
	appErrors "github.com/Amiineben/StudyWave-attendence/pkg/errors"
)

type mockCourseRepo struct {
	courses   map[string]*models.Course
	published map[string]bool
}

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{courses: make(map[string]*models.Course), published: make(map[string]bool)}
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	course, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return course, nil
}

func (m *mockCourseRepo) FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	course, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.CourseDetail{Course: *course}, nil
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = "course-gen"
	}
	m.courses[course.ID] = course
	return nil
}

func (m *mockCourseRepo) SetPublished(ctx context.Context, id string, published bool) error {
	m.published[id] = published
	if course, ok := m.courses[id]; ok {
		course.Published = published
	}
	return nil
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	var out []models.CourseDetail
	for _, c := range m.courses {
		out = append(out, models.CourseDetail{Course: *c})
	}
	return out, len(out), nil
}

func TestCreateCourseStartsUnpublished(t *testing.T) {
	repo := newMockCourseRepo()
	svc := NewCourseService(repo, nil, zap.NewNop())

	detail, err := svc.Create(context.Background(), "inst-1", CreateCourseRequest{Code: "CS101", Title: "Intro to CS", Capacity: 30})
	require.NoError(t, err)
	require.Equal(t, "inst-1", detail.InstructorID)
	require.False(t, detail.Published)
}

func TestCreateCourseRejectsZeroCapacity(t *testing.T) {
	svc := NewCourseService(newMockCourseRepo(), nil, zap.NewNop())

	_, err := svc.Create(context.Background(), "inst-1", CreateCourseRequest{Code: "CS101", Title: "Intro to CS", Capacity: 0})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestPublishCourseOwnerOnly(t *testing.T) {
	repo := newMockCourseRepo()
	repo.courses["course-1"] = &models.Course{ID: "course-1", Code: "CS101", InstructorID: "inst-1"}
	svc := NewCourseService(repo, nil, zap.NewNop())

	_, err := svc.Publish(context.Background(), "course-1", "inst-2")
	require.ErrorIs(t, err, appErrors.ErrNotOwner)

	detail, err := svc.Publish(context.Background(), "course-1", "inst-1")
	require.NoError(t, err)
	require.True(t, detail.Published)
}

func TestGetCourseNotFound(t *testing.T) {
	svc := NewCourseService(newMockCourseRepo(), nil, zap.NewNop())

	_, err := svc.Get(context.Background(), "missing")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
