package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/Amiineben/StudyWave-attendence/internal/models"
	appErrors "github.com/Amiineben/StudyWave-attendence/pkg/errors"
)

func newEnrollmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryEnrollCreatesRow(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity, published FROM courses WHERE id = $1 FOR UPDATE")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity", "published"}).AddRow(30, true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_id, student_id, status, enrolled_at, dropped_at FROM enrollments WHERE course_id = $1 AND student_id = $2")).
		WithArgs("course-1", "stu-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND status = 'enrolled'")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO enrollments")).
		WithArgs(sqlmock.AnyArg(), "course-1", "stu-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "student_id", "status", "enrolled_at", "dropped_at"}).
			AddRow("enr-1", "course-1", "stu-1", models.EnrollmentStatusEnrolled, time.Now(), nil))
	mock.ExpectCommit()

	enrollment, err := repo.Enroll(context.Background(), "course-1", "stu-1")
	require.NoError(t, err)
	require.Equal(t, models.EnrollmentStatusEnrolled, enrollment.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryEnrollCapacityExceededRollsBack(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity, published FROM courses WHERE id = $1 FOR UPDATE")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity", "published"}).AddRow(2, true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_id, student_id, status, enrolled_at, dropped_at FROM enrollments WHERE course_id = $1 AND student_id = $2")).
		WithArgs("course-1", "stu-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND status = 'enrolled'")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	_, err := repo.Enroll(context.Background(), "course-1", "stu-1")
	require.ErrorIs(t, err, appErrors.ErrCapacityExceeded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryEnrollReactivatesDroppedRow(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity, published FROM courses WHERE id = $1 FOR UPDATE")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity", "published"}).AddRow(30, true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_id, student_id, status, enrolled_at, dropped_at FROM enrollments WHERE course_id = $1 AND student_id = $2")).
		WithArgs("course-1", "stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "student_id", "status", "enrolled_at", "dropped_at"}).
			AddRow("enr-1", "course-1", "stu-1", models.EnrollmentStatusDropped, time.Now().Add(-time.Hour), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND status = 'enrolled'")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE enrollments SET status = 'enrolled', enrolled_at = $2, dropped_at = NULL WHERE id = $1")).
		WithArgs("enr-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "student_id", "status", "enrolled_at", "dropped_at"}).
			AddRow("enr-1", "course-1", "stu-1", models.EnrollmentStatusEnrolled, time.Now(), nil))
	mock.ExpectCommit()

	enrollment, err := repo.Enroll(context.Background(), "course-1", "stu-1")
	require.NoError(t, err)
	require.Equal(t, "enr-1", enrollment.ID)
	require.Equal(t, models.EnrollmentStatusEnrolled, enrollment.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryEnrollAlreadyEnrolled(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity, published FROM courses WHERE id = $1 FOR UPDATE")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity", "published"}).AddRow(30, true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_id, student_id, status, enrolled_at, dropped_at FROM enrollments WHERE course_id = $1 AND student_id = $2")).
		WithArgs("course-1", "stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "student_id", "status", "enrolled_at", "dropped_at"}).
			AddRow("enr-1", "course-1", "stu-1", models.EnrollmentStatusEnrolled, time.Now(), nil))
	mock.ExpectRollback()

	_, err := repo.Enroll(context.Background(), "course-1", "stu-1")
	require.ErrorIs(t, err, appErrors.ErrAlreadyEnrolled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryEnrollUnpublishedCourse(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity, published FROM courses WHERE id = $1 FOR UPDATE")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity", "published"}).AddRow(30, false))
	mock.ExpectRollback()

	_, err := repo.Enroll(context.Background(), "course-1", "stu-1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrCourseUnavailable.Code, appErr.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryDrop(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE enrollments SET status = 'dropped', dropped_at = $3")).
		WithArgs("course-1", "stu-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "student_id", "status", "enrolled_at", "dropped_at"}).
			AddRow("enr-1", "course-1", "stu-1", models.EnrollmentStatusDropped, time.Now().Add(-time.Hour), time.Now()))

	enrollment, err := repo.Drop(context.Background(), "course-1", "stu-1")
	require.NoError(t, err)
	require.Equal(t, models.EnrollmentStatusDropped, enrollment.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryDropNotEnrolled(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE enrollments SET status = 'dropped', dropped_at = $3")).
		WithArgs("course-1", "stu-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "student_id", "status", "enrolled_at", "dropped_at"}))

	_, err := repo.Drop(context.Background(), "course-1", "stu-1")
	require.ErrorIs(t, err, appErrors.ErrNotEnrolled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryIsEnrolled(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE course_id = $1 AND student_id = $2 AND status = 'enrolled' LIMIT 1")).
		WithArgs("course-1", "stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	enrolled, err := repo.IsEnrolled(context.Background(), "course-1", "stu-1")
	require.NoError(t, err)
	require.True(t, enrolled)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE course_id = $1 AND student_id = $2 AND status = 'enrolled' LIMIT 1")).
		WithArgs("course-1", "stu-2").
		WillReturnError(sql.ErrNoRows)

	enrolled, err = repo.IsEnrolled(context.Background(), "course-1", "stu-2")
	require.NoError(t, err)
	require.False(t, enrolled)
	require.NoError(t, mock.ExpectationsWereMet())
}
