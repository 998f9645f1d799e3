package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestProfileRepositoryAddCourse(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	mock.ExpectExec("INSERT INTO student_courses").
		WithArgs("stu-1", "course-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.AddCourse(context.Background(), "stu-1", "course-1"))

	// a second add hits the conflict clause and affects no rows
	mock.ExpectExec("INSERT INTO student_courses").
		WithArgs("stu-1", "course-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.AddCourse(context.Background(), "stu-1", "course-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepositoryRemoveCourse(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM student_courses WHERE student_id = $1 AND course_id = $2")).
		WithArgs("stu-1", "course-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RemoveCourse(context.Background(), "stu-1", "course-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepositoryListCourses(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT course_id FROM student_courses WHERE student_id = $1")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"course_id"}).AddRow("course-1").AddRow("course-2"))

	courses, err := repo.ListCourses(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Equal(t, []string{"course-1", "course-2"}, courses)
	require.NoError(t, mock.ExpectationsWereMet())
}
