package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Amiineben/StudyWave-attendence/internal/models"
	appErrors "github.com/Amiineben/StudyWave-attendence/pkg/errors"
)

// AttendanceRepository owns the append-only attendance facts.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Insert stores a new attendance fact. The composite unique key
// (course_id, student_id, attendance_date) turns a repeated submission into a
// conflict, which surfaces as ErrDuplicateAttendance; the original row is left
// untouched. Insert-if-absent and the uniqueness check are one statement, so
// concurrent submissions for the same key cannot both succeed.
func (r *AttendanceRepository) Insert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Status == "" {
		record.Status = models.AttendanceStatusPresent
	}
	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now().UTC()
	}
	const query = `INSERT INTO attendance_records (id, course_id, student_id, attendance_date, session_id, status, recorded_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (course_id, student_id, attendance_date) DO NOTHING
        RETURNING id, course_id, student_id, attendance_date, session_id, status, recorded_at`
	var stored models.AttendanceRecord
	err := r.db.GetContext(ctx, &stored, query,
		record.ID, record.CourseID, record.StudentID, record.Date, record.SessionID, record.Status, record.RecordedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrDuplicateAttendance
		}
		return nil, fmt.Errorf("insert attendance: %w", err)
	}
	return &stored, nil
}

// CountDistinctDates returns the number of distinct session-days observed for a course.
func (r *AttendanceRepository) CountDistinctDates(ctx context.Context, courseID string) (int, error) {
	const query = `SELECT COUNT(DISTINCT attendance_date) FROM attendance_records WHERE course_id = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, courseID); err != nil {
		return 0, fmt.Errorf("count session days: %w", err)
	}
	return total, nil
}

// CountByEnrolledStudent returns attended session-day counts for the course's
// currently enrolled roster. Records of dropped students remain stored but do
// not appear here.
func (r *AttendanceRepository) CountByEnrolledStudent(ctx context.Context, courseID string) ([]models.StudentAttendanceCount, error) {
	const query = `SELECT e.student_id, u.full_name AS student_name, COUNT(a.id) AS attended
        FROM enrollments e
        JOIN users u ON u.id = e.student_id
        LEFT JOIN attendance_records a ON a.course_id = e.course_id AND a.student_id = e.student_id
        WHERE e.course_id = $1 AND e.status = 'enrolled'
        GROUP BY e.student_id, u.full_name
        ORDER BY u.full_name ASC`
	var counts []models.StudentAttendanceCount
	if err := r.db.SelectContext(ctx, &counts, query, courseID); err != nil {
		return nil, fmt.Errorf("count attendance per student: %w", err)
	}
	return counts, nil
}

// ListByCourseAndDate returns the facts recorded for a course on a given day.
func (r *AttendanceRepository) ListByCourseAndDate(ctx context.Context, courseID string, date time.Time) ([]models.AttendanceRecord, error) {
	const query = `SELECT id, course_id, student_id, attendance_date, session_id, status, recorded_at
        FROM attendance_records WHERE course_id = $1 AND attendance_date = $2 ORDER BY recorded_at ASC`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, courseID, date); err != nil {
		return nil, fmt.Errorf("list attendance by date: %w", err)
	}
	return records, nil
}
