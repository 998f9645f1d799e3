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

// EnrollmentRepository handles persistence of enrollments. It is the only
// component allowed to mutate enrollment rows.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

type courseSeat struct {
	Capacity  int  `db:"capacity"`
	Published bool `db:"published"`
}

// Enroll registers or reactivates an enrollment inside a single transaction.
// The course row is locked for the duration, so the capacity check and the
// insert/reactivate form one atomic step: under concurrent callers exactly
// capacity rows can hold status 'enrolled'.
func (r *EnrollmentRepository) Enroll(ctx context.Context, courseID, studentID string) (*models.Enrollment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin enroll: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var seat courseSeat
	if err := tx.GetContext(ctx, &seat, `SELECT capacity, published FROM courses WHERE id = $1 FOR UPDATE`, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrCourseUnavailable, "course not found")
		}
		return nil, fmt.Errorf("lock course: %w", err)
	}
	if !seat.Published {
		return nil, appErrors.Clone(appErrors.ErrCourseUnavailable, "course not published")
	}

	var existing models.Enrollment
	found := true
	err = tx.GetContext(ctx, &existing,
		`SELECT id, course_id, student_id, status, enrolled_at, dropped_at FROM enrollments WHERE course_id = $1 AND student_id = $2`,
		courseID, studentID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find enrollment: %w", err)
		}
		found = false
	}
	if found {
		switch existing.Status {
		case models.EnrollmentStatusEnrolled:
			return nil, appErrors.ErrAlreadyEnrolled
		case models.EnrollmentStatusCompleted:
			return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment already completed")
		}
	}

	var enrolled int
	if err := tx.GetContext(ctx, &enrolled,
		`SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND status = 'enrolled'`, courseID); err != nil {
		return nil, fmt.Errorf("count enrolled: %w", err)
	}
	if enrolled >= seat.Capacity {
		return nil, appErrors.ErrCapacityExceeded
	}

	now := time.Now().UTC()
	var stored models.Enrollment
	if found {
		err = tx.GetContext(ctx, &stored,
			`UPDATE enrollments SET status = 'enrolled', enrolled_at = $2, dropped_at = NULL WHERE id = $1
            RETURNING id, course_id, student_id, status, enrolled_at, dropped_at`,
			existing.ID, now)
		if err != nil {
			return nil, fmt.Errorf("reactivate enrollment: %w", err)
		}
	} else {
		err = tx.GetContext(ctx, &stored,
			`INSERT INTO enrollments (id, course_id, student_id, status, enrolled_at)
            VALUES ($1, $2, $3, 'enrolled', $4)
            RETURNING id, course_id, student_id, status, enrolled_at, dropped_at`,
			uuid.NewString(), courseID, studentID, now)
		if err != nil {
			return nil, fmt.Errorf("create enrollment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit enroll: %w", err)
	}
	committed = true
	return &stored, nil
}

// Drop marks an enrolled record as dropped. The status predicate makes the
// update conditional, so a concurrent or repeated drop observes fresh state
// and reports NotEnrolled.
func (r *EnrollmentRepository) Drop(ctx context.Context, courseID, studentID string) (*models.Enrollment, error) {
	const query = `UPDATE enrollments SET status = 'dropped', dropped_at = $3
        WHERE course_id = $1 AND student_id = $2 AND status = 'enrolled'
        RETURNING id, course_id, student_id, status, enrolled_at, dropped_at`
	var stored models.Enrollment
	if err := r.db.GetContext(ctx, &stored, query, courseID, studentID, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotEnrolled
		}
		return nil, fmt.Errorf("drop enrollment: %w", err)
	}
	return &stored, nil
}

// FindByCourseAndStudent returns the single enrollment row for the pair.
func (r *EnrollmentRepository) FindByCourseAndStudent(ctx context.Context, courseID, studentID string) (*models.Enrollment, error) {
	const query = `SELECT id, course_id, student_id, status, enrolled_at, dropped_at FROM enrollments WHERE course_id = $1 AND student_id = $2`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, courseID, studentID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// IsEnrolled reports whether the student currently holds an enrolled record.
func (r *EnrollmentRepository) IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE course_id = $1 AND student_id = $2 AND status = 'enrolled' LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, courseID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// ListActiveByCourse returns the enrolled roster for a course.
func (r *EnrollmentRepository) ListActiveByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.course_id, e.student_id, e.status, e.enrolled_at, e.dropped_at,
        u.full_name AS student_name, c.code AS course_code, c.title AS course_title
        FROM enrollments e
        JOIN users u ON u.id = e.student_id
        JOIN courses c ON c.id = e.course_id
        WHERE e.course_id = $1 AND e.status = 'enrolled'
        ORDER BY e.enrolled_at ASC`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, courseID); err != nil {
		return nil, fmt.Errorf("list course roster: %w", err)
	}
	return enrollments, nil
}

// ListByStudent returns all enrollment rows for a student.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	const query = `SELECT id, course_id, student_id, status, enrolled_at, dropped_at FROM enrollments WHERE student_id = $1 ORDER BY enrolled_at DESC`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}
