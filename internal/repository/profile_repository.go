package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// ProfileRepository maintains the student profile's enrolled-course mirror.
// The mirror is reconciled outside the enrollment transaction, so both writes
// are idempotent and safe to retry.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs the repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// AddCourse records a course on the student's profile. Repeats are no-ops.
func (r *ProfileRepository) AddCourse(ctx context.Context, studentID, courseID string) error {
	const query = `INSERT INTO student_courses (student_id, course_id, added_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (student_id, course_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, studentID, courseID, time.Now().UTC()); err != nil {
		return fmt.Errorf("add profile course: %w", err)
	}
	return nil
}

// RemoveCourse deletes the course from the student's profile. Repeats are no-ops.
func (r *ProfileRepository) RemoveCourse(ctx context.Context, studentID, courseID string) error {
	const query = `DELETE FROM student_courses WHERE student_id = $1 AND course_id = $2`
	if _, err := r.db.ExecContext(ctx, query, studentID, courseID); err != nil {
		return fmt.Errorf("remove profile course: %w", err)
	}
	return nil
}

// ListCourses returns the course IDs currently mirrored on the profile.
func (r *ProfileRepository) ListCourses(ctx context.Context, studentID string) ([]string, error) {
	const query = `SELECT course_id FROM student_courses WHERE student_id = $1 ORDER BY added_at ASC`
	var courseIDs []string
	if err := r.db.SelectContext(ctx, &courseIDs, query, studentID); err != nil {
		return nil, fmt.Errorf("list profile courses: %w", err)
	}
	return courseIDs, nil
}
