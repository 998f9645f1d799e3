package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

// Attendance facts are insert-once; only presence is recorded.
const AttendanceStatusPresent AttendanceStatus = "present"

// AttendanceRecord is an append-only attendance fact keyed by
// (course_id, student_id, attendance_date).
type AttendanceRecord struct {
	ID         string           `db:"id" json:"id"`
	CourseID   string           `db:"course_id" json:"course_id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	Date       time.Time        `db:"attendance_date" json:"attendance_date"`
	SessionID  string           `db:"session_id" json:"session_id"`
	Status     AttendanceStatus `db:"status" json:"status"`
	RecordedAt time.Time        `db:"recorded_at" json:"recorded_at"`
}

// StudentAttendanceCount aggregates attended session-days per student.
type StudentAttendanceCount struct {
	StudentID   string `db:"student_id" json:"student_id"`
	StudentName string `db:"student_name" json:"student_name"`
	Attended    int    `db:"attended" json:"attended"`
}

// StudentAttendanceStat is the per-student row in course statistics.
type StudentAttendanceStat struct {
	StudentID   string  `json:"student_id"`
	StudentName string  `json:"student_name"`
	Attended    int     `json:"attended"`
	Rate        float64 `json:"rate"`
}

// CourseAttendanceStats summarises attendance for a course.
type CourseAttendanceStats struct {
	CourseID      string                  `json:"course_id"`
	CourseCode    string                  `json:"course_code"`
	TotalSessions int                     `json:"total_sessions"`
	Students      []StudentAttendanceStat `json:"students"`
	AverageRate   float64                 `json:"average_rate"`
	GeneratedAt   time.Time               `json:"generated_at"`
}
