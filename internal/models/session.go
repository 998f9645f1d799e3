package models

import "time"

// SessionDescriptorType tags attendance QR payloads.
const SessionDescriptorType = "course_attendance"

// SessionDescriptor is a self-contained, time-bounded credential identifying a
// course and its issuing instructor. It is never persisted; its validity is a
// pure function of IssuedAt plus the configured window.
type SessionDescriptor struct {
	Type       string    `json:"type" validate:"required"`
	CourseID   string    `json:"courseId" validate:"required"`
	CourseCode string    `json:"courseCode" validate:"required"`
	SessionID  string    `json:"sessionId" validate:"required"`
	IssuerID   string    `json:"issuerId" validate:"required"`
	IssuedAt   time.Time `json:"issuedAt" validate:"required"`
}

// IssuedSession pairs a descriptor with its explicit expiry timestamp.
type IssuedSession struct {
	Descriptor SessionDescriptor `json:"descriptor"`
	ExpiresAt  time.Time         `json:"expires_at"`
}
