package database

import (
	"context"
	"errors"
)

// ErrAttendanceExists is returned by InsertAttendance when the identity
// already has a record for that day (unique constraint on student_id, day).
var ErrAttendanceExists = errors.New("attendance already recorded for this day")

// GalleryReader provides read-only access to enrolled identities
type GalleryReader interface {
	// ListIdentities returns every identity in gallery order (created_at, id
	// ascending). Photo is not populated; use IdentityPhoto.
	ListIdentities(ctx context.Context) ([]EnrolledIdentity, error)
	// IdentityPhoto returns the reference photo, or nil if the identity has none
	IdentityPhoto(ctx context.Context, id string) ([]byte, error)
	// CountIdentities returns the number of enrolled identities
	CountIdentities(ctx context.Context) (int, error)
}

// GalleryWriter adds identities to the gallery. There is no update or delete.
type GalleryWriter interface {
	GalleryReader

	// InsertIdentity stores a new identity. ID and CreatedAt must be set.
	InsertIdentity(ctx context.Context, identity *EnrolledIdentity) error
}

// AttendanceStore persists daily attendance records
type AttendanceStore interface {
	// HasAttendance checks if a record exists for the identity on the given day
	HasAttendance(ctx context.Context, studentID, day string) (bool, error)
	// InsertAttendance stores a record and sets its ID. Returns
	// ErrAttendanceExists on a (student_id, day) conflict.
	InsertAttendance(ctx context.Context, record *AttendanceRecord) error
	// ListAttendance returns the day's records ordered by timestamp
	ListAttendance(ctx context.Context, day string) ([]AttendanceEntry, error)
}

// SimilarityFinder searches the gallery by embedding distance. The
// recognition loop does not use it; it serves duplicate-enrolment reports.
type SimilarityFinder interface {
	// FindSimilarIdentities returns up to limit identities closer than
	// maxDistance, nearest first
	FindSimilarIdentities(ctx context.Context, embedding []float32, limit int, maxDistance float64) ([]SimilarIdentity, error)
}
