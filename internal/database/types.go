package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/kozaktomas/attendance-kiosk/internal/embedding"
)

// EnrolledIdentity is a registered person in the gallery. Rows are created by
// registration and never updated or deleted by the kiosk.
type EnrolledIdentity struct {
	ID            string // UUID assigned at registration
	FirstName     string
	LastName      string
	Course        string
	Section       string
	EmbeddingBlob []byte // little-endian float32, see embedding.EncodeBlob
	Photo         []byte // JPEG reference photo, nil when none was captured
	CreatedAt     time.Time
}

// FullName returns "First Last".
func (i *EnrolledIdentity) FullName() string {
	return strings.TrimSpace(i.FirstName + " " + i.LastName)
}

// Embedding decodes the stored embedding. dim <= 0 skips the dimension check.
func (i *EnrolledIdentity) Embedding(dim int) ([]float32, error) {
	v, err := embedding.DecodeBlob(i.EmbeddingBlob, dim)
	if err != nil {
		return nil, fmt.Errorf("identity %s: %w", i.ID, err)
	}
	return v, nil
}

// AttendanceRecord is a single daily check-in.
type AttendanceRecord struct {
	ID        int64
	StudentID string
	Day       string // YYYY-MM-DD in the kiosk's time zone
	Timestamp time.Time
}

// AttendanceEntry is an attendance record joined with the identity's profile,
// used for reports.
type AttendanceEntry struct {
	AttendanceRecord
	FirstName string
	LastName  string
	Course    string
	Section   string
}

// SimilarIdentity is an identity returned by a similarity search together
// with its cosine distance to the probe.
type SimilarIdentity struct {
	Identity EnrolledIdentity
	Distance float64
}

// DayOf returns the calendar day of t in loc, formatted with DayLayout.
func DayOf(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DayLayout)
}

// ParseDay validates a YYYY-MM-DD day string.
func ParseDay(s string) (string, error) {
	t, err := time.Parse(DayLayout, strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid day %q, expected YYYY-MM-DD", s)
	}
	return t.Format(DayLayout), nil
}
