package recognition

import (
	"image"
	"time"

	"github.com/kozaktomas/attendance-kiosk/internal/database"
)

// Status is the coarse display status.
type Status string

const (
	StatusIdle          Status = "idle"
	StatusMatched       Status = "matched"
	StatusNotRecognized Status = "not_recognized"
	StatusError         Status = "error"
)

// Profile holds the public fields of a matched identity.
type Profile struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Course    string `json:"course"`
	Section   string `json:"section"`
}

// ProfileOf copies the public fields of an identity.
func ProfileOf(id *database.EnrolledIdentity) *Profile {
	return &Profile{
		ID:        id.ID,
		FirstName: id.FirstName,
		LastName:  id.LastName,
		Course:    id.Course,
		Section:   id.Section,
	}
}

// DisplayState is what the kiosk screen renders next to the feed.
type DisplayState struct {
	Seq              uint64    `json:"seq"`
	Status           Status    `json:"status"`
	Message          string    `json:"message"`
	Profile          *Profile  `json:"profile,omitempty"`
	Attendance       string    `json:"attendance,omitempty"` // logged_new, already_logged, failed
	AttendanceError  string    `json:"attendance_error,omitempty"`
	RegistrationOpen bool      `json:"registration_open"`
	Label            string    `json:"label,omitempty"`
	HasPhoto         bool      `json:"has_photo"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Frame is one published output of the session: the annotated image, the
// matched identity's reference photo and the display state. Seq increases
// within one Session; a new session starts again from 1.
type Frame struct {
	Session string
	Seq     uint64
	Image   image.Image // nil when no frame has been captured
	Photo   []byte      // JPEG, nil unless a matched identity has one
	State   DisplayState
}

// Sink receives session output. Publish must not block for long; it runs on
// the loop goroutine.
type Sink interface {
	Publish(frame Frame)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Frame)

func (f SinkFunc) Publish(frame Frame) { f(frame) }

type discardSink struct{}

func (discardSink) Publish(Frame) {}
