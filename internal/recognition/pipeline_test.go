package recognition

import (
	"image"
	"testing"

	"github.com/kozaktomas/attendance-kiosk/internal/annotate"
	"github.com/kozaktomas/attendance-kiosk/internal/constants"
	"github.com/kozaktomas/attendance-kiosk/internal/embedding"
)

func TestSelectPrimary(t *testing.T) {
	if _, ok := SelectPrimary(nil); ok {
		t.Error("expected no face for empty input")
	}

	faces := []embedding.Face{
		{Box: image.Rect(0, 0, 10, 10), Embedding: unitVec(0)},
		{Box: image.Rect(20, 0, 90, 90), Embedding: unitVec(1)},
	}
	f, ok := SelectPrimary(faces)
	if !ok || f.Embedding[0] != 1 {
		t.Errorf("expected the first reported face, got %+v", f)
	}
}

func TestDecide(t *testing.T) {
	t.Run("unmatched", func(t *testing.T) {
		s := Decide(Match{}, false)
		if s.Status != StatusNotRecognized || !s.RegistrationOpen {
			t.Errorf("unexpected state %+v", s)
		}
		if s.Label != constants.UnknownLabel || s.Message != constants.MessageNotRecognized {
			t.Errorf("unexpected label/message %q %q", s.Label, s.Message)
		}
		if s.Profile != nil {
			t.Error("expected no profile")
		}
	})

	t.Run("matched", func(t *testing.T) {
		s := Decide(Match{Identity: identity("a", "Ana", "Cruz", unitVec(0))}, true)
		if s.Status != StatusMatched || s.RegistrationOpen {
			t.Errorf("unexpected state %+v", s)
		}
		if s.Label != "Ana Cruz" {
			t.Errorf("expected label 'Ana Cruz', got %q", s.Label)
		}
		if s.Profile == nil || s.Profile.ID != "a" || s.Profile.Section != "3A" {
			t.Errorf("unexpected profile %+v", s.Profile)
		}
	})
}

func TestApplyOutcome_DistinctStates(t *testing.T) {
	tests := []struct {
		outcome    Outcome
		attendance string
		message    string
	}{
		{Outcome{Kind: LoggedNew}, "logged_new", constants.MessageAttendanceNew},
		{Outcome{Kind: AlreadyLogged}, "already_logged", constants.MessageAttendanceDup},
		{Outcome{Kind: Failed, Reason: "store timeout"}, "failed", "Attendance error: store timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.attendance, func(t *testing.T) {
			s := Decide(Match{Identity: identity("a", "Ana", "Cruz", unitVec(0))}, true)
			ApplyOutcome(&s, tt.outcome)
			if s.Attendance != tt.attendance || s.Message != tt.message {
				t.Errorf("got attendance=%q message=%q", s.Attendance, s.Message)
			}
			if tt.outcome.Kind == Failed && s.AttendanceError != "store timeout" {
				t.Errorf("expected attendance error reason, got %q", s.AttendanceError)
			}
		})
	}
}

func TestAnnotateFace_ReturnsCopy(t *testing.T) {
	frame := createTestImage(100, 100, image.White.C)
	out := AnnotateFace(frame, face(unitVec(0)), "Unknown", annotate.DefaultOptions())
	if out == image.Image(frame) {
		t.Error("expected a new image")
	}
	if out.Bounds() != frame.Bounds() {
		t.Errorf("bounds changed: %v", out.Bounds())
	}
}
