package recognition

import (
	"fmt"
	"image"

	"github.com/kozaktomas/attendance-kiosk/internal/annotate"
	"github.com/kozaktomas/attendance-kiosk/internal/constants"
	"github.com/kozaktomas/attendance-kiosk/internal/embedding"
)

// The stages below are pure; Session.tick composes them with the extractor,
// gallery and ledger calls in between.

// SelectPrimary returns the first face the extractor reported. Multi-face
// frames are not disambiguated further.
func SelectPrimary(faces []embedding.Face) (embedding.Face, bool) {
	if len(faces) == 0 {
		return embedding.Face{}, false
	}
	return faces[0], true
}

// Decide turns a match result into the display state for the frame. The
// attendance outcome is applied separately with ApplyOutcome.
func Decide(m Match, found bool) DisplayState {
	if !found {
		return DisplayState{
			Status:           StatusNotRecognized,
			Message:          constants.MessageNotRecognized,
			RegistrationOpen: true,
			Label:            constants.UnknownLabel,
		}
	}
	return DisplayState{
		Status:  StatusMatched,
		Profile: ProfileOf(&m.Identity),
		Label:   m.Identity.FullName(),
	}
}

// ApplyOutcome reflects an attendance outcome in a matched state.
func ApplyOutcome(state *DisplayState, o Outcome) {
	state.Attendance = o.Kind.String()
	switch o.Kind {
	case LoggedNew:
		state.Message = constants.MessageAttendanceNew
	case AlreadyLogged:
		state.Message = constants.MessageAttendanceDup
	default:
		state.Message = fmt.Sprintf(constants.MessageAttendanceError, o.Reason)
		state.AttendanceError = o.Reason
	}
}

// IdleState is shown when no face is in view.
func IdleState() DisplayState {
	return DisplayState{Status: StatusIdle, Message: constants.MessageSystemActive}
}

// ErrorState is shown when a collaborator failed during a tick.
func ErrorState(message string) DisplayState {
	return DisplayState{Status: StatusError, Message: message}
}

// AnnotateFace draws the face box and label onto a copy of frame.
func AnnotateFace(frame image.Image, face embedding.Face, label string, opts annotate.Options) image.Image {
	return annotate.Annotate(frame, face.Box, label, opts)
}
