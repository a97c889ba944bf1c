// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Recognition constants
const (
	// DefaultRecognitionThreshold is the minimum cosine similarity for a gallery
	// entry to be accepted as the person in front of the camera
	DefaultRecognitionThreshold = 0.5

	// DefaultFrameRate is the target number of recognition ticks per second
	DefaultFrameRate = 30

	// DefaultStoreTimeout bounds every gallery/attendance query made from a tick
	DefaultStoreTimeout = 2 * time.Second

	// DefaultEmbeddingDim is the face embedding dimension (512 for buffalo_l/ResNet100)
	DefaultEmbeddingDim = 512
)

// Annotation constants
const (
	// LabelBandHeight is the height in pixels of the filled label region under a face box
	LabelBandHeight = 25

	// LabelPadding is the horizontal padding on each side of the label text
	LabelPadding = 5

	// LabelStartScale is the initial scale of the label font
	LabelStartScale = 1.0

	// LabelScaleStep is subtracted from the scale until the label fits
	LabelScaleStep = 0.05

	// DefaultLabelMinScale is the legibility floor for the label font scale
	DefaultLabelMinScale = 0.5

	// BoxStroke is the bounding box line width in pixels
	BoxStroke = 2

	// UnknownLabel is drawn under faces that matched no enrolled identity
	UnknownLabel = "Unknown"
)

// Registration constants
const (
	// ReferencePhotoMaxSide is the maximum width or height of a stored face crop
	ReferencePhotoMaxSide = 256

	// ReferencePhotoQuality is the JPEG quality of stored face crops
	ReferencePhotoQuality = 90

	// FrameJPEGQuality is the JPEG quality of frames sent to the extractor and display
	FrameJPEGQuality = 85
)

// Display messages
const (
	MessageSystemActive    = "System Active"
	MessageNotRecognized   = "Face not recognized. Register below."
	MessageAttendanceNew   = "Attendance marked!"
	MessageAttendanceDup   = "Already marked today."
	MessageNoFaceToEnroll  = "No face detected to register."
	MessageMissingFields   = "Please fill all fields."
	MessageRegistered      = "%s %s registered successfully!"
	MessageStoreError      = "DB Error: %s"
	MessageExtractorError  = "Face detection error: %s"
	MessageAttendanceError = "Attendance error: %s"
)

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for display event channels
	EventChannelBuffer = 100
)

// Duplicate detection constants
const (
	// DefaultDuplicateThreshold is the default min cosine similarity reported by `gallery duplicates`
	DefaultDuplicateThreshold = 0.5

	// DefaultDuplicateLimit is the number of neighbours inspected per identity
	DefaultDuplicateLimit = 5
)
