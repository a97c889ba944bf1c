package recognition

import (
	"context"
	"fmt"
	"image"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/attendance-kiosk/internal/annotate"
	"github.com/kozaktomas/attendance-kiosk/internal/constants"
	"github.com/kozaktomas/attendance-kiosk/internal/database"
	"github.com/kozaktomas/attendance-kiosk/internal/embedding"
	"golang.org/x/text/unicode/norm"
)

// Rejection reasons, checked in this order.
const (
	ReasonNoFace        = "no face detected"
	ReasonMissingFields = "missing fields"
)

// ProfileFields are the operator-entered registration fields.
type ProfileFields struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Course    string `json:"course"`
	Section   string `json:"section"`
}

// Normalize NFC-normalizes each field and collapses runs of whitespace.
func (f ProfileFields) Normalize() ProfileFields {
	return ProfileFields{
		FirstName: normalizeField(f.FirstName),
		LastName:  normalizeField(f.LastName),
		Course:    normalizeField(f.Course),
		Section:   normalizeField(f.Section),
	}
}

// Complete reports whether every field is non-empty.
func (f ProfileFields) Complete() bool {
	return f.FirstName != "" && f.LastName != "" && f.Course != "" && f.Section != ""
}

func normalizeField(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// RegistrationResult is Registered (with the new identity) or Rejected
// (with a reason). Store failures are returned as errors instead.
type RegistrationResult struct {
	Registered bool
	Reason     string
	Identity   *database.EnrolledIdentity
}

// Rejected builds a rejection result.
func Rejected(reason string) RegistrationResult {
	return RegistrationResult{Reason: reason}
}

// Registrar enrols new identities from a held probe embedding.
type Registrar struct {
	extractor embedding.Extractor
	gallery   database.GalleryWriter
	timeout   time.Duration
	now       func() time.Time
	newID     func() string
}

// NewRegistrar creates a registrar. extractor may be nil, in which case no
// reference photo is captured.
func NewRegistrar(extractor embedding.Extractor, gallery database.GalleryWriter, timeout time.Duration) *Registrar {
	return &Registrar{
		extractor: extractor,
		gallery:   gallery,
		timeout:   timeout,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Register validates the request and inserts a new identity. The stored
// embedding is always the held probe; the current frame only supplies the
// reference photo. Existing identities are never updated.
func (r *Registrar) Register(ctx context.Context, fields ProfileFields, probe []float32, frame image.Image) (RegistrationResult, error) {
	if len(probe) == 0 {
		return Rejected(ReasonNoFace), nil
	}
	fields = fields.Normalize()
	if !fields.Complete() {
		return Rejected(ReasonMissingFields), nil
	}

	identity := &database.EnrolledIdentity{
		ID:            r.newID(),
		FirstName:     fields.FirstName,
		LastName:      fields.LastName,
		Course:        fields.Course,
		Section:       fields.Section,
		EmbeddingBlob: embedding.EncodeBlob(probe),
		Photo:         r.referencePhoto(ctx, frame),
		CreatedAt:     r.now().UTC(),
	}

	_, err := callStore(ctx, r.timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.gallery.InsertIdentity(ctx, identity)
	})
	if err != nil {
		return RegistrationResult{}, fmt.Errorf("register %s: %w", identity.FullName(), err)
	}

	return RegistrationResult{Registered: true, Identity: identity}, nil
}

// referencePhoto re-runs detection on frame and crops the first face. Any
// failure yields nil; registration proceeds without a photo.
func (r *Registrar) referencePhoto(ctx context.Context, frame image.Image) []byte {
	if r.extractor == nil || frame == nil {
		return nil
	}
	faces, err := r.extractor.Detect(ctx, frame)
	if err != nil {
		log.Printf("Registration: reference photo detection failed: %v", err)
		return nil
	}
	face, ok := SelectPrimary(faces)
	if !ok {
		return nil
	}
	photo, err := annotate.CropFace(frame, face.Box, constants.ReferencePhotoMaxSide)
	if err != nil {
		log.Printf("Registration: reference photo crop failed: %v", err)
		return nil
	}
	return photo
}
