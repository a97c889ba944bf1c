package recognition

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"image/jpeg"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/attendance-kiosk/internal/database/mock"
	"github.com/kozaktomas/attendance-kiosk/internal/embedding"
)

var anaFields = ProfileFields{FirstName: "Ana", LastName: "Cruz", Course: "BSIT", Section: "3A"}

func TestRegistrar_RegistersAndMatchesNextFrame(t *testing.T) {
	gallery := mock.NewMockGallery()
	probe := []float32{0.2, 0.4, 0.1, 0.9}
	extractor := &fakeExtractor{faces: []embedding.Face{face(probe)}}
	r := NewRegistrar(extractor, gallery, time.Second)

	result, err := r.Register(context.Background(), anaFields, probe, createTestImage(160, 120, color.White))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if !result.Registered {
		t.Fatalf("expected Registered, got rejection %q", result.Reason)
	}

	stored := gallery.Identities()
	if len(stored) != 1 {
		t.Fatalf("expected 1 identity, got %d", len(stored))
	}
	got := stored[0]
	if got.FirstName != "Ana" || got.LastName != "Cruz" || got.Course != "BSIT" || got.Section != "3A" {
		t.Errorf("unexpected fields %+v", got)
	}
	if got.ID == "" || got.ID != result.Identity.ID {
		t.Errorf("expected fresh identifier, got %q", got.ID)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
	if _, err := jpeg.Decode(bytes.NewReader(got.Photo)); err != nil {
		t.Errorf("expected JPEG reference photo: %v", err)
	}

	// The same embedding on the next frame matches the new identity
	list, _ := gallery.ListIdentities(context.Background())
	m, ok := NewMatcher(0.5).Match(probe, list)
	if !ok || m.Identity.ID != got.ID {
		t.Errorf("expected next frame to match the new identity, got ok=%v id=%s", ok, m.Identity.ID)
	}
}

func TestRegistrar_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		fields ProfileFields
		probe  []float32
		reason string
	}{
		{"no probe", anaFields, nil, ReasonNoFace},
		{"no probe beats missing fields", ProfileFields{}, nil, ReasonNoFace},
		{"empty last name", ProfileFields{FirstName: "Ana", LastName: "", Course: "BSIT", Section: "3A"}, unitVec(0), ReasonMissingFields},
		{"whitespace section", ProfileFields{FirstName: "Ana", LastName: "Cruz", Course: "BSIT", Section: "  \t"}, unitVec(0), ReasonMissingFields},
		{"all empty", ProfileFields{}, unitVec(0), ReasonMissingFields},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gallery := mock.NewMockGallery()
			r := NewRegistrar(&fakeExtractor{}, gallery, time.Second)

			result, err := r.Register(context.Background(), tt.fields, tt.probe, createTestImage(10, 10, color.White))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Registered {
				t.Fatal("expected rejection")
			}
			if result.Reason != tt.reason {
				t.Errorf("expected reason %q, got %q", tt.reason, result.Reason)
			}
			if gallery.InsertCalls != 0 || len(gallery.Identities()) != 0 {
				t.Error("rejected registration must not persist anything")
			}
		})
	}
}

func TestRegistrar_NoFaceOnRedetectStillRegisters(t *testing.T) {
	tests := []struct {
		name      string
		extractor *fakeExtractor
	}{
		{"no face", &fakeExtractor{}},
		{"extractor error", &fakeExtractor{err: errors.New("model not loaded")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gallery := mock.NewMockGallery()
			r := NewRegistrar(tt.extractor, gallery, time.Second)
			probe := unitVec(1)

			result, err := r.Register(context.Background(), anaFields, probe, createTestImage(10, 10, color.White))
			if err != nil {
				t.Fatalf("Register failed: %v", err)
			}
			if !result.Registered {
				t.Fatalf("expected Registered, got %q", result.Reason)
			}
			stored := gallery.Identities()[0]
			if stored.Photo != nil {
				t.Error("expected nil photo")
			}
			v, _ := embedding.DecodeBlob(stored.EmbeddingBlob, 4)
			if v[1] != 1 {
				t.Errorf("expected held probe to be stored, got %v", v)
			}
		})
	}
}

func TestRegistrar_NormalizesFields(t *testing.T) {
	gallery := mock.NewMockGallery()
	r := NewRegistrar(nil, gallery, time.Second)

	// Decomposed "e" + combining acute, padded and with repeated spaces
	fields := ProfileFields{FirstName: "  Jose\u0301  Maria ", LastName: "Dela   Cruz", Course: " BSIT ", Section: "3A"}
	result, err := r.Register(context.Background(), fields, unitVec(0), nil)
	if err != nil || !result.Registered {
		t.Fatalf("Register failed: %v %q", err, result.Reason)
	}

	got := gallery.Identities()[0]
	if got.FirstName != "Jos\u00e9 Maria" {
		t.Errorf("expected NFC-normalized first name, got %q", got.FirstName)
	}
	if got.LastName != "Dela Cruz" || got.Course != "BSIT" {
		t.Errorf("unexpected normalization: %q %q", got.LastName, got.Course)
	}
}

func TestRegistrar_DuplicateRegistrationsCreateNewRows(t *testing.T) {
	gallery := mock.NewMockGallery()
	r := NewRegistrar(nil, gallery, time.Second)

	for iter := 0; iter < 2; iter++ {
		if _, err := r.Register(context.Background(), anaFields, unitVec(0), nil); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}

	ids := gallery.Identities()
	if len(ids) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(ids))
	}
	if ids[0].ID == ids[1].ID {
		t.Error("expected distinct identifiers")
	}
}

func TestRegistrar_StoreError(t *testing.T) {
	gallery := mock.NewMockGallery()
	gallery.InsertError = errors.New("connection reset")
	r := NewRegistrar(nil, gallery, time.Second)

	result, err := r.Register(context.Background(), anaFields, unitVec(0), nil)
	if err == nil {
		t.Fatal("expected store error")
	}
	if !strings.Contains(err.Error(), "connection reset") {
		t.Errorf("expected wrapped store error, got %v", err)
	}
	if result.Registered {
		t.Error("expected no registration")
	}
}
