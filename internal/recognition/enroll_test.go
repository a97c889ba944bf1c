package recognition

import (
	"context"
	"errors"
	"image/color"
	"math"
	"testing"
	"time"

	"github.com/kozaktomas/attendance-kiosk/internal/database"
	"github.com/kozaktomas/attendance-kiosk/internal/database/mock"
	"github.com/kozaktomas/attendance-kiosk/internal/embedding"
)

func TestRegistrar_RegisterImage(t *testing.T) {
	gallery := mock.NewMockGallery()
	extractor := &fakeExtractor{}
	extractor.set([]embedding.Face{face(unitVec(1)), face(unitVec(2))}, nil)
	r := NewRegistrar(extractor, gallery, time.Second)

	result, err := r.RegisterImage(context.Background(), anaFields, createTestImage(160, 120, color.White))
	if err != nil || !result.Registered {
		t.Fatalf("RegisterImage: %v %q", err, result.Reason)
	}

	stored, err := gallery.Identities()[0].Embedding(4)
	if err != nil {
		t.Fatalf("decode stored embedding: %v", err)
	}
	if stored[1] != 1 {
		t.Errorf("expected primary face's embedding, got %v", stored)
	}
}

func TestRegistrar_RegisterImageNoFace(t *testing.T) {
	gallery := mock.NewMockGallery()
	extractor := &fakeExtractor{}
	r := NewRegistrar(extractor, gallery, time.Second)

	result, err := r.RegisterImage(context.Background(), anaFields, createTestImage(10, 10, color.White))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Reason != ReasonNoFace {
		t.Errorf("expected no-face rejection, got %q", result.Reason)
	}
	if gallery.InsertCalls != 0 {
		t.Error("nothing should be stored")
	}
}

func TestRegistrar_RegisterImageErrors(t *testing.T) {
	gallery := mock.NewMockGallery()

	if _, err := NewRegistrar(nil, gallery, time.Second).RegisterImage(context.Background(), anaFields, createTestImage(10, 10, color.White)); err == nil {
		t.Error("expected error without an extractor")
	}

	extractor := &fakeExtractor{}
	extractor.set(nil, errors.New("status 503"))
	if _, err := NewRegistrar(extractor, gallery, time.Second).RegisterImage(context.Background(), anaFields, createTestImage(10, 10, color.White)); err == nil {
		t.Error("expected extractor error")
	}
}

func TestParseEnrollFilename(t *testing.T) {
	tests := []struct {
		name    string
		want    ProfileFields
		wantErr bool
	}{
		{"photos/Ana_Cruz_BSIT_3A.jpg", ProfileFields{"Ana", "Cruz", "BSIT", "3A"}, false},
		{"Jose-Maria_Dela-Cruz_BS-CS_1B.png", ProfileFields{"Jose Maria", "Dela Cruz", "BS CS", "1B"}, false},
		{"Ana_Cruz_BSIT.jpg", ProfileFields{}, true},
		{"Ana_Cruz_BSIT_3A_extra.jpg", ProfileFields{}, true},
		{"Ana__BSIT_3A.jpg", ProfileFields{}, true},
		{"Ana_-_BSIT_3A.jpg", ProfileFields{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEnrollFilename(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseEnrollFilename(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseEnrollFilename(%q) = %+v, want %+v", tt.name, got, tt.want)
			}
		})
	}
}

func TestFindDuplicates(t *testing.T) {
	gallery := mock.NewMockGallery()
	near := []float32{0.99, 0.14, 0, 0}
	gallery.AddIdentity(identity("a", "Ana", "Cruz", unitVec(0)))
	gallery.AddIdentity(identity("b", "Ben", "Reyes", unitVec(1)))
	gallery.AddIdentity(identity("c", "Ana", "Cruz", near))
	broken := identity("d", "Bad", "Row", nil)
	broken.EmbeddingBlob = []byte{1, 2, 3}
	gallery.AddIdentity(broken)

	pairs, skipped, err := FindDuplicates(context.Background(), gallery, gallery, 0.9, 5)
	if err != nil {
		t.Fatalf("FindDuplicates: %v", err)
	}
	if skipped != 1 {
		t.Errorf("expected 1 skipped row, got %d", skipped)
	}
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d: %+v", len(pairs), pairs)
	}
	p := pairs[0]
	if p.First.ID != "a" || p.Second.ID != "c" {
		t.Errorf("expected pair a/c, got %s/%s", p.First.ID, p.Second.ID)
	}
	want := embedding.CosineSimilarity(unitVec(0), near)
	if math.Abs(p.Similarity-want) > 1e-6 {
		t.Errorf("similarity = %f, want %f", p.Similarity, want)
	}
}

func TestFindDuplicates_Errors(t *testing.T) {
	gallery := mock.NewMockGallery()
	gallery.AddIdentity(identity("a", "Ana", "Cruz", unitVec(0)))

	gallery.SimilarError = errors.New("timeout")
	if _, _, err := FindDuplicates(context.Background(), gallery, gallery, 0.5, 5); err == nil {
		t.Error("expected similarity error")
	}

	gallery.SimilarError = nil
	gallery.ListError = errors.New("connection refused")
	if _, _, err := FindDuplicates(context.Background(), gallery, gallery, 0.5, 5); err == nil {
		t.Error("expected list error")
	}
}

var _ database.SimilarityFinder = (*mock.MockGallery)(nil)
