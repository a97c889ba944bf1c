package recognition

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/kozaktomas/attendance-kiosk/internal/database"
	"github.com/kozaktomas/attendance-kiosk/internal/embedding"
)

// RegisterImage runs detection on a still photo and registers its primary
// face, the way the kiosk registers the face held from the live feed.
func (r *Registrar) RegisterImage(ctx context.Context, fields ProfileFields, img image.Image) (RegistrationResult, error) {
	if r.extractor == nil {
		return RegistrationResult{}, fmt.Errorf("register from image: no face extractor configured")
	}
	faces, err := r.extractor.Detect(ctx, img)
	if err != nil {
		return RegistrationResult{}, fmt.Errorf("detect faces: %w", err)
	}
	var probe []float32
	if face, ok := SelectPrimary(faces); ok {
		probe = face.Embedding
	}
	return r.Register(ctx, fields, probe, img)
}

// ParseEnrollFilename reads profile fields from a bulk-import file name of
// the form first_last_course_section.jpg. Hyphens inside a part stand for
// spaces, so "Dela-Cruz" becomes "Dela Cruz".
func ParseEnrollFilename(name string) (ProfileFields, error) {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	parts := strings.Split(base, "_")
	if len(parts) != 4 {
		return ProfileFields{}, fmt.Errorf("file name %q: expected first_last_course_section", filepath.Base(name))
	}
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(p, "-", " ")
	}
	fields := ProfileFields{
		FirstName: parts[0],
		LastName:  parts[1],
		Course:    parts[2],
		Section:   parts[3],
	}.Normalize()
	if !fields.Complete() {
		return ProfileFields{}, fmt.Errorf("file name %q: %s", filepath.Base(name), ReasonMissingFields)
	}
	return fields, nil
}

// DuplicatePair is two enrolments whose embeddings are at least as similar
// as the recognition threshold, usually the same person registered twice.
type DuplicatePair struct {
	First      database.EnrolledIdentity
	Second     database.EnrolledIdentity
	Similarity float64
}

// FindDuplicates reports pairs of identities with similarity >= threshold.
// Each pair is reported once, ordered by gallery position of First. Rows
// whose embedding cannot be decoded are skipped and counted.
func FindDuplicates(ctx context.Context, gallery database.GalleryReader, finder database.SimilarityFinder, threshold float64, limit int) ([]DuplicatePair, int, error) {
	identities, err := gallery.ListIdentities(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list identities: %w", err)
	}

	position := make(map[string]int, len(identities))
	for i, id := range identities {
		position[id.ID] = i
	}

	var pairs []DuplicatePair
	skipped := 0
	maxDistance := 1 - threshold
	for i, id := range identities {
		vec, err := embedding.DecodeBlob(id.EmbeddingBlob, 0)
		if err != nil {
			skipped++
			continue
		}
		// +1 because the identity finds itself
		similar, err := finder.FindSimilarIdentities(ctx, vec, limit+1, maxDistance+1e-9)
		if err != nil {
			return nil, skipped, fmt.Errorf("find similar to %s: %w", id.ID, err)
		}
		for _, s := range similar {
			j, ok := position[s.Identity.ID]
			if !ok || j <= i {
				continue
			}
			pairs = append(pairs, DuplicatePair{
				First:      id,
				Second:     identities[j],
				Similarity: 1 - s.Distance,
			})
		}
	}
	return pairs, skipped, nil
}
