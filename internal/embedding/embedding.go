package embedding

import (
	"context"
	"image"
	"math"
)

// Face is a single face reported by an Extractor.
type Face struct {
	Box       image.Rectangle // x1,y1 inclusive; x2,y2 exclusive, in frame pixels
	Embedding []float32
	Score     float64 // detector confidence, informational only
}

// Extractor detects faces in a frame and computes one embedding per face.
// An empty, non-nil result means the frame contains no faces.
type Extractor interface {
	Detect(ctx context.Context, frame image.Image) ([]Face, error)
}

// BoxFromFloats converts an [x1, y1, x2, y2] detector box into an
// image.Rectangle, rounding outward so the face is fully covered.
func BoxFromFloats(bbox []float64) image.Rectangle {
	if len(bbox) != 4 {
		return image.Rectangle{}
	}
	return image.Rect(
		int(math.Floor(bbox[0])),
		int(math.Floor(bbox[1])),
		int(math.Ceil(bbox[2])),
		int(math.Ceil(bbox[3])),
	).Canon()
}

// CosineSimilarity returns the cosine of the angle between a and b, in [-1, 1].
// The norms are multiplied before the square root so a vector compared with
// itself scores exactly 1. Mismatched, empty or zero vectors yield -1.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return -1
	}

	var dot, aa, bb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		aa += x * x
		bb += y * y
	}
	if aa == 0 || bb == 0 {
		return -1
	}

	return max(-1, min(1, dot/math.Sqrt(aa*bb)))
}

// CosineDistance is 1 - CosineSimilarity: 0 for identical vectors, 2 for
// opposite or invalid ones.
func CosineDistance(a, b []float32) float64 {
	return 1 - CosineSimilarity(a, b)
}
