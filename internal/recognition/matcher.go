// Package recognition implements the per-frame recognition pipeline, the
// daily attendance ledger and the registration workflow.
package recognition

import (
	"github.com/kozaktomas/attendance-kiosk/internal/database"
	"github.com/kozaktomas/attendance-kiosk/internal/embedding"
)

// Match is the result of comparing a probe against the gallery.
type Match struct {
	Identity   database.EnrolledIdentity
	Similarity float64
	Skipped    int // gallery rows whose embedding could not be decoded
}

// Matcher selects the first gallery entry whose cosine similarity to the
// probe reaches Threshold. Gallery order decides between several qualifying
// entries; the most similar one is not preferred.
type Matcher struct {
	Threshold float64
}

// NewMatcher creates a matcher with the given similarity threshold.
func NewMatcher(threshold float64) *Matcher {
	return &Matcher{Threshold: threshold}
}

// Match scans gallery in order. Rows whose embedding does not decode to the
// probe's dimension are skipped and counted.
func (m *Matcher) Match(probe []float32, gallery []database.EnrolledIdentity) (Match, bool) {
	var result Match
	if len(probe) == 0 {
		return result, false
	}

	for i := range gallery {
		vec, err := gallery[i].Embedding(len(probe))
		if err != nil {
			result.Skipped++
			continue
		}
		sim := embedding.CosineSimilarity(probe, vec)
		if sim >= m.Threshold {
			result.Identity = gallery[i]
			result.Similarity = sim
			return result, true
		}
	}
	return result, false
}
