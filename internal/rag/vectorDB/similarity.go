package vectorDB

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/akolanti/StudyRAG/internal/domain/commonModels"
	"github.com/akolanti/StudyRAG/internal/domain/ragErrors"
)

// CosineSimilarity is dot(a,b)/(|a||b|), computed in float64. A zero-norm
// side gives 0, so the result is never NaN. Lengths must match.
func CosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return SanitizeScore(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// SanitizeScore maps NaN to 0 and clamps rounding noise into [-1, 1].
func SanitizeScore(s float64) float64 {
	switch {
	case math.IsNaN(s):
		return 0
	case s > 1:
		return 1
	case s < -1:
		return -1
	}
	return s
}

// TopK scores records, which must be in insertion order, against query and
// keeps the best k. The sort is stable so ties keep insertion order.
func TopK(query []float32, records []commonModels.ChunkRecord, k int) []commonModels.ScoredRecord {
	if k <= 0 || len(records) == 0 {
		return []commonModels.ScoredRecord{}
	}

	scored := make([]commonModels.ScoredRecord, len(records))
	for i, r := range records {
		scored[i] = commonModels.ScoredRecord{Record: r, Score: CosineSimilarity(query, r.Embedding)}
	}
	SortScored(scored)

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

func SortScored(scored []commonModels.ScoredRecord) {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
}

// CheckDimension compares got against the store dimension; want == 0 means
// the store is empty and accepts anything.
func CheckDimension(want, got int) error {
	if want != 0 && want != got {
		return ragErrors.Dimension(want, got)
	}
	return nil
}

// ValidateForPut rejects records that did not come through the constructor.
func ValidateForPut(r commonModels.ChunkRecord) error {
	if r.Id == "" || strings.TrimSpace(r.FileName) == "" || r.Text == "" {
		return fmt.Errorf("%w: missing id, file name or text", ragErrors.ErrInvalidRecord)
	}
	return commonModels.ValidateVector(r.Embedding)
}
