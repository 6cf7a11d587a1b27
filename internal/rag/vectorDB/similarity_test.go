package vectorDB

import (
	"math"
	"testing"

	"github.com/akolanti/StudyRAG/internal/domain/commonModels"
	"github.com/akolanti/StudyRAG/internal/domain/ragErrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"diagonal", []float32{1, 0}, []float32{1, 1}, 1 / math.Sqrt2},
		{"scaled", []float32{2, 0}, []float32{5, 0}, 1},
		{"zero left", []float32{0, 0}, []float32{1, 1}, 0},
		{"zero both", []float32{0, 0}, []float32{0, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			assert.False(t, math.IsNaN(got))
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestSanitizeScore(t *testing.T) {
	assert.Equal(t, 0.0, SanitizeScore(math.NaN()))
	assert.Equal(t, 1.0, SanitizeScore(1.0000001))
	assert.Equal(t, -1.0, SanitizeScore(-1.0000001))
	assert.Equal(t, 0.5, SanitizeScore(0.5))
}

func rec(t *testing.T, name string, v ...float32) commonModels.ChunkRecord {
	t.Helper()
	r, err := commonModels.NewChunkRecord("doc.pdf", name, v)
	require.NoError(t, err)
	return r
}

func TestTopK(t *testing.T) {
	records := []commonModels.ChunkRecord{
		rec(t, "first", 1, 0),
		rec(t, "second", 0, 1),
		rec(t, "third", 1, 1),
		rec(t, "fourth", 1, 0),
	}

	got := TopK([]float32{1, 0}, records, 3)
	require.Len(t, got, 3)
	assert.Equal(t, "first", got[0].Record.Text)
	assert.Equal(t, "fourth", got[1].Record.Text, "ties keep insertion order")
	assert.Equal(t, "third", got[2].Record.Text)

	assert.Empty(t, TopK([]float32{1, 0}, records, 0))
	assert.Empty(t, TopK([]float32{1, 0}, nil, 3))
	assert.Len(t, TopK([]float32{1, 0}, records, 10), 4)
}

func TestCheckDimension(t *testing.T) {
	assert.NoError(t, CheckDimension(0, 5))
	assert.NoError(t, CheckDimension(5, 5))
	assert.ErrorIs(t, CheckDimension(5, 4), ragErrors.ErrDimensionMismatch)
}

func TestValidateForPut(t *testing.T) {
	assert.NoError(t, ValidateForPut(rec(t, "ok", 1)))
	assert.ErrorIs(t, ValidateForPut(commonModels.ChunkRecord{FileName: "a", Text: "b", Embedding: []float32{1}}), ragErrors.ErrInvalidRecord)
	assert.ErrorIs(t, ValidateForPut(commonModels.ChunkRecord{Id: "x", FileName: "a", Text: "b"}), ragErrors.ErrInvalidRecord)
}
