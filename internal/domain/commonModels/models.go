package commonModels

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/akolanti/StudyRAG/internal/domain/ragErrors"
	"github.com/google/uuid"
)

// ChunkRecord is one embedded piece of a document. Fields are fixed at
// construction; build it with NewChunkRecord.
type ChunkRecord struct {
	Id        string    `json:"id"`
	FileName  string    `json:"file_name"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"-"`
}

type ScoredRecord struct {
	Record ChunkRecord `json:"record"`
	Score  float64     `json:"score"`
}

func NewChunkRecord(fileName, text string, embedding []float32) (ChunkRecord, error) {
	return NewChunkRecordWithID(uuid.New().String(), fileName, text, embedding)
}

// NewChunkRecordWithID is used by stores rebuilding records they already hold.
func NewChunkRecordWithID(id, fileName, text string, embedding []float32) (ChunkRecord, error) {
	if id == "" {
		return ChunkRecord{}, fmt.Errorf("%w: empty id", ragErrors.ErrInvalidRecord)
	}
	if strings.TrimSpace(fileName) == "" {
		return ChunkRecord{}, fmt.Errorf("%w: empty file name", ragErrors.ErrInvalidRecord)
	}
	if text == "" {
		return ChunkRecord{}, fmt.Errorf("%w: empty text", ragErrors.ErrInvalidRecord)
	}
	if err := ValidateVector(embedding); err != nil {
		return ChunkRecord{}, err
	}

	vec := make([]float32, len(embedding))
	copy(vec, embedding)
	return ChunkRecord{Id: id, FileName: fileName, Text: text, Embedding: vec}, nil
}

func ValidateVector(v []float32) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty embedding", ragErrors.ErrInvalidRecord)
	}
	for i, f := range v {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return fmt.Errorf("%w: non-finite value at index %d", ragErrors.ErrInvalidRecord, i)
		}
	}
	return nil
}

func (r ChunkRecord) Dimension() int {
	return len(r.Embedding)
}

type DocType string

var PDF DocType = "PDF"
var DOCX DocType = "DOCX"
var TXT DocType = "TXT"
var ERR DocType = "ERROR"

func GetDocType(fileName string) DocType {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return PDF
	case ".docx", ".odt", ".rtf":
		return DOCX
	case ".txt", ".md":
		return TXT
	default:
		return ERR
	}
}
