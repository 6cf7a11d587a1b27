package ingest

import (
	"context"
	"os"
	"testing"

	"github.com/akolanti/StudyRAG/internal/domain/ragErrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}

func TestExtractor_UnsupportedType(t *testing.T) {
	_, err := NewExtractor().Extract(context.Background(), []byte{0x89, 'P', 'N', 'G'}, "diagram.png")
	assert.ErrorIs(t, err, ragErrors.ErrExtractionFailed)
}

func TestExtractor_CorruptPDF(t *testing.T) {
	_, err := NewExtractor().Extract(context.Background(), []byte("this is not a pdf"), "notes.pdf")
	assert.ErrorIs(t, err, ragErrors.ErrExtractionFailed)
}

func TestExtractor_PlainText(t *testing.T) {
	text, err := NewExtractor().Extract(context.Background(), []byte("Primary keys uniquely identify rows."), "db.txt")
	require.NoError(t, err)
	assert.Contains(t, text, "Primary keys uniquely identify rows.")
}
