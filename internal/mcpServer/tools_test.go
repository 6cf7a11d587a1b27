package mcpServer

import (
	"context"
	"errors"
	"testing"

	"github.com/akolanti/StudyRAG/internal/domain/commonModels"
	"github.com/akolanti/StudyRAG/internal/domain/jobModel"
	"github.com/akolanti/StudyRAG/internal/domain/ragErrors"
	"github.com/akolanti/StudyRAG/internal/rag/ingest"
	"github.com/akolanti/StudyRAG/internal/rag/prompts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRag struct {
	OnSources  func(ctx context.Context, q string, k int) ([]commonModels.ScoredRecord, error)
	OnList     func(ctx context.Context) ([]string, error)
	OnGenerate func(ctx context.Context, tool prompts.ToolID, topic, level, notes string) (string, error)

	searchedK int
}

func (m *mockRag) ProcessRequest(ctx context.Context, j jobModel.Job) jobModel.Job { return j }

func (m *mockRag) IngestDocument(ctx context.Context, j jobModel.Job, _ ingest.ProgressFunc) jobModel.Job {
	return j
}

func (m *mockRag) Retrieve(ctx context.Context, q string, k int) (string, error) { return "", nil }

func (m *mockRag) Sources(ctx context.Context, q string, k int) ([]commonModels.ScoredRecord, error) {
	m.searchedK = k
	return m.OnSources(ctx, q, k)
}

func (m *mockRag) Answer(ctx context.Context, q, level, notes string) (string, error) {
	return "", nil
}

func (m *mockRag) Generate(ctx context.Context, tool prompts.ToolID, topic, level, notes string) (string, error) {
	return m.OnGenerate(ctx, tool, topic, level, notes)
}

func (m *mockRag) Ingest(ctx context.Context, data []byte, fileName string, _ ingest.ProgressFunc, _ ...ingest.Option) (ingest.Report, error) {
	return ingest.Report{}, nil
}

func (m *mockRag) IngestFile(ctx context.Context, path, fileName string, _ ingest.ProgressFunc, _ ...ingest.Option) (ingest.Report, error) {
	return ingest.Report{}, nil
}

func (m *mockRag) ListDocuments(ctx context.Context) ([]string, error) { return m.OnList(ctx) }

func (m *mockRag) DeleteDocument(ctx context.Context, fileName string) (int64, error) { return 0, nil }

func record(t *testing.T, id, file, text string, score float64) commonModels.ScoredRecord {
	t.Helper()
	r, err := commonModels.NewChunkRecordWithID(id, file, text, []float32{1, 0})
	require.NoError(t, err)
	return commonModels.ScoredRecord{Record: r, Score: score}
}

func TestNew_RequiresService(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestSearchNotes(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		input     SearchNotesInput
		sources   []commonModels.ScoredRecord
		err       error
		wantK     int
		wantCount int
		wantErr   bool
	}{
		{
			name:      "default limit",
			input:     SearchNotesInput{Query: "what is a LAN"},
			sources:   []commonModels.ScoredRecord{record(t, "1", "networks.pdf", "A LAN is local", 0.9)},
			wantK:     defaultSearchLimit,
			wantCount: 1,
		},
		{
			name:  "explicit limit",
			input: SearchNotesInput{Query: "topologies", Limit: 2},
			sources: []commonModels.ScoredRecord{
				record(t, "1", "networks.pdf", "star", 0.8),
				record(t, "2", "networks.pdf", "bus", 0.7),
			},
			wantK:     2,
			wantCount: 2,
		},
		{
			name:    "blank query",
			input:   SearchNotesInput{Query: "  "},
			wantErr: true,
		},
		{
			name:    "embedding unavailable",
			input:   SearchNotesInput{Query: "anything"},
			err:     ragErrors.ErrEmbeddingUnavailable,
			wantK:   defaultSearchLimit,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockRag{OnSources: func(context.Context, string, int) ([]commonModels.ScoredRecord, error) {
				return tt.sources, tt.err
			}}
			s, err := New(mock)
			require.NoError(t, err)

			_, out, err := s.handleSearchNotes(ctx, nil, tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantK, mock.searchedK)
			assert.Equal(t, tt.wantCount, out.Count)
			assert.Equal(t, tt.sources[0].Record.Text, out.Results[0].Text)
			assert.Equal(t, "networks.pdf", out.Results[0].FileName)
		})
	}
}

func TestListDocuments(t *testing.T) {
	t.Run("names", func(t *testing.T) {
		s, _ := New(&mockRag{OnList: func(context.Context) ([]string, error) {
			return []string{"a.pdf", "b.docx"}, nil
		}})
		_, out, err := s.handleListDocuments(context.Background(), nil, ListDocumentsInput{})
		require.NoError(t, err)
		assert.Equal(t, 2, out.Count)
		assert.Equal(t, []string{"a.pdf", "b.docx"}, out.Documents)
	})

	t.Run("empty store gives empty list", func(t *testing.T) {
		s, _ := New(&mockRag{OnList: func(context.Context) ([]string, error) { return nil, nil }})
		_, out, err := s.handleListDocuments(context.Background(), nil, ListDocumentsInput{})
		require.NoError(t, err)
		assert.NotNil(t, out.Documents)
		assert.Zero(t, out.Count)
	})

	t.Run("store error", func(t *testing.T) {
		s, _ := New(&mockRag{OnList: func(context.Context) ([]string, error) {
			return nil, ragErrors.ErrStoreUnavailable
		}})
		_, _, err := s.handleListDocuments(context.Background(), nil, ListDocumentsInput{})
		assert.ErrorIs(t, err, ragErrors.ErrStoreUnavailable)
	})
}

func TestGenerate(t *testing.T) {
	var gotTool prompts.ToolID
	var gotLevel string
	mock := &mockRag{OnGenerate: func(_ context.Context, tool prompts.ToolID, topic, level, notes string) (string, error) {
		gotTool, gotLevel = tool, level
		if topic == "fail" {
			return "", ragErrors.NewCompletionError(ragErrors.ReasonUnreachable, errors.New("down"))
		}
		return "generated " + topic, nil
	}}
	s, err := New(mock)
	require.NoError(t, err)
	ctx := context.Background()

	_, out, err := s.handleGenerate(ctx, nil, GenerateInput{Topic: "networks"})
	require.NoError(t, err)
	assert.Equal(t, prompts.AskQuestion, gotTool)
	assert.Equal(t, string(prompts.AskQuestion), out.Tool)
	assert.Equal(t, "generated networks", out.Answer)

	_, out, err = s.handleGenerate(ctx, nil, GenerateInput{Tool: string(prompts.Flashcards), Topic: "databases", Level: "A2 Level"})
	require.NoError(t, err)
	assert.Equal(t, prompts.Flashcards, gotTool)
	assert.Equal(t, "A2 Level", gotLevel)
	assert.Equal(t, "generated databases", out.Answer)

	_, _, err = s.handleGenerate(ctx, nil, GenerateInput{Tool: "poetry", Topic: "x"})
	assert.ErrorIs(t, err, ragErrors.ErrUnknownTool)

	_, _, err = s.handleGenerate(ctx, nil, GenerateInput{Topic: " "})
	assert.Error(t, err)

	_, _, err = s.handleGenerate(ctx, nil, GenerateInput{Topic: "fail"})
	assert.ErrorIs(t, err, ragErrors.ErrCompletionFailed)
}
