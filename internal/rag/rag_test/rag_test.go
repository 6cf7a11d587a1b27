package rag_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akolanti/StudyRAG/internal/config"
	"github.com/akolanti/StudyRAG/internal/domain/commonModels"
	"github.com/akolanti/StudyRAG/internal/domain/jobModel"
	"github.com/akolanti/StudyRAG/internal/domain/ragErrors"
	"github.com/akolanti/StudyRAG/internal/rag"
	"github.com/akolanti/StudyRAG/internal/rag/chunker"
	"github.com/akolanti/StudyRAG/internal/rag/ingest"
	"github.com/akolanti/StudyRAG/internal/rag/llm"
	"github.com/akolanti/StudyRAG/internal/rag/prompts"
	"github.com/akolanti/StudyRAG/internal/rag/vectorDB/sqliteDB"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mocks struct {
	embedder  *MockEmbedder
	store     *MockVectorDB
	completer *MockCompleter
	refiner   *MockRefiner
	ingestor  *MockIngestor
}

func newMocks() *mocks {
	return &mocks{
		embedder:  &MockEmbedder{},
		store:     &MockVectorDB{},
		completer: &MockCompleter{},
		refiner:   &MockRefiner{},
		ingestor:  &MockIngestor{},
	}
}

func (m *mocks) service(withRefiner bool) rag.Service {
	var refiner llm.Refiner
	if withRefiner {
		refiner = m.refiner
	}
	return rag.NewService(rag.Dependencies{
		Store:     m.store,
		Embedder:  m.embedder,
		Completer: m.completer,
		Refiner:   refiner,
		Ingestor:  m.ingestor,
		TopK:      6,
	})
}

func TestAnswer_Scenarios(t *testing.T) {
	tests := []struct {
		name        string
		setupMocks  func(m *mocks)
		noRefiner   bool
		want        string
		wantErr     error
		wantReason  ragErrors.CompletionReason
		wantRefined int
	}{
		{
			name:        "Success_Refined",
			want:        "Refined answer",
			wantRefined: 1,
		},
		{
			name: "Refine_Error_Falls_Back",
			setupMocks: func(m *mocks) {
				m.refiner.OnRefine = func(ctx context.Context, base, notes string) (string, error) {
					return "", errors.New("openai down")
				}
			},
			want:        "Base answer",
			wantRefined: 1,
		},
		{
			name: "Refine_Empty_Falls_Back",
			setupMocks: func(m *mocks) {
				m.refiner.OnRefine = func(ctx context.Context, base, notes string) (string, error) {
					return "", nil
				}
			},
			want:        "Base answer",
			wantRefined: 1,
		},
		{
			name:      "No_Refiner_Configured",
			noRefiner: true,
			want:      "Base answer",
		},
		{
			name: "Failure_Embedding",
			setupMocks: func(m *mocks) {
				m.embedder.OnGetEmbedding = func(ctx context.Context, text string) ([]float32, error) {
					return nil, ragErrors.Unavailable(errors.New("api limit"))
				}
			},
			wantErr: ragErrors.ErrEmbeddingUnavailable,
		},
		{
			name: "Failure_Completion_Rejected",
			setupMocks: func(m *mocks) {
				m.completer.OnComplete = func(ctx context.Context, prompt string) (string, error) {
					return "", ragErrors.NewCompletionError(ragErrors.ReasonRejected, errors.New("400"))
				}
			},
			wantErr:    ragErrors.ErrCompletionFailed,
			wantReason: ragErrors.ReasonRejected,
		},
		{
			name: "Failure_Completion_Plain_Error_Is_Unreachable",
			setupMocks: func(m *mocks) {
				m.completer.OnComplete = func(ctx context.Context, prompt string) (string, error) {
					return "", errors.New("connection reset")
				}
			},
			wantErr:    ragErrors.ErrCompletionFailed,
			wantReason: ragErrors.ReasonUnreachable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMocks()
			if tt.setupMocks != nil {
				tt.setupMocks(m)
			}
			s := m.service(!tt.noRefiner)

			got, err := s.Answer(context.Background(), "What is RAM?", "", "")

			assert.Equal(t, tt.wantRefined, m.refiner.calls)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, got)
				if tt.wantReason != "" {
					var ce *ragErrors.CompletionError
					require.ErrorAs(t, err, &ce)
					assert.Equal(t, tt.wantReason, ce.Reason)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnswer_PromptCarriesContext(t *testing.T) {
	m := newMocks()
	s := m.service(true)

	_, err := s.Answer(context.Background(), "What is RAM?", "A2", "exam tomorrow")
	require.NoError(t, err)

	require.Len(t, m.completer.prompts, 1)
	p := m.completer.prompts[0]
	assert.Contains(t, p, "default context")
	assert.Contains(t, p, `Question: "What is RAM?"`)
	assert.Contains(t, p, "Level: A2 Level")
	assert.Contains(t, p, "exam tomorrow")
}

func TestAnswer_EmptyStoreUsesMarker(t *testing.T) {
	m := newMocks()
	m.store.OnSearch = func(ctx context.Context, q []float32, k int) ([]commonModels.ScoredRecord, error) {
		return nil, nil
	}
	var refinedWith string
	m.refiner.OnRefine = func(ctx context.Context, base, notes string) (string, error) {
		refinedWith = notes
		return "ok", nil
	}
	s := m.service(true)

	_, err := s.Answer(context.Background(), "What is RAM?", "", "")
	require.NoError(t, err)
	assert.Contains(t, m.completer.prompts[0], prompts.NoContextMarker)
	assert.Empty(t, refinedWith)
}

func TestRetrieve(t *testing.T) {
	m := newMocks()
	m.store.OnSearch = func(ctx context.Context, q []float32, k int) ([]commonModels.ScoredRecord, error) {
		return []commonModels.ScoredRecord{
			{Record: commonModels.ChunkRecord{Text: "first"}, Score: 0.9},
			{Record: commonModels.ChunkRecord{Text: "second"}, Score: 0.5},
		}, nil
	}
	s := m.service(true)

	got, err := s.Retrieve(context.Background(), "q", 0)
	require.NoError(t, err)
	assert.Equal(t, "first\n\nsecond", got)
	assert.Equal(t, 6, m.store.searchedK, "k <= 0 uses the configured default")

	_, err = s.Retrieve(context.Background(), "q", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, m.store.searchedK)
}

func TestGenerate(t *testing.T) {
	m := newMocks()
	s := m.service(false)

	_, err := s.Generate(context.Background(), prompts.Flashcards, "networks", "", "")
	require.NoError(t, err)
	p := m.completer.prompts[0]
	assert.Contains(t, p, "flashcards on: networks")
	assert.Contains(t, p, "default context")

	_, err = s.Generate(context.Background(), "lesson-plan", "networks", "", "")
	assert.ErrorIs(t, err, ragErrors.ErrUnknownTool)
	assert.Len(t, m.completer.prompts, 1, "unknown tool never reaches the model")
}

func TestProcessRequest_Scenarios(t *testing.T) {
	tests := []struct {
		name           string
		setupMocks     func(m *mocks)
		tool           string
		expectedStep   jobModel.InternalStatus
		expectedStatus jobModel.JobStatus
		expectedAnswer string
		expectedCode   int
	}{
		{
			name:           "Success_Full_Flow",
			tool:           "exam-questions",
			expectedStep:   jobModel.Complete,
			expectedStatus: jobModel.JobStatusQueued,
			expectedAnswer: "Refined answer",
		},
		{
			name: "Failure_Embedding",
			setupMocks: func(m *mocks) {
				m.embedder.OnGetEmbedding = func(ctx context.Context, text string) ([]float32, error) {
					return nil, ragErrors.Unavailable(errors.New("api limit"))
				}
			},
			expectedStep:   jobModel.Error,
			expectedStatus: jobModel.JobStatusError,
			expectedCode:   http.StatusServiceUnavailable,
		},
		{
			name: "Failure_Vector_Search",
			setupMocks: func(m *mocks) {
				m.store.OnSearch = func(ctx context.Context, q []float32, k int) ([]commonModels.ScoredRecord, error) {
					return nil, ragErrors.ErrStoreUnavailable
				}
			},
			expectedStep:   jobModel.Error,
			expectedStatus: jobModel.JobStatusError,
			expectedCode:   http.StatusServiceUnavailable,
		},
		{
			name: "Failure_Completion_Rejected",
			setupMocks: func(m *mocks) {
				m.completer.OnComplete = func(ctx context.Context, prompt string) (string, error) {
					return "", ragErrors.NewCompletionError(ragErrors.ReasonRejected, errors.New("400"))
				}
			},
			expectedStep:   jobModel.Error,
			expectedStatus: jobModel.JobStatusError,
			expectedCode:   http.StatusBadGateway,
		},
		{
			name:           "Failure_Unknown_Tool",
			tool:           "lesson-plan",
			expectedStep:   jobModel.Error,
			expectedStatus: jobModel.JobStatusError,
			expectedCode:   http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMocks()
			if tt.setupMocks != nil {
				tt.setupMocks(m)
			}
			s := m.service(true)

			ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
			job := jobModel.Job{
				Id:         "test-job",
				Status:     jobModel.JobStatusQueued,
				JobPayload: jobModel.JobPayload{Tool: tt.tool, Topic: "test topic"},
			}

			result := s.ProcessRequest(ctx, job)

			assert.Equal(t, tt.expectedStatus, result.Status)
			assert.Equal(t, tt.expectedStep, result.CurrentStep)
			if tt.expectedAnswer != "" {
				assert.Equal(t, tt.expectedAnswer, result.JobPayload.Answer)
				assert.Equal(t, []string{"notes.pdf"}, result.JobPayload.Sources)
			}
			if tt.expectedCode != 0 {
				assert.Equal(t, tt.expectedCode, result.Error.Code)
			}
		})
	}
}

func TestIngestDocument_Scenarios(t *testing.T) {
	tests := []struct {
		name           string
		ingestErr      error
		expectedStatus jobModel.JobStatus
		expectedCode   int
	}{
		{name: "Ingestion_Success", expectedStatus: jobModel.JobStatusRunning},
		{
			name:           "Failure_Too_Large",
			ingestErr:      ragErrors.ErrDocumentTooLarge,
			expectedStatus: jobModel.JobStatusError,
			expectedCode:   http.StatusRequestEntityTooLarge,
		},
		{
			name:           "Failure_Dimension",
			ingestErr:      errors.Join(ragErrors.ErrIngestionFailed, ragErrors.Dimension(3, 2)),
			expectedStatus: jobModel.JobStatusError,
			expectedCode:   http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upload := filepath.Join(t.TempDir(), "upload-1")
			require.NoError(t, os.WriteFile(upload, []byte("notes"), 0600))

			m := newMocks()
			var gotReplace bool
			m.ingestor.OnIngestFile = func(ctx context.Context, path, fileName string, onProgress ingest.ProgressFunc, opts ...ingest.Option) (ingest.Report, error) {
				assert.Equal(t, upload, path)
				assert.Equal(t, "notes.txt", fileName)
				report, err := ingest.Report{FileName: fileName, ChunksProduced: 3, ChunksStored: 2, ChunksSkipped: 1}, tt.ingestErr
				gotReplace = len(opts) == 1
				onProgress(ingest.StageDone)
				return report, err
			}
			s := m.service(true)

			var stages []ingest.Stage
			job := jobModel.Job{
				Id:         "ingest-job",
				JobType:    jobModel.JobTypeIngest,
				Status:     jobModel.JobStatusRunning,
				JobPayload: jobModel.JobPayload{IngestFileName: "notes.txt", IngestPath: upload, Replace: true},
			}
			result := s.IngestDocument(context.Background(), job, func(st ingest.Stage) { stages = append(stages, st) })

			assert.Equal(t, tt.expectedStatus, result.Status)
			assert.Equal(t, 2, result.JobPayload.ChunksStored)
			assert.Equal(t, 1, result.JobPayload.ChunksSkipped)
			assert.Equal(t, []ingest.Stage{ingest.StageDone}, stages)
			assert.True(t, gotReplace)
			if tt.expectedCode != 0 {
				assert.Equal(t, tt.expectedCode, result.Error.Code)
			}
			_, err := os.Stat(upload)
			assert.True(t, os.IsNotExist(err), "upload is removed after ingestion")
		})
	}
}

// vectors by chunk text, as a stand-in for a real embedding model
var toyVectors = map[string][]float32{
	"Alpha paragraph.": {1, 0},
	"Beta paragraph.":  {0, 1},
	"Gamma paragraph.": {1, 1},
	"question":         {1, 0},
}

func TestEndToEnd_SQLite(t *testing.T) {
	ctx := context.Background()
	store, err := sqliteDB.New(ctx, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	embedder := &MockEmbedder{
		OnGetEmbedding: func(ctx context.Context, text string) ([]float32, error) {
			v, ok := toyVectors[strings.TrimSpace(text)]
			if !ok {
				return nil, ragErrors.Unavailable(errors.New("unknown text " + text))
			}
			return v, nil
		},
	}
	splitter, err := chunker.New(20, 0)
	require.NoError(t, err)
	orchestrator := ingest.New(staticExtractor{}, splitter, embedder, store, ingest.Options{MaxDocumentBytes: 1 << 20})

	completer := &MockCompleter{}
	refiner := &MockRefiner{
		OnRefine: func(ctx context.Context, base, notes string) (string, error) {
			return "", errors.New("refinement offline")
		},
	}
	s := rag.NewService(rag.Dependencies{
		Store: store, Embedder: embedder, Completer: completer, Refiner: refiner, Ingestor: orchestrator, TopK: 2,
	})

	report, err := s.Ingest(ctx, []byte("Alpha paragraph.\n\nBeta paragraph.\n\nGamma paragraph."), "notes.txt", nil)
	require.NoError(t, err)
	require.Equal(t, 3, report.ChunksStored, "report: %+v", report)

	records, err := s.Sources(ctx, "question", 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Alpha paragraph.", strings.TrimSpace(records[0].Record.Text))
	assert.Equal(t, "Gamma paragraph.", strings.TrimSpace(records[1].Record.Text))
	assert.InDelta(t, 1.0, records[0].Score, 1e-9)

	got, err := s.Retrieve(ctx, "question", 2)
	require.NoError(t, err)
	assert.Equal(t, records[0].Record.Text+"\n\n"+records[1].Record.Text, got)

	answer, err := s.Answer(ctx, "question", "", "")
	require.NoError(t, err)
	assert.Equal(t, "Base answer", answer)

	names, err := s.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"notes.txt"}, names)

	n, err := s.DeleteDocument(ctx, "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	got, err = s.Retrieve(ctx, "question", 2)
	require.NoError(t, err)
	assert.Empty(t, got)
}
