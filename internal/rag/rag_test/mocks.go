package rag_test

import (
	"context"

	"github.com/akolanti/StudyRAG/internal/domain/commonModels"
	"github.com/akolanti/StudyRAG/internal/rag/ingest"
)

// MockVectorDB implements vectorDB.DataProcessor
type MockVectorDB struct {
	OnSearch  func(ctx context.Context, query []float32, k int) ([]commonModels.ScoredRecord, error)
	OnList    func(ctx context.Context) ([]string, error)
	OnDelete  func(ctx context.Context, fileName string) (int64, error)
	searchedK int
}

func (m *MockVectorDB) Put(ctx context.Context, r commonModels.ChunkRecord) error { return nil }

func (m *MockVectorDB) Search(ctx context.Context, query []float32, k int) ([]commonModels.ScoredRecord, error) {
	m.searchedK = k
	if m.OnSearch != nil {
		return m.OnSearch(ctx, query, k)
	}
	return []commonModels.ScoredRecord{
		{Record: commonModels.ChunkRecord{Id: "1", FileName: "notes.pdf", Text: "default context"}, Score: 1},
	}, nil
}

func (m *MockVectorDB) ListDocumentNames(ctx context.Context) ([]string, error) {
	if m.OnList != nil {
		return m.OnList(ctx)
	}
	return nil, nil
}

func (m *MockVectorDB) DeleteByFileName(ctx context.Context, fileName string) (int64, error) {
	if m.OnDelete != nil {
		return m.OnDelete(ctx, fileName)
	}
	return 0, nil
}

func (m *MockVectorDB) Count(ctx context.Context) (int64, error) { return 0, nil }
func (m *MockVectorDB) Close() error                             { return nil }

type MockEmbedder struct {
	OnGetEmbedding func(ctx context.Context, text string) ([]float32, error)
}

func (m *MockEmbedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	if m.OnGetEmbedding != nil {
		return m.OnGetEmbedding(ctx, text)
	}
	return []float32{1, 0}, nil
}

func (m *MockEmbedder) Dimension() int { return 2 }

// MockCompleter implements llm.Completer
type MockCompleter struct {
	OnComplete func(ctx context.Context, prompt string) (string, error)
	prompts    []string
}

func (m *MockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.OnComplete != nil {
		return m.OnComplete(ctx, prompt)
	}
	return "Base answer", nil
}

// MockRefiner implements llm.Refiner
type MockRefiner struct {
	OnRefine func(ctx context.Context, base string, notes string) (string, error)
	calls    int
}

func (m *MockRefiner) Refine(ctx context.Context, base string, notes string) (string, error) {
	m.calls++
	if m.OnRefine != nil {
		return m.OnRefine(ctx, base, notes)
	}
	return "Refined answer", nil
}

type MockIngestor struct {
	OnIngestFile func(ctx context.Context, path, fileName string, onProgress ingest.ProgressFunc, opts ...ingest.Option) (ingest.Report, error)
}

func (m *MockIngestor) Ingest(ctx context.Context, data []byte, fileName string, onProgress ingest.ProgressFunc, opts ...ingest.Option) (ingest.Report, error) {
	return ingest.Report{FileName: fileName}, nil
}

func (m *MockIngestor) IngestFile(ctx context.Context, path, fileName string, onProgress ingest.ProgressFunc, opts ...ingest.Option) (ingest.Report, error) {
	if m.OnIngestFile != nil {
		return m.OnIngestFile(ctx, path, fileName, onProgress, opts...)
	}
	return ingest.Report{FileName: fileName}, nil
}

// staticExtractor returns the bytes as text
type staticExtractor struct{}

func (staticExtractor) Extract(ctx context.Context, data []byte, fileName string) (string, error) {
	return string(data), nil
}
