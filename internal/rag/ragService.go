package rag

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/akolanti/StudyRAG/internal/config"
	"github.com/akolanti/StudyRAG/internal/domain/commonModels"
	"github.com/akolanti/StudyRAG/internal/domain/jobModel"
	"github.com/akolanti/StudyRAG/internal/metrics"
	"github.com/akolanti/StudyRAG/internal/rag/embedding"
	"github.com/akolanti/StudyRAG/internal/rag/ingest"
	"github.com/akolanti/StudyRAG/internal/rag/llm"
	"github.com/akolanti/StudyRAG/internal/rag/prompts"
	"github.com/akolanti/StudyRAG/internal/rag/vectorDB"
	"github.com/akolanti/StudyRAG/pkg/logger_i"
)

// Service is what the worker, the CLI and the MCP server call. The stores and
// model clients stay behind it.
type Service interface {
	ProcessRequest(ctx context.Context, job jobModel.Job) jobModel.Job
	IngestDocument(ctx context.Context, job jobModel.Job, onProgress ingest.ProgressFunc) jobModel.Job

	Retrieve(ctx context.Context, question string, k int) (string, error)
	Sources(ctx context.Context, question string, k int) ([]commonModels.ScoredRecord, error)
	Answer(ctx context.Context, question string, level string, notes string) (string, error)
	Generate(ctx context.Context, tool prompts.ToolID, topic string, level string, notes string) (string, error)

	Ingest(ctx context.Context, data []byte, fileName string, onProgress ingest.ProgressFunc, opts ...ingest.Option) (ingest.Report, error)
	IngestFile(ctx context.Context, path string, fileName string, onProgress ingest.ProgressFunc, opts ...ingest.Option) (ingest.Report, error)
	ListDocuments(ctx context.Context) ([]string, error)
	DeleteDocument(ctx context.Context, fileName string) (int64, error)
}

// Ingestor is satisfied by *ingest.Orchestrator.
type Ingestor interface {
	Ingest(ctx context.Context, data []byte, fileName string, onProgress ingest.ProgressFunc, opts ...ingest.Option) (ingest.Report, error)
	IngestFile(ctx context.Context, path string, fileName string, onProgress ingest.ProgressFunc, opts ...ingest.Option) (ingest.Report, error)
}

type Dependencies struct {
	Store     vectorDB.DataProcessor
	Embedder  embedding.Embedder
	Completer llm.Completer
	// Refiner may be nil, answers are then returned unrefined.
	Refiner  llm.Refiner
	Ingestor Ingestor
	TopK     int
}

type service struct {
	vectorDB  vectorDB.DataProcessor
	embedder  embedding.Embedder
	completer llm.Completer
	refiner   llm.Refiner
	ingestor  Ingestor
	topK      int
	logger    *logger_i.Logger
}

func NewService(deps Dependencies) Service {
	topK := deps.TopK
	if topK <= 0 {
		topK = config.DefaultTopK
	}
	return &service{
		vectorDB:  deps.Store,
		embedder:  deps.Embedder,
		completer: deps.Completer,
		refiner:   deps.Refiner,
		ingestor:  deps.Ingestor,
		topK:      topK,
		logger:    logger_i.NewLogger("RAG Service"),
	}
}

// Retrieve joins the text of the k nearest records with a blank line, in
// store order. An empty store gives "".
func (s *service) Retrieve(ctx context.Context, question string, k int) (string, error) {
	records, err := s.Sources(ctx, question, k)
	if err != nil {
		return "", err
	}
	return joinContext(records), nil
}

func (s *service) Sources(ctx context.Context, question string, k int) ([]commonModels.ScoredRecord, error) {
	if k <= 0 {
		k = s.topK
	}
	emb, err := s.executeEmbeddingStep(ctx, question)
	if err != nil {
		return nil, err
	}
	return s.executeVectorSearchStep(ctx, emb, k)
}

func (s *service) Answer(ctx context.Context, question string, level string, notes string) (string, error) {
	answer, _, err := s.run(ctx, question, func(notesContext string) string {
		return prompts.Grounding(question, prompts.ParseLevel(level), notes, notesContext)
	}, nil)
	return answer, err
}

// Generate renders the tool's prompt with the retrieved notes appended.
// ask-question goes through the grounding prompt, same as Answer.
func (s *service) Generate(ctx context.Context, tool prompts.ToolID, topic string, level string, notes string) (string, error) {
	answer, _, err := s.generate(ctx, tool, topic, level, notes, nil)
	return answer, err
}

func (s *service) generate(ctx context.Context, tool prompts.ToolID, topic, level, notes string, onStep func(jobModel.InternalStatus)) (string, []commonModels.ScoredRecord, error) {
	if tool == "" || tool == prompts.AskQuestion {
		return s.run(ctx, topic, func(notesContext string) string {
			return prompts.Grounding(topic, prompts.ParseLevel(level), notes, notesContext)
		}, onStep)
	}

	base, err := prompts.Build(tool, topic, prompts.ParseLevel(level), notes)
	if err != nil {
		return "", nil, err
	}
	return s.run(ctx, topic, func(notesContext string) string {
		return prompts.WithContext(base, notesContext)
	}, onStep)
}

// run is retrieve, one completion, then one refinement attempt.
func (s *service) run(ctx context.Context, query string, buildPrompt func(notesContext string) string, onStep func(jobModel.InternalStatus)) (string, []commonModels.ScoredRecord, error) {
	if onStep == nil {
		onStep = func(jobModel.InternalStatus) {}
	}
	log := s.logger.Trace(ctx, config.TRACE_ID_KEY)

	onStep(jobModel.RetrievalCall)
	records, err := s.Sources(ctx, query, s.topK)
	if err != nil {
		log.Error("Retrieval failed", "error", err)
		return "", nil, err
	}
	notesContext := joinContext(records)
	log.Debug("Retrieved context", "records", len(records))

	onStep(jobModel.LLMCall)
	base, err := s.executeCompletionStep(ctx, buildPrompt(notesContext))
	if err != nil {
		log.Error("Completion failed", "error", err)
		return "", records, err
	}

	onStep(jobModel.RefineCall)
	return s.executeRefinementStep(ctx, log, base, notesContext), records, nil
}

func (s *service) ProcessRequest(ctx context.Context, job jobModel.Job) jobModel.Job {
	log := s.logger.Trace(ctx, config.TRACE_ID_KEY).With("jobId", job.Id)
	job.CurrentStep = jobModel.GenerateInit

	p := job.JobPayload
	answer, records, err := s.generate(ctx, prompts.ToolID(p.Tool), p.Topic, p.Level, p.Notes, func(step jobModel.InternalStatus) {
		job = logOutput(job, step, log)
	})
	if err != nil {
		return s.jobError(job, err, "GENERATION_FAILURE")
	}
	job.JobPayload.Sources = sourceNames(records)
	return returnOutput(job, answer)
}

// IngestDocument ingests the uploaded file referenced by the job and removes
// it afterwards.
func (s *service) IngestDocument(ctx context.Context, job jobModel.Job, onProgress ingest.ProgressFunc) jobModel.Job {
	start := time.Now()
	defer func() { metrics.CaptureJobMetrics("document_ingestion", time.Since(start)) }()

	p := job.JobPayload
	defer func() {
		if p.IngestPath == "" {
			return
		}
		if err := os.Remove(p.IngestPath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("Could not remove upload", "path", p.IngestPath, "error", err)
		}
	}()

	job.CurrentStep = jobModel.IngestInit
	report, err := s.ingestor.IngestFile(ctx, p.IngestPath, p.IngestFileName, onProgress, ingest.WithReplace(p.Replace))
	job.JobPayload.ChunksProduced = report.ChunksProduced
	job.JobPayload.ChunksStored = report.ChunksStored
	job.JobPayload.ChunksSkipped = report.ChunksSkipped
	if err != nil {
		return s.jobError(job, err, "INGESTION_FAILURE")
	}
	job.CurrentStep = jobModel.Complete
	return job
}

func (s *service) Ingest(ctx context.Context, data []byte, fileName string, onProgress ingest.ProgressFunc, opts ...ingest.Option) (ingest.Report, error) {
	return s.ingestor.Ingest(ctx, data, fileName, onProgress, opts...)
}

func (s *service) IngestFile(ctx context.Context, path string, fileName string, onProgress ingest.ProgressFunc, opts ...ingest.Option) (ingest.Report, error) {
	return s.ingestor.IngestFile(ctx, path, fileName, onProgress, opts...)
}

func (s *service) ListDocuments(ctx context.Context) ([]string, error) {
	return s.vectorDB.ListDocumentNames(ctx)
}

func (s *service) DeleteDocument(ctx context.Context, fileName string) (int64, error) {
	n, err := s.vectorDB.DeleteByFileName(ctx, fileName)
	if err == nil {
		s.logger.Trace(ctx, config.TRACE_ID_KEY).Info("Deleted document", "fileName", fileName, "records", n)
	}
	return n, err
}

func joinContext(records []commonModels.ScoredRecord) string {
	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Record.Text
	}
	return strings.Join(texts, "\n\n")
}

// sourceNames lists each file once, in rank order.
func sourceNames(records []commonModels.ScoredRecord) []string {
	seen := make(map[string]bool, len(records))
	var names []string
	for _, r := range records {
		if !seen[r.Record.FileName] {
			seen[r.Record.FileName] = true
			names = append(names, r.Record.FileName)
		}
	}
	return names
}
