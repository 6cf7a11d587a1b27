package rag

import (
	"context"
	"errors"
	"time"

	"github.com/akolanti/StudyRAG/internal/domain/commonModels"
	"github.com/akolanti/StudyRAG/internal/domain/jobModel"
	"github.com/akolanti/StudyRAG/internal/domain/ragErrors"
	"github.com/akolanti/StudyRAG/internal/metrics"
	"github.com/akolanti/StudyRAG/internal/rag/embedding"
	"github.com/akolanti/StudyRAG/pkg/logger_i"
)

func returnOutput(job jobModel.Job, ans string) jobModel.Job {
	job.JobPayload.Answer = ans
	job.CurrentStep = jobModel.Complete
	return job
}

func logOutput(job jobModel.Job, status jobModel.InternalStatus, log *logger_i.Logger) jobModel.Job {
	job.CurrentStep = status
	log.Debug("ProcessRequest", "Current Status", job.CurrentStep)
	return job
}

func (s *service) jobError(job jobModel.Job, err error, message string) jobModel.Job {
	s.logger.Error(message, "jobId", job.Id, "error", err)

	c := ragErrors.Classify(err)
	job.Error = jobModel.JobError{
		Code:    c.Status,
		Message: c.Message,
		Reason:  c.Reason,
		Retry:   c.Retry,
	}
	job.Status = jobModel.JobStatusError
	job.CurrentStep = jobModel.Error
	return job
}

func (s *service) executeEmbeddingStep(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding", time.Since(start)) }()

	return embedding.EmbedQuery(ctx, s.embedder, text)
}

func (s *service) executeVectorSearchStep(ctx context.Context, emb []float32, k int) ([]commonModels.ScoredRecord, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_search", time.Since(start)) }()

	return s.vectorDB.Search(ctx, emb, k)
}

func (s *service) executeCompletionStep(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("completion", time.Since(start)) }()

	ans, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		var ce *ragErrors.CompletionError
		if !errors.As(err, &ce) {
			err = ragErrors.NewCompletionError(ragErrors.ReasonUnreachable, err)
		}
		return "", err
	}
	return ans, nil
}

// executeRefinementStep never fails: any refinement error yields the base answer.
func (s *service) executeRefinementStep(ctx context.Context, log *logger_i.Logger, base string, notesContext string) string {
	if s.refiner == nil {
		return base
	}
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("refinement", time.Since(start)) }()

	refined, err := s.refiner.Refine(ctx, base, notesContext)
	if err != nil || refined == "" {
		log.Warn("Refinement failed, returning base answer", "error", err)
		metrics.IncrementRefinementFallback()
		return base
	}
	return refined
}
