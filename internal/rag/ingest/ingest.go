package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/akolanti/StudyRAG/internal/config"
	"github.com/akolanti/StudyRAG/internal/domain/commonModels"
	"github.com/akolanti/StudyRAG/internal/domain/ragErrors"
	"github.com/akolanti/StudyRAG/internal/metrics"
	"github.com/akolanti/StudyRAG/internal/rag/chunker"
	"github.com/akolanti/StudyRAG/internal/rag/embedding"
	"github.com/akolanti/StudyRAG/internal/rag/vectorDB"
	"github.com/akolanti/StudyRAG/pkg/logger_i"
	"golang.org/x/time/rate"
)

type Stage string

const (
	StageExtracting Stage = "extracting"
	StageChunking   Stage = "chunking"
	StageEmbedding  Stage = "embedding"
	StageDone       Stage = "done"
)

// ProgressFunc observes stage transitions. It never affects control flow.
type ProgressFunc func(stage Stage)

type TextExtractor interface {
	Extract(ctx context.Context, data []byte, fileName string) (string, error)
}

type Options struct {
	MaxDocumentBytes   int64
	EmbedRetries       int
	RetryBackoff       time.Duration
	EmbedRatePerSecond float64
}

func DefaultOptions() Options {
	return Options{
		MaxDocumentBytes:   config.DefaultMaxDocumentBytes,
		EmbedRetries:       config.DefaultEmbedRetries,
		RetryBackoff:       config.DefaultRetryBackoff,
		EmbedRatePerSecond: config.DefaultEmbedRatePerSecond,
	}
}

type Report struct {
	FileName       string `json:"file_name"`
	ChunksProduced int    `json:"chunks_produced"`
	ChunksStored   int    `json:"chunks_stored"`
	ChunksSkipped  int    `json:"chunks_skipped"`
	Replaced       int64  `json:"replaced,omitempty"`
}

type runOptions struct {
	replace bool
}

type Option func(*runOptions)

// WithReplace deletes the records already stored under the same file name
// just before the first new one is written. If no chunk can be embedded the
// old records stay and ErrIngestionFailed is returned. Without it duplicates
// are kept.
func WithReplace(replace bool) Option {
	return func(o *runOptions) { o.replace = replace }
}

// documents are ingested one at a time across the whole process
var ingestMu sync.Mutex

type Orchestrator struct {
	extractor TextExtractor
	splitter  *chunker.Splitter
	embedder  embedding.Embedder
	store     vectorDB.DataProcessor
	opts      Options
	limiter   *rate.Limiter
	logger    *logger_i.Logger
}

func New(extractor TextExtractor, splitter *chunker.Splitter, embedder embedding.Embedder, store vectorDB.DataProcessor, opts Options) *Orchestrator {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.EmbedRatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.EmbedRatePerSecond), 1)
	}
	return &Orchestrator{
		extractor: extractor,
		splitter:  splitter,
		embedder:  embedder,
		store:     store,
		opts:      opts,
		limiter:   limiter,
		logger:    logger_i.NewLogger("Document Ingestion"),
	}
}

// IngestFile checks the size on disk before reading the file.
func (o *Orchestrator) IngestFile(ctx context.Context, path, fileName string, onProgress ProgressFunc, opts ...Option) (Report, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Report{FileName: fileName}, fmt.Errorf("%w: %w", ragErrors.ErrIngestionFailed, err)
	}
	if err := o.checkSize(info.Size()); err != nil {
		return Report{FileName: fileName}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{FileName: fileName}, fmt.Errorf("%w: %w", ragErrors.ErrIngestionFailed, err)
	}
	return o.Ingest(ctx, data, fileName, onProgress, opts...)
}

// Ingest runs extract, chunk, then embed and put for each chunk in order.
//
// A chunk whose embedding stays unavailable after the retries is skipped and
// counted in the report. Extraction failures and store failures (including a
// dimension mismatch) stop the document and return ErrIngestionFailed.
func (o *Orchestrator) Ingest(ctx context.Context, data []byte, fileName string, onProgress ProgressFunc, opts ...Option) (Report, error) {
	report := Report{FileName: fileName}
	run := runOptions{}
	for _, opt := range opts {
		opt(&run)
	}
	if onProgress == nil {
		onProgress = func(Stage) {}
	}
	log := o.logger.Trace(ctx, config.TRACE_ID_KEY).With("fileName", fileName)

	if strings.TrimSpace(fileName) == "" {
		return report, fmt.Errorf("%w: %w: empty file name", ragErrors.ErrIngestionFailed, ragErrors.ErrInvalidRecord)
	}
	if err := o.checkSize(int64(len(data))); err != nil {
		return report, err
	}

	ingestMu.Lock()
	defer ingestMu.Unlock()

	onProgress(StageExtracting)
	start := time.Now()
	text, err := o.extractor.Extract(ctx, data, fileName)
	metrics.CaptureExecutionMetrics("extraction", time.Since(start))
	if err != nil {
		log.Error("Error extracting document", "error", err)
		return report, fmt.Errorf("%w: %w", ragErrors.ErrIngestionFailed, err)
	}

	onProgress(StageChunking)
	if strings.TrimSpace(text) == "" {
		log.Warn("Document has no extractable text")
		onProgress(StageDone)
		return report, nil
	}
	chunks := o.splitter.Chunk(text)
	report.ChunksProduced = len(chunks)
	log.Debug("Document chunked", "chunks", len(chunks))

	onProgress(StageEmbedding)
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("%w: %w", ragErrors.ErrIngestionFailed, err)
		}

		vec, err := o.embedWithRetry(ctx, chunk)
		if err != nil {
			if ctx.Err() != nil {
				return report, fmt.Errorf("%w: %w", ragErrors.ErrIngestionFailed, ctx.Err())
			}
			log.Warn("Skipping chunk, embedding unavailable", "chunk", i, "error", err)
			report.ChunksSkipped++
			metrics.CountIngestChunk("skipped")
			continue
		}

		record, err := commonModels.NewChunkRecord(fileName, chunk, vec)
		if err != nil {
			log.Warn("Skipping chunk, invalid record", "chunk", i, "error", err)
			report.ChunksSkipped++
			metrics.CountIngestChunk("skipped")
			continue
		}

		// old records go only once a replacement vector exists
		if run.replace && report.ChunksStored == 0 {
			n, err := o.store.DeleteByFileName(ctx, fileName)
			if err != nil {
				return report, fmt.Errorf("%w: replacing %s: %w", ragErrors.ErrIngestionFailed, fileName, err)
			}
			report.Replaced = n
			log.Info("Replaced existing records", "deleted", n)
		}

		putStart := time.Now()
		err = o.store.Put(ctx, record)
		metrics.CaptureExecutionMetrics("vector_put", time.Since(putStart))
		if err != nil {
			if errors.Is(err, ragErrors.ErrDimensionMismatch) {
				log.Error("Embedding dimension does not match the store, clear the store or switch models", "error", err)
			} else {
				log.Error("Error storing chunk", "chunk", i, "error", err)
			}
			return report, fmt.Errorf("%w: %w", ragErrors.ErrIngestionFailed, err)
		}
		report.ChunksStored++
		metrics.CountIngestChunk("stored")
	}

	if run.replace && report.ChunksStored == 0 {
		log.Error("No chunk could be embedded, existing records kept", "skipped", report.ChunksSkipped)
		return report, fmt.Errorf("%w: no chunk of %s could be embedded: %w", ragErrors.ErrIngestionFailed, fileName, ragErrors.ErrEmbeddingUnavailable)
	}

	onProgress(StageDone)
	log.Info("Document ingested", "produced", report.ChunksProduced, "stored", report.ChunksStored, "skipped", report.ChunksSkipped)
	return report, nil
}

func (o *Orchestrator) checkSize(size int64) error {
	if o.opts.MaxDocumentBytes > 0 && size > o.opts.MaxDocumentBytes {
		return fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ragErrors.ErrDocumentTooLarge, size, o.opts.MaxDocumentBytes)
	}
	return nil
}

// embedWithRetry paces calls through the limiter and retries only
// ErrEmbeddingUnavailable, backing off linearly.
func (o *Orchestrator) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= o.opts.EmbedRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(o.opts.RetryBackoff * time.Duration(attempt)):
			}
		}
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		start := time.Now()
		vec, err := o.embedder.GetEmbedding(ctx, text)
		metrics.CaptureExecutionMetrics("embedding", time.Since(start))
		if err == nil {
			return vec, nil
		}
		lastErr = err
		if !errors.Is(err, ragErrors.ErrEmbeddingUnavailable) {
			return nil, err
		}
	}
	return nil, lastErr
}
