package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/akolanti/StudyRAG/internal/config"
	jobmodel "github.com/akolanti/StudyRAG/internal/domain/jobModel"
	"github.com/akolanti/StudyRAG/internal/metrics"
	"github.com/akolanti/StudyRAG/internal/rag/ingest"
	"github.com/akolanti/StudyRAG/pkg/logger_i"
)

func executeJob(job jobmodel.Job) {
	start := time.Now()
	defer func() {
		metrics.CaptureJobMetrics(string(job.Status), time.Since(start))
	}()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, jobTimeout)
	defer cancel()
	log := logger.Trace(ctx, config.TRACE_ID_KEY).With("jobId", job.Id)
	log.Debug("Processing job", "type", job.JobType)

	job.Status = jobmodel.JobStatusRunning
	saveJobState(ctx, job)

	if job.JobType == jobmodel.JobTypeIngest {
		job = ingestDocument(ctx, job, log)
	} else {
		job = processQuery(ctx, job, log)
	}

	job.EndTime = time.Now()
	if job.Status != jobmodel.JobStatusError {
		job.Status = jobmodel.JobStatusComplete
	}
	// ctx may already be past its deadline here
	saveCtx, saveCancel := context.WithTimeout(context.WithoutCancel(ctx), finalSaveTimeout)
	defer saveCancel()
	saveJobState(saveCtx, job)
	log.Info("Job finished", "status", job.Status, "elapsed", time.Since(start))
}

func removeWorker(reason string) {
	workerWaitGroup.Done()
	count := atomic.AddInt64(&currentWorkerCount, -1)
	logger.Info("Removed worker", "reason", reason, "workerCount", count)
	metrics.DecrementActiveWorkerCount()
}

// ingestDocument writes every ingestion stage to the job store so the status
// endpoint can show progress.
func ingestDocument(ctx context.Context, job jobmodel.Job, log *logger_i.Logger) jobmodel.Job {
	progress := job
	onProgress := func(stage ingest.Stage) {
		progress.CurrentStep = jobmodel.InternalStatus(stage)
		log.Debug("Ingestion progress", "stage", stage)
		saveJobState(ctx, progress)
	}
	return _ragService.IngestDocument(ctx, job, onProgress)
}

func processQuery(ctx context.Context, job jobmodel.Job, log *logger_i.Logger) jobmodel.Job {
	log.Debug("Generating", "tool", job.JobPayload.Tool)
	return _ragService.ProcessRequest(ctx, job)
}

func saveJobState(ctx context.Context, job jobmodel.Job) {
	if err := _jobService.JobStore.SaveJob(ctx, job); err != nil {
		logger.Error("Failed to save job state", "jobId", job.Id, "err", err)
	}
}
