package job

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/akolanti/StudyRAG/internal/config"
	"github.com/akolanti/StudyRAG/internal/domain/jobModel"
	"github.com/akolanti/StudyRAG/internal/metrics"
	"github.com/akolanti/StudyRAG/pkg/logger_i"
)

var ErrQueueUnavailable = errors.New("job queue unavailable")

type Service struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	logger            *logger_i.Logger
}

type ServiceConfig struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
}

func InitJobService(cfg ServiceConfig) *Service {
	return &Service{
		JobChannel:        cfg.JobChannel,
		RequestCount:      cfg.RequestCount,
		DispatcherChannel: cfg.DispatcherChannel,
		JobStore:          cfg.JobStore,
		logger:            logger_i.NewLogger("JobService"),
	}
}

// NewJob builds a queued job with the first step for its type.
func NewJob(id, traceId string, jobType jobModel.JobType, payload jobModel.JobPayload) jobModel.Job {
	j := jobModel.Job{
		Id:          id,
		TraceId:     traceId,
		JobType:     jobType,
		JobPayload:  payload,
		CreatedTime: time.Now(),
		Status:      jobModel.JobStatusQueued,
		CurrentStep: jobModel.GenerateInit,
	}
	if jobType == jobModel.JobTypeIngest {
		j.CurrentStep = jobModel.IngestInit
	}
	return j
}

// Submit stores the job as queued, then hands it to the worker pool. The job
// is saved first so its status can be read before a worker picks it up. If
// ctx ends while the queue is full the stored job is removed again.
func (s *Service) Submit(ctx context.Context, j jobModel.Job) error {
	log := s.log().With("traceId", j.TraceId, "jobId", j.Id)

	if err := s.JobStore.SaveJob(ctx, j); err != nil {
		log.Error("Could not save queued job", "error", err)
		return err
	}

	metrics.IncrementJobsInQueue()
	select {
	case s.JobChannel <- j:
	case <-ctx.Done():
		metrics.DecrementJobsInQueue()
		s.JobStore.DeleteJob(context.Background(), j.Id)
		log.Warn("Request gone before the job was queued", "error", ctx.Err())
		return ErrQueueUnavailable
	}
	log.Info("Created new job", "type", j.JobType)

	// a new worker every N requests, and for every ingestion since those are long
	count := atomic.AddInt64(&s.RequestCount, 1)
	if count%config.RequestsPerNewWorkerCount == 0 || j.JobType == jobModel.JobTypeIngest {
		s.signalDispatcher(log, count)
	}
	return nil
}

func (s *Service) Status(ctx context.Context, id string) (jobModel.Job, bool) {
	if id == "" {
		return jobModel.Job{}, false
	}
	return s.JobStore.GetJob(ctx, id)
}

func (s *Service) signalDispatcher(log *logger_i.Logger, count int64) {
	select {
	case s.DispatcherChannel <- true:
		metrics.StartDispatcherSignalCount()
	default:
		log.Debug("Dispatcher busy, signal dropped", "requestCount", count)
	}
}

// services built as struct literals in tests have no logger
func (s *Service) log() *logger_i.Logger {
	if s.logger == nil {
		return logger_i.NewLogger("JobService")
	}
	return s.logger
}
