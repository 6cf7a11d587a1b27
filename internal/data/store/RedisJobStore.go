package store

import (
	"context"
	"time"

	"github.com/akolanti/StudyRAG/internal/config"
	"github.com/akolanti/StudyRAG/internal/data/redisStore"
	"github.com/akolanti/StudyRAG/internal/domain/jobModel"
	"github.com/akolanti/StudyRAG/pkg/logger_i"
)

const jobKeyPrefix = "studyrag:job:"

type RedisJobStore struct {
	store  *redisStore.Store
	ttl    time.Duration
	logger *logger_i.Logger
}

func NewRedisJobStore(store *redisStore.Store, ttl time.Duration) *RedisJobStore {
	return &RedisJobStore{
		store:  store,
		ttl:    ttl,
		logger: logger_i.NewLogger("JobStore"),
	}
}

func (s *RedisJobStore) SaveJob(ctx context.Context, job jobModel.Job) error {
	err := s.store.SetJSON(ctx, jobKeyPrefix+job.Id, job, s.ttl)
	if err == nil {
		s.logger.Trace(ctx, config.TRACE_ID_KEY).Debug("Saved job to Redis", "jobId", job.Id, "status", job.Status, "step", job.CurrentStep)
	}
	return err
}

// GetJob reports false for missing, expired and unreadable jobs alike.
func (s *RedisJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	var job jobModel.Job
	found, err := s.store.GetJSON(ctx, jobKeyPrefix+jobId, &job)
	if err != nil {
		s.logger.Trace(ctx, config.TRACE_ID_KEY).Error("Error reading job from Redis", "jobId", jobId, "error", err)
		return jobModel.Job{}, false
	}
	return job, found
}

func (s *RedisJobStore) DeleteJob(ctx context.Context, jobID string) {
	if err := s.store.Del(ctx, jobKeyPrefix+jobID); err != nil {
		s.logger.Error("Error deleting job from Redis", "jobId", jobID, "error", err)
		return
	}
	s.logger.Debug("Job deleted from Redis", "jobId", jobID)
}
