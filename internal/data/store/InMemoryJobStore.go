package store

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/StudyRAG/internal/domain/jobModel"
	"github.com/akolanti/StudyRAG/pkg/logger_i"
)

type InMemoryJobStore struct {
	jobMutex *sync.RWMutex
	jobMap   map[string]jobModel.Job
	ttl      time.Duration
	logger   *logger_i.Logger
}

// InitInMemoryJobStore keeps jobs for ttl after they are created. Zero keeps
// them for the life of the process.
func InitInMemoryJobStore(ttl time.Duration) *InMemoryJobStore {
	return &InMemoryJobStore{
		jobMutex: new(sync.RWMutex),
		jobMap:   make(map[string]jobModel.Job),
		ttl:      ttl,
		logger:   logger_i.NewLogger("InMem JobStore"),
	}
}

func (store *InMemoryJobStore) SaveJob(ctx context.Context, jobToStore jobModel.Job) error {
	store.jobMutex.Lock()
	defer store.jobMutex.Unlock()
	store.evictExpired(time.Now())
	store.jobMap[jobToStore.Id] = jobToStore
	store.logger.Debug("Saved job to store", "jobId", jobToStore.Id, "status", jobToStore.Status)
	return nil
}

func (store *InMemoryJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	store.jobMutex.RLock()
	defer store.jobMutex.RUnlock()
	result, found := store.jobMap[jobId]
	if found && store.expired(result, time.Now()) {
		return jobModel.Job{}, false
	}
	return result, found
}

func (store *InMemoryJobStore) DeleteJob(ctx context.Context, jobID string) {
	store.jobMutex.Lock()
	defer store.jobMutex.Unlock()
	delete(store.jobMap, jobID)
}

func (store *InMemoryJobStore) expired(job jobModel.Job, now time.Time) bool {
	return store.ttl > 0 && !job.CreatedTime.IsZero() && now.Sub(job.CreatedTime) > store.ttl
}

// caller holds the write lock
func (store *InMemoryJobStore) evictExpired(now time.Time) {
	for id, job := range store.jobMap {
		if store.expired(job, now) {
			delete(store.jobMap, id)
		}
	}
}
