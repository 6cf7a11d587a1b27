package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akolanti/StudyRAG/internal/domain/commonModels"
	"github.com/akolanti/StudyRAG/internal/domain/jobModel"
	"github.com/akolanti/StudyRAG/internal/job"
	"github.com/akolanti/StudyRAG/internal/rag/ingest"
	"github.com/akolanti/StudyRAG/internal/rag/prompts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockRagService to track if jobs are executed
type MockRagService struct {
	ProcessedCount int32
	OnProcess      func(ctx context.Context, j jobModel.Job) jobModel.Job
}

func (m *MockRagService) ProcessRequest(ctx context.Context, j jobModel.Job) jobModel.Job {
	atomic.AddInt32(&m.ProcessedCount, 1)
	if m.OnProcess != nil {
		return m.OnProcess(ctx, j)
	}
	j.JobPayload.Answer = "answer"
	return j
}

func (m *MockRagService) IngestDocument(ctx context.Context, j jobModel.Job, onProgress ingest.ProgressFunc) jobModel.Job {
	atomic.AddInt32(&m.ProcessedCount, 1)
	for _, st := range []ingest.Stage{ingest.StageExtracting, ingest.StageChunking, ingest.StageEmbedding, ingest.StageDone} {
		onProgress(st)
	}
	j.JobPayload.ChunksStored = 4
	return j
}

func (m *MockRagService) Retrieve(ctx context.Context, q string, k int) (string, error) {
	return "", nil
}

func (m *MockRagService) Sources(ctx context.Context, q string, k int) ([]commonModels.ScoredRecord, error) {
	return nil, nil
}

func (m *MockRagService) Answer(ctx context.Context, q, level, notes string) (string, error) {
	return "", nil
}

func (m *MockRagService) Generate(ctx context.Context, tool prompts.ToolID, topic, level, notes string) (string, error) {
	return "", nil
}

func (m *MockRagService) Ingest(ctx context.Context, data []byte, fileName string, onProgress ingest.ProgressFunc, opts ...ingest.Option) (ingest.Report, error) {
	return ingest.Report{}, nil
}

func (m *MockRagService) IngestFile(ctx context.Context, path, fileName string, onProgress ingest.ProgressFunc, opts ...ingest.Option) (ingest.Report, error) {
	return ingest.Report{}, nil
}

func (m *MockRagService) ListDocuments(ctx context.Context) ([]string, error) { return nil, nil }

func (m *MockRagService) DeleteDocument(ctx context.Context, name string) (int64, error) {
	return 0, nil
}

type MockJobStore struct {
	OnSaveJob func(ctx context.Context, job jobModel.Job) error
	mu        sync.Mutex
	saved     []jobModel.Job
}

func (m *MockJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.saved) - 1; i >= 0; i-- {
		if m.saved[i].Id == jobId {
			return m.saved[i], true
		}
	}
	return jobModel.Job{}, false
}

func (m *MockJobStore) DeleteJob(ctx context.Context, jobID string) {}

// SaveJob records j only when OnSaveJob accepts it.
func (m *MockJobStore) SaveJob(ctx context.Context, j jobModel.Job) error {
	if m.OnSaveJob != nil {
		if err := m.OnSaveJob(ctx, j); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.saved = append(m.saved, j)
	m.mu.Unlock()
	return nil
}

func (m *MockJobStore) history(id string) []jobModel.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []jobModel.Job
	for _, j := range m.saved {
		if j.Id == id {
			out = append(out, j)
		}
	}
	return out
}

func TestWorkerPool_Flow(t *testing.T) {
	jobStore := &MockJobStore{}
	jobSvc := &job.Service{
		JobChannel:        make(chan jobModel.Job, 10),
		DispatcherChannel: make(chan bool, 10),
		JobStore:          jobStore,
	}
	mockRag := &MockRagService{}
	stopChan := make(chan bool)
	wg := &sync.WaitGroup{}

	atomic.StoreInt64(&currentWorkerCount, 0)
	InitServices(jobSvc, mockRag)
	InitWorkerPool(stopChan, wg)

	t.Run("Dispatcher creates worker on signal", func(t *testing.T) {
		jobSvc.DispatcherChannel <- true
		assert.Eventually(t, func() bool {
			return atomic.LoadInt64(&currentWorkerCount) >= 2
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("Worker processes a generate job", func(t *testing.T) {
		jobSvc.JobChannel <- jobModel.Job{Id: "gen-1", JobType: jobModel.JobTypeGenerate}

		assert.Eventually(t, func() bool {
			h := jobStore.history("gen-1")
			return len(h) > 0 && h[len(h)-1].Status == jobModel.JobStatusComplete
		}, time.Second, 10*time.Millisecond)

		h := jobStore.history("gen-1")
		assert.Equal(t, jobModel.JobStatusRunning, h[0].Status)
		assert.Equal(t, "answer", h[len(h)-1].JobPayload.Answer)
		assert.False(t, h[len(h)-1].EndTime.IsZero())
	})

	t.Run("Ingest job records every stage", func(t *testing.T) {
		jobSvc.JobChannel <- jobModel.Job{Id: "ing-1", JobType: jobModel.JobTypeIngest}

		assert.Eventually(t, func() bool {
			h := jobStore.history("ing-1")
			return len(h) > 0 && h[len(h)-1].Status == jobModel.JobStatusComplete
		}, time.Second, 10*time.Millisecond)

		var steps []jobModel.InternalStatus
		for _, j := range jobStore.history("ing-1") {
			steps = append(steps, j.CurrentStep)
		}
		assert.Subset(t, steps, []jobModel.InternalStatus{"extracting", "chunking", "embedding", "done"})
		h := jobStore.history("ing-1")
		assert.Equal(t, 4, h[len(h)-1].JobPayload.ChunksStored)
	})

	t.Run("Failed job keeps its error status", func(t *testing.T) {
		mockRag.OnProcess = func(ctx context.Context, j jobModel.Job) jobModel.Job {
			j.Status = jobModel.JobStatusError
			j.Error = jobModel.JobError{Code: 503, Message: "Embedding service unavailable"}
			return j
		}
		jobSvc.JobChannel <- jobModel.Job{Id: "gen-2", JobType: jobModel.JobTypeGenerate}

		assert.Eventually(t, func() bool {
			h := jobStore.history("gen-2")
			return len(h) > 0 && !h[len(h)-1].EndTime.IsZero()
		}, time.Second, 10*time.Millisecond)
		h := jobStore.history("gen-2")
		assert.Equal(t, jobModel.JobStatusError, h[len(h)-1].Status)
	})

	t.Run("Stop signal retires workers", func(t *testing.T) {
		close(stopChan)

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("Workers did not stop within timeout")
		}
	})
}

func TestWorker_IdleTimeout(t *testing.T) {
	prevTimeout := idleWorkerTimeout
	idleWorkerTimeout = 20 * time.Millisecond
	t.Cleanup(func() { idleWorkerTimeout = prevTimeout })

	atomic.StoreInt64(&currentWorkerCount, 0)
	jobSvc := &job.Service{JobChannel: make(chan jobModel.Job)}
	InitServices(jobSvc, &MockRagService{})

	wg := &sync.WaitGroup{}
	stopChan := make(chan bool)
	workerWaitGroup = wg
	stopWorkerChannel = stopChan

	createWorker()
	createWorker()
	require.Equal(t, int64(2), atomic.LoadInt64(&currentWorkerCount))

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&currentWorkerCount) == 1
	}, time.Second, 10*time.Millisecond, "idle workers retire down to the minimum")

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int64(1), atomic.LoadInt64(&currentWorkerCount))

	close(stopChan)
	wg.Wait()
	assert.Equal(t, int64(0), atomic.LoadInt64(&currentWorkerCount))
}

func TestExecuteJob_TimedOutJobSavesFinalState(t *testing.T) {
	prevTimeout := jobTimeout
	jobTimeout = 50 * time.Millisecond
	t.Cleanup(func() { jobTimeout = prevTimeout })

	// a store that honours ctx like a network client would
	jobStore := &MockJobStore{OnSaveJob: func(ctx context.Context, j jobModel.Job) error {
		return ctx.Err()
	}}
	mockRag := &MockRagService{OnProcess: func(ctx context.Context, j jobModel.Job) jobModel.Job {
		<-ctx.Done()
		j.Status = jobModel.JobStatusError
		j.Error = jobModel.JobError{Code: 504, Message: "job timed out"}
		return j
	}}
	InitServices(&job.Service{JobStore: jobStore}, mockRag)

	executeJob(jobModel.Job{Id: "slow-1", JobType: jobModel.JobTypeGenerate})

	stored, ok := jobStore.GetJob(context.Background(), "slow-1")
	require.True(t, ok)
	assert.Equal(t, jobModel.JobStatusError, stored.Status)
	assert.Equal(t, 504, stored.Error.Code)
	assert.False(t, stored.EndTime.IsZero())
}
