package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/akolanti/StudyRAG/internal/config"
	"github.com/akolanti/StudyRAG/internal/data/redisStore"
	"github.com/akolanti/StudyRAG/internal/data/store"
	"github.com/akolanti/StudyRAG/internal/domain/jobModel"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lifecycle(t *testing.T, jobStore jobModel.JobStore) {
	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
	jobID := "job_abc_123"

	testJob := jobModel.Job{
		Id:          jobID,
		JobType:     jobModel.JobTypeGenerate,
		Status:      jobModel.JobStatusRunning,
		CurrentStep: jobModel.RetrievalCall,
		CreatedTime: time.Now(),
		JobPayload:  jobModel.JobPayload{Tool: "flashcards", Topic: "Normalisation"},
	}

	t.Run("Save and Get Roundtrip", func(t *testing.T) {
		require.NoError(t, jobStore.SaveJob(ctx, testJob))

		got, found := jobStore.GetJob(ctx, jobID)
		require.True(t, found)
		assert.Equal(t, testJob.JobPayload, got.JobPayload)
		assert.Equal(t, jobModel.RetrievalCall, got.CurrentStep)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		updated := testJob
		updated.Status = jobModel.JobStatusComplete
		updated.JobPayload.Answer = "done"
		require.NoError(t, jobStore.SaveJob(ctx, updated))

		got, found := jobStore.GetJob(ctx, jobID)
		require.True(t, found)
		assert.Equal(t, jobModel.JobStatusComplete, got.Status)
		assert.Equal(t, "done", got.JobPayload.Answer)
	})

	t.Run("Get Non-Existent Job", func(t *testing.T) {
		_, found := jobStore.GetJob(ctx, "ghost-id")
		assert.False(t, found)
	})

	t.Run("Delete Job", func(t *testing.T) {
		jobStore.DeleteJob(ctx, jobID)
		_, found := jobStore.GetJob(ctx, jobID)
		assert.False(t, found)
	})
}

func TestRedisJobStore_Lifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	lifecycle(t, store.NewRedisJobStore(redisStore.NewWithClient(client), time.Hour))
}

func TestInMemoryJobStore_Lifecycle(t *testing.T) {
	lifecycle(t, store.InitInMemoryJobStore(time.Hour))
}

func TestRedisJobStore_TTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	jobStore := store.NewRedisJobStore(redisStore.NewWithClient(client), time.Minute)
	ctx := context.Background()

	require.NoError(t, jobStore.SaveJob(ctx, jobModel.Job{Id: "short-lived"}))
	mr.FastForward(2 * time.Minute)

	_, found := jobStore.GetJob(ctx, "short-lived")
	assert.False(t, found)
}

func TestInMemoryJobStore_TTL(t *testing.T) {
	jobStore := store.InitInMemoryJobStore(time.Minute)
	ctx := context.Background()

	require.NoError(t, jobStore.SaveJob(ctx, jobModel.Job{Id: "old", CreatedTime: time.Now().Add(-time.Hour)}))
	_, found := jobStore.GetJob(ctx, "old")
	assert.False(t, found)
}

func TestNewJobStore_FallsBackToMemory(t *testing.T) {
	cfg := config.JobsConfig{
		Backend: "redis",
		Redis:   config.RedisConfig{Addr: "127.0.0.1:1"},
		TTL:     time.Hour,
	}
	jobStore, closeFn := store.NewJobStore(context.Background(), cfg)
	defer closeFn()
	_, ok := jobStore.(*store.InMemoryJobStore)
	assert.True(t, ok)
}

func TestNewJobStore_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	jobStore, closeFn := store.NewJobStore(context.Background(), config.JobsConfig{
		Backend: "redis",
		Redis:   config.RedisConfig{Addr: mr.Addr()},
	})
	defer closeFn()
	_, ok := jobStore.(*store.RedisJobStore)
	assert.True(t, ok)
}

func TestRedisJobStore_Race(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	jobStore := store.NewRedisJobStore(redisStore.NewWithClient(client), time.Hour)

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "race-trace")
	job := jobModel.Job{Id: "race-job"}

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = jobStore.SaveJob(ctx, job)
			_, _ = jobStore.GetJob(ctx, "race-job")
		}()
	}
	wg.Wait()

	_, found := jobStore.GetJob(ctx, "race-job")
	assert.True(t, found)
}
