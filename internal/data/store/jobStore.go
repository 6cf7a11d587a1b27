package store

import (
	"context"
	"strings"

	"github.com/akolanti/StudyRAG/internal/config"
	"github.com/akolanti/StudyRAG/internal/data/redisStore"
	"github.com/akolanti/StudyRAG/internal/domain/jobModel"
	"github.com/akolanti/StudyRAG/pkg/logger_i"
)

// NewJobStore returns the Redis store when it is configured and reachable,
// the in-memory one otherwise. The returned func releases the connection.
func NewJobStore(ctx context.Context, cfg config.JobsConfig) (jobModel.JobStore, func()) {
	logger := logger_i.NewLogger("JobStore")
	if strings.EqualFold(cfg.Backend, "redis") {
		rs, err := redisStore.New(ctx, cfg.Redis)
		if err == nil {
			return NewRedisJobStore(rs, cfg.TTL), func() { _ = rs.Close() }
		}
		logger.Warn("Redis unavailable, using in-memory job store", "error", err)
	}
	return InitInMemoryJobStore(cfg.TTL), func() {}
}
