package redisStore

import (
	"context"
	"fmt"
	"time"

	"github.com/akolanti/StudyRAG/internal/config"
	"github.com/akolanti/StudyRAG/pkg/logger_i"
	"github.com/redis/go-redis/v9"
)

const pingTimeout = 3 * time.Second

type Store struct {
	client *redis.Client
	logger *logger_i.Logger
}

// New connects and pings. A Redis that does not answer is an error so the
// caller can fall back to the in-memory store.
func New(ctx context.Context, cfg config.RedisConfig) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:                  cfg.Addr,
		Password:              cfg.Password,
		DB:                    cfg.DB,
		ContextTimeoutEnabled: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s is offline: %w", cfg.Addr, err)
	}

	s := NewWithClient(client)
	s.logger.Info("Redis store connected", "addr", cfg.Addr, "db", cfg.DB)
	return s, nil
}

// NewWithClient wraps an existing client, tests hand in a miniredis one.
func NewWithClient(client *redis.Client) *Store {
	return &Store{
		client: client,
		logger: logger_i.NewLogger("Redis Store"),
	}
}

func (s *Store) Close() error {
	s.logger.Info("Closing Redis store")
	return s.client.Close()
}
