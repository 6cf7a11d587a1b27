package qdrantDB

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"

	"github.com/akolanti/StudyRAG/internal/domain/ragErrors"
	"github.com/akolanti/StudyRAG/internal/rag/vectorDB"
	"github.com/akolanti/StudyRAG/internal/rag/vectorDB/storetest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Needs a running qdrant: QDRANT_TEST_HOST=localhost go test ./internal/rag/vectorDB/qdrantDB
func TestClientHolderConformance(t *testing.T) {
	host := os.Getenv("QDRANT_TEST_HOST")
	if host == "" {
		t.Skip("QDRANT_TEST_HOST not set")
	}
	port := 6334
	if p, err := strconv.Atoi(os.Getenv("QDRANT_TEST_PORT")); err == nil {
		port = p
	}

	storetest.Run(t, func(t *testing.T) vectorDB.DataProcessor {
		ctx := context.Background()
		db, err := New(ctx, Config{
			Host:       host,
			Port:       port,
			PoolSize:   1,
			Collection: "studyrag-test-" + uuid.NewString(),
		})
		require.NoError(t, err)
		return &throwaway{db}
	})
}

// throwaway drops its collection on Close.
type throwaway struct {
	*ClientHolder
}

func (t *throwaway) Close() error {
	_ = t.QObj.DeleteCollection(context.Background(), t.collection)
	return t.ClientHolder.Close()
}

func TestQdrantErr(t *testing.T) {
	assert.NoError(t, qdrantErr(nil))
	assert.ErrorIs(t, qdrantErr(status.Error(codes.Unavailable, "down")), ragErrors.ErrStoreUnavailable)
	assert.ErrorIs(t, qdrantErr(status.Error(codes.DeadlineExceeded, "slow")), ragErrors.ErrStoreUnavailable)

	other := qdrantErr(status.Error(codes.InvalidArgument, "bad"))
	assert.False(t, errors.Is(other, ragErrors.ErrStoreUnavailable))
}

func TestNew_EmptyCollection(t *testing.T) {
	_, err := New(context.Background(), Config{Host: "localhost", Port: 6334})
	assert.Error(t, err)
}
