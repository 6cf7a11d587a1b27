// Package storetest holds the behaviour every vectorDB.DataProcessor backend
// must share. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/akolanti/StudyRAG/internal/domain/commonModels"
	"github.com/akolanti/StudyRAG/internal/domain/ragErrors"
	"github.com/akolanti/StudyRAG/internal/rag/vectorDB"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store. The store is closed by the suite.
type Factory func(t *testing.T) vectorDB.DataProcessor

func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s vectorDB.DataProcessor)
	}{
		{"EmptyStore", testEmptyStore},
		{"SearchOrdering", testSearchOrdering},
		{"SearchCardinality", testSearchCardinality},
		{"SelfSimilarity", testSelfSimilarity},
		{"TiesKeepInsertionOrder", testTies},
		{"DimensionMismatch", testDimensionMismatch},
		{"EmptiedStoreTakesNewDimension", testEmptiedStoreNewDimension},
		{"DeleteByFileName", testDeleteByFileName},
		{"ZeroNormQuery", testZeroNormQuery},
		{"InvalidRecord", testInvalidRecord},
		{"ConcurrentPuts", testConcurrentPuts},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func put(t *testing.T, s vectorDB.DataProcessor, fileName, text string, v ...float32) commonModels.ChunkRecord {
	t.Helper()
	r, err := commonModels.NewChunkRecord(fileName, text, v)
	require.NoError(t, err)
	require.NoError(t, s.Put(context.Background(), r))
	return r
}

func texts(results []commonModels.ScoredRecord) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Record.Text
	}
	return out
}

func testEmptyStore(t *testing.T, s vectorDB.DataProcessor) {
	ctx := context.Background()

	res, err := s.Search(ctx, []float32{1, 0}, 6)
	require.NoError(t, err)
	assert.Empty(t, res)

	names, err := s.ListDocumentNames(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testSearchOrdering(t *testing.T, s vectorDB.DataProcessor) {
	ctx := context.Background()
	put(t, s, "notes.pdf", "first", 1, 0)
	put(t, s, "notes.pdf", "second", 0, 1)
	put(t, s, "notes.pdf", "third", 1, 1)

	res, err := s.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "third"}, texts(res))

	res, err = s.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Equal(t, []string{"first", "third", "second"}, texts(res))
	assert.InDelta(t, 1.0, res[0].Score, 1e-5)
	assert.InDelta(t, 1/math.Sqrt2, res[1].Score, 1e-5)
	assert.InDelta(t, 0.0, res[2].Score, 1e-5)

	for i := 1; i < len(res); i++ {
		assert.GreaterOrEqual(t, res[i-1].Score, res[i].Score)
	}
}

func testSearchCardinality(t *testing.T, s vectorDB.DataProcessor) {
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		put(t, s, "a.txt", fmt.Sprintf("chunk %d", i), float32(i+1), 1, 0.5)
	}

	for _, k := range []int{1, 3, 5, 8} {
		res, err := s.Search(ctx, []float32{1, 1, 1}, k)
		require.NoError(t, err)
		assert.Len(t, res, min(k, 5), "k=%d", k)
	}

	res, err := s.Search(ctx, []float32{1, 1, 1}, 0)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func testSelfSimilarity(t *testing.T, s vectorDB.DataProcessor) {
	ctx := context.Background()
	vectors := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 2, 3}, {-1, 0.5, 0}}
	var records []commonModels.ChunkRecord
	for i, v := range vectors {
		records = append(records, put(t, s, "self.txt", fmt.Sprintf("text %d", i), v...))
	}

	for _, r := range records {
		res, err := s.Search(ctx, r.Embedding, 1)
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, r.Id, res[0].Record.Id)
		assert.InDelta(t, 1.0, res[0].Score, 1e-5)
	}
}

func testTies(t *testing.T, s vectorDB.DataProcessor) {
	ctx := context.Background()
	put(t, s, "a.txt", "early", 2, 2)
	put(t, s, "b.txt", "other", 0, 1)
	put(t, s, "a.txt", "late", 1, 1)

	res, err := s.Search(ctx, []float32{1, 1}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"early", "late"}, texts(res))
}

func testDimensionMismatch(t *testing.T, s vectorDB.DataProcessor) {
	ctx := context.Background()
	put(t, s, "a.txt", "three", 1, 2, 3)

	bad, err := commonModels.NewChunkRecord("a.txt", "two", []float32{1, 2})
	require.NoError(t, err)
	err = s.Put(ctx, bad)
	assert.ErrorIs(t, err, ragErrors.ErrDimensionMismatch)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.Search(ctx, []float32{1, 2}, 3)
	assert.ErrorIs(t, err, ragErrors.ErrDimensionMismatch)
}

func testEmptiedStoreNewDimension(t *testing.T, s vectorDB.DataProcessor) {
	ctx := context.Background()
	put(t, s, "old.txt", "old", 1, 2, 3)

	_, err := s.DeleteByFileName(ctx, "old.txt")
	require.NoError(t, err)

	put(t, s, "new.txt", "new", 1, 2)
	res, err := s.Search(ctx, []float32{1, 2}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "new", res[0].Record.Text)
}

func testDeleteByFileName(t *testing.T, s vectorDB.DataProcessor) {
	ctx := context.Background()
	put(t, s, "networks.pdf", "n1", 1, 0)
	put(t, s, "databases.pdf", "d1", 0, 1)
	put(t, s, "networks.pdf", "n2", 1, 1)

	names, err := s.ListDocumentNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"databases.pdf", "networks.pdf"}, names)

	deleted, err := s.DeleteByFileName(ctx, "networks.pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	names, err = s.ListDocumentNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"databases.pdf"}, names)

	res, err := s.Search(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, texts(res))

	deleted, err = s.DeleteByFileName(ctx, "networks.pdf")
	require.NoError(t, err)
	assert.Zero(t, deleted)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func testZeroNormQuery(t *testing.T, s vectorDB.DataProcessor) {
	ctx := context.Background()
	put(t, s, "a.txt", "one", 1, 0)
	put(t, s, "a.txt", "two", 0, 1)

	res, err := s.Search(ctx, []float32{0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	for _, r := range res {
		assert.False(t, math.IsNaN(r.Score))
		assert.Zero(t, r.Score)
	}
	assert.Equal(t, []string{"one", "two"}, texts(res))
}

func testInvalidRecord(t *testing.T, s vectorDB.DataProcessor) {
	err := s.Put(context.Background(), commonModels.ChunkRecord{Id: "x", FileName: "a.txt"})
	assert.ErrorIs(t, err, ragErrors.ErrInvalidRecord)
}

func testConcurrentPuts(t *testing.T, s vectorDB.DataProcessor) {
	ctx := context.Background()
	const writers = 20

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := commonModels.NewChunkRecord("race.txt", fmt.Sprintf("chunk %d", i), []float32{float32(i + 1), 1})
			if err != nil {
				errs <- err
				return
			}
			errs <- s.Put(ctx, r)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(writers), n)

	res, err := s.Search(ctx, []float32{1, 1}, writers)
	require.NoError(t, err)
	assert.Len(t, res, writers)
}
