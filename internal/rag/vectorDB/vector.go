package vectorDB

import (
	"context"

	"github.com/akolanti/StudyRAG/internal/domain/commonModels"
)

// DataProcessor is the durable collection of chunk records.
//
// The first record put into an empty store fixes the dimension D; later
// records and queries of a different length fail with
// ragErrors.ErrDimensionMismatch. Writes are atomic with respect to each
// other. Searches may run alongside writes and never see a partial record.
type DataProcessor interface {
	Put(ctx context.Context, record commonModels.ChunkRecord) error

	// Search returns at most k records ordered by cosine similarity, highest
	// first. Equal scores keep insertion order.
	Search(ctx context.Context, query []float32, k int) ([]commonModels.ScoredRecord, error)

	// ListDocumentNames returns the distinct file names, sorted.
	ListDocumentNames(ctx context.Context) ([]string, error)

	// DeleteByFileName removes every record with that name and reports how many went.
	DeleteByFileName(ctx context.Context, fileName string) (int64, error)

	Count(ctx context.Context) (int64, error)
	Close() error
}
