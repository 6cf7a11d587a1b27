package qdrantDB

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/akolanti/StudyRAG/internal/config"
	"github.com/akolanti/StudyRAG/internal/domain/commonModels"
	"github.com/akolanti/StudyRAG/internal/domain/ragErrors"
	"github.com/akolanti/StudyRAG/internal/rag/vectorDB"
	"github.com/akolanti/StudyRAG/pkg/logger_i"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	payloadFileName = "file_name"
	payloadText     = "text"
	payloadSeq      = "seq"

	scrollPageSize = 256
)

type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	PoolSize   int
	Collection string
}

// ClientHolder stores every record in one collection with cosine distance.
// The collection is created on the first put, sized from that record.
type ClientHolder struct {
	QObj       *qdrant.Client
	collection string
	logger     *logger_i.Logger

	// mu serialises writes; lastSeq keeps insertion order strictly increasing
	mu      sync.Mutex
	lastSeq int64
}

func New(ctx context.Context, cfg Config) (*ClientHolder, error) {
	if cfg.Collection == "" {
		return nil, errors.New("qdrant: empty collection name")
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		APIKey:   cfg.APIKey,
		UseTLS:   cfg.UseTLS,
		PoolSize: uint(cfg.PoolSize),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: could not instantiate: %w", err)
	}

	logger := logger_i.NewLogger("Qdrant")
	pingCtx, cancel := context.WithTimeout(ctx, config.QdrantConnectionTimeout)
	defer cancel()
	if _, err := client.HealthCheck(pingCtx); err != nil {
		client.Close()
		return nil, qdrantErr(err)
	}

	logger.Info("Qdrant client created", "host", cfg.Host, "port", cfg.Port, "collection", cfg.Collection)
	return &ClientHolder{QObj: client, collection: cfg.Collection, logger: logger}, nil
}

func (db *ClientHolder) Close() error {
	db.logger.Info("Closing Qdrant")
	return db.QObj.Close()
}

func (db *ClientHolder) Put(ctx context.Context, record commonModels.ChunkRecord) error {
	if err := vectorDB.ValidateForPut(record); err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.ensureCollection(ctx, record.Dimension()); err != nil {
		return err
	}

	seq := time.Now().UnixNano()
	if seq <= db.lastSeq {
		seq = db.lastSeq + 1
	}
	db.lastSeq = seq

	_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: db.collection,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(record.Id),
				Vectors: qdrant.NewVectors(record.Embedding...),
				Payload: qdrant.NewValueMap(map[string]any{
					payloadFileName: record.FileName,
					payloadText:     record.Text,
					payloadSeq:      seq,
				}),
			},
		},
	})
	if err != nil {
		return qdrantErr(err)
	}
	return nil
}

// ensureCollection creates the collection for dim, or checks dim against it.
// An existing but empty collection is recreated so it can take a new dimension.
func (db *ClientHolder) ensureCollection(ctx context.Context, dim int) error {
	current, empty, err := db.dimension(ctx)
	if err != nil {
		return err
	}
	if current == dim {
		return nil
	}
	if current != 0 && !empty {
		return ragErrors.Dimension(current, dim)
	}

	if current != 0 {
		db.logger.Info("Recreating empty collection for new dimension", "from", current, "to", dim)
		if err := db.QObj.DeleteCollection(ctx, db.collection); err != nil {
			return qdrantErr(err)
		}
	}
	err = db.QObj.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: db.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	return qdrantErr(err)
}

// dimension reports the collection's vector size (0 when it does not exist)
// and whether it holds no points.
func (db *ClientHolder) dimension(ctx context.Context) (int, bool, error) {
	exists, err := db.QObj.CollectionExists(ctx, db.collection)
	if err != nil {
		return 0, false, qdrantErr(err)
	}
	if !exists {
		return 0, true, nil
	}

	info, err := db.QObj.GetCollectionInfo(ctx, db.collection)
	if err != nil {
		return 0, false, qdrantErr(err)
	}
	size := int(info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize())

	count, err := db.QObj.Count(ctx, &qdrant.CountPoints{
		CollectionName: db.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, false, qdrantErr(err)
	}
	return size, count == 0, nil
}

func (db *ClientHolder) Search(ctx context.Context, query []float32, k int) ([]commonModels.ScoredRecord, error) {
	if k <= 0 {
		return []commonModels.ScoredRecord{}, nil
	}
	log := db.logger.Trace(ctx, config.TRACE_ID_KEY)

	dim, empty, err := db.dimension(ctx)
	if err != nil {
		return nil, err
	}
	if empty {
		return []commonModels.ScoredRecord{}, nil
	}
	if err := vectorDB.CheckDimension(dim, len(query)); err != nil {
		return nil, err
	}

	// qdrant orders equal scores arbitrarily; fetch extra and re-rank by seq
	result, err := db.QObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: db.collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          qdrant.PtrOf(uint64(2 * k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		log.Error("Error querying Qdrant", "error", err)
		return nil, qdrantErr(err)
	}

	type hit struct {
		scored commonModels.ScoredRecord
		seq    int64
	}
	hits := make([]hit, 0, len(result))
	for _, p := range result {
		hits = append(hits, hit{
			scored: commonModels.ScoredRecord{
				Record: commonModels.ChunkRecord{
					Id:       p.GetId().GetUuid(),
					FileName: p.Payload[payloadFileName].GetStringValue(),
					Text:     p.Payload[payloadText].GetStringValue(),
				},
				Score: vectorDB.SanitizeScore(float64(p.GetScore())),
			},
			seq: p.Payload[payloadSeq].GetIntegerValue(),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].scored.Score != hits[j].scored.Score {
			return hits[i].scored.Score > hits[j].scored.Score
		}
		return hits[i].seq < hits[j].seq
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	out := make([]commonModels.ScoredRecord, len(hits))
	for i, h := range hits {
		out[i] = h.scored
	}
	log.Debug("Search complete", "matches", len(out))
	return out, nil
}

func (db *ClientHolder) ListDocumentNames(ctx context.Context) ([]string, error) {
	exists, err := db.QObj.CollectionExists(ctx, db.collection)
	if err != nil {
		return nil, qdrantErr(err)
	}
	if !exists {
		return []string{}, nil
	}

	seen := make(map[string]struct{})
	var offset *qdrant.PointId
	for {
		resp, err := db.QObj.GetPointsClient().Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: db.collection,
			Limit:          qdrant.PtrOf(uint32(scrollPageSize)),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayloadInclude(payloadFileName),
		})
		if err != nil {
			return nil, qdrantErr(err)
		}
		for _, p := range resp.GetResult() {
			seen[p.Payload[payloadFileName].GetStringValue()] = struct{}{}
		}
		offset = resp.GetNextPageOffset()
		if offset == nil {
			break
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (db *ClientHolder) DeleteByFileName(ctx context.Context, fileName string) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	exists, err := db.QObj.CollectionExists(ctx, db.collection)
	if err != nil {
		return 0, qdrantErr(err)
	}
	if !exists {
		return 0, nil
	}

	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch(payloadFileName, fileName)},
	}
	n, err := db.QObj.Count(ctx, &qdrant.CountPoints{
		CollectionName: db.collection,
		Filter:         filter,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, qdrantErr(err)
	}
	if n == 0 {
		return 0, nil
	}

	_, err = db.QObj.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: db.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelectorFilter(filter),
	})
	if err != nil {
		return 0, qdrantErr(err)
	}
	return int64(n), nil
}

func (db *ClientHolder) Count(ctx context.Context) (int64, error) {
	exists, err := db.QObj.CollectionExists(ctx, db.collection)
	if err != nil {
		return 0, qdrantErr(err)
	}
	if !exists {
		return 0, nil
	}
	n, err := db.QObj.Count(ctx, &qdrant.CountPoints{
		CollectionName: db.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, qdrantErr(err)
	}
	return int64(n), nil
}

func qdrantErr(err error) error {
	if err == nil {
		return nil
	}
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unavailable, codes.DeadlineExceeded:
			return fmt.Errorf("%w: %w", ragErrors.ErrStoreUnavailable, err)
		}
	}
	return fmt.Errorf("qdrant: %w", err)
}
