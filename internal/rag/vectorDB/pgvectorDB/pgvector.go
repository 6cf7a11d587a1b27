package pgvectorDB

import (
	"context"
	"errors"
	"fmt"

	"github.com/akolanti/StudyRAG/internal/domain/commonModels"
	"github.com/akolanti/StudyRAG/internal/domain/ragErrors"
	"github.com/akolanti/StudyRAG/internal/rag/vectorDB"
	"github.com/akolanti/StudyRAG/pkg/logger_i"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

// writeLockKey guards every write to chunk_records across processes.
const writeLockKey int64 = 0x5354_5544_5952

const schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS chunk_records (
	seq        BIGSERIAL PRIMARY KEY,
	id         UUID NOT NULL UNIQUE,
	file_name  TEXT NOT NULL,
	text       TEXT NOT NULL,
	embedding  vector NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_chunk_records_file_name ON chunk_records(file_name);
`

// The embedding column has no fixed size so an emptied table can take a new
// dimension; the size is enforced on write instead.
const searchQuery = `
SELECT id::text, file_name, text, embedding,
       CASE WHEN s = 'NaN'::float8 THEN 0 ELSE s END AS score
FROM (
	SELECT seq, id, file_name, text, embedding, 1 - (embedding <=> $1) AS s
	FROM chunk_records
) ranked
ORDER BY score DESC, seq ASC
LIMIT $2
`

type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *logger_i.Logger
}

func New(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("pgvector: empty dsn")
	}

	// the extension has to exist before pgvector types can be registered
	bootstrap, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, storeErr(err)
	}
	_, err = bootstrap.Exec(ctx, schema)
	bootstrap.Close(ctx)
	if err != nil {
		return nil, fmt.Errorf("pgvector: creating schema: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pgvector: parsing dsn: %w", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, storeErr(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, storeErr(err)
	}

	logger := logger_i.NewLogger("pgvector_store")
	logger.Info("Vector store connected")
	return &PostgresStore{pool: pool, logger: logger}, nil
}

func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

func (p *PostgresStore) Put(ctx context.Context, record commonModels.ChunkRecord) error {
	if err := vectorDB.ValidateForPut(record); err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, writeLockKey); err != nil {
			return storeErr(err)
		}

		dim, err := currentDimension(ctx, tx)
		if err != nil {
			return err
		}
		if err := vectorDB.CheckDimension(dim, record.Dimension()); err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO chunk_records (id, file_name, text, embedding) VALUES ($1, $2, $3, $4)`,
			record.Id, record.FileName, record.Text, pgvector.NewVector(record.Embedding))
		return storeErr(err)
	})
}

func (p *PostgresStore) Search(ctx context.Context, query []float32, k int) ([]commonModels.ScoredRecord, error) {
	if k <= 0 {
		return []commonModels.ScoredRecord{}, nil
	}

	var out []commonModels.ScoredRecord
	err := pgx.BeginTxFunc(ctx, p.pool, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		dim, err := currentDimension(ctx, tx)
		if err != nil {
			return err
		}
		if dim == 0 {
			return nil
		}
		if err := vectorDB.CheckDimension(dim, len(query)); err != nil {
			return err
		}

		rows, err := tx.Query(ctx, searchQuery, pgvector.NewVector(query), k)
		if err != nil {
			return storeErr(err)
		}
		defer rows.Close()

		for rows.Next() {
			var r commonModels.ScoredRecord
			var emb pgvector.Vector
			if err := rows.Scan(&r.Record.Id, &r.Record.FileName, &r.Record.Text, &emb, &r.Score); err != nil {
				return storeErr(err)
			}
			r.Record.Embedding = emb.Slice()
			r.Score = vectorDB.SanitizeScore(r.Score)
			out = append(out, r)
		}
		return storeErr(rows.Err())
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []commonModels.ScoredRecord{}
	}
	return out, nil
}

func (p *PostgresStore) ListDocumentNames(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT DISTINCT file_name FROM chunk_records ORDER BY file_name`)
	if err != nil {
		return nil, storeErr(err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, storeErr(err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (p *PostgresStore) DeleteByFileName(ctx context.Context, fileName string) (int64, error) {
	var deleted int64
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, writeLockKey); err != nil {
			return storeErr(err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM chunk_records WHERE file_name = $1`, fileName)
		if err != nil {
			return storeErr(err)
		}
		deleted = tag.RowsAffected()
		return nil
	})
	return deleted, err
}

func (p *PostgresStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM chunk_records`).Scan(&n); err != nil {
		return 0, storeErr(err)
	}
	return n, nil
}

func currentDimension(ctx context.Context, tx pgx.Tx) (int, error) {
	var dim int
	err := tx.QueryRow(ctx, `SELECT vector_dims(embedding) FROM chunk_records LIMIT 1`).Scan(&dim)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, storeErr(err)
	}
	return dim, nil
}

// storeErr marks connection-level failures as ErrStoreUnavailable; SQL errors
// reported by the server are passed through.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ragErrors.ErrDimensionMismatch) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("pgvector: %w", err)
	}
	return fmt.Errorf("%w: %w", ragErrors.ErrStoreUnavailable, err)
}
