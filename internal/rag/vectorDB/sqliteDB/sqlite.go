package sqliteDB

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/akolanti/StudyRAG/internal/config"
	"github.com/akolanti/StudyRAG/internal/domain/commonModels"
	"github.com/akolanti/StudyRAG/internal/domain/ragErrors"
	"github.com/akolanti/StudyRAG/internal/rag/vectorDB"
	"github.com/akolanti/StudyRAG/pkg/logger_i"
)

const schema = `
CREATE TABLE IF NOT EXISTS chunk_records (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	file_name  TEXT NOT NULL,
	text       TEXT NOT NULL,
	embedding  BLOB NOT NULL,
	dim        INTEGER NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_chunk_records_file_name ON chunk_records(file_name);
`

// Store keeps chunk records in a local SQLite file and ranks them with a
// linear scan in Go. seq gives insertion order.
type Store struct {
	db      *sql.DB
	path    string
	writeMu sync.Mutex
	logger  *logger_i.Logger
}

// New opens (or creates) the store file inside dataDir.
func New(ctx context.Context, dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, errors.New("sqlite store: empty data directory")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, config.DefaultSQLiteFile)
	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger := logger_i.NewLogger("sqlite_store")
	logger.Info("Vector store opened", "path", dbPath)
	return &Store{db: db, path: dbPath, logger: logger}, nil
}

// dsn takes the write lock at BEGIN so a second process (a CLI ingest next to
// serve) waits on busy_timeout instead of failing with SQLITE_BUSY_SNAPSHOT.
func dsn(dbPath string) string {
	return dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate"
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Put(ctx context.Context, record commonModels.ChunkRecord) error {
	if err := vectorDB.ValidateForPut(record); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(err)
	}
	defer tx.Rollback()

	dim, err := currentDimension(ctx, tx)
	if err != nil {
		return storeErr(err)
	}
	if err := vectorDB.CheckDimension(dim, record.Dimension()); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO chunk_records (id, file_name, text, embedding, dim) VALUES (?, ?, ?, ?, ?)`,
		record.Id, record.FileName, record.Text, encodeVector(record.Embedding), record.Dimension())
	if err != nil {
		return storeErr(err)
	}
	if err := tx.Commit(); err != nil {
		return storeErr(err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, query []float32, k int) ([]commonModels.ScoredRecord, error) {
	if k <= 0 {
		return []commonModels.ScoredRecord{}, nil
	}

	// one read transaction so the dimension check and the scan see the same snapshot
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr(err)
	}
	defer tx.Rollback()

	dim, err := currentDimension(ctx, tx)
	if err != nil {
		return nil, storeErr(err)
	}
	if dim == 0 {
		return []commonModels.ScoredRecord{}, nil
	}
	if err := vectorDB.CheckDimension(dim, len(query)); err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, `SELECT id, file_name, text, embedding FROM chunk_records ORDER BY seq`)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var records []commonModels.ChunkRecord
	for rows.Next() {
		var r commonModels.ChunkRecord
		var blob []byte
		if err := rows.Scan(&r.Id, &r.FileName, &r.Text, &blob); err != nil {
			return nil, storeErr(err)
		}
		r.Embedding = decodeVector(blob)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err)
	}

	return vectorDB.TopK(query, records, k), nil
}

func (s *Store) ListDocumentNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT file_name FROM chunk_records ORDER BY file_name`)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storeErr(err)
		}
		names = append(names, name)
	}
	return names, storeErr(rows.Err())
}

func (s *Store) DeleteByFileName(ctx context.Context, fileName string) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM chunk_records WHERE file_name = ?`, fileName)
	if err != nil {
		return 0, storeErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr(err)
	}
	s.logger.Debug("Deleted document", "fileName", fileName, "records", n)
	return n, nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunk_records`).Scan(&n); err != nil {
		return 0, storeErr(err)
	}
	return n, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// currentDimension returns 0 for an empty store.
func currentDimension(ctx context.Context, q querier) (int, error) {
	var dim int
	err := q.QueryRowContext(ctx, `SELECT dim FROM chunk_records LIMIT 1`).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return dim, err
}

func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ragErrors.ErrStoreUnavailable, err)
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
