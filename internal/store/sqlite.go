package store

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/dshills/mailsearch/pkg/types"
)

// SQLiteStore implements Store over SQLite, following the same
// single-writer connection-pool settings as the teacher's
// SQLiteStorage (WAL mode, MaxOpenConns(1)).
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (and migrates) a SQLite-backed Store at dbPath.
func Open(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", types.ErrStore, dbPath, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: enable WAL: %v", types.ErrStore, err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction. readOnly is advisory (SQLite has
// no native read-only transaction mode via database/sql); the core
// never issues a write through Tx regardless.
func (s *SQLiteStore) BeginTx(ctx context.Context, readOnly bool) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: readOnly})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx: %v", types.ErrStore, err)
	}
	return &sqliteTx{tx: tx}, nil
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) Commit() error   { return t.tx.Commit() }
func (t *sqliteTx) Rollback() error { return t.tx.Rollback() }

func (t *sqliteTx) GetMetaRow(ctx context.Context, key types.IndexKey) ([]byte, bool, error) {
	indexKey := base64.StdEncoding.EncodeToString(key[:])

	var ciphertext []byte
	err := t.tx.QueryRowContext(ctx,
		`SELECT ciphertext FROM search_index_metadata WHERE index_key = ?`, indexKey,
	).Scan(&ciphertext)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: get meta row: %v", types.ErrStore, err)
	}
	return ciphertext, true, nil
}

func (t *sqliteTx) GetPostingChunk(ctx context.Context, chunkKey uint64) ([]byte, bool, error) {
	var data []byte
	err := t.tx.QueryRowContext(ctx,
		`SELECT data FROM search_index WHERE chunk_key = ?`, int64(chunkKey),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: get posting chunk: %v", types.ErrStore, err)
	}
	return data, true, nil
}

func (t *sqliteTx) GetElementData(ctx context.Context, encryptedIDBase64 string) (ElementData, bool, error) {
	var elem ElementData
	err := t.tx.QueryRowContext(ctx,
		`SELECT list_id, raw FROM element_data WHERE encrypted_id = ?`, encryptedIDBase64,
	).Scan(&elem.ListID, &elem.Raw)
	if errors.Is(err, sql.ErrNoRows) {
		return ElementData{}, false, nil
	}
	if err != nil {
		return ElementData{}, false, fmt.Errorf("%w: get element data: %v", types.ErrStore, err)
	}
	return elem, true, nil
}
