// Package store implements the persistent store contract of spec §6:
// three read-only (from the core's perspective) object stores —
// SearchIndexMetaDataOS, SearchIndexOS, and ElementDataOS — backed by
// SQLite. The indexer collaborator is the only writer; the core opens
// read transactions and never mutates these tables.
package store

import (
	"context"

	"github.com/dshills/mailsearch/pkg/types"
)

// ElementData is the value stored under ElementDataOS, keyed by the
// base64-encoded encrypted id. Raw carries whatever payload the entity
// loader needs beyond ListID; the core only ever reads ListID from it.
type ElementData struct {
	ListID []byte
	Raw    []byte
}

// Store opens transactions over the three object stores.
type Store interface {
	BeginTx(ctx context.Context, readOnly bool) (Tx, error)
	Close() error
}

// Tx is one read transaction over {SearchIndexMetaDataOS, SearchIndexOS}
// or {ElementDataOS}, per spec §5's transaction-scoping rule. A Store
// implementation may serve both from the same underlying connection;
// the core always opens a fresh Tx per logical scope.
type Tx interface {
	// GetMetaRow looks up a MetaRow by IndexKey via the words
	// secondary index. ok is false on a store miss (spec §4.2: "If
	// absent: empty").
	GetMetaRow(ctx context.Context, key types.IndexKey) (ciphertext []byte, ok bool, err error)

	// GetPostingChunk looks up a PostingChunk by its descriptor key.
	// ok is false on a store miss (spec §4.3: "Absent => empty").
	GetPostingChunk(ctx context.Context, chunkKey uint64) (data []byte, ok bool, err error)

	// GetElementData looks up ElementData by the base64-encoded
	// encrypted id (spec §4.7).
	GetElementData(ctx context.Context, encryptedIDBase64 string) (elem ElementData, ok bool, err error)

	Commit() error
	Rollback() error
}
