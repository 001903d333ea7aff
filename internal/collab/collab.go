// Package collab declares the contracts for the core's external
// collaborators: the tokenizer, the background indexer, the suggestion
// provider, the entity loader, and the type model registry. None of
// these are implemented here (spec §1 "Out of scope") except for a
// minimal reference Tokenizer kept in internal/tokenizer for tests and
// the cmd/mailsearch demo.
package collab

import (
	"context"

	"github.com/dshills/mailsearch/pkg/types"
)

// Tokenizer turns arbitrary text into a sequence of normalized terms.
// Pure and deterministic: tokenizing a tokenizer's own output is a
// no-op.
type Tokenizer interface {
	Tokenize(text string) ([]types.Term, error)
}

// Indexer is the background collaborator that populates the encrypted
// index and tracks how far back it has indexed.
type Indexer interface {
	// CurrentIndexTimestamp returns the indexer's current horizon, one
	// of types.FullIndexedTimestamp, types.NothingIndexedTimestamp, or
	// an epoch-ms watermark.
	CurrentIndexTimestamp() int64

	// IndexMailboxes requests the indexer extend coverage backward to
	// sinceEpochMs for user. Cancellable via ctx; a cancellation
	// surfaces as types.ErrCancelled.
	IndexMailboxes(ctx context.Context, user string, sinceEpochMs int64) error
}

// SuggestionProvider completes a single term for one entity type.
type SuggestionProvider interface {
	GetSuggestions(ctx context.Context, entityType types.EntityType, term types.Term) ([]types.Term, error)
}

// EntityLoader loads a full entity by type reference and id.
// Implementations return types.ErrNotFound or types.ErrNotAuthorized
// for entities that can't be loaded.
type EntityLoader interface {
	Load(ctx context.Context, typeRef types.TypeRef, id []byte) (*types.Entity, error)
}

// TypeModelRegistry resolves a type reference to its TypeModel.
type TypeModelRegistry interface {
	Resolve(typeRef types.TypeRef) (types.TypeModel, error)
}
