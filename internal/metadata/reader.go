// Package metadata implements the Metadata Reader (C2): it looks up a
// term's MetaRow by IndexKey, decrypts it, filters by (app, type), and
// returns chunk descriptors newest-first.
package metadata

import (
	"context"
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/mailsearch/internal/store"
	"github.com/dshills/mailsearch/pkg/types"
)

// MaxEntriesPerTermPerPage bounds how many posting entries (summed
// ChunkDescriptor.Size) a single page reads per term, per spec §4.11.
// A tunable heuristic, not a protocol constant (spec §9 open question).
const MaxEntriesPerTermPerPage = 1000

// TypeInfo is the (app, type) pair a ChunkDescriptor must match to
// survive C2's filter.
type TypeInfo struct {
	App  uint8
	Type uint8
}

// Reader reads and decrypts per-term metadata rows, caching the
// decrypted Metadata for the lifetime of a paging session: a page
// followed by several getMoreSearchResults calls re-reads the same
// term's metadata row repeatedly as the cursor advances, so caching
// the decrypted row avoids redundant AEAD opens; a cache hit skips the
// store read as well.
// Grounded on searcher.Searcher's lru.Cache query cache.
type Reader struct {
	dbKey, iv []byte
	cache     *lru.Cache[types.IndexKey, types.Metadata]
}

// NewReader constructs a Reader. cacheSize bounds how many terms'
// decrypted Metadata are kept resident at once.
func NewReader(dbKey, iv []byte, cacheSize int) (*Reader, error) {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[types.IndexKey, types.Metadata](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("metadata: new cache: %w", err)
	}
	return &Reader{dbKey: dbKey, iv: iv, cache: cache}, nil
}

// ReadMeta looks up the metadata row for indexKey, decrypts it, keeps
// only descriptors matching typeInfo, and returns them ordered by Key
// descending — newest indexed data first (spec §4.2).
func (r *Reader) ReadMeta(ctx context.Context, tx store.Tx, indexKey types.IndexKey, info TypeInfo, decrypt func(ciphertext []byte) (types.Metadata, error)) (types.Metadata, error) {
	if cached, ok := r.cache.Get(indexKey); ok {
		return filterAndReverse(cached, info), nil
	}

	ciphertext, ok, err := tx.GetMetaRow(ctx, indexKey)
	if err != nil {
		return types.Metadata{}, err
	}
	if !ok {
		return types.Metadata{}, nil
	}

	meta, err := decrypt(ciphertext)
	if err != nil {
		return types.Metadata{}, err
	}

	r.cache.Add(indexKey, meta)
	return filterAndReverse(meta, info), nil
}

// filterAndReverse applies the (app, type) whitelist and returns rows
// ordered by Key descending. The cached Metadata itself is stored in
// its original ascending, unfiltered form so it can serve any
// TypeInfo.
func filterAndReverse(meta types.Metadata, info TypeInfo) types.Metadata {
	filtered := make([]types.ChunkDescriptor, 0, len(meta.Rows))
	for _, row := range meta.Rows {
		if row.App == info.App && row.Type == info.Type {
			filtered = append(filtered, row)
		}
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Key > filtered[j].Key })
	return types.Metadata{Rows: filtered}
}

// exhaustedKey is the sentinel next-cursor value marking a term's
// EXHAUSTED state (spec §4.12): distinct from a nil cursor, which means
// "no page has been read yet". A cursor pointing at exhaustedKey
// short-circuits to an empty page rather than restarting from the top.
var exhaustedKey uint64

// SelectPage returns the prefix of rows (already newest-first) with
// Key < *cursor (or all rows if cursor is nil, i.e. the term's first
// page), truncated so the summed Size does not exceed
// MaxEntriesPerTermPerPage, plus the next cursor value: the smallest
// Key read in this page. The first selected chunk is always returned,
// even when its Size alone exceeds the cap. The returned next cursor
// points at exhaustedKey once there are no more chunks.
func SelectPage(rows []types.ChunkDescriptor, cursor *uint64) (page []types.ChunkDescriptor, next *uint64) {
	if cursor != nil && *cursor == exhaustedKey {
		return nil, cursor
	}

	var start int
	if cursor != nil {
		for start < len(rows) && rows[start].Key >= *cursor {
			start++
		}
	}

	var total uint32
	end := start
	for end < len(rows) {
		if total > 0 && total+rows[end].Size > MaxEntriesPerTermPerPage {
			break
		}
		total += rows[end].Size
		end++
	}

	page = rows[start:end]
	if end >= len(rows) {
		key := exhaustedKey
		return page, &key
	}
	nextKey := rows[end-1].Key
	return page, &nextKey
}

// Invalidate drops a term's cached Metadata, e.g. if a decrypt error
// indicates the cached row may be stale.
func (r *Reader) Invalidate(indexKey types.IndexKey) {
	r.cache.Remove(indexKey)
}
