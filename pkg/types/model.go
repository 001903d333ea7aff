// Package types holds the data model shared across the search core:
// terms, index keys, postings, restrictions, and the SearchResult that
// doubles as the pagination cursor.
package types

import (
	"bytes"
	"time"
)

// Sentinel index-horizon timestamps reported by the indexer collaborator.
const (
	FullIndexedTimestamp    int64 = 0
	NothingIndexedTimestamp int64 = -1
)

// EntityType selects the entity kind a SearchRestriction applies to.
type EntityType uint8

const (
	EntityTypeMail EntityType = iota
	EntityTypeContact
	EntityTypeCalendarEvent
)

// Term is a single normalized token produced by the tokenizer collaborator.
type Term string

// IndexKey is the opaque, fixed-width output of the keyed encoding over
// (dbKey, iv, term). Equal terms always produce an equal IndexKey.
type IndexKey [32]byte

// ChunkDescriptor addresses one PostingChunk in the posting store.
type ChunkDescriptor struct {
	Key  uint64
	Size uint32
	App  uint8
	Type uint8
}

// Metadata is the decrypted MetaRow: chunk descriptors for one term,
// ordered by Key descending (newest first) once C2 has filtered and
// reversed the stored ascending order.
type Metadata struct {
	Rows []ChunkDescriptor
}

// EncryptedEntry is one framed block from a PostingChunk, not yet
// decrypted. Start/End are byte offsets within the chunk; Index is the
// block's position in stored order.
type EncryptedEntry struct {
	Ciphertext []byte
	IDHash     uint32
	Start, End int
	Index      int
}

// Entry is a decrypted posting: an entity id, the attribute it occurred
// in, and the strictly increasing token positions within that attribute.
type Entry struct {
	ID        []byte
	Attribute uint8
	Positions []uint32
}

// SearchRestriction narrows a search to one entity kind, optionally an
// attribute whitelist, a container (list), and an id/time window.
type SearchRestriction struct {
	Type         EntityType
	AttributeIDs []uint8 // nil: no whitelist
	ListID       []byte  // nil: no restriction
	Start        *int64  // epoch ms, inclusive; nil: unbounded
	End          *int64  // epoch ms, inclusive; nil: unbounded
}

// Cursor is the per-term resume point: the next page for Term only
// reads chunks with Key strictly less than LastReadChunkKey.
type Cursor struct {
	Term             Term
	LastReadChunkKey *uint64
}

// Exhausted reports whether this cursor has no further chunks to read.
func (c Cursor) Exhausted() bool {
	return c.LastReadChunkKey != nil && *c.LastReadChunkKey == 0
}

// IDPair is one user-facing search hit.
type IDPair struct {
	ListID []byte
	ID     []byte
}

// MoreResultsEntry is an already-decrypted, already-filtered entry that
// didn't fit in the current page and can be promoted into results by a
// later getMoreSearchResults call without re-reading any postings.
type MoreResultsEntry struct {
	ListID []byte
	ID     []byte
}

// PageTiming is a per-page debug record attached to SearchResult,
// replacing the process-wide timing counters of the original
// implementation (spec §9 "Global timing state").
type PageTiming struct {
	Started             time.Time
	TokenizeDuration    time.Duration
	IndexExtendDuration time.Duration
	PipelineDuration    time.Duration
	TermDurations       map[Term]time.Duration
}

// SearchResult is both the user-facing response and the pagination
// cursor fed back into getMoreSearchResults.
type SearchResult struct {
	Query       string
	Restriction SearchRestriction

	// Results is strictly decreasing by ID and contains no duplicates
	// (invariants 1 and 2, spec §3).
	Results []IDPair

	CurrentIndexTimestamp int64

	// MoreResultsEntries holds filtered, decrypted entries beyond the
	// last page's maxResults, ready to be promoted without a re-scan.
	MoreResultsEntries []MoreResultsEntry

	// LastReadSearchIndexRow carries one Cursor per query term.
	LastReadSearchIndexRow []Cursor

	// MatchWordOrder is set iff the query was quoted and has >= 2 terms.
	MatchWordOrder bool

	Timing PageTiming
}

// CursorFor returns the cursor for term, or nil if the term is unknown
// to this SearchResult.
func (r *SearchResult) CursorFor(term Term) *Cursor {
	for i := range r.LastReadSearchIndexRow {
		if r.LastReadSearchIndexRow[i].Term == term {
			return &r.LastReadSearchIndexRow[i]
		}
	}
	return nil
}

// HasID reports whether id already appears in r.Results (invariant 2's
// de-duplication check, spec §4.7).
func (r *SearchResult) HasID(id []byte) bool {
	for _, pair := range r.Results {
		if bytes.Equal(pair.ID, id) {
			return true
		}
	}
	return false
}
