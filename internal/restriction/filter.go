// Package restriction implements the Constraint Filter (C6): attribute
// whitelist and id-range (time-window) filtering over decrypted
// entries.
package restriction

import (
	"bytes"
	"encoding/binary"

	"github.com/dshills/mailsearch/internal/collab"
	"github.com/dshills/mailsearch/pkg/types"
)

// Bounds is the resolved id-range a restriction filters on, derived
// once per page from a SearchRestriction and the indexer's current
// horizon.
type Bounds struct {
	MinID []byte // inclusive; nil means unbounded below
	MaxID []byte // exclusive; nil means unbounded above
}

// ResolveBounds computes MinID/MaxID from r (spec §4.5). endTimestamp
// defaults per spec §9's open-question resolution: r.End if set, else
// the indexer's current horizon for Mail restrictions, else
// FullIndexedTimestamp for every other type.
// NothingIndexedTimestamp is treated as "now".
func ResolveBounds(r types.SearchRestriction, indexer collab.Indexer, now func() int64) Bounds {
	var b Bounds

	endTimestamp := resolveEndTimestamp(r, indexer, now)
	b.MinID = timestampToID(endTimestamp)

	if r.Start != nil {
		// "+1ms ensures inclusive upper bound given the ts->id
		// lower-bound convention" (spec §4.5).
		b.MaxID = timestampToID(*r.Start + 1)
	}

	return b
}

// resolveEndTimestamp answers spec §9's open question unconditionally:
// endTimestamp = r.End if set, else (indexer.CurrentIndexTimestamp()
// if r.Type is Mail, else FullIndexedTimestamp), with
// NothingIndexedTimestamp treated as "now". This must run regardless
// of whether r.Start is also set — MinID always derives from it.
func resolveEndTimestamp(r types.SearchRestriction, indexer collab.Indexer, now func() int64) int64 {
	if r.End != nil {
		return *r.End
	}
	if r.Type != types.EntityTypeMail {
		return types.FullIndexedTimestamp
	}
	if indexer == nil {
		return types.FullIndexedTimestamp
	}

	horizon := indexer.CurrentIndexTimestamp()
	if horizon == types.NothingIndexedTimestamp {
		return now()
	}
	return horizon
}

// Accept reports whether entry passes both the attribute whitelist and
// the id-range bound (spec §4.5):
//
//	accept(entry) := (attributeIDs is none OR entry.attribute in attributeIDs)
//	              AND entry.id >= minID
//	              AND (maxID is none OR entry.id < maxID)
func Accept(entry types.Entry, attributeIDs []uint8, bounds Bounds) bool {
	if len(attributeIDs) > 0 && !containsAttribute(attributeIDs, entry.Attribute) {
		return false
	}
	if bounds.MinID != nil && bytes.Compare(entry.ID, bounds.MinID) < 0 {
		return false
	}
	if bounds.MaxID != nil && bytes.Compare(entry.ID, bounds.MaxID) >= 0 {
		return false
	}
	return true
}

func containsAttribute(ids []uint8, attribute uint8) bool {
	for _, id := range ids {
		if id == attribute {
			return true
		}
	}
	return false
}

// timestampToID maps an epoch-ms timestamp to the smallest id whose
// creation time is >= timestampMs, per the deterministic timestamp->id
// convention referenced throughout spec §3/§4.5. The id space here is
// an 8-byte big-endian encoding of the timestamp itself, which is
// monotonic and bytewise-comparable by construction.
func timestampToID(timestampMs int64) []byte {
	id := make([]byte, 8)
	binary.BigEndian.PutUint64(id, uint64(timestampMs))
	return id
}
