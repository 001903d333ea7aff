// Package intersect implements the Intersector (C5): a two-phase
// AND-merge across a query's terms, first on the cheap IdHash to avoid
// unnecessary decryption, then on the decrypted id once every term's
// entries have been filtered (spec §4.4).
package intersect

import (
	"bytes"

	"github.com/dshills/mailsearch/pkg/types"
)

// ByHash keeps, for each term's encrypted entries, only those whose
// IdHash appears in every other term's entry set (Phase A). Order
// within each term's slice is preserved.
func ByHash(perTerm [][]types.EncryptedEntry) [][]types.EncryptedEntry {
	if len(perTerm) <= 1 {
		return perTerm
	}

	counts := make(map[uint32]int)
	for _, entries := range perTerm {
		seen := make(map[uint32]bool)
		for _, e := range entries {
			if !seen[e.IDHash] {
				seen[e.IDHash] = true
				counts[e.IDHash]++
			}
		}
	}

	n := len(perTerm)
	out := make([][]types.EncryptedEntry, n)
	for i, entries := range perTerm {
		kept := make([]types.EncryptedEntry, 0, len(entries))
		for _, e := range entries {
			if counts[e.IDHash] == n {
				kept = append(kept, e)
			}
		}
		out[i] = kept
	}
	return out
}

// ByID keeps, for each term's decrypted entries (already constraint
// filtered by the caller), only those whose id appears in every term's
// set (Phase B). Returns one slice per term, id-filtered, in original
// order.
func ByID(perTerm [][]types.Entry) [][]types.Entry {
	if len(perTerm) <= 1 {
		return perTerm
	}

	counts := make(map[string]int)
	for _, entries := range perTerm {
		seen := make(map[string]bool)
		for _, e := range entries {
			key := string(e.ID)
			if !seen[key] {
				seen[key] = true
				counts[key]++
			}
		}
	}

	n := len(perTerm)
	out := make([][]types.Entry, n)
	for i, entries := range perTerm {
		kept := make([]types.Entry, 0, len(entries))
		for _, e := range entries {
			if counts[string(e.ID)] == n {
				kept = append(kept, e)
			}
		}
		out[i] = kept
	}
	return out
}

// FindByIDAttribute returns the entry in entries whose ID and
// Attribute both match target, or false if none does. Used by the
// phrase reducer (C7) to locate term i's entry for a candidate from
// term 0.
func FindByIDAttribute(entries []types.Entry, target types.Entry) (types.Entry, bool) {
	for _, e := range entries {
		if bytes.Equal(e.ID, target.ID) && e.Attribute == target.Attribute {
			return e, true
		}
	}
	return types.Entry{}, false
}
