// Package phrase implements the Phrase Reducer (C7): it collapses
// per-term positions down to entries that occur in strictly
// consecutive positions within the same attribute, for quoted
// multi-term queries.
package phrase

import (
	"github.com/dshills/mailsearch/internal/intersect"
	"github.com/dshills/mailsearch/pkg/types"
)

// Reduce implements spec §4.6. When matchWordOrder is false, perTerm[0]
// (already AND-intersected and constraint-filtered) is the answer set
// unchanged — any term's entry list works, the first is chosen by
// convention.
//
// When matchWordOrder is true, for each entry of term 0, term i's
// entry sharing the same (id, attribute) is located, and term 0's
// positions are reduced to those p where p+i is among term i's
// positions. An entry survives only if its position set is non-empty
// after every term has been checked.
func Reduce(perTerm [][]types.Entry, matchWordOrder bool) []types.Entry {
	if len(perTerm) == 0 {
		return nil
	}
	if !matchWordOrder || len(perTerm) < 2 {
		return perTerm[0]
	}

	out := make([]types.Entry, 0, len(perTerm[0]))
	for _, e1 := range perTerm[0] {
		positions := append([]uint32(nil), e1.Positions...)
		matched := true

		for i := 1; i < len(perTerm); i++ {
			ei, ok := intersect.FindByIDAttribute(perTerm[i], e1)
			if !ok {
				matched = false
				break
			}
			positions = consecutiveWith(positions, ei.Positions, i)
			if len(positions) == 0 {
				matched = false
				break
			}
		}

		if matched && len(positions) > 0 {
			kept := e1
			kept.Positions = positions
			out = append(out, kept)
		}
	}
	return out
}

// consecutiveWith keeps p in positions such that p+offset is present
// in next.
func consecutiveWith(positions []uint32, next []uint32, offset int) []uint32 {
	nextSet := make(map[uint32]bool, len(next))
	for _, p := range next {
		nextSet[p] = true
	}

	kept := positions[:0]
	for _, p := range positions {
		if nextSet[p+uint32(offset)] {
			kept = append(kept, p)
		}
	}
	return kept
}
