// Package search implements the Search Orchestrator (C10, spec §4.9)
// and the public core surface (search, getMoreSearchResults). It wires
// together every lower pipeline stage (C1-C8) plus the suggestion path
// (C9) and the index extension protocol, none of which it reimplements.
package search

import (
	"context"
	"fmt"

	"github.com/dshills/mailsearch/internal/cryptutil"
	"github.com/dshills/mailsearch/internal/intersect"
	"github.com/dshills/mailsearch/internal/metadata"
	"github.com/dshills/mailsearch/internal/phrase"
	"github.com/dshills/mailsearch/internal/postings"
	"github.com/dshills/mailsearch/internal/restriction"
	"github.com/dshills/mailsearch/internal/store"
	"github.com/dshills/mailsearch/pkg/types"
)

// cursorSet carries the per-term read cursor across a pipeline
// invocation (spec §4.12's per-term state machine), keyed by term.
type cursorSet map[types.Term]*uint64

// cursorsFromResult reconstructs a cursorSet from a SearchResult's
// LastReadSearchIndexRow, falling back to a fresh (nil) cursor per term.
func cursorsFromResult(result *types.SearchResult, terms []types.Term) cursorSet {
	cursors := make(cursorSet, len(terms))
	for _, t := range terms {
		cursors[t] = nil
	}
	if result == nil {
		return cursors
	}
	for _, c := range result.LastReadSearchIndexRow {
		cursors[c.Term] = c.LastReadChunkKey
	}
	return cursors
}

// cursorsToRows flattens a cursorSet back into SearchResult's carried
// form, one Cursor per term, in terms' order.
func cursorsToRows(cursors cursorSet, terms []types.Term) []types.Cursor {
	rows := make([]types.Cursor, 0, len(terms))
	for _, t := range terms {
		rows = append(rows, types.Cursor{Term: t, LastReadChunkKey: cursors[t]})
	}
	return rows
}

// runTerms executes C1 through C7 for terms against restriction,
// advancing cursors in place, and returns the surviving entries
// (term 0's order for matchWordOrder=false, the phrase-reduced set
// otherwise). Grounded directly on spec §4.2-§4.7 in sequence.
func (e *Engine) runTerms(ctx context.Context, tx store.Tx, terms []types.Term, r types.SearchRestriction, bounds restriction.Bounds, cursors cursorSet, matchWordOrder bool) ([]types.Entry, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	typeInfo := e.typeInfoFor(r.Type)

	encryptedPerTerm := make([][]types.EncryptedEntry, len(terms))
	for i, term := range terms {
		indexKey, err := cryptutil.IndexKey(e.dbKey, e.iv, term)
		if err != nil {
			return nil, fmt.Errorf("search: index key for %q: %w", term, err)
		}

		meta, err := e.reader.ReadMeta(ctx, tx, indexKey, typeInfo, func(ciphertext []byte) (types.Metadata, error) {
			return cryptutil.DecryptMetaRow(e.dbKey, e.iv, ciphertext)
		})
		if err != nil {
			return nil, fmt.Errorf("search: read meta for %q: %w", term, err)
		}

		cursor := cursors[term]
		page, next := metadata.SelectPage(meta.Rows, cursor)
		cursors[term] = next

		var termEntries []types.EncryptedEntry
		for _, desc := range page {
			chunkEntries, err := postings.Fetch(ctx, tx, desc)
			if err != nil {
				return nil, fmt.Errorf("search: fetch postings for %q: %w", term, err)
			}
			termEntries = append(termEntries, chunkEntries...)
		}
		encryptedPerTerm[i] = termEntries
	}

	// Phase A: cheap hash-based AND across terms before decrypting
	// anything that can't possibly survive (spec §4.4).
	encryptedPerTerm = intersect.ByHash(encryptedPerTerm)

	decryptedPerTerm := make([][]types.Entry, len(terms))
	for i, enc := range encryptedPerTerm {
		decoded, err := postings.DecryptAll(e.dbKey, e.iv, enc)
		if err != nil {
			return nil, err // Corruption: fatal to the page (spec §4.13)
		}

		filtered := make([]types.Entry, 0, len(decoded))
		for _, entry := range decoded {
			if restriction.Accept(entry, r.AttributeIDs, bounds) {
				filtered = append(filtered, entry)
			}
		}
		decryptedPerTerm[i] = filtered
	}

	// Phase B: exact id-based AND now that every term's entries are
	// fully decrypted and constraint-filtered.
	decryptedPerTerm = intersect.ByID(decryptedPerTerm)

	return phrase.Reduce(decryptedPerTerm, matchWordOrder), nil
}

// typeInfoFor resolves the (app, type) filter C2 uses from a
// restriction's EntityType, falling back to the zero TypeInfo if the
// Engine wasn't configured with one (only descriptors with App 0 and
// Type 0 then pass).
func (e *Engine) typeInfoFor(entityType types.EntityType) metadata.TypeInfo {
	if info, ok := e.typeInfo[entityType]; ok {
		return info
	}
	return metadata.TypeInfo{}
}
