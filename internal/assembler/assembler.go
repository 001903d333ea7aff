// Package assembler implements the Result Assembler (C8): it resolves
// each surviving entry's list id through the element store, applies
// the list-id restriction, de-duplicates against results already
// returned, and honors maxResults/cursor carry-over across pages.
package assembler

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/mailsearch/internal/cryptutil"
	"github.com/dshills/mailsearch/internal/store"
	"github.com/dshills/mailsearch/pkg/types"
)

// maxConcurrentLookups bounds in-flight element-store point lookups
// within a single read transaction (spec §4.7, §5: "suggested cap: 5
// in flight"). Grounded on the teacher's channel-semaphore worker pool
// in internal/indexer/indexer.go (indexFiles/indexBatch).
const maxConcurrentLookups = 5

// Assemble implements spec §4.7. entries must already be sorted by id
// descending by the caller's sort step, or will be sorted here;
// dbKey/iv derive each entry's ElementDataOS lookup key. previous is
// the SearchResult the page was resumed from, used for de-duplication;
// its Results/MoreResultsEntries are not mutated — the caller updates
// the SearchResult with Assemble's return values.
func Assemble(ctx context.Context, tx store.Tx, dbKey, iv []byte, entries []types.Entry, restriction types.SearchRestriction, previous *types.SearchResult, maxResults *int) (newResults []types.IDPair, remaining []types.MoreResultsEntry, err error) {
	sort.Slice(entries, func(i, j int) bool { return compareIDsDesc(entries[i].ID, entries[j].ID) })

	candidates := make([]types.Entry, 0, len(entries)+len(previous.MoreResultsEntries))
	for _, more := range previous.MoreResultsEntries {
		candidates = append(candidates, types.Entry{ID: more.ID})
	}
	preResolved := make(map[string][]byte, len(previous.MoreResultsEntries))
	for _, more := range previous.MoreResultsEntries {
		preResolved[string(more.ID)] = more.ListID
	}
	candidates = append(candidates, entries...)
	sort.Slice(candidates, func(i, j int) bool { return compareIDsDesc(candidates[i].ID, candidates[j].ID) })

	resolved, err := resolveListIDs(ctx, tx, dbKey, iv, candidates, preResolved)
	if err != nil {
		return nil, nil, err
	}

	for _, c := range candidates {
		if previous.HasID(c.ID) {
			continue
		}

		listID, ok := resolved[string(c.ID)]
		if !ok {
			continue // NotFound/NotAuthorized: skip (spec §4.13)
		}
		if restriction.ListID != nil && !bytes.Equal(listID, restriction.ListID) {
			continue
		}

		if maxResults != nil && len(newResults) >= *maxResults {
			remaining = append(remaining, types.MoreResultsEntry{ListID: listID, ID: c.ID})
			continue
		}
		newResults = append(newResults, types.IDPair{ListID: listID, ID: c.ID})
	}

	return newResults, remaining, nil
}

// resolveListIDs loads ElementData.ListID for every candidate not
// already resolved in preResolved (promoted MoreResultsEntries, which
// were already resolved on a prior page and need no re-lookup),
// issuing up to maxConcurrentLookups point reads concurrently within
// the single transaction tx.
func resolveListIDs(ctx context.Context, tx store.Tx, dbKey, iv []byte, candidates []types.Entry, preResolved map[string][]byte) (map[string][]byte, error) {
	resolved := make(map[string][]byte, len(candidates))
	var mu sync.Mutex
	for id, listID := range preResolved {
		resolved[id] = listID
	}

	g, gctx := errgroup.WithContext(ctx)
	semaphore := make(chan struct{}, maxConcurrentLookups)

	for _, c := range candidates {
		if _, ok := preResolved[string(c.ID)]; ok {
			continue
		}
		c := c

		select {
		case <-gctx.Done():
			return nil, gctx.Err()
		case semaphore <- struct{}{}:
		}

		g.Go(func() error {
			defer func() { <-semaphore }()

			key, err := cryptutil.EncryptedIDKey(dbKey, iv, c.ID)
			if err != nil {
				return err
			}
			elem, ok, err := tx.GetElementData(gctx, key)
			if err != nil {
				return err
			}
			if !ok {
				return nil // NotFound: skip this candidate, not an error
			}

			mu.Lock()
			resolved[string(c.ID)] = elem.ListID
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("assembler: resolve list ids: %w", err)
	}
	return resolved, nil
}

func compareIDsDesc(a, b []byte) bool {
	return bytes.Compare(a, b) > 0
}
