package search

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dshills/mailsearch/internal/assembler"
	"github.com/dshills/mailsearch/internal/collab"
	"github.com/dshills/mailsearch/internal/indexcoord"
	"github.com/dshills/mailsearch/internal/metadata"
	"github.com/dshills/mailsearch/internal/restriction"
	"github.com/dshills/mailsearch/internal/store"
	"github.com/dshills/mailsearch/internal/suggest"
	"github.com/dshills/mailsearch/pkg/types"
)

// Config configures a new Engine.
type Config struct {
	DBKey, IV         []byte
	TypeInfo          map[types.EntityType]metadata.TypeInfo
	MetadataCacheSize int
}

// Engine is the core's public surface: Search and GetMoreSearchResults
// (spec §4.9, §4.11), wiring C1-C9 plus the index extension protocol.
// It holds no per-call state; every SearchResult owns its own cursors.
type Engine struct {
	store    store.Store
	reader   *metadata.Reader
	dbKey    []byte
	iv       []byte
	typeInfo map[types.EntityType]metadata.TypeInfo

	tokenizer          collab.Tokenizer
	indexer            collab.Indexer
	suggestionProvider collab.SuggestionProvider
	entityLoader       collab.EntityLoader
	typeModelRegistry  collab.TypeModelRegistry
}

// New constructs an Engine. indexer, suggestionProvider, entityLoader,
// and typeModelRegistry may be nil when the corresponding feature
// (index extension, suggestions) is never used by the caller.
func New(cfg Config, st store.Store, tokenizer collab.Tokenizer, indexer collab.Indexer, suggestionProvider collab.SuggestionProvider, entityLoader collab.EntityLoader, typeModelRegistry collab.TypeModelRegistry) (*Engine, error) {
	reader, err := metadata.NewReader(cfg.DBKey, cfg.IV, cfg.MetadataCacheSize)
	if err != nil {
		return nil, fmt.Errorf("search: new engine: %w", err)
	}

	return &Engine{
		store:              st,
		reader:             reader,
		dbKey:              cfg.DBKey,
		iv:                 cfg.IV,
		typeInfo:           cfg.TypeInfo,
		tokenizer:          tokenizer,
		indexer:            indexer,
		suggestionProvider: suggestionProvider,
		entityLoader:       entityLoader,
		typeModelRegistry:  typeModelRegistry,
	}, nil
}

// isQuoted reports whether query is fully enclosed in double quotes
// (spec §4.9 step 3: matchWordOrder = terms.len >= 2 && fully quoted).
func isQuoted(query string) bool {
	trimmed := strings.TrimSpace(query)
	return len(trimmed) >= 2 && strings.HasPrefix(trimmed, `"`) && strings.HasSuffix(trimmed, `"`)
}

// Search implements spec §4.9: tokenize, decide path, optionally await
// index extension, run the pipeline, sort and attach timing.
func (e *Engine) Search(ctx context.Context, query string, r types.SearchRestriction, minSuggestionCount int, maxResults *int, user string) (*types.SearchResult, error) {
	timing := types.PageTiming{Started: time.Now(), TermDurations: map[types.Term]time.Duration{}}
	tokenizeStart := time.Now()

	terms, err := e.tokenizer.Tokenize(query)
	if err != nil {
		return nil, fmt.Errorf("search: tokenize: %w", err)
	}
	timing.TokenizeDuration = time.Since(tokenizeStart)

	horizon := int64(types.NothingIndexedTimestamp)
	if e.indexer != nil {
		horizon = e.indexer.CurrentIndexTimestamp()
	}

	if len(terms) == 0 {
		return &types.SearchResult{Query: query, Restriction: r, CurrentIndexTimestamp: horizon, Timing: timing}, nil
	}

	matchWordOrder := len(terms) >= 2 && isQuoted(query)

	result := &types.SearchResult{
		Query:                 query,
		Restriction:           r,
		CurrentIndexTimestamp: horizon,
		MatchWordOrder:        matchWordOrder,
	}

	if err := e.runPage(ctx, result, terms, minSuggestionCount, maxResults, user, &timing); err != nil {
		return nil, err
	}

	result.Timing = timing
	return result, nil
}

// GetMoreSearchResults re-invokes the sub-pipeline against result's
// existing cursors and moreResultsEntries, appending up to
// moreResultCount new results in place (spec §4.11). The terms and
// matchWordOrder are carried over from the original SearchResult.
func (e *Engine) GetMoreSearchResults(ctx context.Context, result *types.SearchResult, moreResultCount int, user string) error {
	terms := termsFromCursors(result.LastReadSearchIndexRow)
	if len(terms) == 0 {
		return nil
	}

	var timing types.PageTiming
	return e.runPage(ctx, result, terms, 0, &moreResultCount, user, &timing)
}

// runPage executes one page's worth of pipeline work (normal or
// suggestion path) and appends results to result in place.
func (e *Engine) runPage(ctx context.Context, result *types.SearchResult, terms []types.Term, minSuggestionCount int, maxResults *int, user string, timing *types.PageTiming) error {
	if indexcoord.Required(result.Restriction, e.indexer) {
		extendStart := time.Now()
		if err := indexcoord.Extend(ctx, e.indexer, user, result.Restriction); err != nil {
			return fmt.Errorf("search: index extension: %w", err)
		}
		timing.IndexExtendDuration = time.Since(extendStart)
		result.CurrentIndexTimestamp = e.indexer.CurrentIndexTimestamp()
	}

	pipelineStart := time.Now()

	tx, err := e.store.BeginTx(ctx, true)
	if err != nil {
		return fmt.Errorf("search: begin index tx: %w", err)
	}

	bounds := restriction.ResolveBounds(result.Restriction, e.indexer, func() int64 { return time.Now().UnixMilli() })
	cursors := cursorsFromResult(result, terms)

	var entries []types.Entry
	if minSuggestionCount > 0 {
		entries, err = e.runSuggestionPath(ctx, tx, terms, result.Restriction, bounds, cursors, minSuggestionCount)
	} else {
		entries, err = e.runTerms(ctx, tx, terms, result.Restriction, bounds, cursors, result.MatchWordOrder)
	}
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("search: commit index tx: %w", err)
	}

	elementTx, err := e.store.BeginTx(ctx, true)
	if err != nil {
		return fmt.Errorf("search: begin element tx: %w", err)
	}
	newResults, remaining, err := assembler.Assemble(ctx, elementTx, e.dbKey, e.iv, entries, result.Restriction, result, maxResults)
	if err != nil {
		_ = elementTx.Rollback()
		return err
	}
	if err := elementTx.Commit(); err != nil {
		return fmt.Errorf("search: commit element tx: %w", err)
	}

	timing.PipelineDuration = time.Since(pipelineStart)

	result.Results = append(result.Results, newResults...)
	sort.Slice(result.Results, func(i, j int) bool {
		return bytes.Compare(result.Results[i].ID, result.Results[j].ID) > 0
	})
	result.MoreResultsEntries = remaining
	result.LastReadSearchIndexRow = cursorsToRows(cursors, terms)
	return nil
}

// runSuggestionPath implements spec §4.8, dispatching to suggest's
// single- or multi-term branch with the full pipeline as its callback.
// For the single-term branch the pipeline runs once per expansion and
// the entries are concatenated (a union); the multi-term branch gets
// the AND-search over its terms.
func (e *Engine) runSuggestionPath(ctx context.Context, tx store.Tx, terms []types.Term, r types.SearchRestriction, bounds restriction.Bounds, cursors cursorSet, minSuggestionCount int) ([]types.Entry, error) {
	pipeline := func(ctx context.Context, terms []types.Term, r types.SearchRestriction) ([]types.Entry, error) {
		subCursors := make(cursorSet, len(terms))
		return e.runTerms(ctx, tx, terms, r, bounds, subCursors, false)
	}

	if len(terms) == 1 {
		if e.suggestionProvider == nil {
			return nil, fmt.Errorf("search: suggestion path requires a suggestion provider")
		}
		union := func(ctx context.Context, terms []types.Term, r types.SearchRestriction) ([]types.Entry, error) {
			var out []types.Entry
			for _, t := range terms {
				entries, err := pipeline(ctx, []types.Term{t}, r)
				if err != nil {
					return nil, err
				}
				out = append(out, entries...)
			}
			return out, nil
		}
		return suggest.SingleTerm(ctx, terms[0], r, e.suggestionProvider, union)
	}

	allButLast := terms[:len(terms)-1]
	last := terms[len(terms)-1]
	if e.entityLoader == nil || e.typeModelRegistry == nil {
		return nil, fmt.Errorf("search: suggestion path requires an entity loader and type model registry")
	}
	entries, err := suggest.MultiTerm(ctx, allButLast, last, r, minSuggestionCount, e.tokenizer, e.entityLoader, e.typeModelRegistry, pipeline)
	if err != nil {
		return nil, err
	}
	for _, t := range allButLast {
		cursors[t] = nil
	}
	cursors[last] = nil
	return entries, nil
}

func termsFromCursors(rows []types.Cursor) []types.Term {
	terms := make([]types.Term, 0, len(rows))
	for _, c := range rows {
		terms = append(terms, c.Term)
	}
	return terms
}

