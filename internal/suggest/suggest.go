// Package suggest implements the Suggestion Path (C9, spec §4.8):
// completion-based query expansion, activated whenever the caller sets
// minSuggestionCount > 0.
//
// Both branches need the same C1-C7 posting pipeline the orchestrator
// runs for a normal query, so this package never touches the store
// directly; the orchestrator injects a PipelineFunc callback per
// branch that already knows how to run that pipeline for a set of
// terms: a union over the terms for SingleTerm, an AND-search for
// MultiTerm.
package suggest

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/mailsearch/internal/collab"
	"github.com/dshills/mailsearch/pkg/types"
)

// maxSuggestionDescendDepth bounds the type-model recursion in
// matchesPrefix (spec §9 "Cyclic type models": aggregation associations
// can revisit the same type, so a language-neutral strategy is a
// bounded depth or a visited-set; we carry both).
const maxSuggestionDescendDepth = 8

// PipelineFunc runs the full C1-C7 pipeline for terms and returns the
// surviving entries, unfiltered by C8. matchWordOrder is always false
// for suggestion sub-searches: expansions are treated as synonyms
// (union), not phrase components.
type PipelineFunc func(ctx context.Context, terms []types.Term, restriction types.SearchRestriction) ([]types.Entry, error)

// SingleTerm implements spec §4.8's single-term branch: the sole term
// is expanded via suggestions, and the expansions are searched as a
// union (not an intersection) of synonyms.
func SingleTerm(ctx context.Context, term types.Term, restriction types.SearchRestriction, provider collab.SuggestionProvider, pipeline PipelineFunc) ([]types.Entry, error) {
	completions, err := provider.GetSuggestions(ctx, restriction.Type, term)
	if err != nil {
		return nil, fmt.Errorf("suggest: get suggestions: %w", err)
	}
	if len(completions) == 0 {
		return nil, nil
	}

	entries, err := pipeline(ctx, completions, restriction)
	if err != nil {
		return nil, err
	}
	return dedupeByID(entries), nil
}

// MultiTerm implements spec §4.8's multi-term branch: an AND-search
// runs over every term but the last, and candidates are post-filtered
// by loading each entity and checking whether any string attribute
// contains a tokenized word with lastTerm as a prefix. The check does
// not apply restriction.AttributeIDs: every string value the type
// model declares is examined.
// Loading stops once minSuggestionCount candidates pass; NotFound and
// NotAuthorized errors from the loader are treated as "skip" (spec
// §4.13).
func MultiTerm(ctx context.Context, allButLast []types.Term, lastTerm types.Term, restriction types.SearchRestriction, minSuggestionCount int, tokenizer collab.Tokenizer, loader collab.EntityLoader, registry collab.TypeModelRegistry, pipeline PipelineFunc) ([]types.Entry, error) {
	candidates, err := pipeline(ctx, allButLast, restriction)
	if err != nil {
		return nil, err
	}
	sort.Slice(candidates, func(i, j int) bool { return compareIDsDesc(candidates[i].ID, candidates[j].ID) })

	prefix := strings.ToLower(string(lastTerm))

	var passing []types.Entry
	for _, c := range candidates {
		if len(passing) >= minSuggestionCount {
			break
		}

		entity, err := loader.Load(ctx, types.TypeRef{App: 0, Type: uint8(restriction.Type)}, c.ID)
		if err != nil {
			if types.Skippable(err) {
				continue
			}
			return nil, fmt.Errorf("suggest: load entity: %w", err)
		}

		ok, err := matchesPrefix(entity, restriction.Type, prefix, tokenizer, registry, map[types.TypeRef]bool{}, 0)
		if err != nil {
			return nil, err
		}
		if ok {
			passing = append(passing, c)
		}
	}

	return passing, nil
}

// matchesPrefix recursively descends entity's type model looking for a
// scalar value whose tokenized form contains a word with prefix as a
// prefix (spec §4.8: "recursively descends aggregation associations,
// following the association's refType; scalar attributes are checked
// via tokenization then startsWith(lastTerm)").
func matchesPrefix(entity *types.Entity, entityType types.EntityType, prefix string, tokenizer collab.Tokenizer, registry collab.TypeModelRegistry, visited map[types.TypeRef]bool, depth int) (bool, error) {
	if entity == nil || depth > maxSuggestionDescendDepth || visited[entity.TypeRef] {
		return false, nil
	}
	visited[entity.TypeRef] = true
	defer delete(visited, entity.TypeRef)

	model, err := registry.Resolve(entity.TypeRef)
	if err != nil {
		return false, fmt.Errorf("suggest: resolve type model: %w", err)
	}

	for name, vm := range model.Values {
		if vm.Type != types.ModelString {
			continue
		}
		value, ok := entity.Fields[name]
		if !ok || value.Kind != types.ValueString {
			continue
		}
		words, err := tokenizer.Tokenize(value.Str)
		if err != nil {
			return false, fmt.Errorf("suggest: tokenize field %q: %w", name, err)
		}
		for _, w := range words {
			if strings.HasPrefix(strings.ToLower(string(w)), prefix) {
				return true, nil
			}
		}
	}

	for _, am := range model.Associations {
		field, ok := entity.Fields[associationFieldName(model, am)]
		if !ok {
			continue
		}
		switch field.Kind {
		case types.ValueAggregate:
			match, err := matchesPrefix(field.Agg, entityType, prefix, tokenizer, registry, visited, depth+1)
			if err != nil {
				return false, err
			}
			if match {
				return true, nil
			}
		case types.ValueAggregateList:
			for _, agg := range field.List {
				match, err := matchesPrefix(agg, entityType, prefix, tokenizer, registry, visited, depth+1)
				if err != nil {
					return false, err
				}
				if match {
					return true, nil
				}
			}
		}
	}

	return false, nil
}

func associationFieldName(model types.TypeModel, target types.AssociationModel) string {
	for name, am := range model.Associations {
		if am == target {
			return name
		}
	}
	return ""
}

func dedupeByID(entries []types.Entry) []types.Entry {
	seen := make(map[string]bool, len(entries))
	out := make([]types.Entry, 0, len(entries))
	for _, e := range entries {
		key := string(e.ID)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}

func compareIDsDesc(a, b []byte) bool {
	return bytes.Compare(a, b) > 0
}
