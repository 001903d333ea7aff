package suggest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/mailsearch/pkg/types"
)

type fakeSuggestionProvider struct {
	completions []types.Term
}

func (f fakeSuggestionProvider) GetSuggestions(ctx context.Context, entityType types.EntityType, term types.Term) ([]types.Term, error) {
	return f.completions, nil
}

type fakeTokenizer struct{}

func (fakeTokenizer) Tokenize(text string) ([]types.Term, error) {
	var out []types.Term
	for _, w := range strings.Fields(text) {
		out = append(out, types.Term(strings.ToLower(w)))
	}
	return out, nil
}

type fakeLoader struct {
	entities map[string]*types.Entity
}

func (f fakeLoader) Load(ctx context.Context, typeRef types.TypeRef, id []byte) (*types.Entity, error) {
	e, ok := f.entities[string(id)]
	if !ok {
		return nil, types.ErrNotFound
	}
	return e, nil
}

type fakeRegistry struct {
	models map[types.TypeRef]types.TypeModel
}

func (f fakeRegistry) Resolve(typeRef types.TypeRef) (types.TypeModel, error) {
	m, ok := f.models[typeRef]
	if !ok {
		return types.TypeModel{}, types.ErrNotFound
	}
	return m, nil
}

func TestSingleTermUnionsExpansionPostingsAndDedupes(t *testing.T) {
	provider := fakeSuggestionProvider{completions: []types.Term{"food", "fool", "foot"}}

	var seenTerms []types.Term
	pipeline := func(ctx context.Context, terms []types.Term, restriction types.SearchRestriction) ([]types.Entry, error) {
		seenTerms = terms
		return []types.Entry{
			{ID: []byte{100}},
			{ID: []byte{90}},
			{ID: []byte{100}}, // duplicate across expansion terms
		}, nil
	}

	entries, err := SingleTerm(context.Background(), "foo", types.SearchRestriction{}, provider, pipeline)
	require.NoError(t, err)
	assert.ElementsMatch(t, []types.Term{"food", "fool", "foot"}, seenTerms)
	require.Len(t, entries, 2)
}

func TestSingleTermNoCompletionsReturnsEmpty(t *testing.T) {
	provider := fakeSuggestionProvider{completions: nil}
	pipeline := func(ctx context.Context, terms []types.Term, restriction types.SearchRestriction) ([]types.Entry, error) {
		t.Fatal("pipeline should not run with no completions")
		return nil, nil
	}

	entries, err := SingleTerm(context.Background(), "foo", types.SearchRestriction{}, provider, pipeline)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMultiTermFiltersByPrefixAndStopsAtMinCount(t *testing.T) {
	typeRef := types.TypeRef{App: 0, Type: 0}
	registry := fakeRegistry{models: map[types.TypeRef]types.TypeModel{
		typeRef: {
			Ref: typeRef,
			Values: map[string]types.ValueModel{
				"subject": {ID: 1, Type: types.ModelString},
			},
		},
	}}

	loader := fakeLoader{entities: map[string]*types.Entity{
		string([]byte{100}): {TypeRef: typeRef, Fields: map[string]types.Value{
			"subject": {Kind: types.ValueString, Str: "hello beta world"},
		}},
		string([]byte{90}): {TypeRef: typeRef, Fields: map[string]types.Value{
			"subject": {Kind: types.ValueString, Str: "no match here"},
		}},
		string([]byte{80}): {TypeRef: typeRef, Fields: map[string]types.Value{
			"subject": {Kind: types.ValueString, Str: "before hello world"},
		}},
	}}

	pipeline := func(ctx context.Context, terms []types.Term, restriction types.SearchRestriction) ([]types.Entry, error) {
		assert.Equal(t, []types.Term{"alpha"}, terms)
		return []types.Entry{{ID: []byte{80}}, {ID: []byte{90}}, {ID: []byte{100}}}, nil
	}

	passing, err := MultiTerm(context.Background(), []types.Term{"alpha"}, "be", types.SearchRestriction{}, 1, fakeTokenizer{}, loader, registry, pipeline)
	require.NoError(t, err)
	require.Len(t, passing, 1)
	assert.Equal(t, []byte{100}, passing[0].ID)
}

func TestMultiTermSkipsNotFoundEntities(t *testing.T) {
	typeRef := types.TypeRef{App: 0, Type: 0}
	registry := fakeRegistry{models: map[types.TypeRef]types.TypeModel{
		typeRef: {Ref: typeRef, Values: map[string]types.ValueModel{
			"subject": {ID: 1, Type: types.ModelString},
		}},
	}}
	loader := fakeLoader{entities: map[string]*types.Entity{
		string([]byte{100}): {TypeRef: typeRef, Fields: map[string]types.Value{
			"subject": {Kind: types.ValueString, Str: "beta"},
		}},
		// id 90 not present: NotFound, skip.
	}}

	pipeline := func(ctx context.Context, terms []types.Term, restriction types.SearchRestriction) ([]types.Entry, error) {
		return []types.Entry{{ID: []byte{90}}, {ID: []byte{100}}}, nil
	}

	passing, err := MultiTerm(context.Background(), []types.Term{"alpha"}, "be", types.SearchRestriction{}, 5, fakeTokenizer{}, loader, registry, pipeline)
	require.NoError(t, err)
	require.Len(t, passing, 1)
	assert.Equal(t, []byte{100}, passing[0].ID)
}

func TestMatchesPrefixDescendsAggregateAssociations(t *testing.T) {
	parentRef := types.TypeRef{App: 0, Type: 1}
	childRef := types.TypeRef{App: 0, Type: 2}

	association := types.AssociationModel{ID: 1, Type: types.ModelAggregation, RefType: childRef, Cardinality: types.CardinalityOne}
	registry := fakeRegistry{models: map[types.TypeRef]types.TypeModel{
		parentRef: {
			Ref:          parentRef,
			Associations: map[string]types.AssociationModel{"organizer": association},
		},
		childRef: {
			Ref: childRef,
			Values: map[string]types.ValueModel{
				"name": {ID: 1, Type: types.ModelString},
			},
		},
	}}

	entity := &types.Entity{
		TypeRef: parentRef,
		Fields: map[string]types.Value{
			"organizer": {Kind: types.ValueAggregate, Agg: &types.Entity{
				TypeRef: childRef,
				Fields: map[string]types.Value{
					"name": {Kind: types.ValueString, Str: "beta tester"},
				},
			}},
		},
	}

	ok, err := matchesPrefix(entity, types.EntityTypeContact, "be", fakeTokenizer{}, registry, map[types.TypeRef]bool{}, 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMatchesPrefixStopsOnCycle(t *testing.T) {
	selfRef := types.TypeRef{App: 0, Type: 3}
	association := types.AssociationModel{ID: 1, Type: types.ModelAggregation, RefType: selfRef, Cardinality: types.CardinalityOne}
	registry := fakeRegistry{models: map[types.TypeRef]types.TypeModel{
		selfRef: {
			Ref:          selfRef,
			Values:       map[string]types.ValueModel{"name": {ID: 1, Type: types.ModelString}},
			Associations: map[string]types.AssociationModel{"parent": association},
		},
	}}

	var self *types.Entity
	self = &types.Entity{
		TypeRef: selfRef,
		Fields: map[string]types.Value{
			"name": {Kind: types.ValueString, Str: "no match"},
		},
	}
	self.Fields["parent"] = types.Value{Kind: types.ValueAggregate, Agg: self}

	ok, err := matchesPrefix(self, types.EntityTypeContact, "zz", fakeTokenizer{}, registry, map[types.TypeRef]bool{}, 0)
	require.NoError(t, err)
	assert.False(t, ok)
}
