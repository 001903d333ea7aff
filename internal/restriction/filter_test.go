package restriction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/mailsearch/pkg/types"
)

type fakeIndexer struct {
	horizon int64
}

func (f fakeIndexer) CurrentIndexTimestamp() int64 { return f.horizon }
func (f fakeIndexer) IndexMailboxes(_ context.Context, _ string, _ int64) error { return nil }

func TestAcceptAttributeWhitelist(t *testing.T) {
	entry := types.Entry{Attribute: 3}
	assert.True(t, Accept(entry, nil, Bounds{}))
	assert.True(t, Accept(entry, []uint8{1, 3}, Bounds{}))
	assert.False(t, Accept(entry, []uint8{1, 2}, Bounds{}))
}

func TestAcceptIDBounds(t *testing.T) {
	bounds := Bounds{MinID: timestampToID(100), MaxID: timestampToID(200)}

	below := types.Entry{ID: timestampToID(50)}
	within := types.Entry{ID: timestampToID(150)}
	atMax := types.Entry{ID: timestampToID(200)}

	assert.False(t, Accept(below, nil, bounds))
	assert.True(t, Accept(within, nil, bounds))
	assert.False(t, Accept(atMax, nil, bounds)) // maxID is exclusive
}

func TestResolveBoundsEndOnly(t *testing.T) {
	end := int64(500)
	r := types.SearchRestriction{End: &end}

	bounds := ResolveBounds(r, nil, func() int64 { return 999 })
	assert.Equal(t, timestampToID(500), bounds.MinID)
	assert.Nil(t, bounds.MaxID)
}

func TestResolveBoundsStartOnlyAddsOneMillisecond(t *testing.T) {
	start := int64(500)
	r := types.SearchRestriction{Start: &start}

	bounds := ResolveBounds(r, nil, func() int64 { return 999 })
	assert.Equal(t, timestampToID(501), bounds.MaxID)
}

// TestResolveBoundsStartOnlyStillResolvesMinID guards spec §9's
// ambiguous case: Start set, End unset. MinID must still resolve from
// endTimestamp's fallback chain rather than being left unbounded.
func TestResolveBoundsStartOnlyStillResolvesMinID(t *testing.T) {
	start := int64(500)
	r := types.SearchRestriction{Type: types.EntityTypeMail, Start: &start}
	idx := fakeIndexer{horizon: 777}

	bounds := ResolveBounds(r, idx, func() int64 { return 999 })
	assert.Equal(t, timestampToID(777), bounds.MinID)
	assert.Equal(t, timestampToID(501), bounds.MaxID)
}

func TestResolveBoundsMailUsesIndexerHorizonWhenEndUnset(t *testing.T) {
	r := types.SearchRestriction{Type: types.EntityTypeMail}
	idx := fakeIndexer{horizon: 777}

	bounds := ResolveBounds(r, idx, func() int64 { return 999 })
	assert.Equal(t, timestampToID(777), bounds.MinID)
}

func TestResolveBoundsNothingIndexedTreatedAsNow(t *testing.T) {
	r := types.SearchRestriction{Type: types.EntityTypeMail}
	idx := fakeIndexer{horizon: types.NothingIndexedTimestamp}

	bounds := ResolveBounds(r, idx, func() int64 { return 12345 })
	assert.Equal(t, timestampToID(12345), bounds.MinID)
}

func TestResolveBoundsNonMailDefaultsFullIndexed(t *testing.T) {
	r := types.SearchRestriction{Type: types.EntityTypeContact}

	bounds := ResolveBounds(r, nil, func() int64 { return 999 })
	assert.Equal(t, timestampToID(types.FullIndexedTimestamp), bounds.MinID)
}
