package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/mailsearch/internal/cryptutil"
	"github.com/dshills/mailsearch/internal/metadata"
	"github.com/dshills/mailsearch/internal/postings"
	"github.com/dshills/mailsearch/internal/store"
	"github.com/dshills/mailsearch/internal/tokenizer"
	"github.com/dshills/mailsearch/pkg/types"
)

var (
	testDBKey = []byte("0123456789abcdef0123456789abcdef")
	testIV    = []byte("fixed-iv-01")
)

// fakeTx/fakeStore give the orchestrator a minimal in-memory stand-in
// for the three object stores; no real transaction isolation is
// needed for these tests.
type fakeTx struct {
	metaRows map[types.IndexKey][]byte
	chunks   map[uint64][]byte
	elements map[string]store.ElementData
}

func (f *fakeTx) GetMetaRow(ctx context.Context, key types.IndexKey) ([]byte, bool, error) {
	v, ok := f.metaRows[key]
	return v, ok, nil
}
func (f *fakeTx) GetPostingChunk(ctx context.Context, chunkKey uint64) ([]byte, bool, error) {
	v, ok := f.chunks[chunkKey]
	return v, ok, nil
}
func (f *fakeTx) GetElementData(ctx context.Context, encryptedIDBase64 string) (store.ElementData, bool, error) {
	v, ok := f.elements[encryptedIDBase64]
	return v, ok, nil
}
func (f *fakeTx) Commit() error   { return nil }
func (f *fakeTx) Rollback() error { return nil }

type fakeStore struct {
	tx *fakeTx
}

func (s *fakeStore) BeginTx(ctx context.Context, readOnly bool) (store.Tx, error) {
	return s.tx, nil
}
func (s *fakeStore) Close() error { return nil }

// seedTerm encrypts and stores a term's postings as a single chunk
// (Key: chunkKey) covering the given (id, attribute, positions) tuples,
// and registers the decrypted term's metadata row.
func seedTerm(t *testing.T, tx *fakeTx, term types.Term, chunkKey uint64, app, typ uint8, entries []types.Entry) {
	t.Helper()

	var blocks []byte
	for _, e := range entries {
		ciphertext, err := cryptutil.EncryptEntry(testDBKey, testIV, e)
		require.NoError(t, err)
		blocks = append(blocks, postings.FrameBlock(ciphertext)...)
	}
	tx.chunks[chunkKey] = blocks

	meta := types.Metadata{Rows: []types.ChunkDescriptor{
		{Key: chunkKey, Size: uint32(len(entries)), App: app, Type: typ},
	}}
	ciphertext, err := cryptutil.EncryptMetaRow(testDBKey, testIV, meta)
	require.NoError(t, err)

	indexKey, err := cryptutil.IndexKey(testDBKey, testIV, term)
	require.NoError(t, err)
	tx.metaRows[indexKey] = ciphertext
}

func seedElement(t *testing.T, tx *fakeTx, id []byte, listID []byte) {
	t.Helper()
	key, err := cryptutil.EncryptedIDKey(testDBKey, testIV, id)
	require.NoError(t, err)
	tx.elements[key] = store.ElementData{ListID: listID}
}

func newTestEngine(t *testing.T, tx *fakeTx) *Engine {
	t.Helper()
	cfg := Config{
		DBKey: testDBKey,
		IV:    testIV,
		TypeInfo: map[types.EntityType]metadata.TypeInfo{
			types.EntityTypeMail: {App: 0, Type: 0},
		},
		MetadataCacheSize: 8,
	}
	engine, err := New(cfg, &fakeStore{tx: tx}, tokenizer.New(), nil, nil, nil, nil)
	require.NoError(t, err)
	return engine
}

func newFakeTx() *fakeTx {
	return &fakeTx{
		metaRows: map[types.IndexKey][]byte{},
		chunks:   map[uint64][]byte{},
		elements: map[string]store.ElementData{},
	}
}

// TestSearchTwoTermIntersection replicates spec §8 scenario S1: two
// terms, "alpha" posts {100,90,80}, "beta" posts {100,80,70}; the
// intersection is {100,80}, newest-first.
func TestSearchTwoTermIntersection(t *testing.T) {
	tx := newFakeTx()
	seedTerm(t, tx, "alpha", 1, 0, 0, []types.Entry{
		{ID: []byte{100}, Attribute: 1, Positions: []uint32{1}},
		{ID: []byte{90}, Attribute: 1, Positions: []uint32{1}},
		{ID: []byte{80}, Attribute: 1, Positions: []uint32{1}},
	})
	seedTerm(t, tx, "beta", 2, 0, 0, []types.Entry{
		{ID: []byte{100}, Attribute: 1, Positions: []uint32{2}},
		{ID: []byte{80}, Attribute: 1, Positions: []uint32{2}},
		{ID: []byte{70}, Attribute: 1, Positions: []uint32{2}},
	})
	seedElement(t, tx, []byte{100}, []byte("L"))
	seedElement(t, tx, []byte{80}, []byte("L"))

	engine := newTestEngine(t, tx)
	result, err := engine.Search(context.Background(), "alpha beta", types.SearchRestriction{Type: types.EntityTypeMail}, 0, nil, "user@example.com")
	require.NoError(t, err)

	require.Len(t, result.Results, 2)
	assert.Equal(t, []byte{100}, result.Results[0].ID)
	assert.Equal(t, []byte{80}, result.Results[1].ID)
}

// TestSearchPhraseModeDropsNonConsecutive replicates spec §8 scenario
// S2: with matchWordOrder=true, id 80's positions aren't consecutive so
// it's dropped, leaving only id 100.
func TestSearchPhraseModeDropsNonConsecutive(t *testing.T) {
	tx := newFakeTx()
	seedTerm(t, tx, "alpha", 1, 0, 0, []types.Entry{
		{ID: []byte{100}, Attribute: 1, Positions: []uint32{3}},
		{ID: []byte{80}, Attribute: 1, Positions: []uint32{2}},
	})
	seedTerm(t, tx, "beta", 2, 0, 0, []types.Entry{
		{ID: []byte{100}, Attribute: 1, Positions: []uint32{4}},
		{ID: []byte{80}, Attribute: 1, Positions: []uint32{7}},
	})
	seedElement(t, tx, []byte{100}, []byte("L"))
	seedElement(t, tx, []byte{80}, []byte("L"))

	engine := newTestEngine(t, tx)
	result, err := engine.Search(context.Background(), `"alpha beta"`, types.SearchRestriction{Type: types.EntityTypeMail}, 0, nil, "user@example.com")
	require.NoError(t, err)

	require.Len(t, result.Results, 1)
	assert.Equal(t, []byte{100}, result.Results[0].ID)
}

// TestSearchPaginationAcrossGetMoreSearchResults replicates spec §8
// scenario S3.
func TestSearchPaginationAcrossGetMoreSearchResults(t *testing.T) {
	tx := newFakeTx()
	seedTerm(t, tx, "alpha", 1, 0, 0, []types.Entry{
		{ID: []byte{100}, Attribute: 1, Positions: []uint32{1}},
		{ID: []byte{90}, Attribute: 1, Positions: []uint32{1}},
		{ID: []byte{80}, Attribute: 1, Positions: []uint32{1}},
	})
	seedElement(t, tx, []byte{100}, []byte("L"))
	seedElement(t, tx, []byte{90}, []byte("L"))
	seedElement(t, tx, []byte{80}, []byte("L"))

	engine := newTestEngine(t, tx)
	maxResults := 2
	result, err := engine.Search(context.Background(), "alpha", types.SearchRestriction{Type: types.EntityTypeMail}, 0, &maxResults, "user@example.com")
	require.NoError(t, err)
	require.Len(t, result.Results, 2)
	assert.Equal(t, []byte{100}, result.Results[0].ID)
	assert.Equal(t, []byte{90}, result.Results[1].ID)

	err = engine.GetMoreSearchResults(context.Background(), result, 2, "user@example.com")
	require.NoError(t, err)
	require.Len(t, result.Results, 3)
	assert.Equal(t, []byte{100}, result.Results[0].ID)
	assert.Equal(t, []byte{90}, result.Results[1].ID)
	assert.Equal(t, []byte{80}, result.Results[2].ID)
}

func TestSearchEmptyQueryReturnsEmptyResult(t *testing.T) {
	tx := newFakeTx()
	engine := newTestEngine(t, tx)

	result, err := engine.Search(context.Background(), "   ", types.SearchRestriction{Type: types.EntityTypeMail}, 0, nil, "user@example.com")
	require.NoError(t, err)
	assert.Empty(t, result.Results)
}
