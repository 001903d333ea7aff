package cryptutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/mailsearch/pkg/types"
)

func TestEncryptDecryptMetaRowRoundTrip(t *testing.T) {
	dbKey, iv := testKeys()

	meta := types.Metadata{Rows: []types.ChunkDescriptor{
		{Key: 5, Size: 100, App: 1, Type: 2},
		{Key: 3, Size: 50, App: 1, Type: 2},
	}}

	ciphertext, err := EncryptMetaRow(dbKey, iv, meta)
	require.NoError(t, err)

	decrypted, err := DecryptMetaRow(dbKey, iv, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, meta, decrypted)
}

func TestDecryptMetaRowWrongKeyIsCorruption(t *testing.T) {
	dbKey, iv := testKeys()
	otherKey := []byte("different-key-different-key-0000")

	ciphertext, err := EncryptMetaRow(dbKey, iv, types.Metadata{Rows: []types.ChunkDescriptor{{Key: 1, Size: 1}}})
	require.NoError(t, err)

	_, err = DecryptMetaRow(otherKey, iv, ciphertext)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrCorruption)
}

func TestEncryptMetaRowEmptyRows(t *testing.T) {
	dbKey, iv := testKeys()

	ciphertext, err := EncryptMetaRow(dbKey, iv, types.Metadata{})
	require.NoError(t, err)

	decrypted, err := DecryptMetaRow(dbKey, iv, ciphertext)
	require.NoError(t, err)
	assert.Empty(t, decrypted.Rows)
}
