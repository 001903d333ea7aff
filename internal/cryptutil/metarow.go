package cryptutil

import (
	"encoding/binary"
	"fmt"

	"github.com/dshills/mailsearch/pkg/types"
)

// EncryptMetaRow seals a term's Metadata (its list of ChunkDescriptors)
// the same way EncryptEntry seals a posting, so a stale or wrong-key
// read of SearchIndexMetaDataOS fails as a decrypt error rather than
// silently misreading chunk descriptors (spec §4.2, §4.13).
func EncryptMetaRow(dbKey, iv []byte, meta types.Metadata) ([]byte, error) {
	aead, err := entryAEAD(dbKey, iv)
	if err != nil {
		return nil, err
	}

	nonce, err := randomNonce(aead.NonceSize())
	if err != nil {
		return nil, err
	}

	sealed := aead.Seal(nil, nonce, encodeMetadata(meta), nil)
	out := make([]byte, 0, len(nonce)+len(sealed))
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out, nil
}

// DecryptMetaRow is the inverse of EncryptMetaRow, used as the decrypt
// callback passed to metadata.Reader.ReadMeta.
func DecryptMetaRow(dbKey, iv []byte, ciphertext []byte) (types.Metadata, error) {
	aead, err := entryAEAD(dbKey, iv)
	if err != nil {
		return types.Metadata{}, err
	}

	if len(ciphertext) < aead.NonceSize() {
		return types.Metadata{}, fmt.Errorf("%w: meta row shorter than nonce", types.ErrCorruption)
	}
	nonce := ciphertext[:aead.NonceSize()]
	sealed := ciphertext[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return types.Metadata{}, fmt.Errorf("%w: meta row auth failed: %v", types.ErrCorruption, err)
	}

	meta, err := decodeMetadata(plaintext)
	if err != nil {
		return types.Metadata{}, fmt.Errorf("%w: meta row decode: %v", types.ErrCorruption, err)
	}
	return meta, nil
}

// encodeMetadata writes Metadata's plaintext wire form:
// [4B rowCount][rowCount * (8B key, 4B size, 1B app, 1B type)].
func encodeMetadata(meta types.Metadata) []byte {
	buf := make([]byte, 4+14*len(meta.Rows))
	binary.BigEndian.PutUint32(buf, uint32(len(meta.Rows)))
	off := 4
	for _, row := range meta.Rows {
		binary.BigEndian.PutUint64(buf[off:], row.Key)
		off += 8
		binary.BigEndian.PutUint32(buf[off:], row.Size)
		off += 4
		buf[off] = row.App
		off++
		buf[off] = row.Type
		off++
	}
	return buf
}

// decodeMetadata is the inverse of encodeMetadata.
func decodeMetadata(buf []byte) (types.Metadata, error) {
	if len(buf) < 4 {
		return types.Metadata{}, fmt.Errorf("truncated row count")
	}
	count := int(binary.BigEndian.Uint32(buf))
	off := 4
	if len(buf) != off+14*count {
		return types.Metadata{}, fmt.Errorf("row count mismatch")
	}

	rows := make([]types.ChunkDescriptor, count)
	for i := 0; i < count; i++ {
		rows[i].Key = binary.BigEndian.Uint64(buf[off:])
		off += 8
		rows[i].Size = binary.BigEndian.Uint32(buf[off:])
		off += 4
		rows[i].App = buf[off]
		off++
		rows[i].Type = buf[off]
		off++
	}
	return types.Metadata{Rows: rows}, nil
}
