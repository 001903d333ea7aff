package cryptutil

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/dshills/mailsearch/pkg/types"
)

// entryAEAD derives the per-database AEAD cipher used to seal and open
// EncryptedEntry payloads and MetaRow ciphertext. dbKey/iv are the
// store's per-user secret and initialization vector (spec §3/§4.3).
func entryAEAD(dbKey, iv []byte) (cipher.AEAD, error) {
	key := deriveMACKey(dbKey, iv) // 32 bytes, suitable as a chacha20poly1305 key
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("%w: entry aead: %v", types.ErrCrypto, err)
	}
	return aead, nil
}

// randomNonce returns a fresh random nonce of the AEAD's required size.
func randomNonce(size int) ([]byte, error) {
	nonce := make([]byte, size)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("%w: nonce: %v", types.ErrCrypto, err)
	}
	return nonce, nil
}

// EncryptEntry seals an Entry into a framed EncryptedEntry block. The
// returned Ciphertext is idDigest || nonce || sealed payload: idDigest
// is the deterministic, nonce-free encoding of entry.ID (see
// encryptedIDBytes) that IDHash hashes as its prefix, so that
// independent encryptions of postings for the same id — one per query
// term — always agree on IDHash even though the sealed payload that
// follows is under a fresh random nonce every call.
func EncryptEntry(dbKey, iv []byte, entry types.Entry) ([]byte, error) {
	aead, err := entryAEAD(dbKey, iv)
	if err != nil {
		return nil, err
	}

	idDigest, err := encryptedIDBytes(dbKey, iv, entry.ID)
	if err != nil {
		return nil, err
	}

	nonce, err := randomNonce(aead.NonceSize())
	if err != nil {
		return nil, err
	}

	plaintext := encodeEntry(entry)
	sealed := aead.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, 0, len(idDigest)+len(nonce)+len(sealed))
	out = append(out, idDigest...)
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out, nil
}

// DecryptEntry opens a framed block into an Entry (C4), skipping the
// leading idDigest prefix EncryptEntry writes ahead of the nonce and
// sealed payload. Malformed framing or an AEAD authentication failure
// both indicate store corruption (spec §4.3: "Malformed framing is
// fatal").
func DecryptEntry(dbKey, iv []byte, ciphertext []byte) (types.Entry, error) {
	aead, err := entryAEAD(dbKey, iv)
	if err != nil {
		return types.Entry{}, err
	}

	if len(ciphertext) < idDigestSize+aead.NonceSize() {
		return types.Entry{}, fmt.Errorf("%w: entry shorter than id digest + nonce", types.ErrCorruption)
	}

	body := ciphertext[idDigestSize:]
	nonce := body[:aead.NonceSize()]
	sealed := body[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return types.Entry{}, fmt.Errorf("%w: entry auth failed: %v", types.ErrCorruption, err)
	}

	entry, err := decodeEntry(plaintext)
	if err != nil {
		return types.Entry{}, fmt.Errorf("%w: entry decode: %v", types.ErrCorruption, err)
	}
	return entry, nil
}

// encodeEntry writes an Entry's plaintext wire form:
// [2B idLen][id][1B attribute][4B posCount][posCount * 4B position].
func encodeEntry(e types.Entry) []byte {
	buf := make([]byte, 2+len(e.ID)+1+4+4*len(e.Positions))
	off := 0
	binary.BigEndian.PutUint16(buf[off:], uint16(len(e.ID)))
	off += 2
	copy(buf[off:], e.ID)
	off += len(e.ID)
	buf[off] = e.Attribute
	off++
	binary.BigEndian.PutUint32(buf[off:], uint32(len(e.Positions)))
	off += 4
	for _, p := range e.Positions {
		binary.BigEndian.PutUint32(buf[off:], p)
		off += 4
	}
	return buf
}

// decodeEntry is the inverse of encodeEntry.
func decodeEntry(buf []byte) (types.Entry, error) {
	if len(buf) < 2 {
		return types.Entry{}, fmt.Errorf("truncated id length")
	}
	idLen := int(binary.BigEndian.Uint16(buf))
	off := 2
	if len(buf) < off+idLen+1+4 {
		return types.Entry{}, fmt.Errorf("truncated entry header")
	}

	id := make([]byte, idLen)
	copy(id, buf[off:off+idLen])
	off += idLen

	attribute := buf[off]
	off++

	posCount := int(binary.BigEndian.Uint32(buf[off:]))
	off += 4

	if len(buf) != off+4*posCount {
		return types.Entry{}, fmt.Errorf("position count mismatch")
	}

	positions := make([]uint32, posCount)
	for i := 0; i < posCount; i++ {
		positions[i] = binary.BigEndian.Uint32(buf[off:])
		off += 4
	}

	return types.Entry{ID: id, Attribute: attribute, Positions: positions}, nil
}
