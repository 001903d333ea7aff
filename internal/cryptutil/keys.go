package cryptutil

import (
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/dshills/mailsearch/pkg/types"
)

// IndexKey computes the opaque, fixed-width lookup key for a term
// (spec §4.1): indexKey(term) = keyed_encrypt(dbKey, iv, term). Equal
// terms always produce an equal IndexKey; there is no randomization.
func IndexKey(dbKey, iv []byte, term types.Term) (types.IndexKey, error) {
	mac, err := blake2b.New256(deriveMACKey(dbKey, iv))
	if err != nil {
		return types.IndexKey{}, fmt.Errorf("cryptutil: index key mac: %w", err)
	}
	_, _ = mac.Write([]byte(term))

	var key types.IndexKey
	copy(key[:], mac.Sum(nil))
	return key, nil
}

// Base64 is the store-facing string form of an IndexKey, used as the
// secondary "words" index lookup value.
func Base64(key types.IndexKey) string {
	return base64.StdEncoding.EncodeToString(key[:])
}

// idDigestSize is the width of encryptedIDBytes' output (blake2b-256).
const idDigestSize = blake2b.Size256

// encryptedIDBytes computes the deterministic keyed digest of a
// plaintext entity id: no random nonce, so the same id always
// produces the same bytes regardless of when or how many times it is
// encrypted. Domain-separated from IndexKey's term encoding by the
// "id:" prefix so the same MAC key never produces colliding term and
// id digests. Shared by EncryptedIDKey (the element-store lookup key)
// and EncryptEntry's IdHash prefix (spec §3 "IdHash": "hash of the
// ciphertext of the encrypted id prefix") — both need the same
// nonce-free, deterministic encoding of an id, just consumed
// differently (base64 string vs. raw prefix bytes).
func encryptedIDBytes(dbKey, iv []byte, id []byte) ([]byte, error) {
	mac, err := blake2b.New256(deriveMACKey(dbKey, iv))
	if err != nil {
		return nil, fmt.Errorf("cryptutil: id digest mac: %w", err)
	}
	_, _ = mac.Write([]byte("id:"))
	_, _ = mac.Write(id)
	return mac.Sum(nil), nil
}

// EncryptedIDKey computes the base64-encoded lookup key ElementDataOS
// is keyed by (spec §6): a deterministic keyed encoding of a plaintext
// entity id, distinct from IndexKey's term encoding by domain
// separation so the same underlying MAC key never produces colliding
// term and id keys.
func EncryptedIDKey(dbKey, iv []byte, id []byte) (string, error) {
	digest, err := encryptedIDBytes(dbKey, iv, id)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(digest), nil
}

// deriveMACKey folds dbKey and iv into a single blake2b key. dbKey and
// iv are each bounded (<=64 bytes) by the store's own key format, so
// concatenation followed by hashing to a fixed-size MAC key is safe.
func deriveMACKey(dbKey, iv []byte) []byte {
	h, _ := blake2b.New256(nil)
	_, _ = h.Write(dbKey)
	_, _ = h.Write(iv)
	return h.Sum(nil)
}
