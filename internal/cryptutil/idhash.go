package cryptutil

import "github.com/cespare/xxhash/v2"

// idHashPrefixLen bounds how much of the encrypted id's ciphertext
// feeds the IdHash pre-filter, keeping the hash cheap even for large
// EncryptedEntry payloads.
const idHashPrefixLen = 16

// IDHash computes the 32-bit pre-intersection hash of an
// EncryptedEntry's ciphertext prefix (spec §3 "IdHash": "hash of the
// ciphertext of the encrypted id prefix"). EncryptEntry always writes
// a deterministic, nonce-free digest of the entry's id as the first
// idDigestSize bytes of its ciphertext, so two independent
// encryptions of postings for the same id — one per query term —
// produce the same IDHash even though the AEAD payload that follows
// is sealed under a fresh random nonce each call. Hashing only the
// prefix, never the full ciphertext, also means this never needs an
// AEAD open to compute.
func IDHash(ciphertext []byte) uint32 {
	prefix := ciphertext
	if len(prefix) > idHashPrefixLen {
		prefix = prefix[:idHashPrefixLen]
	}
	return uint32(xxhash.Sum64(prefix))
}
