// Package cryptutil implements the core's three cryptographic
// primitives: the deterministic index-key encoding (C1), AEAD
// encryption/decryption of posting entries and metadata rows (C4), and
// the fast non-cryptographic IdHash pre-filter used by the intersector
// (C5) before paying the cost of a full decrypt.
package cryptutil
