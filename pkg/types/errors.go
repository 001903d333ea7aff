package types

import "errors"

// Sentinel errors for the search core's failure taxonomy (spec §7).
//
// NotFound and NotAuthorized are per-entity: callers in C8/C9 swallow
// them and skip the candidate. Cancelled is swallowed by the index
// extension protocol and only logged. Corruption, Crypto, and Store
// always abort the current page.
var (
	ErrNotFound     = errors.New("not found")
	ErrNotAuthorized = errors.New("not authorized")
	ErrCancelled    = errors.New("cancelled")
	ErrCorruption   = errors.New("store corruption")
	ErrCrypto       = errors.New("crypto failure")
	ErrStore        = errors.New("store failure")
)

// Skippable reports whether err (or a wrapped cause) should cause the
// caller to skip the current candidate rather than abort the page.
func Skippable(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotAuthorized)
}

// Swallowable reports whether err should be logged and discarded rather
// than surfaced to the caller of search/getMoreSearchResults.
func Swallowable(err error) bool {
	return errors.Is(err, ErrCancelled)
}
