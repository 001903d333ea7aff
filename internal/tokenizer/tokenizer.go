// Package tokenizer provides a minimal reference Tokenizer
// implementation. The real tokenizer is out of scope (spec §1); this
// stand-in exists only so the module is testable and runnable
// end-to-end via cmd/mailsearch. It lowercases and splits on
// non-alphanumeric runes, which is sufficient to exercise every
// pipeline stage but is not a reimplementation of anything the
// original system does.
package tokenizer

import (
	"strings"
	"unicode"

	"github.com/dshills/mailsearch/pkg/types"
)

// Basic is the reference collab.Tokenizer implementation.
type Basic struct{}

// New returns a Basic tokenizer.
func New() Basic { return Basic{} }

// Tokenize lowercases text and splits it into runs of letters and
// digits. Idempotent on its own output: tokenizing an already-lowercase,
// space-joined term list returns the same terms.
func (Basic) Tokenize(text string) ([]types.Term, error) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	terms := make([]types.Term, 0, len(fields))
	for _, f := range fields {
		terms = append(terms, types.Term(strings.ToLower(f)))
	}
	return terms, nil
}
