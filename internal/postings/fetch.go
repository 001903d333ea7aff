// Package postings implements the Posting Fetcher (C3): it reads a
// PostingChunk by descriptor key and iterates its framed binary blocks
// in stored order, decrypting each into an Entry (C4).
package postings

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/dshills/mailsearch/internal/cryptutil"
	"github.com/dshills/mailsearch/internal/store"
	"github.com/dshills/mailsearch/pkg/types"
)

// Fetch reads the posting bytes for desc and materializes desc.Size
// framed entries in stored order (spec §4.3). A store miss yields an
// empty slice, not an error.
func Fetch(ctx context.Context, tx store.Tx, desc types.ChunkDescriptor) ([]types.EncryptedEntry, error) {
	data, ok, err := tx.GetPostingChunk(ctx, desc.Key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return frameBlocks(data, int(desc.Size))
}

// frameBlocks walks length-prefixed blocks in buf:
// repeated [4B length][length bytes ciphertext]. It reports
// (bytes, start, end, index) per the wire/format contract of spec §6.
// Running out of bytes before producing wantCount blocks, or a
// length that overruns the buffer, indicates store corruption.
func frameBlocks(buf []byte, wantCount int) ([]types.EncryptedEntry, error) {
	entries := make([]types.EncryptedEntry, 0, wantCount)
	offset := 0
	for i := 0; i < wantCount; i++ {
		if offset+4 > len(buf) {
			return nil, fmt.Errorf("%w: truncated frame header at block %d", types.ErrCorruption, i)
		}
		length := int(binary.BigEndian.Uint32(buf[offset:]))
		start := offset + 4
		end := start + length
		if length < 0 || end > len(buf) {
			return nil, fmt.Errorf("%w: frame length overruns chunk at block %d", types.ErrCorruption, i)
		}

		block := buf[start:end]
		entries = append(entries, types.EncryptedEntry{
			Ciphertext: block,
			IDHash:     cryptutil.IDHash(block),
			Start:      start,
			End:        end,
			Index:      i,
		})
		offset = end
	}
	return entries, nil
}

// FrameBlock encodes one ciphertext block into the length-prefixed
// wire form consumed by frameBlocks. Exposed for tests and fixture
// construction; the core itself never writes postings.
func FrameBlock(ciphertext []byte) []byte {
	out := make([]byte, 4+len(ciphertext))
	binary.BigEndian.PutUint32(out, uint32(len(ciphertext)))
	copy(out[4:], ciphertext)
	return out
}

// DecryptAll decrypts every EncryptedEntry in enc with dbKey/iv,
// wrapping the Entry Decryptor (C4). A decryption failure is fatal to
// the page (spec §4.13).
func DecryptAll(dbKey, iv []byte, enc []types.EncryptedEntry) ([]types.Entry, error) {
	out := make([]types.Entry, len(enc))
	for i, e := range enc {
		entry, err := cryptutil.DecryptEntry(dbKey, iv, e.Ciphertext)
		if err != nil {
			return nil, err
		}
		out[i] = entry
	}
	return out, nil
}
