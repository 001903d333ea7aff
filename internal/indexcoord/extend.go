// Package indexcoord implements the index extension protocol (spec
// §4.10): before running a Mail-restricted page whose end timestamp is
// behind the indexer's current horizon, the orchestrator asks the
// indexer to extend backward and waits for it. Cancellation from the
// indexer is expected and swallowed, matching the teacher's own
// graceful-shutdown handling in cmd/gocontext/main.go, where a
// cancellation signal is logged and treated as normal shutdown rather
// than an error.
package indexcoord

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dshills/mailsearch/internal/collab"
	"github.com/dshills/mailsearch/pkg/types"
)

// dayDuration is used to compute start-of-day boundaries in UTC, the
// natural clock for an epoch-ms index horizon.
const dayDuration = 24 * time.Hour

// startOfDayMs truncates an epoch-ms timestamp down to 00:00 UTC of the
// same day.
func startOfDayMs(epochMs int64) int64 {
	t := time.UnixMilli(epochMs).UTC()
	sod := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return sod.UnixMilli()
}

// Required reports whether restriction requires an index extension
// before the page can run (spec §4.10): the restriction targets Mail,
// an end timestamp is set, the horizon is above FullIndexedTimestamp
// (so neither fully indexed nor NothingIndexedTimestamp), and the
// horizon is later than restriction.End, i.e. the backward-working
// indexer has not yet reached back to End.
func Required(restriction types.SearchRestriction, indexer collab.Indexer) bool {
	if restriction.Type != types.EntityTypeMail || restriction.End == nil || indexer == nil {
		return false
	}
	horizon := indexer.CurrentIndexTimestamp()
	return horizon > types.FullIndexedTimestamp && horizon > *restriction.End
}

// Extend requests the indexer extend coverage backward to the
// start-of-day boundary of restriction.End for user, and awaits
// completion. A cooperative cancellation from the indexer
// (types.ErrCancelled) is logged and swallowed: the caller proceeds
// with whatever is indexed (spec §4.10, §4.13, §7).
func Extend(ctx context.Context, indexer collab.Indexer, user string, restriction types.SearchRestriction) error {
	if restriction.End == nil {
		return fmt.Errorf("indexcoord: extend requires restriction.End")
	}

	sinceEpochMs := startOfDayMs(*restriction.End)
	log.Printf("indexcoord: extending index for user %q back to %d", user, sinceEpochMs)

	err := indexer.IndexMailboxes(ctx, user, sinceEpochMs)
	if err == nil {
		return nil
	}
	if errors.Is(err, types.ErrCancelled) || errors.Is(err, context.Canceled) {
		log.Printf("indexcoord: index extension for user %q cancelled, proceeding with current coverage", user)
		return nil
	}
	return fmt.Errorf("indexcoord: extend: %w", err)
}
