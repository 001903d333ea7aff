package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/dshills/mailsearch/pkg/types"
)

// CurrentSchemaVersion is the schema version this build of the core
// expects. It is bumped whenever the object-store layout changes.
const CurrentSchemaVersion = "1.0.0"

const schemaDDL = `
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS search_index_metadata (
    index_key  TEXT PRIMARY KEY,
    ciphertext BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS search_index (
    chunk_key INTEGER PRIMARY KEY,
    data      BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS element_data (
    encrypted_id TEXT PRIMARY KEY,
    list_id      BLOB NOT NULL,
    raw          BLOB
);
`

// ApplyMigrations creates the schema if absent and checks that any
// already-applied schema version is compatible with this build (spec
// §7 additions: a core built against an incompatible on-disk layout
// fails fast instead of silently misreading postings).
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("%w: apply schema: %v", types.ErrStore, err)
	}

	current, err := semver.NewVersion(CurrentSchemaVersion)
	if err != nil {
		return fmt.Errorf("%w: parse current schema version: %v", types.ErrStore, err)
	}

	var stored sql.NullString
	err = db.QueryRowContext(ctx, `SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1`).Scan(&stored)
	switch {
	case err == sql.ErrNoRows || !stored.Valid:
		_, err = db.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, CurrentSchemaVersion)
		if err != nil {
			return fmt.Errorf("%w: record schema version: %v", types.ErrStore, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("%w: read schema version: %v", types.ErrStore, err)
	}

	onDisk, err := semver.NewVersion(stored.String)
	if err != nil {
		return fmt.Errorf("%w: parse on-disk schema version %q: %v", types.ErrStore, stored.String, err)
	}

	if onDisk.Major() != current.Major() {
		return fmt.Errorf("%w: incompatible schema version: on-disk %s, core expects %s",
			types.ErrStore, onDisk, current)
	}

	return nil
}
