package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const schemaStatusActive = "active"

// activateSchemaState upserts the singleton row the schema gate checks.
// A serve process refuses to start until this row matches its own
// embedded migrations.
func activateSchemaState(ctx context.Context, db *sql.DB, version, checksum string) error {
	version = strings.TrimSpace(version)
	if version == "" {
		return errors.New("schema state requires a version")
	}

	var checksumValue any
	if c := strings.TrimSpace(checksum); c != "" {
		checksumValue = c
	}

	now := time.Now().UTC()
	_, err := db.ExecContext(ctx, `
		INSERT INTO schema_state (id, status, schema_version, checksum, activated_at, created_at)
		VALUES (TRUE, $1, $2, $3, $4, $4)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
		    schema_version = EXCLUDED.schema_version,
		    checksum = EXCLUDED.checksum,
		    activated_at = EXCLUDED.activated_at
	`, schemaStatusActive, version, checksumValue, now)
	if err != nil {
		return fmt.Errorf("activate schema state: %w", err)
	}
	return nil
}
