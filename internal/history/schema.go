package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// historySchemaVersion must be bumped whenever schema.sql changes shape.
const historySchemaVersion = 1

// ErrSchemaMismatch is returned by Open when the on-disk history was written
// by an incompatible release.
var ErrSchemaMismatch = errors.New("history schema version mismatch")

// initSchema applies schema.sql to a fresh database, or verifies the stored
// version of an existing one.
func (s *Store) initSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history schema: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	found, err := storedVersion(ctx, tx)
	if err != nil {
		return err
	}
	switch {
	case found == historySchemaVersion:
		return nil
	case found > 0:
		return fmt.Errorf("%w: %s is at v%d, this build expects v%d; remove the file to start fresh",
			ErrSchemaMismatch, s.path, found, historySchemaVersion)
	}

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("history schema: apply: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", historySchemaVersion); err != nil {
		return fmt.Errorf("history schema: stamp version: %w", err)
	}
	return tx.Commit()
}

// storedVersion returns 0 when the database has never been initialized.
func storedVersion(ctx context.Context, tx *sql.Tx) (int, error) {
	var version int
	err := tx.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	switch {
	case err == nil:
		return version, nil
	case errors.Is(err, sql.ErrNoRows):
		return 0, nil
	}
	var tables int
	if lookupErr := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'",
	).Scan(&tables); lookupErr != nil {
		return 0, fmt.Errorf("history schema: look up version table: %w", lookupErr)
	}
	if tables == 0 {
		return 0, nil
	}
	return 0, fmt.Errorf("history schema: read version: %w", err)
}
