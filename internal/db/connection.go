package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"go.uber.org/zap"
)

// Open opens (creating if needed) the sqlite database at path, applies
// pragmas tuned for a single-writer ingestion workload, and runs
// migrations before returning.
func Open(ctx context.Context, path string, log *zap.Logger) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	for _, pragma := range []string{
		`PRAGMA journal_mode=WAL`,
		`PRAGMA foreign_keys=ON`,
		`PRAGMA busy_timeout=5000`,
		`PRAGMA synchronous=NORMAL`,
	} {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	// modernc.org/sqlite has no native concurrent-writer support; cap the
	// pool to one connection so WAL readers don't starve the writer.
	conn.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, conn, log); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return conn, nil
}
