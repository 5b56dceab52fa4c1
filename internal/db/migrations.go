package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// CurrentSchemaVersion is incremented whenever pendingMigrations grows a
// new entry. Grounded on the teacher's store/migrations.go versioning
// scheme, trimmed to this package's single-database, no-sharding shape.
const CurrentSchemaVersion = 1

// Migration describes one additive column or table change applied after
// the base schema. Column/Def are set for an ALTER TABLE ... ADD COLUMN
// migration; Table alone (with Def as CREATE TABLE body) marks a new
// table migration.
type Migration struct {
	Version int
	Table   string
	Column  string
	Def     string
}

// pendingMigrations lists schema changes beyond the version-1 baseline in
// schemaStatements. Empty for now; future additive changes append here
// rather than editing schemaStatements, so existing databases upgrade in
// place instead of being recreated.
var pendingMigrations []Migration

// tableExists reports whether a table is present in the sqlite_master
// catalog.
func tableExists(ctx context.Context, conn *sql.DB, table string) (bool, error) {
	var name string
	err := conn.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	return true, nil
}

// columnExists reports whether a column is present on table, via
// PRAGMA table_info.
func columnExists(ctx context.Context, conn *sql.DB, table, column string) (bool, error) {
	rows, err := conn.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return false, fmt.Errorf("pragma table_info(%s): %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notNull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return false, fmt.Errorf("scan table_info row: %w", err)
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// GetSchemaVersion returns the highest applied version recorded in
// schema_versions, or 0 if the table is empty or absent.
func GetSchemaVersion(ctx context.Context, conn *sql.DB) (int, error) {
	exists, err := tableExists(ctx, conn, "schema_versions")
	if err != nil || !exists {
		return 0, err
	}
	var version sql.NullInt64
	err = conn.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_versions`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return int(version.Int64), nil
}

// SetSchemaVersion records that version has been applied.
func SetSchemaVersion(ctx context.Context, conn *sql.DB, version int) error {
	_, err := conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO schema_versions (version, applied_at) VALUES (?, ?)`,
		version, time.Now().UTC().Format(time.RFC3339))
	return err
}

// RunMigrations creates the baseline schema if absent, then applies any
// pendingMigrations not yet recorded in schema_versions. It is safe to
// call on every process start.
func RunMigrations(ctx context.Context, conn *sql.DB, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	for _, stmt := range schemaStatements {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply baseline schema: %w", err)
		}
	}

	current, err := GetSchemaVersion(ctx, conn)
	if err != nil {
		return fmt.Errorf("read current schema version: %w", err)
	}
	if current == 0 {
		if err := SetSchemaVersion(ctx, conn, 1); err != nil {
			return fmt.Errorf("record baseline schema version: %w", err)
		}
		current = 1
	}

	for _, m := range pendingMigrations {
		if m.Version <= current {
			continue
		}
		if m.Table != "" && m.Column == "" {
			exists, err := tableExists(ctx, conn, m.Table)
			if err != nil {
				return err
			}
			if !exists {
				if _, err := conn.ExecContext(ctx, m.Def); err != nil {
					return fmt.Errorf("create table %s: %w", m.Table, err)
				}
				log.Info("migration applied", zap.Int("version", m.Version), zap.String("table", m.Table))
			}
			continue
		}
		if m.Column != "" {
			exists, err := columnExists(ctx, conn, m.Table, m.Column)
			if err != nil {
				return err
			}
			if !exists {
				stmt := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, m.Table, m.Column, m.Def)
				if _, err := conn.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("add column %s.%s: %w", m.Table, m.Column, err)
				}
				log.Info("migration applied",
					zap.Int("version", m.Version), zap.String("table", m.Table), zap.String("column", m.Column))
			}
		}
		if err := SetSchemaVersion(ctx, conn, m.Version); err != nil {
			return fmt.Errorf("record schema version %d: %w", m.Version, err)
		}
		current = m.Version
	}

	return nil
}
