package db

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// migrateLockKey serialises concurrent boots against the same database.
const migrateLockKey int64 = 0x70657266

// ErrMigrationEdited means a migration already recorded in
// schema_migrations no longer matches the file shipped with the binary.
var ErrMigrationEdited = errors.New("applied migration has been edited")

type migration struct {
	version  string
	sql      string
	checksum string
}

// Migrate applies the *.sql files of fsys that schema_migrations does not
// yet record, in version order, one transaction each. It refuses to run
// anything when an applied file's checksum has changed. The versions it
// applied are returned.
func Migrate(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS) ([]string, error) {
	files, err := loadMigrations(fsys)
	if err != nil {
		return nil, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrateLockKey); err != nil {
		return nil, fmt.Errorf("migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.Exec(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", migrateLockKey)
	}()

	if err := ensureMigrationsTable(ctx, conn.Conn()); err != nil {
		return nil, err
	}
	applied, err := appliedChecksums(ctx, conn.Conn())
	if err != nil {
		return nil, err
	}
	pending, err := pendingMigrations(files, applied)
	if err != nil {
		return nil, err
	}

	versions := make([]string, 0, len(pending))
	for _, m := range pending {
		if err := apply(ctx, conn.Conn(), m); err != nil {
			return versions, err
		}
		versions = append(versions, m.version)
	}
	return versions, nil
}

func loadMigrations(fsys fs.FS) ([]migration, error) {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	files := make([]migration, 0, len(names))
	for _, name := range names {
		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		sum := sha256.Sum256(body)
		files = append(files, migration{
			version:  strings.TrimSuffix(path.Base(name), ".sql"),
			sql:      string(body),
			checksum: hex.EncodeToString(sum[:]),
		})
	}
	return files, nil
}

// pendingMigrations returns the files not yet applied. A recorded version
// whose checksum is empty predates checksums and is accepted as is.
func pendingMigrations(files []migration, applied map[string]string) ([]migration, error) {
	var pending []migration
	for _, m := range files {
		sum, ok := applied[m.version]
		if !ok {
			pending = append(pending, m)
			continue
		}
		if sum != "" && sum != m.checksum {
			return nil, fmt.Errorf("%w: %s", ErrMigrationEdited, m.version)
		}
	}
	return pending, nil
}

func apply(ctx context.Context, conn *pgx.Conn, m migration) error {
	tx, err := conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, m.sql); err != nil {
		return fmt.Errorf("migration %s failed: %w", m.version, err)
	}
	if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version, checksum) VALUES ($1, $2)", m.version, m.checksum); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func ensureMigrationsTable(ctx context.Context, conn *pgx.Conn) error {
	_, err := conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		checksum TEXT NOT NULL DEFAULT '',
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return err
	}
	_, err = conn.Exec(ctx, "ALTER TABLE schema_migrations ADD COLUMN IF NOT EXISTS checksum TEXT NOT NULL DEFAULT ''")
	return err
}

func appliedChecksums(ctx context.Context, conn *pgx.Conn) (map[string]string, error) {
	rows, err := conn.Query(ctx, "SELECT version, checksum FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := map[string]string{}
	for rows.Next() {
		var version, checksum string
		if err := rows.Scan(&version, &checksum); err != nil {
			return nil, err
		}
		applied[version] = checksum
	}
	return applied, rows.Err()
}
