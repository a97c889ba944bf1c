package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log"
	"path"
	"sort"
	"strings"
)

// Migrator applies embedded SQL migrations in file name order and records
// each applied file in schema_migrations. Backends supply the dialect bits.
type Migrator struct {
	DB  *sql.DB
	FS  fs.FS
	Dir string

	// CreateTableSQL creates schema_migrations if missing
	CreateTableSQL string
	// RecordSQL inserts one version; it takes a single placeholder
	RecordSQL string
	// SplitStatements executes each ';'-terminated statement separately, for
	// drivers that reject multi-statement Exec
	SplitStatements bool
}

// getAppliedMigrations returns a set of already-applied migration versions.
func (m *Migrator) getAppliedMigrations(ctx context.Context) (map[string]bool, error) {
	if _, err := m.DB.ExecContext(ctx, m.CreateTableSQL); err != nil {
		return nil, fmt.Errorf("create migrations table: %w", err)
	}

	versions, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}
	applied := make(map[string]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}
	return applied, nil
}

// pending returns sorted SQL migration file names not yet applied.
func (m *Migrator) pending(applied map[string]bool) ([]string, error) {
	entries, err := fs.ReadDir(m.FS, m.Dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sql") && !applied[e.Name()] {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// Migrate applies all pending migrations, each in its own transaction.
func (m *Migrator) Migrate(ctx context.Context) error {
	applied, err := m.getAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	files, err := m.pending(applied)
	if err != nil {
		return err
	}

	for _, file := range files {
		content, err := fs.ReadFile(m.FS, path.Join(m.Dir, file))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if err := m.apply(ctx, file, string(content)); err != nil {
			return err
		}
		log.Printf("Applied migration: %s", file)
	}

	return nil
}

func (m *Migrator) apply(ctx context.Context, file, content string) error {
	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction for %s: %w", file, err)
	}
	defer tx.Rollback()

	statements := []string{content}
	if m.SplitStatements {
		statements = SplitSQL(content)
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute migration %s: %w", file, err)
		}
	}

	if _, err := tx.ExecContext(ctx, m.RecordSQL, file); err != nil {
		return fmt.Errorf("record migration %s: %w", file, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", file, err)
	}
	return nil
}

// Applied returns applied migration versions in order.
func (m *Migrator) Applied(ctx context.Context) ([]string, error) {
	rows, err := m.DB.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate migration versions: %w", err)
	}
	return versions, nil
}

// SplitSQL splits a script into statements on ';' at the end of a line.
// Line comments are dropped. It does not understand quoted semicolons.
func SplitSQL(script string) []string {
	var statements []string
	var current strings.Builder
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			if stmt := strings.TrimSpace(current.String()); stmt != ";" {
				statements = append(statements, strings.TrimSuffix(stmt, ";"))
			}
			current.Reset()
		}
	}
	if rest := strings.TrimSpace(current.String()); rest != "" {
		statements = append(statements, rest)
	}
	return statements
}
