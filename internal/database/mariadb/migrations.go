package mariadb

import (
	"embed"

	"github.com/kozaktomas/attendance-kiosk/internal/database"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func (p *Pool) migrator() *database.Migrator {
	return &database.Migrator{
		DB:  p.db,
		FS:  migrationsFS,
		Dir: "migrations",
		CreateTableSQL: `
			CREATE TABLE IF NOT EXISTS schema_migrations (
				version VARCHAR(255) PRIMARY KEY,
				applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,
		RecordSQL:       "INSERT INTO schema_migrations (version) VALUES (?)",
		SplitStatements: true,
	}
}
