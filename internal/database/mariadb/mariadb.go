package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/kozaktomas/attendance-kiosk/internal/config"
	"github.com/kozaktomas/attendance-kiosk/internal/database"
)

func init() {
	open := func(ctx context.Context, cfg *config.DatabaseConfig) (database.Backend, error) {
		b, err := Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	database.RegisterBackend("mysql", open)
	database.RegisterBackend("mariadb", open)
}

// Pool manages a MariaDB connection pool.
type Pool struct {
	db *sql.DB
}

// normalizeDSN forces the options the repositories rely on: DATETIME and
// DATE columns scanned as time.Time in UTC.
func normalizeDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse MariaDB DSN: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

// NewPool creates a new MariaDB connection pool.
func NewPool(ctx context.Context, cfg *config.DatabaseConfig) (*Pool, error) {
	if cfg.URL == "" {
		return nil, errors.New("MariaDB DSN is required")
	}

	dsn, err := normalizeDSN(cfg.URL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB: %w", err)
	}

	return &Pool{db: db}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

// Backend bundles the MariaDB repositories behind database.Backend.
type Backend struct {
	pool       *Pool
	gallery    *GalleryRepository
	attendance *AttendanceRepository
}

// Open connects to MariaDB/MySQL. Migrations are not applied; call Migrate.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*Backend, error) {
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Backend{
		pool:       pool,
		gallery:    &GalleryRepository{db: pool.db},
		attendance: &AttendanceRepository{db: pool.db},
	}, nil
}

func (b *Backend) Gallery() database.GalleryWriter       { return b.gallery }
func (b *Backend) Attendance() database.AttendanceStore  { return b.attendance }
func (b *Backend) Similarity() database.SimilarityFinder { return b.gallery }
func (b *Backend) Migrate(ctx context.Context) error     { return b.pool.migrator().Migrate(ctx) }
func (b *Backend) Close() error                          { return b.pool.Close() }

func (b *Backend) MigrationsApplied(ctx context.Context) ([]string, error) {
	return b.pool.migrator().Applied(ctx)
}
