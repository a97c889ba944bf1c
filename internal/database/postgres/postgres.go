package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/attendance-kiosk/internal/config"
	"github.com/kozaktomas/attendance-kiosk/internal/database"
	_ "github.com/lib/pq"
)

func init() {
	open := func(ctx context.Context, cfg *config.DatabaseConfig) (database.Backend, error) {
		b, err := Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	database.RegisterBackend("postgres", open)
	database.RegisterBackend("postgresql", open)
}

// Pool manages a PostgreSQL connection pool.
type Pool struct {
	db *sql.DB
}

// NewPool creates a new PostgreSQL connection pool.
func NewPool(ctx context.Context, cfg *config.DatabaseConfig) (*Pool, error) {
	if cfg.URL == "" {
		return nil, errors.New("database URL is required")
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
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

// QueryRow executes a query that returns a single row.
func (p *Pool) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return p.db.QueryRowContext(ctx, query, args...)
}

// Query executes a query that returns rows.
func (p *Pool) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	return rows, nil
}

// Exec executes a query that doesn't return rows.
func (p *Pool) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	result, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing statement: %w", err)
	}
	return result, nil
}

// Backend bundles the PostgreSQL repositories behind database.Backend.
type Backend struct {
	pool       *Pool
	gallery    *GalleryRepository
	attendance *AttendanceRepository
}

// Open connects to PostgreSQL. Migrations are not applied; call Migrate.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*Backend, error) {
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL pool: %w", err)
	}
	return &Backend{
		pool:       pool,
		gallery:    NewGalleryRepository(pool),
		attendance: NewAttendanceRepository(pool),
	}, nil
}

func (b *Backend) Gallery() database.GalleryWriter       { return b.gallery }
func (b *Backend) Attendance() database.AttendanceStore  { return b.attendance }
func (b *Backend) Similarity() database.SimilarityFinder { return b.gallery }
func (b *Backend) Migrate(ctx context.Context) error     { return b.pool.Migrate(ctx) }
func (b *Backend) Close() error                          { return b.pool.Close() }

func (b *Backend) MigrationsApplied(ctx context.Context) ([]string, error) {
	return b.pool.MigrationsApplied(ctx)
}
