package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kozaktomas/attendance-kiosk/internal/config"
)

// Backend is an opened storage backend.
type Backend interface {
	Gallery() GalleryWriter
	Attendance() AttendanceStore
	Similarity() SimilarityFinder
	// Migrate applies pending schema migrations
	Migrate(ctx context.Context) error
	// MigrationsApplied lists applied migration versions in order
	MigrationsApplied(ctx context.Context) ([]string, error)
	Close() error
}

// Opener connects to a backend.
type Opener func(ctx context.Context, cfg *config.DatabaseConfig) (Backend, error)

var (
	backends   = make(map[string]Opener)
	backendsMu sync.RWMutex
)

// RegisterBackend registers a backend constructor under a driver name.
// This is called by the backend packages from init to avoid import cycles.
func RegisterBackend(driver string, open Opener) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[strings.ToLower(driver)] = open
}

// Drivers returns the registered driver names, sorted.
func Drivers() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open connects to the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (Backend, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, fmt.Errorf("database not configured: DATABASE_URL is required")
	}
	backendsMu.RLock()
	open, ok := backends[strings.ToLower(cfg.Driver)]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown database driver %q (available: %s)", cfg.Driver, strings.Join(Drivers(), ", "))
	}
	return open(ctx, cfg)
}
