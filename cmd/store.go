package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kozaktomas/attendance-kiosk/internal/config"
	"github.com/kozaktomas/attendance-kiosk/internal/database"
	_ "github.com/kozaktomas/attendance-kiosk/internal/database/mariadb"
	_ "github.com/kozaktomas/attendance-kiosk/internal/database/postgres"
)

// openStore connects to the configured backend and, when migrate is set,
// applies pending migrations. The caller closes the backend.
func openStore(ctx context.Context, cfg *config.Config, migrate bool) (database.Backend, error) {
	fmt.Printf("Connecting to %s database...\n", cfg.Database.Driver)
	backend, err := database.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if migrate {
		if err := backend.Migrate(ctx); err != nil {
			backend.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}
	return backend, nil
}

// outputJSON writes data as indented JSON to stdout.
func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}
