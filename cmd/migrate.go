package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/attendance-kiosk/internal/config"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Create or update the students and attendance tables. The kiosk and enroll
commands do this on start; run it separately to prepare a fresh database.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	backend, err := openStore(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer backend.Close()

	applied, err := backend.MigrationsApplied(ctx)
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	fmt.Printf("Database is up to date (%d migrations applied)\n", len(applied))
	for _, v := range applied {
		fmt.Printf("  %s\n", v)
	}
	return nil
}
