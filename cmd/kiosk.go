package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/attendance-kiosk/internal/camera"
	"github.com/kozaktomas/attendance-kiosk/internal/config"
	"github.com/kozaktomas/attendance-kiosk/internal/embedding"
	"github.com/kozaktomas/attendance-kiosk/internal/kiosk"
	"github.com/kozaktomas/attendance-kiosk/internal/recognition"
	"github.com/kozaktomas/attendance-kiosk/internal/web"
	"github.com/kozaktomas/attendance-kiosk/internal/web/handlers"
	"github.com/spf13/cobra"
)

var kioskCmd = &cobra.Command{
	Use:   "kiosk",
	Short: "Run the attendance kiosk",
	Long: `Run the attendance kiosk: connect to the database, apply migrations, start
the display server and enter the recognition screen.

The camera is a snapshot URL (CAMERA_URL) or a directory of frames replayed
in a loop (CAMERA_DIR). Face embeddings come from the embedding server at
EMBEDDING_URL.

Examples:
  # Start recognizing right away
  attendance-kiosk kiosk

  # Start on the home screen; the operator enters recognition from the UI
  attendance-kiosk kiosk --idle --port 9000`,
	RunE: runKiosk,
}

func init() {
	rootCmd.AddCommand(kioskCmd)

	kioskCmd.Flags().Bool("idle", false, "Start on the home screen instead of the recognition screen")
	kioskCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	kioskCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
	kioskCmd.Flags().Float64("threshold", 0, "Recognition threshold (overrides RECOGNITION_THRESHOLD)")
}

// applyKioskFlags lets explicit flags win over environment configuration.
func applyKioskFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("port") {
		cfg.Web.Port = mustGetInt(cmd, "port")
	}
	if cmd.Flags().Changed("host") {
		cfg.Web.Host = mustGetString(cmd, "host")
	}
	if cmd.Flags().Changed("threshold") {
		cfg.Recognition.Threshold = mustGetFloat64(cmd, "threshold")
	}
}

func runKiosk(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyKioskFlags(cmd, cfg)

	// Fail before touching the database when no camera is configured
	if _, err := camera.New(&cfg.Camera); err != nil {
		return err
	}

	ctx := context.Background()
	backend, err := openStore(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer backend.Close()

	count, err := backend.Gallery().CountIdentities(ctx)
	if err != nil {
		return fmt.Errorf("failed to count enrolled identities: %w", err)
	}
	fmt.Printf("Gallery: %d enrolled identities\n", count)

	extractor := embedding.NewClient(cfg.Embedding.URL, cfg.Embedding.Dim)
	hub := handlers.NewHub()
	opts := recognition.OptionsFromConfig(&cfg.Recognition)

	coordinator := kiosk.NewCoordinator(func() (kiosk.Session, error) {
		cam, err := camera.New(&cfg.Camera)
		if err != nil {
			return nil, err
		}
		return recognition.NewSession(cam, extractor, backend.Gallery(), backend.Attendance(), hub, opts), nil
	})

	server := web.NewServer(cfg, hub, coordinator, backend.Attendance())

	if !mustGetBool(cmd, "idle") {
		if err := coordinator.Handle(kiosk.EnterRecognition); err != nil {
			return fmt.Errorf("failed to enter recognition: %w", err)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		// Release the camera before the server stops accepting requests
		if err := coordinator.Handle(kiosk.Shutdown); err != nil {
			fmt.Printf("Error stopping recognition: %v\n", err)
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Attendance Kiosk on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		_ = coordinator.Handle(kiosk.Shutdown)
		return err
	}
	return nil
}
