package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/kozaktomas/attendance-kiosk/internal/config"
	"github.com/kozaktomas/attendance-kiosk/internal/constants"
	"github.com/kozaktomas/attendance-kiosk/internal/recognition"
	"github.com/spf13/cobra"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Inspect enrolled identities",
}

var galleryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled identities in gallery order",
	RunE:  runGalleryList,
}

var galleryDuplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "Find identities that look like the same person",
	Long: `Find pairs of enrolled identities whose face embeddings are at least as
similar as --threshold. Registration never updates an existing identity, so
a person registered twice shows up here.

Examples:
  attendance-kiosk gallery duplicates
  attendance-kiosk gallery duplicates --threshold 0.6 --json`,
	RunE: runGalleryDuplicates,
}

func init() {
	rootCmd.AddCommand(galleryCmd)
	galleryCmd.AddCommand(galleryListCmd)
	galleryCmd.AddCommand(galleryDuplicatesCmd)

	galleryListCmd.Flags().Bool("json", false, "Output as JSON")

	galleryDuplicatesCmd.Flags().Float64("threshold", constants.DefaultDuplicateThreshold, "Minimum cosine similarity")
	galleryDuplicatesCmd.Flags().Int("limit", constants.DefaultDuplicateLimit, "Neighbours inspected per identity")
	galleryDuplicatesCmd.Flags().Bool("json", false, "Output as JSON")
}

// GalleryEntry is one identity in the JSON listing.
type GalleryEntry struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Course    string    `json:"course"`
	Section   string    `json:"section"`
	CreatedAt time.Time `json:"created_at"`
}

// DuplicateEntry is one pair in the JSON duplicates report.
type DuplicateEntry struct {
	First      GalleryEntry `json:"first"`
	Second     GalleryEntry `json:"second"`
	Similarity float64      `json:"similarity"`
}

func runGalleryList(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	ctx := context.Background()
	cfg := config.Load()

	backend, err := openStore(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer backend.Close()

	identities, err := backend.Gallery().ListIdentities(ctx)
	if err != nil {
		return fmt.Errorf("failed to list identities: %w", err)
	}

	if jsonOutput {
		entries := make([]GalleryEntry, 0, len(identities))
		for _, id := range identities {
			entries = append(entries, GalleryEntry{id.ID, id.FirstName, id.LastName, id.Course, id.Section, id.CreatedAt})
		}
		return outputJSON(entries)
	}

	fmt.Printf("\nEnrolled identities: %d\n\n", len(identities))
	if len(identities) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCOURSE\tSECTION\tREGISTERED")
	for _, id := range identities {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", id.ID, id.FullName(), id.Course, id.Section,
			id.CreatedAt.In(cfg.Recognition.Location).Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runGalleryDuplicates(cmd *cobra.Command, args []string) error {
	threshold := mustGetFloat64(cmd, "threshold")
	limit := mustGetInt(cmd, "limit")
	jsonOutput := mustGetBool(cmd, "json")

	if threshold < -1 || threshold > 1 {
		return fmt.Errorf("threshold must be between -1 and 1, got %.2f", threshold)
	}

	ctx := context.Background()
	cfg := config.Load()
	backend, err := openStore(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer backend.Close()

	pairs, skipped, err := recognition.FindDuplicates(ctx, backend.Gallery(), backend.Similarity(), threshold, limit)
	if err != nil {
		return fmt.Errorf("failed to find duplicates: %w", err)
	}

	if jsonOutput {
		out := make([]DuplicateEntry, 0, len(pairs))
		for _, p := range pairs {
			out = append(out, DuplicateEntry{
				First:      GalleryEntry{p.First.ID, p.First.FirstName, p.First.LastName, p.First.Course, p.First.Section, p.First.CreatedAt},
				Second:     GalleryEntry{p.Second.ID, p.Second.FirstName, p.Second.LastName, p.Second.Course, p.Second.Section, p.Second.CreatedAt},
				Similarity: p.Similarity,
			})
		}
		return outputJSON(out)
	}

	if skipped > 0 {
		fmt.Printf("Warning: skipped %d identities with unreadable embeddings\n", skipped)
	}
	fmt.Printf("\nPossible duplicates (similarity >= %.2f): %d\n\n", threshold, len(pairs))
	if len(pairs) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SIMILARITY\tFIRST\tSECOND")
	for _, p := range pairs {
		fmt.Fprintf(w, "%.3f\t%s (%s)\t%s (%s)\n", p.Similarity, p.First.FullName(), p.First.ID, p.Second.FullName(), p.Second.ID)
	}
	return w.Flush()
}
