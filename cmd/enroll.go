package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kozaktomas/attendance-kiosk/internal/camera"
	"github.com/kozaktomas/attendance-kiosk/internal/config"
	"github.com/kozaktomas/attendance-kiosk/internal/database"
	"github.com/kozaktomas/attendance-kiosk/internal/embedding"
	"github.com/kozaktomas/attendance-kiosk/internal/recognition"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <image>",
	Short: "Register a student from a photo",
	Long: `Register a student from a photo instead of the live camera. The photo goes
through the same face detection and registration checks as the kiosk.

Examples:
  attendance-kiosk enroll ana.jpg --first Ana --last Cruz --course BSIT --section 3A`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

var enrollImportCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Register every photo in a directory",
	Long: `Register every image in a directory. File names carry the profile:
first_last_course_section.jpg, with hyphens standing for spaces
(Jose-Maria_Dela-Cruz_BSIT_3A.jpg).

Files that do not follow the pattern, contain no face or fail to register are
reported and skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnrollImport,
}

func init() {
	rootCmd.AddCommand(enrollCmd)
	enrollCmd.AddCommand(enrollImportCmd)

	enrollCmd.Flags().String("first", "", "First name")
	enrollCmd.Flags().String("last", "", "Last name")
	enrollCmd.Flags().String("course", "", "Course")
	enrollCmd.Flags().String("section", "", "Section")

	enrollImportCmd.Flags().Bool("dry-run", false, "Parse file names without registering")
}

func newRegistrar(cfg *config.Config, gallery database.GalleryWriter) *recognition.Registrar {
	extractor := embedding.NewClient(cfg.Embedding.URL, cfg.Embedding.Dim)
	return recognition.NewRegistrar(extractor, gallery, cfg.Recognition.StoreTimeout)
}

func runEnroll(cmd *cobra.Command, args []string) error {
	fields := recognition.ProfileFields{
		FirstName: mustGetString(cmd, "first"),
		LastName:  mustGetString(cmd, "last"),
		Course:    mustGetString(cmd, "course"),
		Section:   mustGetString(cmd, "section"),
	}

	img, err := camera.LoadImage(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	cfg := config.Load()
	backend, err := openStore(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer backend.Close()

	result, err := newRegistrar(cfg, backend.Gallery()).RegisterImage(ctx, fields, img)
	if err != nil {
		return fmt.Errorf("failed to register: %w", err)
	}
	if !result.Registered {
		return fmt.Errorf("registration rejected: %s", result.Reason)
	}

	fmt.Printf("Registered %s (%s)\n", result.Identity.FullName(), result.Identity.ID)
	if result.Identity.Photo == nil {
		fmt.Println("Warning: no reference photo captured")
	}
	return nil
}

func runEnrollImport(cmd *cobra.Command, args []string) error {
	dryRun := mustGetBool(cmd, "dry-run")
	dir := args[0]

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	type pending struct {
		path   string
		fields recognition.ProfileFields
	}
	var files []pending
	var skipped []string
	for _, e := range entries {
		if e.IsDir() || !camera.IsImageFile(e.Name()) {
			continue
		}
		fields, err := recognition.ParseEnrollFilename(e.Name())
		if err != nil {
			skipped = append(skipped, err.Error())
			continue
		}
		files = append(files, pending{path: filepath.Join(dir, e.Name()), fields: fields})
	}

	fmt.Printf("Found %d photos to register (%d skipped)\n", len(files), len(skipped))
	for _, s := range skipped {
		fmt.Printf("  skip: %s\n", s)
	}
	if len(files) == 0 {
		return errors.New("nothing to import")
	}

	if dryRun {
		for _, f := range files {
			fmt.Printf("  %s -> %s %s, %s %s\n", filepath.Base(f.path), f.fields.FirstName, f.fields.LastName, f.fields.Course, f.fields.Section)
		}
		return nil
	}

	ctx := context.Background()
	cfg := config.Load()
	backend, err := openStore(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer backend.Close()

	registrar := newRegistrar(cfg, backend.Gallery())

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Registering"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var registered int
	var failures []string
	for _, f := range files {
		img, err := camera.LoadImage(f.path)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", filepath.Base(f.path), err))
			bar.Add(1)
			continue
		}
		result, err := registrar.RegisterImage(ctx, f.fields, img)
		switch {
		case err != nil:
			failures = append(failures, fmt.Sprintf("%s: %v", filepath.Base(f.path), err))
		case !result.Registered:
			failures = append(failures, fmt.Sprintf("%s: %s", filepath.Base(f.path), result.Reason))
		default:
			registered++
		}
		bar.Add(1)
	}
	fmt.Println()

	fmt.Printf("Registered %d of %d photos\n", registered, len(files))
	for _, f := range failures {
		fmt.Printf("  failed: %s\n", f)
	}
	if registered == 0 {
		return errors.New("no photos registered")
	}
	return nil
}
