package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/kozaktomas/attendance-kiosk/internal/config"
	"github.com/kozaktomas/attendance-kiosk/internal/database"
	"github.com/spf13/cobra"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Show the attendance of a day",
	Long: `Show who checked in on a given day (default: today in KIOSK_TIMEZONE).

Examples:
  attendance-kiosk attendance
  attendance-kiosk attendance --date 2026-03-09 --json`,
	RunE: runAttendance,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)

	attendanceCmd.Flags().String("date", "", "Day to report (YYYY-MM-DD)")
	attendanceCmd.Flags().Bool("json", false, "Output as JSON")
}

// AttendanceReportRow is one line of the JSON report.
type AttendanceReportRow struct {
	StudentID string    `json:"student_id"`
	Name      string    `json:"name"`
	Course    string    `json:"course"`
	Section   string    `json:"section"`
	Timestamp time.Time `json:"timestamp"`
}

func runAttendance(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	cfg := config.Load()

	day := database.DayOf(time.Now(), cfg.Recognition.Location)
	if d := mustGetString(cmd, "date"); d != "" {
		parsed, err := database.ParseDay(d)
		if err != nil {
			return err
		}
		day = parsed
	}

	ctx := context.Background()
	backend, err := openStore(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer backend.Close()

	entries, err := backend.Attendance().ListAttendance(ctx, day)
	if err != nil {
		return fmt.Errorf("failed to list attendance: %w", err)
	}

	if jsonOutput {
		rows := make([]AttendanceReportRow, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, AttendanceReportRow{
				StudentID: e.StudentID,
				Name:      e.FirstName + " " + e.LastName,
				Course:    e.Course,
				Section:   e.Section,
				Timestamp: e.Timestamp,
			})
		}
		return outputJSON(map[string]any{"date": day, "count": len(rows), "records": rows})
	}

	fmt.Printf("\nAttendance for %s: %d\n\n", day, len(entries))
	if len(entries) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tNAME\tCOURSE\tSECTION\tSTUDENT ID")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s %s\t%s\t%s\t%s\n",
			e.Timestamp.In(cfg.Recognition.Location).Format("15:04:05"),
			e.FirstName, e.LastName, e.Course, e.Section, e.StudentID)
	}
	return w.Flush()
}
