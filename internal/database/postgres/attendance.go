package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/attendance-kiosk/internal/database"
	"github.com/lib/pq"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// AttendanceRepository provides PostgreSQL-backed attendance storage.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// HasAttendance checks if the identity already has a record on day.
func (r *AttendanceRepository) HasAttendance(ctx context.Context, studentID, day string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM attendance WHERE student_id = $1 AND attendance_day = $2::date)",
		studentID, day,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check attendance exists: %w", err)
	}
	return exists, nil
}

// InsertAttendance stores a record. A concurrent insert for the same
// (student_id, day) surfaces as database.ErrAttendanceExists.
func (r *AttendanceRepository) InsertAttendance(ctx context.Context, record *database.AttendanceRecord) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO attendance (student_id, attendance_day, timestamp)
		VALUES ($1, $2::date, $3)
		RETURNING id
	`, record.StudentID, record.Day, record.Timestamp).Scan(&record.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return database.ErrAttendanceExists
		}
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

// ListAttendance returns the day's records with profile fields.
func (r *AttendanceRepository) ListAttendance(ctx context.Context, day string) ([]database.AttendanceEntry, error) {
	query := `
		SELECT a.id, a.student_id, to_char(a.attendance_day, 'YYYY-MM-DD'), a.timestamp,
		       s.first_name, s.last_name, s.course, s.section
		FROM attendance a
		JOIN students s ON s.id = a.student_id
		WHERE a.attendance_day = $1::date
		ORDER BY a.timestamp, a.id
	`

	rows, err := r.pool.Query(ctx, query, day)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var entries []database.AttendanceEntry
	for rows.Next() {
		var e database.AttendanceEntry
		if err := rows.Scan(&e.ID, &e.StudentID, &e.Day, &e.Timestamp,
			&e.FirstName, &e.LastName, &e.Course, &e.Section); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return entries, nil
}
