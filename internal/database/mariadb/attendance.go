package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/kozaktomas/attendance-kiosk/internal/database"
)

// errDupEntry is ER_DUP_ENTRY.
const errDupEntry = 1062

// AttendanceRepository provides MariaDB-backed attendance storage.
type AttendanceRepository struct {
	db *sql.DB
}

func isDuplicateEntry(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == errDupEntry
}

// HasAttendance checks if the identity already has a record on day.
func (r *AttendanceRepository) HasAttendance(ctx context.Context, studentID, day string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM attendance WHERE student_id = ? AND attendance_day = ?)",
		studentID, day,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check attendance exists: %w", err)
	}
	return exists, nil
}

// InsertAttendance stores a record, mapping ER_DUP_ENTRY to
// database.ErrAttendanceExists.
func (r *AttendanceRepository) InsertAttendance(ctx context.Context, record *database.AttendanceRecord) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO attendance (student_id, attendance_day, timestamp) VALUES (?, ?, ?)",
		record.StudentID, record.Day, record.Timestamp.UTC(),
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return database.ErrAttendanceExists
		}
		return fmt.Errorf("insert attendance: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("get attendance id: %w", err)
	}
	record.ID = id
	return nil
}

// ListAttendance returns the day's records with profile fields.
func (r *AttendanceRepository) ListAttendance(ctx context.Context, day string) ([]database.AttendanceEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.student_id, DATE_FORMAT(a.attendance_day, '%Y-%m-%d'), a.timestamp,
		       s.first_name, s.last_name, s.course, s.section
		FROM attendance a
		JOIN students s ON s.id = a.student_id
		WHERE a.attendance_day = ?
		ORDER BY a.timestamp, a.id
	`, day)
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
