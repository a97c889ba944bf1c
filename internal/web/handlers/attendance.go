package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/attendance-kiosk/internal/database"
)

// AttendanceHandler serves the operator's daily attendance report.
type AttendanceHandler struct {
	store database.AttendanceStore
	loc   *time.Location
	now   func() time.Time
}

// NewAttendanceHandler creates a new attendance handler. Days default to
// today in loc.
func NewAttendanceHandler(store database.AttendanceStore, loc *time.Location) *AttendanceHandler {
	if loc == nil {
		loc = time.Local
	}
	return &AttendanceHandler{store: store, loc: loc, now: time.Now}
}

// AttendanceEntryResponse is one row of the report.
type AttendanceEntryResponse struct {
	ID        int64     `json:"id"`
	StudentID string    `json:"student_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Course    string    `json:"course"`
	Section   string    `json:"section"`
	Timestamp time.Time `json:"timestamp"`
}

// AttendanceResponse is the report for one day.
type AttendanceResponse struct {
	Date    string                    `json:"date"`
	Count   int                       `json:"count"`
	Records []AttendanceEntryResponse `json:"records"`
}

// List returns the records of ?date=YYYY-MM-DD, or of today.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	day := database.DayOf(h.now(), h.loc)
	if q := r.URL.Query().Get("date"); q != "" {
		parsed, err := database.ParseDay(q)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		day = parsed
	}

	entries, err := h.store.ListAttendance(r.Context(), day)
	if err != nil {
		log.Printf("Failed to list attendance for %s: %v", day, err)
		respondError(w, http.StatusInternalServerError, "failed to list attendance")
		return
	}

	records := make([]AttendanceEntryResponse, 0, len(entries))
	for _, e := range entries {
		records = append(records, AttendanceEntryResponse{
			ID:        e.ID,
			StudentID: e.StudentID,
			FirstName: e.FirstName,
			LastName:  e.LastName,
			Course:    e.Course,
			Section:   e.Section,
			Timestamp: e.Timestamp,
		})
	}

	respondJSON(w, http.StatusOK, AttendanceResponse{Date: day, Count: len(records), Records: records})
}
