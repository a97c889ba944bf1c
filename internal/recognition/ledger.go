package recognition

import (
	"context"
	"errors"
	"time"

	"github.com/kozaktomas/attendance-kiosk/internal/database"
)

// ErrStoreTimeout replaces context.DeadlineExceeded from store calls.
var ErrStoreTimeout = errors.New("store timeout")

// OutcomeKind classifies an attendance attempt.
type OutcomeKind int

const (
	LoggedNew OutcomeKind = iota
	AlreadyLogged
	Failed
)

func (k OutcomeKind) String() string {
	switch k {
	case LoggedNew:
		return "logged_new"
	case AlreadyLogged:
		return "already_logged"
	default:
		return "failed"
	}
}

// Outcome is the result of Ledger.LogAttendance. Reason is set for Failed.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
}

// Ledger records at most one attendance per identity per calendar day.
type Ledger struct {
	store   database.AttendanceStore
	timeout time.Duration
	loc     *time.Location
	now     func() time.Time
}

// NewLedger creates a ledger. Days are computed in loc; each store call is
// bounded by timeout.
func NewLedger(store database.AttendanceStore, timeout time.Duration, loc *time.Location) *Ledger {
	if loc == nil {
		loc = time.Local
	}
	return &Ledger{store: store, timeout: timeout, loc: loc, now: time.Now}
}

// LogAttendance checks for today's record and inserts one if missing. It
// never panics on store failures; they come back as Failed.
func (l *Ledger) LogAttendance(ctx context.Context, studentID string) Outcome {
	now := l.now()
	day := database.DayOf(now, l.loc)

	exists, err := callStore(ctx, l.timeout, func(ctx context.Context) (bool, error) {
		return l.store.HasAttendance(ctx, studentID, day)
	})
	if err != nil {
		return Outcome{Kind: Failed, Reason: err.Error()}
	}
	if exists {
		return Outcome{Kind: AlreadyLogged}
	}

	record := &database.AttendanceRecord{StudentID: studentID, Day: day, Timestamp: now}
	_, err = callStore(ctx, l.timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, l.store.InsertAttendance(ctx, record)
	})
	switch {
	case errors.Is(err, database.ErrAttendanceExists):
		// Lost a race with another session; the constraint kept it to one row
		return Outcome{Kind: AlreadyLogged}
	case err != nil:
		return Outcome{Kind: Failed, Reason: err.Error()}
	}
	return Outcome{Kind: LoggedNew}
}

// callStore runs fn under timeout and maps an expired deadline to
// ErrStoreTimeout.
func callStore[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	v, err := fn(ctx)
	if err != nil && (errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded) {
		return v, ErrStoreTimeout
	}
	return v, err
}
