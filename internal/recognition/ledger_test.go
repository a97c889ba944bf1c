package recognition

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kozaktomas/attendance-kiosk/internal/database"
	"github.com/kozaktomas/attendance-kiosk/internal/database/mock"
)

func newTestLedger(store database.AttendanceStore, now time.Time) *Ledger {
	l := NewLedger(store, time.Second, time.UTC)
	l.now = func() time.Time { return now }
	return l
}

func TestLedger_IdempotentSameDay(t *testing.T) {
	store := mock.NewMockAttendanceStore(nil)
	ctx := context.Background()
	morning := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	l := newTestLedger(store, morning)
	if got := l.LogAttendance(ctx, "ana"); got.Kind != LoggedNew {
		t.Fatalf("first call: expected LoggedNew, got %v (%s)", got.Kind, got.Reason)
	}

	l.now = func() time.Time { return morning.Add(6 * time.Hour) }
	if got := l.LogAttendance(ctx, "ana"); got.Kind != AlreadyLogged {
		t.Fatalf("second call: expected AlreadyLogged, got %v", got.Kind)
	}

	records := store.Records()
	if len(records) != 1 {
		t.Fatalf("expected exactly 1 record, got %d", len(records))
	}
	if records[0].Day != "2026-03-02" || !records[0].Timestamp.Equal(morning) {
		t.Errorf("unexpected record %+v", records[0])
	}
	if store.InsertCalls != 1 {
		t.Errorf("expected no write on AlreadyLogged, got %d inserts", store.InsertCalls)
	}
}

func TestLedger_DifferentDays(t *testing.T) {
	store := mock.NewMockAttendanceStore(nil)
	ctx := context.Background()
	day1 := time.Date(2026, 3, 2, 23, 59, 0, 0, time.UTC)

	l := newTestLedger(store, day1)
	if got := l.LogAttendance(ctx, "ana"); got.Kind != LoggedNew {
		t.Fatalf("day 1: expected LoggedNew, got %v", got.Kind)
	}

	l.now = func() time.Time { return day1.Add(2 * time.Minute) }
	if got := l.LogAttendance(ctx, "ana"); got.Kind != LoggedNew {
		t.Fatalf("day 2: expected LoggedNew, got %v", got.Kind)
	}

	if n := len(store.Records()); n != 2 {
		t.Errorf("expected 2 records, got %d", n)
	}
}

func TestLedger_DayUsesLocation(t *testing.T) {
	manila, err := time.LoadLocation("Asia/Manila")
	if err != nil {
		t.Skipf("tzdata not available: %v", err)
	}
	store := mock.NewMockAttendanceStore(nil)

	l := NewLedger(store, time.Second, manila)
	l.now = func() time.Time { return time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC) } // 01:00 next day in Manila

	l.LogAttendance(context.Background(), "ana")

	records := store.Records()
	if len(records) != 1 || records[0].Day != "2026-03-03" {
		t.Errorf("expected record on 2026-03-03, got %+v", records)
	}
}

func TestLedger_DistinctIdentities(t *testing.T) {
	store := mock.NewMockAttendanceStore(nil)
	l := newTestLedger(store, time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC))

	for _, id := range []string{"ana", "ben"} {
		if got := l.LogAttendance(context.Background(), id); got.Kind != LoggedNew {
			t.Errorf("%s: expected LoggedNew, got %v", id, got.Kind)
		}
	}
}

func TestLedger_StoreFailures(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(*mock.MockAttendanceStore)
		reason string
	}{
		{
			name:   "check fails",
			setup:  func(s *mock.MockAttendanceStore) { s.HasError = errors.New("connection refused") },
			reason: "connection refused",
		},
		{
			name:   "insert fails",
			setup:  func(s *mock.MockAttendanceStore) { s.InsertError = errors.New("disk full") },
			reason: "disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := mock.NewMockAttendanceStore(nil)
			tt.setup(store)
			l := newTestLedger(store, time.Now())

			got := l.LogAttendance(context.Background(), "ana")
			if got.Kind != Failed {
				t.Fatalf("expected Failed, got %v", got.Kind)
			}
			if got.Reason != tt.reason {
				t.Errorf("expected reason %q, got %q", tt.reason, got.Reason)
			}
		})
	}
}

func TestLedger_ConcurrentInsertIsAlreadyLogged(t *testing.T) {
	store := mock.NewMockAttendanceStore(nil)
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	// Another session inserts between our check and our insert
	store.HasHook = func(ctx context.Context) error {
		store.HasHook = nil
		rec := &database.AttendanceRecord{StudentID: "ana", Day: "2026-03-02", Timestamp: now}
		return store.InsertAttendance(ctx, rec)
	}
	// HasHook runs before the lookup, so HasAttendance would see the row;
	// force the stale answer the racing session would have read.
	l := newTestLedger(&staleCheckStore{MockAttendanceStore: store}, now)

	got := l.LogAttendance(context.Background(), "ana")
	if got.Kind != AlreadyLogged {
		t.Fatalf("expected AlreadyLogged, got %v (%s)", got.Kind, got.Reason)
	}
	if n := len(store.Records()); n != 1 {
		t.Errorf("expected 1 record, got %d", n)
	}
}

// staleCheckStore reports "no record" regardless of the store contents.
type staleCheckStore struct {
	*mock.MockAttendanceStore
}

func (s *staleCheckStore) HasAttendance(ctx context.Context, studentID, day string) (bool, error) {
	if _, err := s.MockAttendanceStore.HasAttendance(ctx, studentID, day); err != nil {
		return false, err
	}
	return false, nil
}

func TestLedger_Timeout(t *testing.T) {
	store := mock.NewMockAttendanceStore(nil)
	store.HasHook = func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}

	l := NewLedger(store, 20*time.Millisecond, time.UTC)
	start := time.Now()
	got := l.LogAttendance(context.Background(), "ana")

	if got.Kind != Failed || got.Reason != "store timeout" {
		t.Errorf("expected Failed(store timeout), got %v (%s)", got.Kind, got.Reason)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout not enforced, took %s", elapsed)
	}
}

func TestOutcomeKind_String(t *testing.T) {
	for kind, want := range map[OutcomeKind]string{
		LoggedNew:     "logged_new",
		AlreadyLogged: "already_logged",
		Failed:        "failed",
	} {
		if kind.String() != want {
			t.Errorf("%d.String() = %q, want %q", kind, kind.String(), want)
		}
	}
}
