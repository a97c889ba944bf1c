// Package mock provides in-memory implementations of database interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/kozaktomas/attendance-kiosk/internal/database"
	"github.com/kozaktomas/attendance-kiosk/internal/embedding"
)

// MockGallery is an in-memory database.GalleryWriter and
// database.SimilarityFinder. Identities are kept in insertion order.
type MockGallery struct {
	mu         sync.RWMutex
	identities []database.EnrolledIdentity

	// Error injection
	ListError    error
	PhotoError   error
	CountError   error
	InsertError  error
	SimilarError error

	// Call counters
	ListCalls   int
	InsertCalls int
}

// NewMockGallery creates an empty gallery.
func NewMockGallery() *MockGallery {
	return &MockGallery{}
}

// AddIdentity appends an identity without counting it as an insert call.
func (m *MockGallery) AddIdentity(id database.EnrolledIdentity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identities = append(m.identities, id)
}

// Identities returns a copy of the stored identities.
func (m *MockGallery) Identities() []database.EnrolledIdentity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]database.EnrolledIdentity(nil), m.identities...)
}

// ListIdentities returns identities in insertion order, without photos.
func (m *MockGallery) ListIdentities(ctx context.Context) ([]database.EnrolledIdentity, error) {
	m.mu.Lock()
	m.ListCalls++
	m.mu.Unlock()

	if m.ListError != nil {
		return nil, m.ListError
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.EnrolledIdentity, len(m.identities))
	for i, id := range m.identities {
		id.Photo = nil
		out[i] = id
	}
	return out, nil
}

// IdentityPhoto returns the identity's photo or nil.
func (m *MockGallery) IdentityPhoto(ctx context.Context, id string) ([]byte, error) {
	if m.PhotoError != nil {
		return nil, m.PhotoError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ident := range m.identities {
		if ident.ID == id {
			return ident.Photo, nil
		}
	}
	return nil, nil
}

// CountIdentities returns the number of identities.
func (m *MockGallery) CountIdentities(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.identities), nil
}

// InsertIdentity appends an identity.
func (m *MockGallery) InsertIdentity(ctx context.Context, identity *database.EnrolledIdentity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertCalls++
	if m.InsertError != nil {
		return m.InsertError
	}
	m.identities = append(m.identities, *identity)
	return nil
}

// FindSimilarIdentities performs a linear cosine scan.
func (m *MockGallery) FindSimilarIdentities(ctx context.Context, probe []float32, limit int, maxDistance float64) ([]database.SimilarIdentity, error) {
	if m.SimilarError != nil {
		return nil, m.SimilarError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []database.SimilarIdentity
	for _, id := range m.identities {
		vec, err := embedding.DecodeBlob(id.EmbeddingBlob, len(probe))
		if err != nil {
			continue
		}
		if d := embedding.CosineDistance(probe, vec); d < maxDistance {
			results = append(results, database.SimilarIdentity{Identity: id, Distance: d})
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

type attendanceKey struct {
	studentID string
	day       string
}

// MockAttendanceStore is an in-memory database.AttendanceStore enforcing
// the (student_id, day) uniqueness of the real schemas.
type MockAttendanceStore struct {
	mu      sync.RWMutex
	records []database.AttendanceRecord
	index   map[attendanceKey]bool
	nextID  int64
	gallery *MockGallery // optional, for ListAttendance profile fields

	// Error injection
	HasError    error
	InsertError error
	ListError   error

	// HasHook runs inside HasAttendance before the lookup; tests use it to
	// simulate a concurrent insert or a slow store.
	HasHook func(ctx context.Context) error

	// Call counters
	HasCalls    int
	InsertCalls int
}

// NewMockAttendanceStore creates an empty store. gallery may be nil.
func NewMockAttendanceStore(gallery *MockGallery) *MockAttendanceStore {
	return &MockAttendanceStore{
		index:   make(map[attendanceKey]bool),
		gallery: gallery,
	}
}

// Records returns a copy of all stored records.
func (m *MockAttendanceStore) Records() []database.AttendanceRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]database.AttendanceRecord(nil), m.records...)
}

// HasAttendance checks the index.
func (m *MockAttendanceStore) HasAttendance(ctx context.Context, studentID, day string) (bool, error) {
	m.mu.Lock()
	m.HasCalls++
	m.mu.Unlock()

	if m.HasHook != nil {
		if err := m.HasHook(ctx); err != nil {
			return false, err
		}
	}
	if m.HasError != nil {
		return false, m.HasError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index[attendanceKey{studentID, day}], nil
}

// InsertAttendance stores a record or returns database.ErrAttendanceExists.
func (m *MockAttendanceStore) InsertAttendance(ctx context.Context, record *database.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertCalls++
	if m.InsertError != nil {
		return m.InsertError
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	key := attendanceKey{record.StudentID, record.Day}
	if m.index[key] {
		return database.ErrAttendanceExists
	}
	m.nextID++
	record.ID = m.nextID
	m.index[key] = true
	m.records = append(m.records, *record)
	return nil
}

// ListAttendance returns the day's records in timestamp order.
func (m *MockAttendanceStore) ListAttendance(ctx context.Context, day string) ([]database.AttendanceEntry, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}

	profiles := make(map[string]database.EnrolledIdentity)
	if m.gallery != nil {
		for _, id := range m.gallery.Identities() {
			profiles[id.ID] = id
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var entries []database.AttendanceEntry
	for _, rec := range m.records {
		if rec.Day != day {
			continue
		}
		p := profiles[rec.StudentID]
		entries = append(entries, database.AttendanceEntry{
			AttendanceRecord: rec,
			FirstName:        p.FirstName,
			LastName:         p.LastName,
			Course:           p.Course,
			Section:          p.Section,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp.Before(entries[j].Timestamp) })
	return entries, nil
}

// MockBackend is a database.Backend over MockGallery and MockAttendanceStore.
type MockBackend struct {
	GalleryMock    *MockGallery
	AttendanceMock *MockAttendanceStore

	MigrateError error
	Migrated     bool
	Closed       bool
}

// NewMockBackend creates a backend with empty stores.
func NewMockBackend() *MockBackend {
	g := NewMockGallery()
	return &MockBackend{GalleryMock: g, AttendanceMock: NewMockAttendanceStore(g)}
}

func (b *MockBackend) Gallery() database.GalleryWriter       { return b.GalleryMock }
func (b *MockBackend) Attendance() database.AttendanceStore  { return b.AttendanceMock }
func (b *MockBackend) Similarity() database.SimilarityFinder { return b.GalleryMock }

func (b *MockBackend) Migrate(ctx context.Context) error {
	if b.MigrateError != nil {
		return b.MigrateError
	}
	b.Migrated = true
	return nil
}

func (b *MockBackend) MigrationsApplied(ctx context.Context) ([]string, error) {
	if !b.Migrated {
		return nil, nil
	}
	return []string{"001_students.sql", "002_attendance.sql"}, nil
}

func (b *MockBackend) Close() error {
	b.Closed = true
	return nil
}
