//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/attendance-kiosk/internal/config"
	"github.com/kozaktomas/attendance-kiosk/internal/database"
	"github.com/kozaktomas/attendance-kiosk/internal/embedding"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) (*Backend, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		Driver:       "postgres",
		URL:          fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	backend, err := database.Open(ctx, cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to open backend: %v", err)
	}

	if err := backend.Migrate(ctx); err != nil {
		backend.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		backend.Close()
		container.Terminate(ctx)
	}

	return backend.(*Backend), cleanup
}

func vector(dim int, offset float32) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = float32(i)/float32(dim) + offset
	}
	return v
}

func newIdentity(first, last string, emb []float32, createdAt time.Time) *database.EnrolledIdentity {
	return &database.EnrolledIdentity{
		ID:            uuid.NewString(),
		FirstName:     first,
		LastName:      last,
		Course:        "BSIT",
		Section:       "3A",
		EmbeddingBlob: embedding.EncodeBlob(emb),
		CreatedAt:     createdAt,
	}
}

func TestGalleryRepository(t *testing.T) {
	backend, cleanup := setupTestContainer(t)
	if backend == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := backend.gallery
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	// Inserted out of order on purpose; listing must follow created_at
	ana := newIdentity("Ana", "Cruz", vector(512, 0), base.Add(time.Minute))
	ben := newIdentity("Ben", "Reyes", vector(512, 0.5), base)
	ana.Photo = []byte{0xFF, 0xD8, 0xFF, 0xE0}

	for _, id := range []*database.EnrolledIdentity{ana, ben} {
		if err := repo.InsertIdentity(ctx, id); err != nil {
			t.Fatalf("InsertIdentity(%s) failed: %v", id.FirstName, err)
		}
	}

	t.Run("ListIdentities", func(t *testing.T) {
		got, err := repo.ListIdentities(ctx)
		if err != nil {
			t.Fatalf("ListIdentities failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 identities, got %d", len(got))
		}
		if got[0].ID != ben.ID || got[1].ID != ana.ID {
			t.Errorf("expected enrolment order [Ben, Ana], got [%s, %s]", got[0].FirstName, got[1].FirstName)
		}
		if _, err := got[1].Embedding(512); err != nil {
			t.Errorf("stored embedding does not decode: %v", err)
		}
		if got[0].Photo != nil {
			t.Error("ListIdentities should not load photos")
		}
	})

	t.Run("IdentityPhoto", func(t *testing.T) {
		photo, err := repo.IdentityPhoto(ctx, ana.ID)
		if err != nil {
			t.Fatalf("IdentityPhoto failed: %v", err)
		}
		if len(photo) != 4 {
			t.Errorf("expected 4 photo bytes, got %d", len(photo))
		}

		photo, err = repo.IdentityPhoto(ctx, ben.ID)
		if err != nil {
			t.Fatalf("IdentityPhoto failed: %v", err)
		}
		if photo != nil {
			t.Errorf("expected nil photo, got %d bytes", len(photo))
		}

		photo, err = repo.IdentityPhoto(ctx, uuid.NewString())
		if err != nil || photo != nil {
			t.Errorf("expected nil photo for unknown id, got %v, %v", photo, err)
		}
	})

	t.Run("CountIdentities", func(t *testing.T) {
		count, err := repo.CountIdentities(ctx)
		if err != nil {
			t.Fatalf("CountIdentities failed: %v", err)
		}
		if count != 2 {
			t.Errorf("expected 2, got %d", count)
		}
	})

	t.Run("FindSimilarIdentities", func(t *testing.T) {
		results, err := repo.FindSimilarIdentities(ctx, vector(512, 0), 10, 0.5)
		if err != nil {
			t.Fatalf("FindSimilarIdentities failed: %v", err)
		}
		if len(results) == 0 {
			t.Fatal("expected at least one result")
		}
		if results[0].Identity.ID != ana.ID {
			t.Errorf("expected Ana first, got %s", results[0].Identity.FirstName)
		}
		if results[0].Distance > 1e-5 {
			t.Errorf("expected ~0 distance for identical vector, got %f", results[0].Distance)
		}
		for i := 1; i < len(results); i++ {
			if results[i].Distance < results[i-1].Distance {
				t.Error("distances not sorted")
			}
		}
	})
}

func TestAttendanceRepository(t *testing.T) {
	backend, cleanup := setupTestContainer(t)
	if backend == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	student := newIdentity("Ana", "Cruz", vector(512, 0), time.Now())
	if err := backend.gallery.InsertIdentity(ctx, student); err != nil {
		t.Fatalf("InsertIdentity failed: %v", err)
	}

	repo := backend.attendance
	now := time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)

	t.Run("InsertAndHas", func(t *testing.T) {
		has, err := repo.HasAttendance(ctx, student.ID, "2026-03-02")
		if err != nil {
			t.Fatalf("HasAttendance failed: %v", err)
		}
		if has {
			t.Fatal("expected no attendance yet")
		}

		rec := &database.AttendanceRecord{StudentID: student.ID, Day: "2026-03-02", Timestamp: now}
		if err := repo.InsertAttendance(ctx, rec); err != nil {
			t.Fatalf("InsertAttendance failed: %v", err)
		}
		if rec.ID == 0 {
			t.Error("expected record ID to be set")
		}

		has, err = repo.HasAttendance(ctx, student.ID, "2026-03-02")
		if err != nil {
			t.Fatalf("HasAttendance failed: %v", err)
		}
		if !has {
			t.Error("expected attendance after insert")
		}
	})

	t.Run("DuplicateMapsToSentinel", func(t *testing.T) {
		rec := &database.AttendanceRecord{StudentID: student.ID, Day: "2026-03-02", Timestamp: now.Add(time.Hour)}
		err := repo.InsertAttendance(ctx, rec)
		if !errors.Is(err, database.ErrAttendanceExists) {
			t.Errorf("expected ErrAttendanceExists, got %v", err)
		}
	})

	t.Run("NextDay", func(t *testing.T) {
		rec := &database.AttendanceRecord{StudentID: student.ID, Day: "2026-03-03", Timestamp: now.Add(24 * time.Hour)}
		if err := repo.InsertAttendance(ctx, rec); err != nil {
			t.Fatalf("InsertAttendance for next day failed: %v", err)
		}
	})

	t.Run("ListAttendance", func(t *testing.T) {
		entries, err := repo.ListAttendance(ctx, "2026-03-02")
		if err != nil {
			t.Fatalf("ListAttendance failed: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(entries))
		}
		if entries[0].Day != "2026-03-02" {
			t.Errorf("expected day 2026-03-02, got %s", entries[0].Day)
		}
		if entries[0].FirstName != "Ana" {
			t.Errorf("expected Ana, got %s", entries[0].FirstName)
		}
	})
}

func TestMigrations(t *testing.T) {
	backend, cleanup := setupTestContainer(t)
	if backend == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()

	applied, err := backend.MigrationsApplied(ctx)
	if err != nil {
		t.Fatalf("MigrationsApplied failed: %v", err)
	}
	if len(applied) != 2 {
		t.Errorf("expected 2 migrations, got %v", applied)
	}

	// Re-running is a no-op
	if err := backend.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
	again, _ := backend.MigrationsApplied(ctx)
	if len(again) != len(applied) {
		t.Errorf("expected %d migrations after rerun, got %d", len(applied), len(again))
	}
}
