package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/kozaktomas/attendance-kiosk/internal/database"
	"github.com/kozaktomas/attendance-kiosk/internal/embedding"
)

// GalleryRepository provides MariaDB-backed identity storage.
type GalleryRepository struct {
	db *sql.DB
}

// ListIdentities returns all identities in enrolment order.
func (r *GalleryRepository) ListIdentities(ctx context.Context) ([]database.EnrolledIdentity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, first_name, last_name, course, section, face_embedding, created_at
		FROM students
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}
	defer rows.Close()

	var identities []database.EnrolledIdentity
	for rows.Next() {
		var id database.EnrolledIdentity
		if err := rows.Scan(&id.ID, &id.FirstName, &id.LastName, &id.Course, &id.Section,
			&id.EmbeddingBlob, &id.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		identities = append(identities, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return identities, nil
}

// IdentityPhoto returns the stored reference photo, or nil.
func (r *GalleryRepository) IdentityPhoto(ctx context.Context, id string) ([]byte, error) {
	var photo []byte
	err := r.db.QueryRowContext(ctx, "SELECT face_photo FROM students WHERE id = ?", id).Scan(&photo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get identity photo: %w", err)
	}
	return photo, nil
}

// CountIdentities returns the number of enrolled identities.
func (r *GalleryRepository) CountIdentities(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM students").Scan(&count); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return count, nil
}

// InsertIdentity stores a new identity.
func (r *GalleryRepository) InsertIdentity(ctx context.Context, identity *database.EnrolledIdentity) error {
	var photo any
	if len(identity.Photo) > 0 {
		photo = identity.Photo
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO students (id, first_name, last_name, course, section, face_embedding, face_photo, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, identity.ID, identity.FirstName, identity.LastName, identity.Course, identity.Section,
		identity.EmbeddingBlob, photo, identity.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

// FindSimilarIdentities scans the gallery in Go; MariaDB has no vector
// operator. Rows that fail to decode are skipped.
func (r *GalleryRepository) FindSimilarIdentities(
	ctx context.Context, probe []float32, limit int, maxDistance float64,
) ([]database.SimilarIdentity, error) {
	if limit <= 0 || limit > database.MaxSimilarLimit {
		limit = database.MaxSimilarLimit
	}

	identities, err := r.ListIdentities(ctx)
	if err != nil {
		return nil, err
	}

	var results []database.SimilarIdentity
	for _, id := range identities {
		vec, err := embedding.DecodeBlob(id.EmbeddingBlob, len(probe))
		if err != nil {
			log.Printf("Skipping identity %s: %v", id.ID, err)
			continue
		}
		if d := embedding.CosineDistance(probe, vec); d < maxDistance {
			results = append(results, database.SimilarIdentity{Identity: id, Distance: d})
		}
	}

	// Stable keeps gallery order among equal distances
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
