package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/attendance-kiosk/internal/database"
	"github.com/kozaktomas/attendance-kiosk/internal/embedding"
	"github.com/pgvector/pgvector-go"
)

// GalleryRepository provides PostgreSQL-backed identity storage.
type GalleryRepository struct {
	pool *Pool
}

// NewGalleryRepository creates a new PostgreSQL gallery repository.
func NewGalleryRepository(pool *Pool) *GalleryRepository {
	return &GalleryRepository{pool: pool}
}

// ListIdentities returns all identities in enrolment order.
func (r *GalleryRepository) ListIdentities(ctx context.Context) ([]database.EnrolledIdentity, error) {
	query := `
		SELECT id, first_name, last_name, course, section, face_embedding, created_at
		FROM students
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, query)
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
	err := r.pool.QueryRow(ctx, "SELECT face_photo FROM students WHERE id = $1", id).Scan(&photo)
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
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM students").Scan(&count); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return count, nil
}

// InsertIdentity stores a new identity. The pgvector column is filled when
// the blob decodes, so duplicates search can use the <=> operator.
func (r *GalleryRepository) InsertIdentity(ctx context.Context, identity *database.EnrolledIdentity) error {
	var vec any
	if v, err := embedding.DecodeBlob(identity.EmbeddingBlob, 0); err == nil {
		vec = pgvector.NewVector(v)
	}

	var photo any
	if len(identity.Photo) > 0 {
		photo = identity.Photo
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO students (id, first_name, last_name, course, section,
		                      face_embedding, face_embedding_vec, face_photo, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, identity.ID, identity.FirstName, identity.LastName, identity.Course, identity.Section,
		identity.EmbeddingBlob, vec, photo, identity.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

// FindSimilarIdentities finds identities by cosine distance using pgvector.
func (r *GalleryRepository) FindSimilarIdentities(
	ctx context.Context, probe []float32, limit int, maxDistance float64,
) ([]database.SimilarIdentity, error) {
	if limit <= 0 || limit > database.MaxSimilarLimit {
		limit = database.MaxSimilarLimit
	}

	query := `
		SELECT id, first_name, last_name, course, section, face_embedding, created_at,
		       face_embedding_vec <=> $1::vector AS distance
		FROM students
		WHERE face_embedding_vec IS NOT NULL
		  AND vector_dims(face_embedding_vec) = $2
		  AND face_embedding_vec <=> $1::vector < $3
		ORDER BY distance, created_at
		LIMIT $4
	`

	rows, err := r.pool.Query(ctx, query, pgvector.NewVector(probe), len(probe), maxDistance, limit)
	if err != nil {
		return nil, fmt.Errorf("query similar identities: %w", err)
	}
	defer rows.Close()

	var results []database.SimilarIdentity
	for rows.Next() {
		var s database.SimilarIdentity
		id := &s.Identity
		if err := rows.Scan(&id.ID, &id.FirstName, &id.LastName, &id.Course, &id.Section,
			&id.EmbeddingBlob, &id.CreatedAt, &s.Distance); err != nil {
			return nil, fmt.Errorf("scan similar identity: %w", err)
		}
		results = append(results, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate similar identities: %w", err)
	}
	return results, nil
}
