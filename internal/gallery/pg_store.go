package gallery

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/saturnino-fabrica-de-software/liveface/internal/domain"
)

// PgxPool is the subset of pgxpool.Pool the store needs; pgxmock
// satisfies it in tests.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// PGStore persists the gallery in postgres. The float64 feature array is
// the authoritative column so the sequence round-trips exactly; the
// pgvector embedding column mirrors it for operator-side similarity
// queries. Save replaces the whole sequence inside one transaction, which
// is the atomic-replace contract the file backend meets with a rename.
type PGStore struct {
	pool PgxPool
}

func NewPGStore(pool PgxPool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Load(ctx context.Context) ([]domain.StoredFace, error) {
	query := `
		SELECT id, created_at, features, thumb_width, thumb_height, thumbnail
		FROM gallery_faces
		ORDER BY position ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, domain.ErrGalleryUnavailable.WithError(err)
	}
	defer rows.Close()

	var faces []domain.StoredFace
	for rows.Next() {
		var face domain.StoredFace

		err := rows.Scan(
			&face.ID, &face.Timestamp, &face.Features,
			&face.Thumbnail.Width, &face.Thumbnail.Height, &face.Thumbnail.Pix,
		)
		if err != nil {
			return nil, domain.ErrCorruptGallery.WithError(err)
		}

		faces = append(faces, face)
	}

	if err := rows.Err(); err != nil {
		return nil, domain.ErrGalleryUnavailable.WithError(err)
	}

	return faces, nil
}

func (s *PGStore) Save(ctx context.Context, faces []domain.StoredFace) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin gallery save: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM gallery_faces`); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("clear gallery: %w", err)
	}

	rows := make([][]any, 0, len(faces))
	for i, face := range faces {
		rows = append(rows, []any{
			face.ID, i, face.Timestamp, face.Features, toVector(face.Features),
			face.Thumbnail.Width, face.Thumbnail.Height, face.Thumbnail.Pix,
		})
	}

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"gallery_faces"},
		[]string{"id", "position", "created_at", "features", "embedding", "thumb_width", "thumb_height", "thumbnail"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("copy gallery rows: %w", err)
	}
	if copied != int64(len(faces)) {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("copy gallery rows: wrote %d of %d", copied, len(faces))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit gallery save: %w", err)
	}

	return nil
}

func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}

// toVector mirrors the feature array into the pgvector column.
func toVector(features []float64) *pgvector.Vector {
	if len(features) == 0 {
		return nil
	}
	floats := make([]float32, len(features))
	for i, v := range features {
		floats[i] = float32(v)
	}
	vec := pgvector.NewVector(floats)
	return &vec
}

var _ Store = (*PGStore)(nil)
