package gallery

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saturnino-fabrica-de-software/liveface/internal/config"
	"github.com/saturnino-fabrica-de-software/liveface/internal/domain"
)

// Store persists the full gallery sequence across worker restarts.
//
// Load returns the sequence in insertion order; absent backing storage is
// an empty sequence, existing-but-undecodable storage is
// domain.ErrCorruptGallery. Save atomically replaces the stored sequence:
// a concurrent reader never observes a partial write.
type Store interface {
	Load(ctx context.Context) ([]domain.StoredFace, error)
	Save(ctx context.Context, faces []domain.StoredFace) error
	Close() error
}

// BackendType defines supported gallery storage backends
type BackendType string

const (
	// BackendFile is the single-file gob backend (default)
	BackendFile BackendType = "file"
	// BackendPostgres is the postgres/pgvector backend
	BackendPostgres BackendType = "postgres"
)

// NewStore creates a gallery store based on configuration.
//
// Environment variables:
//   - GALLERY_BACKEND: "file" or "postgres" (default: "file")
//   - GALLERY_PATH: file backend path (default: "faces.db")
//   - DATABASE_URL: postgres backend connection string
func NewStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch BackendType(cfg.GalleryBackend) {
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("postgres gallery backend requires DATABASE_URL")
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect gallery database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, domain.ErrGalleryUnavailable.WithError(err)
		}
		return NewPGStore(pool), nil

	case BackendFile, "":
		return NewFileStore(cfg.GalleryPath), nil

	default:
		return nil, fmt.Errorf("unknown gallery backend: %s (supported: %s, %s)",
			cfg.GalleryBackend, BackendFile, BackendPostgres)
	}
}
