package gallery

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/saturnino-fabrica-de-software/liveface/internal/domain"
)

// FileStore keeps the whole gallery in a single gob file. Save writes to
// a temp file in the same directory and renames it over the target, so a
// reader never sees a half-written gallery.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(ctx context.Context) ([]domain.StoredFace, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		// first run
		return nil, nil
	}
	if err != nil {
		return nil, domain.ErrGalleryUnavailable.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	var faces []domain.StoredFace
	if err := gob.NewDecoder(f).Decode(&faces); err != nil {
		return nil, domain.ErrCorruptGallery.WithError(err)
	}

	return faces, nil
}

func (s *FileStore) Save(ctx context.Context, faces []domain.StoredFace) error {
	dir := filepath.Dir(s.path)

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp gallery file: %w", err)
	}

	if err := gob.NewEncoder(tmp).Encode(faces); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("encode gallery: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("sync gallery file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp gallery file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace gallery file: %w", err)
	}

	return nil
}

func (s *FileStore) Close() error {
	return nil
}

var _ Store = (*FileStore)(nil)
