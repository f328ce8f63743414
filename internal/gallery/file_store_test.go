package gallery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/liveface/internal/domain"
)

func storedFace(seed byte) domain.StoredFace {
	thumb := domain.NewFrame(4, 4)
	for i := range thumb.Pix {
		thumb.Pix[i] = seed
	}
	return domain.StoredFace{
		ID:        uuid.New(),
		Timestamp: time.Now().Truncate(time.Microsecond),
		Features:  []float64{float64(seed), 0.25, -1},
		Thumbnail: thumb,
	}
}

func TestFileStore_LoadAbsent(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "missing.db"))

	faces, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, faces)
}

func TestFileStore_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faces.db")
	require.NoError(t, os.WriteFile(path, []byte("definitely not gob"), 0o644))

	_, err := NewFileStore(path).Load(context.Background())
	require.Error(t, err)

	var appErr *domain.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, domain.ErrCorruptGallery.Code, appErr.Code)
}

func TestFileStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "faces.db"))

	want := []domain.StoredFace{storedFace(1), storedFace(2), storedFace(3)}
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, len(want))

	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.True(t, want[i].Timestamp.Equal(got[i].Timestamp))
		assert.Equal(t, want[i].Features, got[i].Features)
		assert.Equal(t, want[i].Thumbnail, got[i].Thumbnail)
	}
}

func TestFileStore_SaveReplacesAtomically(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "faces.db"))

	require.NoError(t, store.Save(ctx, []domain.StoredFace{storedFace(1), storedFace(2)}))

	second := []domain.StoredFace{storedFace(9)}
	require.NoError(t, store.Save(ctx, second))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, second[0].ID, got[0].ID)

	// no temp files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "faces.db", entries[0].Name())
}

func TestFileStore_SaveEmpty(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "faces.db"))

	require.NoError(t, store.Save(ctx, nil))

	faces, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, faces)
}
