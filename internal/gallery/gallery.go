package gallery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/liveface/internal/domain"
)

// DefaultMaxFaces is the at-rest gallery cap when none is configured.
const DefaultMaxFaces = 1000

// Database is the bounded, persisted collection of enrolled faces. It is
// exclusively owned by the recognition worker; no locking, all access goes
// through the worker's task channel.
//
// The in-memory sequence is insertion-ordered and may exceed the cap
// between persists; Persist trims to the newest maxFaces before writing.
type Database struct {
	store    Store
	logger   *slog.Logger
	maxFaces int

	faces []domain.StoredFace

	// batchStarts records where each registration batch began, newest
	// last. Boundaries live in memory only; they do not survive restarts.
	batchStarts []int
}

// Open loads the gallery from its backing store. Absent storage yields an
// empty gallery; storage that exists but cannot be decoded is fatal.
func Open(ctx context.Context, store Store, maxFaces int, logger *slog.Logger) (*Database, error) {
	if maxFaces <= 0 {
		maxFaces = DefaultMaxFaces
	}

	faces, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("open gallery: %w", err)
	}

	logger.Info("gallery loaded", "faces", len(faces), "max_faces", maxFaces)

	return &Database{
		store:    store,
		logger:   logger,
		maxFaces: maxFaces,
		faces:    faces,
	}, nil
}

// Size returns the current in-memory entry count.
func (d *Database) Size() int {
	return len(d.faces)
}

// Faces returns the insertion-ordered candidate set for matching. The
// returned slice is the gallery's own storage; callers must not mutate it.
func (d *Database) Faces() []domain.StoredFace {
	return d.faces
}

// AddAll appends one registration batch: every face gets a fresh ID and
// the same capture of the current time, keyed on the aligned crop when the
// face has one and the detection thumbnail otherwise.
func (d *Database) AddAll(faces []domain.Face) []domain.StoredFace {
	if len(faces) == 0 {
		return nil
	}

	// microsecond precision so every store backend round-trips exactly
	now := time.Now().Truncate(time.Microsecond)
	stored := make([]domain.StoredFace, 0, len(faces))
	for _, face := range faces {
		thumbnail := face.Crop
		if !thumbnail.Valid() {
			thumbnail = face.Thumbnail
		}

		stored = append(stored, domain.StoredFace{
			ID:        uuid.New(),
			Timestamp: now,
			Features:  face.Features,
			Thumbnail: thumbnail,
		})
	}

	d.batchStarts = append(d.batchStarts, len(d.faces))
	d.faces = append(d.faces, stored...)

	d.logger.Debug("faces registered", "batch", len(stored), "total", len(d.faces))
	return stored
}

// RemoveMostRecent pops the most recent registration batch not yet
// removed. With no recorded batch (fresh start, or everything already
// unregistered) it removes nothing.
func (d *Database) RemoveMostRecent() []domain.StoredFace {
	if len(d.batchStarts) == 0 {
		return nil
	}

	start := d.batchStarts[len(d.batchStarts)-1]
	d.batchStarts = d.batchStarts[:len(d.batchStarts)-1]

	// copy the tail: truncating leaves the backing array in place, and a
	// later AddAll would overwrite the returned entries through it
	removed := make([]domain.StoredFace, len(d.faces)-start)
	copy(removed, d.faces[start:])
	d.faces = d.faces[:start]

	d.logger.Debug("faces unregistered", "batch", len(removed), "total", len(d.faces))
	return removed
}

// Persist trims the sequence to the newest maxFaces entries and atomically
// replaces the backing storage with it.
func (d *Database) Persist(ctx context.Context) error {
	if excess := len(d.faces) - d.maxFaces; excess > 0 {
		d.faces = d.faces[excess:]
		d.rebaseBatches(excess)
		d.logger.Info("gallery trimmed", "discarded", excess, "kept", len(d.faces))
	}

	if err := d.store.Save(ctx, d.faces); err != nil {
		return fmt.Errorf("persist gallery: %w", err)
	}

	d.logger.Debug("gallery persisted", "faces", len(d.faces))
	return nil
}

// rebaseBatches shifts batch boundaries after n entries were discarded
// from the front. Fully discarded batches are dropped; a batch the trim
// ate into is clamped to the new head.
func (d *Database) rebaseBatches(n int) {
	var rebased []int
	for i, start := range d.batchStarts {
		end := len(d.faces) + n // old tail
		if i+1 < len(d.batchStarts) {
			end = d.batchStarts[i+1]
		}
		if end <= n {
			continue
		}
		if start -= n; start < 0 {
			start = 0
		}
		rebased = append(rebased, start)
	}
	d.batchStarts = rebased
}
