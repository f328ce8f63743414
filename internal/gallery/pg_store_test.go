package gallery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/liveface/internal/domain"
)

var copyColumns = []string{"id", "position", "created_at", "features", "embedding", "thumb_width", "thumb_height", "thumbnail"}

func TestPGStore_Load(t *testing.T) {
	id1, id2 := uuid.New(), uuid.New()
	now := time.Now().Truncate(time.Microsecond)

	tests := []struct {
		name      string
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantLen   int
		wantErr   string
		check     func(t *testing.T, faces []domain.StoredFace)
	}{
		{
			name: "loads ordered sequence",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows([]string{
					"id", "created_at", "features", "thumb_width", "thumb_height", "thumbnail",
				}).
					AddRow(id1, now, []float64{0.1, 0.2}, 2, 2, make([]byte, 12)).
					AddRow(id2, now.Add(time.Second), []float64{0.3, 0.4}, 0, 0, []byte(nil))

				mock.ExpectQuery(`SELECT id, created_at, features, thumb_width, thumb_height, thumbnail FROM gallery_faces ORDER BY position ASC`).
					WillReturnRows(rows)
			},
			wantLen: 2,
			check: func(t *testing.T, faces []domain.StoredFace) {
				assert.Equal(t, id1, faces[0].ID)
				assert.True(t, now.Equal(faces[0].Timestamp))
				assert.Equal(t, []float64{0.1, 0.2}, faces[0].Features)
				assert.Equal(t, 2, faces[0].Thumbnail.Width)
				assert.Equal(t, id2, faces[1].ID)
			},
		},
		{
			name: "empty table",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT id, created_at, features, thumb_width, thumb_height, thumbnail FROM gallery_faces ORDER BY position ASC`).
					WillReturnRows(pgxmock.NewRows([]string{
						"id", "created_at", "features", "thumb_width", "thumb_height", "thumbnail",
					}))
			},
			wantLen: 0,
		},
		{
			name: "connection failure",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT id, created_at, features, thumb_width, thumb_height, thumbnail FROM gallery_faces ORDER BY position ASC`).
					WillReturnError(errors.New("connection refused"))
			},
			wantErr: domain.ErrGalleryUnavailable.Code,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			store := NewPGStore(mock)
			faces, err := store.Load(context.Background())

			if tt.wantErr != "" {
				require.Error(t, err)
				var appErr *domain.AppError
				require.True(t, errors.As(err, &appErr))
				assert.Equal(t, tt.wantErr, appErr.Code)
				return
			}

			require.NoError(t, err)
			assert.Len(t, faces, tt.wantLen)
			if tt.check != nil {
				tt.check(t, faces)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPGStore_Save(t *testing.T) {
	faces := []domain.StoredFace{storedFace(1), storedFace(2)}

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM gallery_faces`).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectCopyFrom(pgx.Identifier{"gallery_faces"}, copyColumns).
		WillReturnResult(2)
	mock.ExpectCommit()

	store := NewPGStore(mock)
	require.NoError(t, store.Save(context.Background(), faces))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStore_SaveRollsBackOnCopyFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM gallery_faces`).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"gallery_faces"}, copyColumns).
		WillReturnError(errors.New("column mismatch"))
	mock.ExpectRollback()

	store := NewPGStore(mock)
	err = store.Save(context.Background(), []domain.StoredFace{storedFace(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy gallery rows")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStore_SaveEmptySequence(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM gallery_faces`).
		WillReturnResult(pgxmock.NewResult("DELETE", 5))
	mock.ExpectCopyFrom(pgx.Identifier{"gallery_faces"}, copyColumns).
		WillReturnResult(0)
	mock.ExpectCommit()

	store := NewPGStore(mock)
	require.NoError(t, store.Save(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}
