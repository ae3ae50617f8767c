package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"picturegram-sync/internal/errs"
	"picturegram-sync/internal/models"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

var photoRowColumns = []string{"id", "author_id", "author_name", "resource_id", "file_path", "url", "description", "like_count", "liked_by", "created_at"}

func TestPhotoRepository_Create(t *testing.T) {
	mock := newMock(t)
	r := NewPhotoRepository(mock)
	now := time.Now()
	p := &models.Photo{
		ID: "p1", AuthorID: "u1", AuthorName: "alice",
		Media:       models.MediaRef{URL: "https://cdn/p1.jpg"},
		Description: "hi", CreatedAt: now,
	}

	mock.ExpectExec(`INSERT INTO photos`).
		WithArgs("p1", "u1", "alice", "", "", "https://cdn/p1.jpg", "hi", 0, []string{}, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Create(context.Background(), p))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPhotoRepository_GetByID(t *testing.T) {
	mock := newMock(t)
	r := NewPhotoRepository(mock)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM photos WHERE id = $1`)).
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows(photoRowColumns).
			AddRow("p1", "u1", "alice", "", "", "https://cdn/p1.jpg", "hi", 2, []string{"bob", "carol", "bob"}, now))
	p, err := r.GetByID(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "alice", p.AuthorName)
	require.Equal(t, []string{"bob", "carol"}, p.LikedBy)
	require.Equal(t, 2, p.LikeCount)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM photos WHERE id = $1`)).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByID(ctx, "missing")
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPhotoRepository_ListByAuthor(t *testing.T) {
	mock := newMock(t)
	r := NewPhotoRepository(mock)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE author_id = $1 ORDER BY created_at DESC`)).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows(photoRowColumns).
			AddRow("p2", "u1", "alice", "", "", "https://cdn/p2.jpg", "", 0, []string{}, now).
			AddRow("p1", "u1", "alice", "", "", "https://cdn/p1.jpg", "", 1, []string{"bob"}, now.Add(-time.Hour)))
	photos, err := r.ListByAuthor(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, photos, 2)
	require.Equal(t, "p2", photos[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPhotoRepository_LikePrimitives(t *testing.T) {
	mock := newMock(t)
	r := NewPhotoRepository(mock)
	ctx := context.Background()

	mock.ExpectExec(`SET liked_by = CASE WHEN`).
		WithArgs("p1", "bob").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.AddLiker(ctx, "p1", "bob"))

	mock.ExpectExec(regexp.QuoteMeta(`array_remove(liked_by, $2)`)).
		WithArgs("p1", "bob").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.RemoveLiker(ctx, "p1", "bob"))

	mock.ExpectExec(regexp.QuoteMeta(`GREATEST(like_count + $2, 0)`)).
		WithArgs("p1", -1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.IncrementLikeCount(ctx, "p1", -1))

	mock.ExpectExec(`SET liked_by = CASE WHEN`).
		WithArgs("gone", "bob").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.ErrorIs(t, r.AddLiker(ctx, "gone", "bob"), errs.ErrNotFound)

	boom := errors.New("conn reset")
	mock.ExpectExec(regexp.QuoteMeta(`GREATEST(like_count + $2, 0)`)).
		WithArgs("p1", 1).
		WillReturnError(boom)
	require.ErrorIs(t, r.IncrementLikeCount(ctx, "p1", 1), boom)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPhotoRepository_UpdateAndDelete(t *testing.T) {
	mock := newMock(t)
	r := NewPhotoRepository(mock)
	ctx := context.Background()

	mock.ExpectExec(`UPDATE photos SET description`).
		WithArgs("p1", "new").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.UpdateDescription(ctx, "p1", "new"))

	mock.ExpectExec(`DELETE FROM photos`).
		WithArgs("p1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.ErrorIs(t, r.Delete(ctx, "p1"), errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
