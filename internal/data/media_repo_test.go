package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unevent/unevent-api/internal/domain/model"
	apperrors "github.com/unevent/unevent-api/internal/errors"
	"github.com/unevent/unevent-api/internal/testutil"
)

func TestMediaRepo_CreateAndRetain(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewMediaRepo(db, nil)

		m, err := repo.Create(ctx, &model.RegisterMediaRequest{
			Filename: "sala.jpg", URL: "https://cdn/sala.jpg", MimeType: "image/jpeg", SizeBytes: 2048,
		})
		require.NoError(t, err)
		assert.True(t, m.Temporary)
		assert.Equal(t, int64(2048), m.SizeBytes)

		retained, err := repo.Update(ctx, m.ID, model.RetainMediaUpdate())
		require.NoError(t, err)
		assert.False(t, retained.Temporary)
		assert.Equal(t, model.MediaContextListing, retained.Context)

		unchanged, err := repo.Update(ctx, m.ID, model.MediaUpdate{})
		require.NoError(t, err)
		assert.False(t, unchanged.Temporary)

		_, err = repo.Update(ctx, "00000000-0000-0000-0000-000000000000", model.RetainMediaUpdate())
		assert.True(t, apperrors.IsNotFound(err))

		_, err = repo.Create(ctx, &model.RegisterMediaRequest{Filename: "x.jpg"})
		require.Error(t, err)
	})
}

func TestMediaRepo_DeleteTemporaryOlderThan(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		tp := NewFixedTimeProvider(testutil.TestTime())
		repo := NewMediaRepo(db, tp)

		stale, err := repo.Create(ctx, &model.RegisterMediaRequest{Filename: "a.jpg", URL: "https://cdn/a.jpg"})
		require.NoError(t, err)
		kept, err := repo.Create(ctx, &model.RegisterMediaRequest{Filename: "b.jpg", URL: "https://cdn/b.jpg"})
		require.NoError(t, err)
		_, err = repo.Update(ctx, kept.ID, model.RetainMediaUpdate())
		require.NoError(t, err)

		tp.AddTime(48 * time.Hour)
		fresh, err := repo.Create(ctx, &model.RegisterMediaRequest{Filename: "c.jpg", URL: "https://cdn/c.jpg"})
		require.NoError(t, err)

		n, err := repo.DeleteTemporaryOlderThan(ctx, tp.Now().Add(-24*time.Hour), 10)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = repo.GetByID(ctx, stale.ID)
		require.ErrorIs(t, err, ErrMediaNotFound)
		_, err = repo.GetByID(ctx, kept.ID)
		require.NoError(t, err)
		_, err = repo.GetByID(ctx, fresh.ID)
		require.NoError(t, err)
	})
}
