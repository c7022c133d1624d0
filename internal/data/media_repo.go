package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/unevent/unevent-api/internal/domain/model"
)

const mediaColumns = `id, filename, url, mime_type, size_bytes, temporary, context, created_at, updated_at`

// MediaRepo stores uploaded media metadata.
type MediaRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewMediaRepo creates a MediaRepo. A nil tp uses the system clock.
func NewMediaRepo(db *sql.DB, tp TimeProvider) *MediaRepo {
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &MediaRepo{DB: db, timeProvider: tp}
}

// Create registers an upload. New media is always temporary.
func (r *MediaRepo) Create(ctx context.Context, req *model.RegisterMediaRequest) (*model.Media, error) {
	if req == nil {
		return nil, errors.New("register media request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := r.timeProvider.Now().UTC()
	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO media (filename, url, mime_type, size_bytes, temporary, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, $5)
		RETURNING `+mediaColumns, req.Filename, req.URL, req.MimeType, req.SizeBytes, now)
	m, err := scanMedia(row)
	if err != nil {
		return nil, fmt.Errorf("create media: %w", mapWriteError(err))
	}
	return m, nil
}

// GetByID returns the media row with id.
func (r *MediaRepo) GetByID(ctx context.Context, id string) (*model.Media, error) {
	m, err := scanMedia(r.DB.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
			return nil, notFound(ErrMediaNotFound)
		}
		return nil, fmt.Errorf("get media: %w", err)
	}
	return m, nil
}

// Update applies the non-nil fields of upd.
func (r *MediaRepo) Update(ctx context.Context, id string, upd model.MediaUpdate) (*model.Media, error) {
	var temporary, mediaContext any
	if upd.Temporary != nil {
		temporary = *upd.Temporary
	}
	if upd.Context != nil {
		mediaContext = *upd.Context
	}
	row := r.DB.QueryRowContext(ctx, `
		UPDATE media SET
			temporary = COALESCE($2::boolean, temporary),
			context = COALESCE($3::text, context),
			updated_at = $4
		WHERE id = $1
		RETURNING `+mediaColumns, id, temporary, mediaContext, r.timeProvider.Now().UTC())
	m, err := scanMedia(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
			return nil, notFound(ErrMediaNotFound)
		}
		return nil, fmt.Errorf("update media: %w", err)
	}
	return m, nil
}

// DeleteTemporaryOlderThan removes up to batchSize temporary media untouched since cutoff.
func (r *MediaRepo) DeleteTemporaryOlderThan(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	if batchSize <= 0 {
		return 0, errBatchSize
	}
	n, err := execLocked(ctx, r.DB, lockMedia, `
		DELETE FROM media
		WHERE id IN (
			SELECT id FROM media
			WHERE temporary AND updated_at < $1
			ORDER BY updated_at
			LIMIT $2
		)
	`, cutoff.UTC(), batchSize)
	if err != nil {
		return 0, fmt.Errorf("delete temporary media: %w", err)
	}
	return n, nil
}

func scanMedia(scanner rowScanner) (*model.Media, error) {
	var m model.Media
	if err := scanner.Scan(
		&m.ID,
		&m.Filename,
		&m.URL,
		&m.MimeType,
		&m.SizeBytes,
		&m.Temporary,
		&m.Context,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}
