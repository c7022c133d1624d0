package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/unevent/unevent-api/internal/core"
	"github.com/unevent/unevent-api/internal/data/database"
	"github.com/unevent/unevent-api/internal/data/pgxutil"
	"github.com/unevent/unevent-api/internal/domain/model"
	apperrors "github.com/unevent/unevent-api/internal/errors"
)

var listingColumnList = []string{
	"id",
	"collection",
	"title",
	"slug",
	"owner_id",
	"moderation_status",
	"rejection_reason",
	"claim_status",
	"contact_email",
	"contact_phone",
	"featured_image_id",
	"gallery",
	"description",
	"published",
	"deleted_at",
	"created_at",
	"updated_at",
}

var listingColumns = strings.Join(listingColumnList, ", ")

// ListingRepo persists locations, services and events in one table keyed by collection.
type ListingRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// ListingRepoOptions configures a ListingRepo.
type ListingRepoOptions struct {
	TimeProvider TimeProvider
	Logger       *slog.Logger
}

// NewListingRepo creates a ListingRepo.
func NewListingRepo(db *sql.DB, opts ListingRepoOptions) *ListingRepo {
	tp := opts.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ListingRepo{DB: db, timeProvider: tp, logger: logger.With("component", "listing_repo")}
}

// Create inserts l and returns the stored row.
func (r *ListingRepo) Create(ctx context.Context, l *model.Listing) (*model.Listing, error) {
	if l == nil {
		return nil, errors.New("listing is required")
	}
	args, err := listingWriteArgs(l)
	if err != nil {
		return nil, err
	}
	now := r.timeProvider.Now().UTC()
	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO listings (
			collection, title, slug, owner_id, moderation_status, rejection_reason, claim_status,
			contact_email, contact_phone, featured_image_id, gallery, description, published,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::jsonb, $12::jsonb, $13, $14, $14)
		RETURNING `+listingColumns,
		append(args, now)...)
	out, err := scanListing(row)
	if err != nil {
		return nil, fmt.Errorf("create listing: %w", mapWriteError(err))
	}
	return out, nil
}

// GetByID returns the listing with id, soft-deleted or not.
func (r *ListingRepo) GetByID(ctx context.Context, id string) (*model.Listing, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)
	l, err := scanListing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
			return nil, notFound(ErrListingNotFound)
		}
		return nil, fmt.Errorf("get listing: %w", err)
	}
	return l, nil
}

// List returns listings matching filter, newest first.
func (r *ListingRepo) List(ctx context.Context, filter model.ListingFilter) ([]*model.Listing, error) {
	opts := []database.ListQueryOption{
		database.WithColumns(listingColumnList...),
		database.WithOrderBy("created_at", "DESC"),
		database.WithOffset(filter.Offset),
	}
	if filter.Limit > 0 {
		opts = append(opts, database.WithLimit(filter.Limit))
	}
	if filter.Collection != "" {
		opts = append(opts, database.WithCondition(database.WhereCond("collection", database.Equal, filter.Collection)))
	}
	if filter.Status != "" {
		opts = append(opts, database.WithCondition(database.WhereCond("moderation_status", database.Equal, filter.Status)))
	}
	if filter.OwnerID != "" {
		opts = append(opts, database.WithCondition(database.WhereRawCond("owner_id::text = $1", filter.OwnerID)))
	}
	if !filter.IncludeDeleted {
		opts = append(opts, database.WithCondition(database.WhereRawCond("deleted_at IS NULL")))
	}

	query, args := database.BuildListQuery(database.NewListQueryOptions("listings", opts...))
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	defer rows.Close()

	var out []*model.Listing
	for rows.Next() {
		l, scanErr := scanListing(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan listing: %w", scanErr)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	return out, nil
}

// Update overwrites the mutable columns of l.ID and returns the stored row.
func (r *ListingRepo) Update(ctx context.Context, l *model.Listing) (*model.Listing, error) {
	if l == nil || l.ID == "" {
		return nil, errors.New("listing id is required")
	}
	args, err := listingWriteArgs(l)
	if err != nil {
		return nil, err
	}
	args = append(args, r.timeProvider.Now().UTC(), l.ID)
	row := r.DB.QueryRowContext(ctx, `
		UPDATE listings SET
			collection = $1,
			title = $2,
			slug = $3,
			owner_id = $4,
			moderation_status = $5,
			rejection_reason = $6,
			claim_status = $7,
			contact_email = $8,
			contact_phone = $9,
			featured_image_id = $10,
			gallery = $11::jsonb,
			description = $12::jsonb,
			published = $13,
			updated_at = $14
		WHERE id = $15
		RETURNING `+listingColumns, args...)
	out, err := scanListing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(ErrListingNotFound)
		}
		return nil, fmt.Errorf("update listing: %w", mapWriteError(err))
	}
	return out, nil
}

// SetDeletedAt sets or clears the soft-delete timestamp.
func (r *ListingRepo) SetDeletedAt(ctx context.Context, id string, at *time.Time) (*model.Listing, error) {
	var deletedAt any
	if at != nil {
		deletedAt = at.UTC()
	}
	row := r.DB.QueryRowContext(ctx, `
		UPDATE listings SET deleted_at = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+listingColumns, id, deletedAt, r.timeProvider.Now().UTC())
	l, err := scanListing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
			return nil, notFound(ErrListingNotFound)
		}
		return nil, fmt.Errorf("set listing deleted_at: %w", err)
	}
	return l, nil
}

// Delete removes the row permanently. It reports false when no row matched.
func (r *ListingRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM listings WHERE id = $1`, id)
	if err != nil {
		if isInvalidID(err) {
			return false, nil
		}
		return false, fmt.Errorf("delete listing: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete listing rows affected: %w", err)
	}
	return n > 0, nil
}

type purgedListing struct {
	featuredImageID *string
	gallery         []byte
}

// PurgeSoftDeleted hard-deletes up to BatchSize listings soft-deleted before DeletedBefore.
// Media they referenced that no other listing uses is marked temporary again so the
// temporary-media sweep collects it.
func (r *ListingRepo) PurgeSoftDeleted(ctx context.Context, params core.PurgeSoftDeletedParams) (int64, error) {
	if params.BatchSize <= 0 {
		return 0, errBatchSize
	}
	if params.DeletedBefore.IsZero() {
		return 0, errors.New("deleted-before cutoff is required")
	}

	var purged int64
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			var locked bool
			if err := tx.QueryRow(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)", lockListings.major, lockListings.minor).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				return nil
			}

			rows, err := tx.Query(ctx, `
				DELETE FROM listings
				WHERE id IN (
					SELECT id FROM listings
					WHERE deleted_at IS NOT NULL AND deleted_at < $1
					ORDER BY deleted_at
					LIMIT $2
					FOR UPDATE SKIP LOCKED
				)
				RETURNING featured_image_id::text, gallery
			`, params.DeletedBefore.UTC(), params.BatchSize)
			if err != nil {
				return fmt.Errorf("purge listings: %w", err)
			}
			deleted, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (purgedListing, error) {
				var p purgedListing
				scanErr := row.Scan(&p.featuredImageID, &p.gallery)
				return p, scanErr
			})
			if err != nil {
				return fmt.Errorf("collect purged listings: %w", err)
			}
			purged = int64(len(deleted))

			mediaIDs := purgedMediaIDs(deleted)
			if len(mediaIDs) == 0 {
				return nil
			}
			if _, err := tx.Exec(ctx, `
				UPDATE media m
				SET temporary = TRUE, context = '', updated_at = $2
				WHERE m.id::text = ANY($1::text[])
				  AND NOT EXISTS (
					SELECT 1 FROM listings l
					WHERE l.featured_image_id = m.id OR l.gallery ? m.id::text
				  )
			`, mediaIDs, r.timeProvider.Now().UTC()); err != nil {
				return fmt.Errorf("release purged media: %w", err)
			}
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		r.logger.InfoContext(ctx, "purged soft-deleted listings", "count", purged, "deleted_before", params.DeletedBefore)
	}
	return purged, nil
}

func purgedMediaIDs(rows []purgedListing) []string {
	var ids []string
	seen := make(map[string]struct{})
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, p := range rows {
		if p.featuredImageID != nil {
			add(*p.featuredImageID)
		}
		var gallery []string
		if err := json.Unmarshal(p.gallery, &gallery); err == nil {
			for _, id := range gallery {
				add(id)
			}
		}
	}
	return ids
}

func listingWriteArgs(l *model.Listing) ([]any, error) {
	gallery := make([]string, 0, len(l.Gallery))
	for _, ref := range l.Gallery {
		if !ref.IsZero() {
			gallery = append(gallery, ref.ID)
		}
	}
	galleryJSON, err := json.Marshal(gallery)
	if err != nil {
		return nil, fmt.Errorf("marshal gallery: %w", err)
	}
	var description any
	if len(l.Description) > 0 {
		if !json.Valid(l.Description) {
			return nil, apperrors.ValidationField("description", "description must be valid JSON")
		}
		description = string(l.Description)
	}

	return []any{
		l.Collection,
		l.Title,
		l.Slug,
		nullIfEmpty(model.ResolveID(l.Owner)),
		l.ModerationStatus,
		l.RejectionReason,
		l.ClaimStatus,
		l.Contact.Email,
		l.Contact.Phone,
		nullIfEmpty(model.ResolveID(l.FeaturedImage)),
		string(galleryJSON),
		description,
		l.Published,
	}, nil
}

func scanListing(scanner rowScanner) (*model.Listing, error) {
	var (
		l                   model.Listing
		ownerID, featuredID sql.NullString
		gallery             []byte
		description         []byte
		deletedAt           sql.NullTime
	)
	if err := scanner.Scan(
		&l.ID,
		&l.Collection,
		&l.Title,
		&l.Slug,
		&ownerID,
		&l.ModerationStatus,
		&l.RejectionReason,
		&l.ClaimStatus,
		&l.Contact.Email,
		&l.Contact.Phone,
		&featuredID,
		&gallery,
		&description,
		&l.Published,
		&deletedAt,
		&l.CreatedAt,
		&l.UpdatedAt,
	); err != nil {
		return nil, err
	}

	l.Owner = model.NewRef(ownerID.String)
	l.FeaturedImage = model.NewRef(featuredID.String)
	var galleryIDs []string
	if err := json.Unmarshal(gallery, &galleryIDs); err != nil {
		return nil, fmt.Errorf("decode gallery: %w", err)
	}
	for _, id := range galleryIDs {
		l.Gallery = append(l.Gallery, model.Ref{ID: id})
	}
	if len(description) > 0 {
		l.Description = append(json.RawMessage(nil), description...)
	}
	l.DeletedAt = nullableTime(deletedAt)
	return &l, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// mapWriteError turns constraint violations into AppErrors and malformed reference ids into validation errors.
func mapWriteError(err error) error {
	if isInvalidID(err) {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "A referenced id is not valid.")
	}
	return apperrors.MapDBError(err)
}
