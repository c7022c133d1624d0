package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/unevent/unevent-api/internal/domain/model"
)

// AccountRepo reads accounts and their public profiles.
type AccountRepo struct {
	DB *sql.DB
}

// NewAccountRepo creates an AccountRepo.
func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{DB: db}
}

const accountColumns = `id, email, display_name, COALESCE(profile_id::text, ''), created_at`

// FindByProfile returns the oldest account linked to profileID.
func (r *AccountRepo) FindByProfile(ctx context.Context, profileID string) (*model.Account, error) {
	if strings.TrimSpace(profileID) == "" {
		return nil, notFound(ErrAccountNotFound)
	}
	return r.findOne(ctx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE profile_id = $1
		ORDER BY created_at, id
		LIMIT 1`, profileID)
}

// FindByEmail matches email case-insensitively.
func (r *AccountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, notFound(ErrAccountNotFound)
	}
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE lower(email) = lower($1)`, email)
}

// CreateAccountParams groups the fields of a new account.
type CreateAccountParams struct {
	Email       string
	DisplayName string
	ProfileID   string
}

// Create inserts an account. Used by the admin CLI and tests.
func (r *AccountRepo) Create(ctx context.Context, p CreateAccountParams) (*model.Account, error) {
	if strings.TrimSpace(p.Email) == "" {
		return nil, errors.New("email is required")
	}
	var a model.Account
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO accounts (email, display_name, profile_id)
		VALUES ($1, $2, $3)
		RETURNING `+accountColumns, strings.TrimSpace(p.Email), p.DisplayName, nullIfEmpty(p.ProfileID),
	).Scan(&a.ID, &a.Email, &a.DisplayName, &a.ProfileID, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", mapWriteError(err))
	}
	return &a, nil
}

func (r *AccountRepo) findOne(ctx context.Context, query string, arg any) (*model.Account, error) {
	var a model.Account
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(&a.ID, &a.Email, &a.DisplayName, &a.ProfileID, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
			return nil, notFound(ErrAccountNotFound)
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return &a, nil
}

// ProfileRepo reads public profiles.
type ProfileRepo struct {
	DB *sql.DB
}

// NewProfileRepo creates a ProfileRepo.
func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{DB: db}
}

// GetByID returns the profile with id.
func (r *ProfileRepo) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	var p model.Profile
	err := r.DB.QueryRowContext(ctx, `SELECT id, name, display_name, created_at FROM profiles WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.DisplayName, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
			return nil, notFound(ErrProfileNotFound)
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

// Create inserts a profile.
func (r *ProfileRepo) Create(ctx context.Context, name, displayName string) (*model.Profile, error) {
	var p model.Profile
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO profiles (name, display_name) VALUES ($1, $2)
		RETURNING id, name, display_name, created_at`, name, displayName).
		Scan(&p.ID, &p.Name, &p.DisplayName, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", mapWriteError(err))
	}
	return &p, nil
}
