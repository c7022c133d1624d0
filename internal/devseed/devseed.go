// Package devseed loads sample accounts, profiles and listings into a
// development database.
package devseed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/unevent/unevent-api/internal/data"
	"github.com/unevent/unevent-api/internal/domain/model"
	"github.com/unevent/unevent-api/internal/domain/slug"
	apperrors "github.com/unevent/unevent-api/internal/errors"
)

// Services bundles the repositories used for seeding.
type Services struct {
	accounts *data.AccountRepo
	profiles *data.ProfileRepo
	listings *data.ListingRepo
}

// NewServices constructs the seeding repositories on db.
func NewServices(db *sql.DB) Services {
	return Services{
		accounts: data.NewAccountRepo(db),
		profiles: data.NewProfileRepo(db),
		listings: data.NewListingRepo(db, data.ListingRepoOptions{}),
	}
}

// Options controls what is seeded.
type Options struct {
	// OwnerEmail is the account that owns the sample listings, usually DEV_AUTH_EMAIL.
	OwnerEmail string
	OwnerName  string
}

// ListingSeed is one sample listing.
type ListingSeed struct {
	Collection model.Collection
	Title      string
	Status     model.ModerationStatus
	Email      string
}

// DefaultListings returns one listing per collection and status mix.
func DefaultListings() []ListingSeed {
	return []ListingSeed{
		{Collection: model.CollectionLocations, Title: "Conacul Bălănescu", Status: model.ModerationApproved, Email: "rezervari@conac.example.ro"},
		{Collection: model.CollectionLocations, Title: "Grădina de Vară Cluj", Status: model.ModerationPending},
		{Collection: model.CollectionServices, Title: "Foto & Video Ștefan", Status: model.ModerationApproved, Email: "stefan@foto.example.ro"},
		{Collection: model.CollectionServices, Title: "DJ Andrei Mureșan", Status: model.ModerationRejected},
		{Collection: model.CollectionEvents, Title: "Târg de Nunți Iași 2026", Status: model.ModerationPending},
		{Collection: model.CollectionEvents, Title: "Seară de Jazz la Conac", Status: model.ModerationDraft},
	}
}

// Run seeds the owner and the default listings. Existing rows are kept, so
// Run can be repeated.
func Run(ctx context.Context, svcs Services, opts Options, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "devseed")

	profileID, err := ensureOwner(ctx, svcs, opts, logger)
	if err != nil {
		return err
	}

	failures := 0
	for _, seed := range DefaultListings() {
		created, err := createListing(ctx, svcs.listings, seed, profileID)
		switch {
		case err != nil:
			failures++
			logger.WarnContext(ctx, "failed to seed listing", "title", seed.Title, "error", err)
		case created:
			logger.InfoContext(ctx, "seeded listing", "collection", seed.Collection, "title", seed.Title)
		default:
			logger.DebugContext(ctx, "listing already seeded", "collection", seed.Collection, "title", seed.Title)
		}
	}
	if failures > 0 {
		return fmt.Errorf("seed listings: %d failed", failures)
	}
	return nil
}

// ensureOwner returns the profile of the owner account, creating both when missing.
func ensureOwner(ctx context.Context, svcs Services, opts Options, logger *slog.Logger) (string, error) {
	email := strings.TrimSpace(opts.OwnerEmail)
	if email == "" {
		return "", errors.New("owner email is required")
	}

	acct, err := svcs.accounts.FindByEmail(ctx, email)
	if err == nil && acct.ProfileID != "" {
		return acct.ProfileID, nil
	}
	if err != nil && !errors.Is(err, data.ErrAccountNotFound) {
		return "", fmt.Errorf("find owner account: %w", err)
	}
	if acct != nil {
		return "", fmt.Errorf("account %s exists without a profile", email)
	}

	name := opts.OwnerName
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	profile, err := svcs.profiles.Create(ctx, slug.Make(name), name)
	if err != nil {
		return "", fmt.Errorf("create owner profile: %w", err)
	}
	if _, err := svcs.accounts.Create(ctx, data.CreateAccountParams{
		Email:       email,
		DisplayName: name,
		ProfileID:   profile.ID,
	}); err != nil {
		return "", fmt.Errorf("create owner account: %w", err)
	}
	logger.InfoContext(ctx, "seeded owner", "email", email, "profile_id", profile.ID)
	return profile.ID, nil
}

// createListing reports false when a listing with the same slug already exists.
func createListing(ctx context.Context, repo *data.ListingRepo, seed ListingSeed, profileID string) (bool, error) {
	_, err := repo.Create(ctx, &model.Listing{
		Collection:       seed.Collection,
		Title:            seed.Title,
		Slug:             slug.Make(seed.Title),
		Owner:            model.NewRef(profileID),
		ModerationStatus: seed.Status,
		ClaimStatus:      model.ClaimClaimed,
		Contact:          model.Contact{Email: seed.Email},
		Published:        seed.Status == model.ModerationApproved,
	})
	if err != nil {
		if apperrors.IsConflict(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
