package hooks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/unevent/unevent-api/internal/domain/model"
)

// UnknownCreator is the creator name used when no owner name can be resolved.
const UnknownCreator = "Unknown"

var (
	errNoOwner        = errors.New("listing has no owner")
	errNoAccountStore = errors.New("account lookup not configured")
)

// owner is the resolved recipient of an owner notification.
type owner struct {
	ProfileID string
	Email     string
	Name      string
}

// resolveOwner maps a listing's owner reference to the linked account. It
// returns an error when no account can be found; a failing profile lookup
// only degrades the display name.
func resolveOwner(ctx context.Context, rc RequestContext, ref *model.Ref) (*owner, error) {
	profileID := model.ResolveID(ref)
	if profileID == "" {
		return nil, errNoOwner
	}
	if rc.Clients.Accounts == nil {
		return nil, errNoAccountStore
	}
	account, err := rc.Clients.Accounts.FindByProfile(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("find account for profile %s: %w", profileID, err)
	}
	if account == nil || strings.TrimSpace(account.Email) == "" {
		return nil, fmt.Errorf("account for profile %s has no email", profileID)
	}

	var profile *model.Profile
	if rc.Clients.Profiles != nil {
		p, perr := rc.Clients.Profiles.GetByID(ctx, profileID)
		if perr != nil {
			rc.logger().WarnContext(ctx, "profile lookup failed, using account name",
				"profile_id", profileID,
				"error", perr,
			)
		} else {
			profile = p
		}
	}

	return &owner{
		ProfileID: profileID,
		Email:     account.Email,
		Name:      displayName(profile, account),
	}, nil
}

// displayName picks the first non-empty of profile name, profile display
// name, account display name and email local part.
func displayName(profile *model.Profile, account *model.Account) string {
	var candidates []string
	if profile != nil {
		candidates = append(candidates, profile.Name, profile.DisplayName)
	}
	if account != nil {
		candidates = append(candidates, account.DisplayName, account.EmailLocalPart())
	}
	for _, c := range candidates {
		if s := strings.TrimSpace(c); s != "" {
			return s
		}
	}
	return ""
}

// creatorName resolves the owner's name for admin notifications. Lookup
// failures are logged and fall through to UnknownCreator.
func creatorName(ctx context.Context, rc RequestContext, ref *model.Ref) string {
	profileID := model.ResolveID(ref)
	if profileID == "" {
		return UnknownCreator
	}
	var profile *model.Profile
	if rc.Clients.Profiles != nil {
		if p, err := rc.Clients.Profiles.GetByID(ctx, profileID); err == nil {
			profile = p
		} else {
			rc.logger().WarnContext(ctx, "creator profile lookup failed",
				"profile_id", profileID,
				"error", err,
			)
		}
	}
	var account *model.Account
	if rc.Clients.Accounts != nil {
		if a, err := rc.Clients.Accounts.FindByProfile(ctx, profileID); err == nil {
			account = a
		} else {
			rc.logger().WarnContext(ctx, "creator account lookup failed",
				"profile_id", profileID,
				"error", err,
			)
		}
	}
	if name := displayName(profile, account); name != "" {
		return name
	}
	return UnknownCreator
}
