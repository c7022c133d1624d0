package hooks

import (
	"context"
	"errors"

	"github.com/unevent/unevent-api/internal/domain/moderation"
)

var errNoListingStore = errors.New("listing store not configured")

// DeletionGuard blocks hard deletes by non-admins unless the listing has been
// soft deleted for longer than the retention window. Fetch failures allow the delete.
func DeletionGuard(s Settings) BeforeDeleteFunc {
	return func(ctx context.Context, rc RequestContext, id string) error {
		in := moderation.HardDeleteInput{
			ActorIsAdmin: rc.Actor.IsAdmin(),
			Now:          s.now(),
			Retention:    s.HardDeleteRetention,
		}
		if !in.ActorIsAdmin {
			if rc.Clients.Listings == nil {
				in.FetchErr = errNoListingStore
			} else {
				in.Listing, in.FetchErr = rc.Clients.Listings.GetByID(ctx, id)
			}
			if in.FetchErr != nil {
				rc.logger().InfoContext(ctx, "listing fetch failed before hard delete, allowing",
					"listing_id", id,
					"error", in.FetchErr,
				)
			}
		}
		return moderation.DecideHardDelete(in)
	}
}
