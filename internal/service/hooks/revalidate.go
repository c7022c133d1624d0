package hooks

import (
	"context"
	"errors"

	"github.com/unevent/unevent-api/internal/ports"
)

// RevalidateSitemap asks the frontend to regenerate the sitemap after a write.
// Missing configuration and debounced calls skip; other failures are non-fatal.
func RevalidateSitemap() AfterChangeFunc {
	return func(ctx context.Context, rc RequestContext, ev ChangeEvent) Result {
		r := rc.Clients.Revalidator
		if r == nil {
			rc.logger().WarnContext(ctx, "sitemap revalidation not configured",
				"listing_id", ev.Doc.ID,
			)
			return Skipped("revalidation not configured")
		}
		err := r.Revalidate(ctx, ports.RevalidateRequest{
			ListingID:  ev.Doc.ID,
			Collection: ev.Doc.Collection,
			Slug:       ev.Doc.Slug,
		})
		switch {
		case err == nil:
			return OK("sitemap revalidated")
		case errors.Is(err, ports.ErrRevalidationDisabled):
			rc.logger().WarnContext(ctx, "sitemap revalidation not configured",
				"listing_id", ev.Doc.ID,
			)
			return Skipped("revalidation not configured")
		case errors.Is(err, ports.ErrRevalidationDebounced):
			return Skipped("revalidation debounced")
		default:
			rc.logger().WarnContext(ctx, "sitemap revalidation failed",
				"listing_id", ev.Doc.ID,
				"error", err,
			)
			return Failed(err, "sitemap revalidation failed")
		}
	}
}
