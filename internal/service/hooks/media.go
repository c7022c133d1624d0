package hooks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/unevent/unevent-api/internal/domain/model"
)

var errNoMediaStore = errors.New("media store not configured")

// RetainMedia marks every media referenced by featuredImage and gallery as
// permanent. Updates run concurrently and every failure is reported.
func RetainMedia(s Settings) AfterChangeFunc {
	return func(ctx context.Context, rc RequestContext, ev ChangeEvent) Result {
		ids := model.DistinctRefIDs(ev.Doc.FeaturedImage, ev.Doc.Gallery)
		if len(ids) == 0 {
			return Skipped("no media references")
		}
		if rc.Clients.Media == nil {
			rc.logger().WarnContext(ctx, "media store unavailable, media left temporary",
				"listing_id", ev.Doc.ID,
				"media_count", len(ids),
			)
			return Failed(errNoMediaStore, "media store not configured")
		}

		var (
			mu   sync.Mutex
			errs []error
		)
		upd := model.RetainMediaUpdate()
		// Plain Group: one failed update must not cancel the others.
		var g errgroup.Group
		if s.MediaConcurrency > 0 {
			g.SetLimit(s.MediaConcurrency)
		}
		for _, id := range ids {
			g.Go(func() error {
				if _, err := rc.Clients.Media.Update(ctx, id, upd); err != nil {
					rc.logger().ErrorContext(ctx, "media retention failed",
						"listing_id", ev.Doc.ID,
						"media_id", id,
						"error", err,
					)
					mu.Lock()
					errs = append(errs, fmt.Errorf("media %s: %w", id, err))
					mu.Unlock()
				}
				return nil
			})
		}
		_ = g.Wait()

		if len(errs) > 0 {
			return Failed(errors.Join(errs...), fmt.Sprintf("%d of %d media updates failed", len(errs), len(ids)))
		}
		return OK(fmt.Sprintf("%d media retained", len(ids)))
	}
}
