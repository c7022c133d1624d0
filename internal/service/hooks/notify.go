package hooks

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/unevent/unevent-api/internal/domain/model"
	"github.com/unevent/unevent-api/internal/domain/moderation"
)

var errNoQueue = errors.New("notification queue not configured")

// NotifyModerationTransition enqueues listing.approved or listing.rejected to
// the owner when an update changes the moderation status to approved or rejected.
func NotifyModerationTransition(s Settings) AfterChangeFunc {
	return func(ctx context.Context, rc RequestContext, ev ChangeEvent) Result {
		if ev.Operation != OperationUpdate || ev.Previous == nil {
			return Skipped("not an update")
		}
		var event model.EventType
		switch moderation.Classify(ev.Previous.ModerationStatus, ev.Doc.ModerationStatus) {
		case moderation.KindApproval:
			event = model.EventListingApproved
		case moderation.KindRejection:
			event = model.EventListingRejected
		default:
			return Skipped("no notifiable transition")
		}

		o, err := resolveOwner(ctx, rc, ev.Doc.Owner)
		if err != nil {
			rc.logger().WarnContext(ctx, "owner not resolved, skipping notification",
				"listing_id", ev.Doc.ID,
				"event_type", event,
				"error", err,
			)
			return Skipped("owner not resolved")
		}

		data := map[string]string{
			"title":      ev.Doc.Title,
			"collection": string(ev.Doc.Collection),
			"listingId":  ev.Doc.ID,
			"ownerName":  o.Name,
		}
		if u := joinURL(s.FrontendBaseURL, string(ev.Doc.Collection), ev.Doc.Slug); u != "" {
			data["listingUrl"] = u
		}
		if event == model.EventListingRejected && strings.TrimSpace(ev.Doc.RejectionReason) != "" {
			data["reason"] = ev.Doc.RejectionReason
		}
		return enqueue(ctx, rc, ev.Doc, model.NotificationPayload{
			Event: event,
			To:    []string{o.Email},
			Data:  data,
		})
	}
}

// NotifyAdminsPending enqueues admin.listing.pending to the admin recipients
// when a listing is created in the pending state.
func NotifyAdminsPending(s Settings) AfterChangeFunc {
	return func(ctx context.Context, rc RequestContext, ev ChangeEvent) Result {
		if ev.Operation != OperationCreate || ev.Doc.ModerationStatus != model.ModerationPending {
			return Skipped("not a pending create")
		}
		recipients := nonEmpty(s.AdminRecipients)
		if len(recipients) == 0 {
			rc.logger().WarnContext(ctx, "no admin recipients configured",
				"listing_id", ev.Doc.ID,
				"event_type", model.EventAdminListingPending,
			)
			return Skipped("no admin recipients")
		}

		data := map[string]string{
			"title":       ev.Doc.Title,
			"collection":  string(ev.Doc.Collection),
			"listingId":   ev.Doc.ID,
			"creatorName": creatorName(ctx, rc, ev.Doc.Owner),
		}
		if u := joinURL(s.DashboardBaseURL, "collections", string(ev.Doc.Collection), ev.Doc.ID); u != "" {
			data["dashboardUrl"] = u
		}
		return enqueue(ctx, rc, ev.Doc, model.NotificationPayload{
			Event: model.EventAdminListingPending,
			To:    recipients,
			Data:  data,
		})
	}
}

// InviteClaim enqueues listing.claim.invitation to the contact email of an
// unclaimed listing on create, whatever its moderation status.
func InviteClaim(s Settings) AfterChangeFunc {
	return func(ctx context.Context, rc RequestContext, ev ChangeEvent) Result {
		if ev.Operation != OperationCreate || ev.Doc.ClaimStatus != model.ClaimUnclaimed {
			return Skipped("not an unclaimed create")
		}
		email := strings.TrimSpace(ev.Doc.Contact.Email)
		if email == "" {
			return Skipped("no contact email")
		}

		data := map[string]string{
			"title":      ev.Doc.Title,
			"collection": string(ev.Doc.Collection),
			"listingId":  ev.Doc.ID,
		}
		if u := claimURL(s.FrontendBaseURL, ev.Doc); u != "" {
			data["claimUrl"] = u
		}
		if s.SupportEmail != "" {
			data["supportEmail"] = s.SupportEmail
		}
		return enqueue(ctx, rc, ev.Doc, model.NotificationPayload{
			Event: model.EventListingClaimInvitation,
			To:    []string{email},
			Data:  data,
		})
	}
}

// enqueue submits one notification and turns every failure mode into a Result.
func enqueue(ctx context.Context, rc RequestContext, doc *model.Listing, n model.NotificationPayload) (res Result) {
	log := rc.logger()
	q := rc.Clients.Notifications
	if q == nil {
		log.WarnContext(ctx, "notification queue unavailable",
			"listing_id", doc.ID,
			"event_type", n.Event,
		)
		return Failed(errNoQueue, string(n.Event))
	}
	defer func() {
		if r := recover(); r != nil {
			err := errPanic(r)
			log.WarnContext(ctx, "notification enqueue panicked",
				"listing_id", doc.ID,
				"event_type", n.Event,
				"error", err,
			)
			res = Failed(err, string(n.Event))
		}
	}()

	id, err := q.Enqueue(ctx, n)
	if err != nil {
		log.WarnContext(ctx, "notification enqueue failed",
			"listing_id", doc.ID,
			"event_type", n.Event,
			"error", err,
		)
		return Failed(err, string(n.Event))
	}
	log.InfoContext(ctx, "notification enqueued",
		"listing_id", doc.ID,
		"event_type", n.Event,
		"job_id", id,
		"recipients", len(n.To),
	)
	return OK(string(n.Event))
}

func claimURL(base string, doc *model.Listing) string {
	u := joinURL(base, "claim")
	if u == "" {
		return ""
	}
	q := url.Values{}
	q.Set("listing", doc.ID)
	q.Set("type", string(doc.Collection))
	return u + "?" + q.Encode()
}

// joinURL joins path segments onto base. It returns "" when base is empty or invalid.
func joinURL(base string, elems ...string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	u, err := url.JoinPath(base, elems...)
	if err != nil {
		return ""
	}
	return u
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
