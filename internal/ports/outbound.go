package ports

import (
	"context"
	"errors"

	"github.com/unevent/unevent-api/internal/domain/model"
)

//go:generate mockgen -source=outbound.go -destination=../mocks/mock_ports.go -package=mocks

// NotificationEnqueuer queues a notification for asynchronous delivery and returns the job id.
type NotificationEnqueuer interface {
	Enqueue(ctx context.Context, n model.NotificationPayload) (string, error)
}

// RevalidateRequest identifies the frontend pages affected by a listing write.
type RevalidateRequest struct {
	ListingID  string           `json:"listingId"`
	Collection model.Collection `json:"collection"`
	Slug       string           `json:"slug"`
}

// Revalidator asks the frontend to regenerate its sitemap and cached pages.
type Revalidator interface {
	Revalidate(ctx context.Context, req RevalidateRequest) error
}

var (
	// ErrRevalidationDisabled is returned when the endpoint or secret is not configured.
	ErrRevalidationDisabled = errors.New("revalidation not configured")
	// ErrRevalidationDebounced is returned when an identical request was sent recently.
	ErrRevalidationDebounced = errors.New("revalidation debounced")
)

// Message is a rendered email.
type Message struct {
	To      []string
	ReplyTo string
	Subject string
	Text    string
	Tag     string
}

// Mailer delivers rendered email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
