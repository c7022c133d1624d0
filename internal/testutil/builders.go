// Package testutil provides database, Redis and fixture helpers for tests.
package testutil

import (
	"encoding/json"
	"time"

	"github.com/unevent/unevent-api/internal/domain/model"
)

// JobRequestBuilder builds CreateJobRequest values for tests.
type JobRequestBuilder struct {
	req *model.CreateJobRequest
}

// NewJobRequest returns a builder for a notification job addressed to one recipient.
func NewJobRequest() *JobRequestBuilder {
	return &JobRequestBuilder{
		req: &model.CreateJobRequest{
			Type:       model.JobTypeNotification,
			Payload:    json.RawMessage(`{"event":"listing.approved","to":["owner@example.com"],"data":{"title":"Sala Mare"}}`),
			MaxRetries: 3,
		},
	}
}

// WithPayloadString sets the job payload from a string.
func (b *JobRequestBuilder) WithPayloadString(payload string) *JobRequestBuilder {
	b.req.Payload = json.RawMessage(payload)
	return b
}

// WithMaxRetries sets the attempt budget.
func (b *JobRequestBuilder) WithMaxRetries(n int) *JobRequestBuilder {
	b.req.MaxRetries = n
	return b
}

// WithScheduledAt delays the job until at.
func (b *JobRequestBuilder) WithScheduledAt(at time.Time) *JobRequestBuilder {
	b.req.ScheduledAt = &at
	return b
}

// Build returns the request.
func (b *JobRequestBuilder) Build() *model.CreateJobRequest {
	return b.req
}

// ListingBuilder builds model.Listing values for tests.
type ListingBuilder struct {
	l *model.Listing
}

// NewListing returns a builder for a pending, unowned location.
func NewListing() *ListingBuilder {
	return &ListingBuilder{l: &model.Listing{
		Collection:       model.CollectionLocations,
		Title:            "Sala Mare",
		Slug:             "sala-mare",
		ModerationStatus: model.ModerationPending,
		ClaimStatus:      model.ClaimUnclaimed,
	}}
}

// WithCollection sets the collection.
func (b *ListingBuilder) WithCollection(c model.Collection) *ListingBuilder {
	b.l.Collection = c
	return b
}

// WithTitle sets title and slug together.
func (b *ListingBuilder) WithTitle(title, slug string) *ListingBuilder {
	b.l.Title = title
	b.l.Slug = slug
	return b
}

// WithOwner sets the owning profile.
func (b *ListingBuilder) WithOwner(profileID string) *ListingBuilder {
	b.l.Owner = model.NewRef(profileID)
	if profileID != "" {
		b.l.ClaimStatus = model.ClaimClaimed
	}
	return b
}

// WithStatus sets the moderation status.
func (b *ListingBuilder) WithStatus(s model.ModerationStatus) *ListingBuilder {
	b.l.ModerationStatus = s
	return b
}

// WithMedia sets the featured image and gallery.
func (b *ListingBuilder) WithMedia(featured string, gallery ...string) *ListingBuilder {
	b.l.FeaturedImage = model.NewRef(featured)
	b.l.Gallery = nil
	for _, id := range gallery {
		b.l.Gallery = append(b.l.Gallery, model.Ref{ID: id})
	}
	return b
}

// Build returns a copy of the listing.
func (b *ListingBuilder) Build() *model.Listing {
	return b.l.Clone()
}
