// Package model defines the core data types shared by the listing, media and notification layers.
package model

import (
	"encoding/json"
	"time"
)

// Collection identifies one of the three moderated listing variants.
type Collection string

const (
	CollectionLocations Collection = "locations"
	CollectionServices  Collection = "services"
	CollectionEvents    Collection = "events"
)

// Valid returns true if the collection is one of the listing variants.
func (c Collection) Valid() bool {
	return c == CollectionLocations || c == CollectionServices || c == CollectionEvents
}

// ModerationStatus is the review-workflow state of a listing.
type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
	ModerationDraft    ModerationStatus = "draft"
)

// Valid returns true for the four known statuses.
func (s ModerationStatus) Valid() bool {
	switch s {
	case ModerationPending, ModerationApproved, ModerationRejected, ModerationDraft:
		return true
	default:
		return false
	}
}

// ClaimStatus records whether a listing has an authenticated owner.
type ClaimStatus string

const (
	ClaimClaimed   ClaimStatus = "claimed"
	ClaimUnclaimed ClaimStatus = "unclaimed"
)

// Valid returns true for claimed and unclaimed.
func (s ClaimStatus) Valid() bool {
	return s == ClaimClaimed || s == ClaimUnclaimed
}

// Contact holds public contact details of a listing.
type Contact struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Listing is a Location, Service or Event document.
type Listing struct {
	ID               string           `json:"id"`
	Collection       Collection       `json:"collection"`
	Title            string           `json:"title"`
	Slug             string           `json:"slug"`
	Owner            *Ref             `json:"owner,omitempty"`
	ModerationStatus ModerationStatus `json:"moderationStatus"`
	RejectionReason  string           `json:"rejectionReason,omitempty"`
	ClaimStatus      ClaimStatus      `json:"claimStatus,omitempty"`
	Contact          Contact          `json:"contact"`
	FeaturedImage    *Ref             `json:"featuredImage,omitempty"`
	Gallery          []Ref            `json:"gallery,omitempty"`
	Description      json.RawMessage  `json:"description,omitempty"`
	Published        bool             `json:"published"`
	DeletedAt        *time.Time       `json:"deletedAt,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// IsSoftDeleted reports whether the listing carries a deletion timestamp.
func (l *Listing) IsSoftDeleted() bool {
	return l != nil && l.DeletedAt != nil
}

// Clone returns a copy that shares no mutable state with l.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	c := *l
	if l.Owner != nil {
		o := *l.Owner
		c.Owner = &o
	}
	if l.FeaturedImage != nil {
		f := *l.FeaturedImage
		c.FeaturedImage = &f
	}
	if l.Gallery != nil {
		c.Gallery = append([]Ref(nil), l.Gallery...)
	}
	if l.Description != nil {
		c.Description = append(json.RawMessage(nil), l.Description...)
	}
	if l.DeletedAt != nil {
		d := *l.DeletedAt
		c.DeletedAt = &d
	}
	return &c
}

// ListingPatch carries a partial update. Nil fields are left untouched.
type ListingPatch struct {
	Title            *string           `json:"title,omitempty"`
	Slug             *string           `json:"slug,omitempty"`
	Owner            *Ref              `json:"owner,omitempty"`
	ModerationStatus *ModerationStatus `json:"moderationStatus,omitempty"`
	RejectionReason  *string           `json:"rejectionReason,omitempty"`
	Contact          *Contact          `json:"contact,omitempty"`
	FeaturedImage    *Ref              `json:"featuredImage,omitempty"`
	Gallery          *[]Ref            `json:"gallery,omitempty"`
	Description      json.RawMessage   `json:"description,omitempty"`
	Published        *bool             `json:"published,omitempty"`
}

// ApplyTo returns a copy of base with the patch applied. A slug is immutable
// once set, so Slug only fills an empty one.
func (p *ListingPatch) ApplyTo(base *Listing) *Listing {
	out := base.Clone()
	if p == nil {
		return out
	}
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Slug != nil && base.Slug == "" {
		out.Slug = *p.Slug
	}
	if p.Owner != nil {
		o := *p.Owner
		out.Owner = &o
	}
	if p.ModerationStatus != nil {
		out.ModerationStatus = *p.ModerationStatus
	}
	if p.RejectionReason != nil {
		out.RejectionReason = *p.RejectionReason
	}
	if p.Contact != nil {
		out.Contact = *p.Contact
	}
	if p.FeaturedImage != nil {
		f := *p.FeaturedImage
		out.FeaturedImage = &f
		if f.IsZero() {
			out.FeaturedImage = nil
		}
	}
	if p.Gallery != nil {
		out.Gallery = append([]Ref(nil), (*p.Gallery)...)
	}
	if p.Description != nil {
		out.Description = append(json.RawMessage(nil), p.Description...)
	}
	if p.Published != nil {
		out.Published = *p.Published
	}
	return out
}

// ListingFilter narrows List queries.
type ListingFilter struct {
	Collection     Collection
	Status         ModerationStatus
	OwnerID        string
	IncludeDeleted bool
	Limit          int
	Offset         int
}
