package model

import (
	"errors"
	"strings"
	"time"
)

// MediaContextListing tags media retained by a saved listing.
const MediaContextListing = "listing"

// Media is an uploaded file. Uploads start temporary and become permanent once a listing references them.
type Media struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	URL       string    `json:"url"`
	MimeType  string    `json:"mimeType"`
	SizeBytes int64     `json:"sizeBytes"`
	Temporary bool      `json:"temporary"`
	Context   string    `json:"context,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MediaUpdate is a partial media update.
type MediaUpdate struct {
	Temporary *bool
	Context   *string
}

// RetainMediaUpdate is the update applied by media retention.
func RetainMediaUpdate() MediaUpdate {
	temporary := false
	context := MediaContextListing
	return MediaUpdate{Temporary: &temporary, Context: &context}
}

// RegisterMediaRequest describes an upload that has already been stored.
type RegisterMediaRequest struct {
	Filename  string `json:"filename"`
	URL       string `json:"url"`
	MimeType  string `json:"mimeType"`
	SizeBytes int64  `json:"sizeBytes"`
}

// Validate checks required fields.
func (r *RegisterMediaRequest) Validate() error {
	if strings.TrimSpace(r.Filename) == "" {
		return errors.New("filename is required")
	}
	if strings.TrimSpace(r.URL) == "" {
		return errors.New("url is required")
	}
	if r.SizeBytes < 0 {
		return errors.New("sizeBytes must be >= 0")
	}
	return nil
}
