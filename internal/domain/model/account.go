package model

import (
	"strings"
	"time"
)

// Account is a login identity. It links to at most one public Profile.
type Account struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName,omitempty"`
	ProfileID   string    `json:"profile,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// EmailLocalPart returns the part of the email before "@".
func (a *Account) EmailLocalPart() string {
	if a == nil {
		return ""
	}
	local, _, _ := strings.Cut(a.Email, "@")
	return local
}

// Profile is the public identity that owns listings.
type Profile struct {
	ID          string    `json:"id"`
	Name        string    `json:"name,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
