package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// EventType names an outbound notification.
type EventType string

const (
	EventListingApproved        EventType = "listing.approved"
	EventListingRejected        EventType = "listing.rejected"
	EventAdminListingPending    EventType = "admin.listing.pending"
	EventListingClaimInvitation EventType = "listing.claim.invitation"
)

// NotificationPayload is the JSON body of a notification job.
type NotificationPayload struct {
	Event EventType         `json:"event"`
	To    []string          `json:"to"`
	Data  map[string]string `json:"data"`
}

// Validate checks the payload has an event and a recipient.
func (p *NotificationPayload) Validate() error {
	if strings.TrimSpace(string(p.Event)) == "" {
		return errors.New("event is required")
	}
	if len(p.To) == 0 {
		return errors.New("recipient is required")
	}
	for _, to := range p.To {
		if strings.TrimSpace(to) == "" {
			return errors.New("recipient must not be empty")
		}
	}
	return nil
}

// DecodeNotificationPayload parses a job payload.
func DecodeNotificationPayload(raw json.RawMessage) (*NotificationPayload, error) {
	var p NotificationPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode notification payload: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
