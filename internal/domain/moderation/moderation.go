// Package moderation holds the pure decision logic of the listing review workflow.
package moderation

import (
	"errors"
	"fmt"
	"time"

	"github.com/unevent/unevent-api/internal/domain/model"
)

// TransitionKind classifies a moderation status change.
type TransitionKind string

const (
	KindNoop      TransitionKind = "noop"
	KindApproval  TransitionKind = "approval"
	KindRejection TransitionKind = "rejection"
	KindOther     TransitionKind = "other"
)

// Transition is the status pair observed by one update.
type Transition struct {
	Previous model.ModerationStatus
	Current  model.ModerationStatus
}

// Kind classifies the transition.
func (t Transition) Kind() TransitionKind {
	switch {
	case t.Previous == t.Current:
		return KindNoop
	case t.Current == model.ModerationApproved:
		return KindApproval
	case t.Current == model.ModerationRejected:
		return KindRejection
	default:
		return KindOther
	}
}

// Classify is shorthand for Transition{previous, current}.Kind().
func Classify(previous, current model.ModerationStatus) TransitionKind {
	return Transition{Previous: previous, Current: current}.Kind()
}

// DefaultHardDeleteRetention is the minimum age of a soft delete before a non-admin hard delete.
const DefaultHardDeleteRetention = 4380 * time.Hour

// ErrHardDeleteNotAllowed is matched by both guard rejections.
var ErrHardDeleteNotAllowed = errors.New("hard delete not allowed")

// Guard rejection reasons.
var (
	ErrNotSoftDeleted      = fmt.Errorf("%w: use soft delete", ErrHardDeleteNotAllowed)
	ErrRetentionNotElapsed = fmt.Errorf("%w: retention window not elapsed", ErrHardDeleteNotAllowed)
)

// HardDeleteInput is everything the guard needs to decide.
type HardDeleteInput struct {
	ActorIsAdmin bool
	Listing      *model.Listing
	FetchErr     error
	Now          time.Time
	Retention    time.Duration
}

// DecideHardDelete returns nil when the delete may proceed. A failed or empty
// fetch allows the delete so the store reports its own state.
func DecideHardDelete(in HardDeleteInput) error {
	if in.ActorIsAdmin {
		return nil
	}
	if in.FetchErr != nil || in.Listing == nil {
		return nil
	}
	if in.Listing.DeletedAt == nil {
		return ErrNotSoftDeleted
	}
	retention := in.Retention
	if retention <= 0 {
		retention = DefaultHardDeleteRetention
	}
	if in.Listing.DeletedAt.After(in.Now.Add(-retention)) {
		return ErrRetentionNotElapsed
	}
	return nil
}
