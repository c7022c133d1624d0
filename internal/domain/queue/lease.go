// Package queue holds the worker-side policies of the notification job
// queue: lease sizing and wake-ups on new jobs.
package queue

import (
	"errors"
	"time"
)

// ErrInvalidLease is returned for a non-positive default lease.
var ErrInvalidLease = errors.New("default lease must be positive")

// Lease bounds applied to reservation and heartbeat requests.
const (
	MinLease = time.Second
	MaxLease = time.Hour
)

// LeasePolicy turns requested lease durations into whole seconds for the
// job store. Zero selects the default; values are clamped to [MinLease, MaxLease].
type LeasePolicy struct {
	def time.Duration
}

// NewLeasePolicy returns a policy with the given default lease.
func NewLeasePolicy(def time.Duration) (*LeasePolicy, error) {
	if def <= 0 {
		return nil, ErrInvalidLease
	}
	return &LeasePolicy{def: clampLease(def)}, nil
}

// Default returns the default lease.
func (p *LeasePolicy) Default() time.Duration { return p.def }

// Seconds resolves a requested lease. The second return is true when the
// request was out of bounds and has been clamped.
func (p *LeasePolicy) Seconds(requested time.Duration) (int, bool) {
	if requested == 0 {
		return int(p.def / time.Second), false
	}
	d := clampLease(requested)
	return int(d / time.Second), d != requested
}

func clampLease(d time.Duration) time.Duration {
	switch {
	case d < MinLease:
		return MinLease
	case d > MaxLease:
		return MaxLease
	default:
		return d.Truncate(time.Second)
	}
}
