// Package hooks implements the listing write lifecycle hooks: field defaults
// before validation, notification, media and sitemap side effects after a
// change, and the hard delete guard.
//
// Every hook receives a RequestContext explicitly. Hooks that may abort a
// write return an error; after-change hooks return a Result and cannot abort.
package hooks

import (
	"log/slog"
	"time"

	domainauth "github.com/unevent/unevent-api/internal/domain/auth"
	"github.com/unevent/unevent-api/internal/core"
	"github.com/unevent/unevent-api/internal/ports"
)

// Clients are the collaborators hooks may call. Any of them may be nil; hooks
// that need a missing client skip with a warning.
type Clients struct {
	Listings      core.ListingRepository
	Media         core.MediaRepository
	Accounts      core.AccountRepository
	Profiles      core.ProfileRepository
	Notifications ports.NotificationEnqueuer
	Revalidator   ports.Revalidator
}

// RequestContext carries the acting principal, logger and collaborators of one write.
type RequestContext struct {
	Actor   *domainauth.Actor
	Logger  *slog.Logger
	Clients Clients
}

func (rc RequestContext) logger() *slog.Logger {
	if rc.Logger != nil {
		return rc.Logger
	}
	return slog.Default()
}

// Settings are the configuration values hooks read.
type Settings struct {
	AdminRecipients     []string
	DashboardBaseURL    string
	FrontendBaseURL     string
	SupportEmail        string
	HardDeleteRetention time.Duration
	// MediaConcurrency bounds parallel media updates; <= 0 means unbounded.
	MediaConcurrency int
	Now              func() time.Time
}

func (s Settings) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
