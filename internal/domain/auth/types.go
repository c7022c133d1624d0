// Package auth holds the identity, session and actor types shared by the
// login flow and the listing hooks.
package auth

import "time"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

// rank orders roles guest < user < admin. Unknown roles have no rank.
var rank = map[Role]int{RoleGuest: 1, RoleUser: 2, RoleAdmin: 3}

// Satisfies reports whether r grants at least what required grants. Unknown
// roles satisfy nothing and are satisfied by nothing.
func (r Role) Satisfies(required Role) bool {
	have, want := rank[r], rank[required]
	return have > 0 && want > 0 && have >= want
}

// Identity is what an IdP adapter hands back after a successful login.
type Identity struct {
	UserID    string
	FirstName string
	LastName  string
	Email     string
	Groups    []string
	// ExpiresAt comes from the IdP token.
	ExpiresAt time.Time
}

// Session is the server-side login record.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s Session) IsGuest() bool { return s.Role == RoleGuest }

// Actor performs a listing write. AccountID and ProfileID are empty until
// the caller has registered.
type Actor struct {
	UserID    string
	Email     string
	AccountID string
	ProfileID string
	Role      Role
}

// IsAdmin is false for a nil actor.
func (a *Actor) IsAdmin() bool { return a != nil && a.Role == RoleAdmin }

// HasProfile reports whether the actor can own listings.
func (a *Actor) HasProfile() bool { return a != nil && a.ProfileID != "" }

// SystemActor runs background cleanup with admin rights.
func SystemActor() *Actor { return &Actor{UserID: "system", Role: RoleAdmin} }
