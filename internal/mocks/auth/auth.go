// Package auth holds hand-written fakes for the auth ports. They keep state
// in memory and need no controller, unlike the generated mocks.
package auth

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	domainauth "github.com/unevent/unevent-api/internal/domain/auth"
	"github.com/unevent/unevent-api/internal/ports"
)

var (
	_ ports.AuthProvider = (*MockAuthProvider)(nil)
	_ ports.SessionStore = (*MemorySessionStore)(nil)
	_ ports.RoleMapper   = FixedRoleMapper{}
)

// ErrNotFound is returned for unknown session ids.
var ErrNotFound = errors.New("session not found")

// MockAuthProvider hands out numbered challenges (state-1, nonce-1, ...) and
// signs everyone in as User unless the hooks override it.
type MockAuthProvider struct {
	BeginFunc    func(ctx context.Context, redirectURL string) (ports.LoginChallenge, error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error)

	AuthURL string
	User    domainauth.Identity

	mu    sync.Mutex
	calls int
}

func NewMockAuthProvider() *MockAuthProvider {
	return &MockAuthProvider{
		AuthURL: "https://mock-idp/auth",
		User: domainauth.Identity{
			UserID:    "ana.pop",
			FirstName: "Ana",
			LastName:  "Pop",
			Email:     "ana.pop@unevent.ro",
			Groups:    []string{"unevent-users"},
		},
	}
}

func (m *MockAuthProvider) Begin(ctx context.Context, redirectURL string) (ports.LoginChallenge, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, redirectURL)
	}
	m.mu.Lock()
	m.calls++
	n := strconv.Itoa(m.calls)
	m.mu.Unlock()
	return ports.LoginChallenge{AuthURL: m.AuthURL, State: "state-" + n, Nonce: "nonce-" + n}, nil
}

// Exchange returns User with an expiry one hour out.
func (m *MockAuthProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}
	id := m.User
	id.ExpiresAt = time.Now().Add(time.Hour)
	return id, nil
}

// MemorySessionStore is a map-backed SessionStore. It does not expire entries.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: map[string]domainauth.Session{}}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[id]; ok {
		return sess, nil
	}
	return domainauth.Session{}, ErrNotFound
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len reports how many sessions are stored.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

type FixedRoleMapper struct {
	Role domainauth.Role
}

func (m FixedRoleMapper) Map([]string) domainauth.Role { return m.Role }
