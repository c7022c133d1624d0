package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/unevent/unevent-api/internal/domain/auth"
	"github.com/unevent/unevent-api/internal/domain/model"
	apperrors "github.com/unevent/unevent-api/internal/errors"
	"github.com/unevent/unevent-api/internal/mocks"
	authmocks "github.com/unevent/unevent-api/internal/mocks/auth"
	"github.com/unevent/unevent-api/internal/observability/metrics"
	"github.com/unevent/unevent-api/internal/ports"
)

// failingSessionStore fails the configured operations.
type failingSessionStore struct {
	*authmocks.MemorySessionStore
	saveErr   error
	deleteErr error
}

func (m *failingSessionStore) Save(ctx context.Context, sess domainauth.Session) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	return m.MemorySessionStore.Save(ctx, sess)
}

func (m *failingSessionStore) Delete(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	return m.MemorySessionStore.Delete(ctx, id)
}

func newTestAuthService(sessions ports.SessionStore) *AuthService {
	return NewAuthService(AuthServiceOptions{
		Provider: authmocks.NewMockAuthProvider(),
		Sessions: sessions,
		Roles:    authmocks.FixedRoleMapper{Role: domainauth.RoleUser},
	})
}

func TestAuthService_BeginLogin(t *testing.T) {
	t.Parallel()
	svc := newTestAuthService(authmocks.NewMemorySessionStore())

	res, err := svc.BeginLogin(context.Background(), "http://localhost:8080/auth/callback")
	require.NoError(t, err)
	assert.Equal(t, "https://mock-idp/auth", res.AuthURL)
	assert.Equal(t, "state-1", res.State)
	assert.Equal(t, "nonce-1", res.Nonce)

	_, err = svc.BeginLogin(context.Background(), "")
	require.Error(t, err)
}

func TestAuthService_BeginLogin_ProviderError(t *testing.T) {
	t.Parallel()
	provider := authmocks.NewMockAuthProvider()
	provider.BeginFunc = func(context.Context, string) (ports.LoginChallenge, error) {
		return ports.LoginChallenge{}, errors.New("idp unavailable")
	}
	svc := NewAuthService(AuthServiceOptions{Provider: provider})

	_, err := svc.BeginLogin(context.Background(), "http://localhost/cb")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin auth flow")
}

func TestAuthService_CompleteLogin(t *testing.T) {
	t.Parallel()
	sessions := authmocks.NewMemorySessionStore()
	svc := newTestAuthService(sessions)
	ctx := context.Background()

	sess, err := svc.CompleteLogin(ctx, CompleteLoginInput{Code: "c", State: "s", Nonce: "n"})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "ana.pop@unevent.ro", sess.Email)
	assert.Equal(t, domainauth.RoleUser, sess.Role)

	stored, err := sessions.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, stored.UserID)
}

func TestAuthService_CompleteLogin_Validation(t *testing.T) {
	t.Parallel()
	svc := newTestAuthService(authmocks.NewMemorySessionStore())
	for _, in := range []CompleteLoginInput{
		{State: "s", Nonce: "n"},
		{Code: "c", Nonce: "n"},
		{Code: "c", State: "s"},
	} {
		_, err := svc.CompleteLogin(context.Background(), in)
		require.Error(t, err)
	}
}

func TestAuthService_CompleteLogin_SaveError(t *testing.T) {
	t.Parallel()
	store := &failingSessionStore{MemorySessionStore: authmocks.NewMemorySessionStore(), saveErr: errors.New("redis down")}
	svc := newTestAuthService(store)

	_, err := svc.CompleteLogin(context.Background(), CompleteLoginInput{Code: "c", State: "s", Nonce: "n"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save session")
}

func TestAuthService_GetSession_Expired(t *testing.T) {
	t.Parallel()
	sessions := authmocks.NewMemorySessionStore()
	svc := newTestAuthService(sessions)
	ctx := context.Background()

	require.NoError(t, sessions.Save(ctx, domainauth.Session{ID: "old", ExpiresAt: time.Now().Add(-time.Minute)}))
	_, err := svc.GetSession(ctx, "old")
	require.ErrorIs(t, err, errSessionExpired)

	_, err = sessions.Get(ctx, "old")
	assert.ErrorIs(t, err, authmocks.ErrNotFound)
}

func TestAuthService_GetSession_ExpiredDeleteError(t *testing.T) {
	t.Parallel()
	store := &failingSessionStore{MemorySessionStore: authmocks.NewMemorySessionStore(), deleteErr: errors.New("redis down")}
	svc := newTestAuthService(store)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domainauth.Session{ID: "old", ExpiresAt: time.Now().Add(-time.Minute)}))
	_, err := svc.GetSession(ctx, "old")
	require.ErrorIs(t, err, errSessionExpired)
	assert.Contains(t, err.Error(), "delete session")
}

func TestAuthService_Logout(t *testing.T) {
	t.Parallel()
	sessions := authmocks.NewMemorySessionStore()
	svc := newTestAuthService(sessions)
	ctx := context.Background()

	require.NoError(t, sessions.Save(ctx, domainauth.Session{ID: "s1", ExpiresAt: time.Now().Add(time.Hour)}))
	require.NoError(t, svc.Logout(ctx, "s1"))
	require.NoError(t, svc.Logout(ctx, ""))

	_, err := sessions.Get(ctx, "s1")
	assert.Error(t, err)
}

func TestAuthService_ResolveActor(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	accounts := mocks.NewMockAccountRepository(ctrl)
	svc := NewAuthService(AuthServiceOptions{
		Accounts: accounts,
		Metrics:  metrics.MustNew(prometheus.NewRegistry()),
	})
	ctx := context.Background()
	sess := &domainauth.Session{UserID: "ana", Email: "Ana@Example.com", Role: domainauth.RoleUser}

	accounts.EXPECT().FindByEmail(gomock.Any(), "Ana@Example.com").
		Return(&model.Account{ID: "a-1", Email: "ana@example.com", ProfileID: "p-1"}, nil).
		Times(1)

	actor, err := svc.ResolveActor(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, "a-1", actor.AccountID)
	assert.Equal(t, "p-1", actor.ProfileID)
	assert.True(t, actor.HasProfile())

	// cached
	again, err := svc.ResolveActor(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, actor, again)
}

func TestAuthService_ResolveActor_NoAccount(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	accounts := mocks.NewMockAccountRepository(ctrl)
	svc := NewAuthService(AuthServiceOptions{Accounts: accounts})

	accounts.EXPECT().FindByEmail(gomock.Any(), "new@example.com").Return(nil, apperrors.NotFound("account not found"))
	actor, err := svc.ResolveActor(context.Background(), &domainauth.Session{UserID: "n", Email: "new@example.com", Role: domainauth.RoleUser})
	require.NoError(t, err)
	assert.False(t, actor.HasProfile())

	accounts.EXPECT().FindByEmail(gomock.Any(), "err@example.com").Return(nil, errors.New("db down"))
	_, err = svc.ResolveActor(context.Background(), &domainauth.Session{Email: "err@example.com"})
	require.Error(t, err)

	_, err = svc.ResolveActor(context.Background(), nil)
	require.Error(t, err)
}
