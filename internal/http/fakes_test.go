package httpx

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainauth "github.com/unevent/unevent-api/internal/domain/auth"
	"github.com/unevent/unevent-api/internal/domain/model"
	apperrors "github.com/unevent/unevent-api/internal/errors"
	"github.com/unevent/unevent-api/internal/service"
)

// fakeAuthService is a test double for service.AuthService.
// Sessions maps session ids to sessions; unknown ids are not found.
type fakeAuthService struct {
	sessions      map[string]*domainauth.Session
	actor         *domainauth.Actor
	resolveErr    error
	beginErr      error
	completeErr   error
	completeInput service.CompleteLoginInput
	loggedOut     []string
}

func newFakeAuth() *fakeAuthService {
	return &fakeAuthService{sessions: map[string]*domainauth.Session{
		"user-sess": {
			ID: "user-sess", UserID: "ana", Email: "ana@example.com",
			Role: domainauth.RoleUser, ExpiresAt: time.Now().Add(time.Hour),
		},
		"admin-sess": {
			ID: "admin-sess", UserID: "root", Email: "admin@unevent.ro",
			Role: domainauth.RoleAdmin, ExpiresAt: time.Now().Add(time.Hour),
		},
	}}
}

func (f *fakeAuthService) BeginLogin(_ context.Context, redirectURL string) (*service.BeginLoginResult, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return &service.BeginLoginResult{
		AuthURL: "https://idp.example.com/auth?redirect=" + redirectURL,
		State:   "test-state",
		Nonce:   "test-nonce",
	}, nil
}

func (f *fakeAuthService) CompleteLogin(_ context.Context, in service.CompleteLoginInput) (*domainauth.Session, error) {
	f.completeInput = in
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	return &domainauth.Session{
		ID:        "new-sess",
		UserID:    "ana",
		Email:     "ana@example.com",
		Role:      domainauth.RoleUser,
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func (f *fakeAuthService) GetSession(_ context.Context, id string) (*domainauth.Session, error) {
	if s, ok := f.sessions[id]; ok {
		return s, nil
	}
	return nil, apperrors.NotFound("session not found")
}

func (f *fakeAuthService) Logout(_ context.Context, id string) error {
	f.loggedOut = append(f.loggedOut, id)
	return nil
}

func (f *fakeAuthService) ResolveActor(_ context.Context, s *domainauth.Session) (*domainauth.Actor, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	if f.actor != nil {
		return f.actor, nil
	}
	return &domainauth.Actor{UserID: s.UserID, Email: s.Email, Role: s.Role, ProfileID: "p-" + s.UserID}, nil
}

// fakeListingService records the last call and returns canned results.
type fakeListingService struct {
	err        error
	listing    *model.Listing
	result     *service.WriteResult
	items      []*model.Listing
	lastActor  *domainauth.Actor
	lastID     string
	collection model.Collection
	created    *model.Listing
	patch      *model.ListingPatch
	status     model.ModerationStatus
	reason     string
	filter     model.ListingFilter
	hardDelete bool
}

func (f *fakeListingService) write(actor *domainauth.Actor, id string) (*service.WriteResult, error) {
	f.lastActor, f.lastID = actor, id
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeListingService) Create(
	_ context.Context,
	actor *domainauth.Actor,
	collection model.Collection,
	in *model.Listing,
) (*service.WriteResult, error) {
	f.collection, f.created = collection, in
	return f.write(actor, "")
}

func (f *fakeListingService) Update(
	_ context.Context,
	actor *domainauth.Actor,
	id string,
	patch *model.ListingPatch,
) (*service.WriteResult, error) {
	f.patch = patch
	return f.write(actor, id)
}

func (f *fakeListingService) Moderate(
	_ context.Context,
	actor *domainauth.Actor,
	id string,
	status model.ModerationStatus,
	reason string,
) (*service.WriteResult, error) {
	f.status, f.reason = status, reason
	return f.write(actor, id)
}

func (f *fakeListingService) SoftDelete(_ context.Context, actor *domainauth.Actor, id string) (*service.WriteResult, error) {
	return f.write(actor, id)
}

func (f *fakeListingService) Restore(_ context.Context, actor *domainauth.Actor, id string) (*service.WriteResult, error) {
	return f.write(actor, id)
}

func (f *fakeListingService) HardDelete(_ context.Context, actor *domainauth.Actor, id string) error {
	f.lastActor, f.lastID, f.hardDelete = actor, id, true
	return f.err
}

func (f *fakeListingService) Get(_ context.Context, actor *domainauth.Actor, id string) (*model.Listing, error) {
	f.lastActor, f.lastID = actor, id
	if f.err != nil {
		return nil, f.err
	}
	return f.listing, nil
}

func (f *fakeListingService) List(
	_ context.Context,
	actor *domainauth.Actor,
	filter model.ListingFilter,
) ([]*model.Listing, error) {
	f.lastActor, f.filter = actor, filter
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

type fakeMediaService struct {
	err error
	req *model.RegisterMediaRequest
}

func (f *fakeMediaService) Register(_ context.Context, req *model.RegisterMediaRequest) (*model.Media, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &model.Media{ID: "m-1", Filename: req.Filename, URL: req.URL, MimeType: req.MimeType, Temporary: true}, nil
}

func (f *fakeMediaService) Get(_ context.Context, id string) (*model.Media, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.Media{ID: id}, nil
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
