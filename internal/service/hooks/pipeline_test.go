package hooks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/unevent/unevent-api/internal/domain/auth"
	"github.com/unevent/unevent-api/internal/domain/model"
	"github.com/unevent/unevent-api/internal/mocks"
	"github.com/unevent/unevent-api/internal/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewListingPipeline_Order(t *testing.T) {
	t.Parallel()
	p := NewListingPipeline(Settings{})
	names := p.StepNames()
	assert.Equal(t, []string{HookAssignSlug, HookAttachOwner, HookDefaultStatus, HookSanitizeDescription}, names["beforeValidate"])
	assert.Equal(t, []string{
		HookNotifyModerationTransition,
		HookNotifyAdminsPending,
		HookInviteClaim,
		HookRetainMedia,
		HookRevalidateSitemap,
	}, names["afterChange"])
	assert.Equal(t, []string{HookDeletionGuard}, names["beforeDelete"])
}

func TestRunBeforeValidate_CreateDefaults(t *testing.T) {
	t.Parallel()
	p := NewListingPipeline(Settings{})
	rc := RequestContext{
		Actor:  &domainauth.Actor{UserID: "u1", ProfileID: "p-1", Role: domainauth.RoleUser},
		Logger: discardLogger(),
	}
	in := &model.Listing{Collection: model.CollectionEvents, Title: "Nuntă în Grădină"}

	out, err := p.RunBeforeValidate(context.Background(), rc, OperationCreate, in)
	require.NoError(t, err)
	assert.Equal(t, "nunta-in-gradina", out.Slug)
	assert.Equal(t, "p-1", model.ResolveID(out.Owner))
	assert.Equal(t, model.ModerationPending, out.ModerationStatus)

	// the caller's value is left untouched
	assert.Empty(t, in.Slug)
	assert.Nil(t, in.Owner)
}

func TestRunBeforeValidate_AbortsOnError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	var ran []string
	p := &Pipeline{BeforeValidate: []BeforeValidateStep{
		{Name: "first", Fn: func(_ context.Context, _ RequestContext, _ Operation, d *model.Listing) (*model.Listing, error) {
			ran = append(ran, "first")
			return nil, boom
		}},
		{Name: "second", Fn: func(_ context.Context, _ RequestContext, _ Operation, d *model.Listing) (*model.Listing, error) {
			ran = append(ran, "second")
			return d, nil
		}},
	}}

	_, err := p.RunBeforeValidate(context.Background(), RequestContext{Logger: discardLogger()}, OperationCreate, &model.Listing{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first"}, ran)
}

func TestRunAfterChange_NeverAborts(t *testing.T) {
	t.Parallel()
	var observed []Result
	p := &Pipeline{
		AfterChange: []AfterChangeStep{
			{Name: "fails", Fn: func(context.Context, RequestContext, ChangeEvent) Result {
				return Failed(errors.New("down"), "down")
			}},
			{Name: "panics", Fn: func(context.Context, RequestContext, ChangeEvent) Result {
				panic("bad hook")
			}},
			{Name: "ok", Fn: func(context.Context, RequestContext, ChangeEvent) Result {
				return OK("done")
			}},
		},
		Observe: func(r Result) { observed = append(observed, r) },
	}

	results := p.RunAfterChange(context.Background(), RequestContext{Logger: discardLogger()},
		ChangeEvent{Operation: OperationCreate, Doc: &model.Listing{ID: "l-1"}})

	require.Len(t, results, 3)
	assert.Equal(t, "fails", results[0].Hook)
	assert.Equal(t, StatusFailed, results[0].Status)
	assert.Equal(t, StatusFailed, results[1].Status)
	assert.Equal(t, StatusOK, results[2].Status)
	assert.Len(t, Failures(results), 2)
	assert.Equal(t, results, observed)
}

func TestRunAfterChange_FullCreate(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	accounts := mocks.NewMockAccountRepository(ctrl)
	profiles := mocks.NewMockProfileRepository(ctrl)
	media := mocks.NewMockMediaRepository(ctrl)
	queue := mocks.NewMockNotificationEnqueuer(ctrl)
	reval := mocks.NewMockRevalidator(ctrl)

	profiles.EXPECT().GetByID(gomock.Any(), "p-1").Return(&model.Profile{ID: "p-1", Name: "Ana"}, nil)
	accounts.EXPECT().FindByProfile(gomock.Any(), "p-1").Return(&model.Account{Email: "ana@example.com"}, nil)
	queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return("", errors.New("queue down")).Times(2)
	media.EXPECT().Update(gomock.Any(), "m-1", gomock.Any()).Return(&model.Media{ID: "m-1"}, nil)
	reval.EXPECT().Revalidate(gomock.Any(), ports.RevalidateRequest{
		ListingID:  "l-1",
		Collection: model.CollectionLocations,
		Slug:       "sala-mare",
	}).Return(ports.ErrRevalidationDisabled)

	rc := RequestContext{
		Logger: discardLogger(),
		Clients: Clients{
			Accounts:      accounts,
			Profiles:      profiles,
			Media:         media,
			Notifications: queue,
			Revalidator:   reval,
		},
	}
	doc := listingWithStatus(model.ModerationPending)
	doc.ClaimStatus = model.ClaimUnclaimed
	doc.Contact.Email = "contact@sala.ro"
	doc.FeaturedImage = &model.Ref{ID: "m-1"}

	results := NewListingPipeline(testSettings()).RunAfterChange(context.Background(), rc,
		ChangeEvent{Operation: OperationCreate, Doc: doc})

	byHook := map[string]Status{}
	for _, r := range results {
		byHook[r.Hook] = r.Status
	}
	assert.Equal(t, StatusSkipped, byHook[HookNotifyModerationTransition])
	assert.Equal(t, StatusFailed, byHook[HookNotifyAdminsPending])
	assert.Equal(t, StatusFailed, byHook[HookInviteClaim])
	assert.Equal(t, StatusOK, byHook[HookRetainMedia])
	assert.Equal(t, StatusSkipped, byHook[HookRevalidateSitemap])
}

func TestRunBeforeDelete(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	listings := mocks.NewMockListingRepository(ctrl)
	listings.EXPECT().GetByID(gomock.Any(), "l-1").Return(&model.Listing{ID: "l-1"}, nil)

	p := NewListingPipeline(Settings{})
	rc := RequestContext{
		Actor:   &domainauth.Actor{UserID: "u1", Role: domainauth.RoleUser},
		Logger:  discardLogger(),
		Clients: Clients{Listings: listings},
	}
	err := p.RunBeforeDelete(context.Background(), rc, "l-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "use soft delete")
}

func TestRevalidateSitemap(t *testing.T) {
	t.Parallel()
	doc := listingWithStatus(model.ModerationApproved)

	cases := []struct {
		name string
		err  error
		want Status
	}{
		{"ok", nil, StatusOK},
		{"debounced", ports.ErrRevalidationDebounced, StatusSkipped},
		{"disabled", ports.ErrRevalidationDisabled, StatusSkipped},
		{"failure", errors.New("502 bad gateway"), StatusFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			reval := mocks.NewMockRevalidator(ctrl)
			reval.EXPECT().Revalidate(gomock.Any(), gomock.Any()).Return(tc.err)
			rc := RequestContext{Logger: discardLogger(), Clients: Clients{Revalidator: reval}}
			res := RevalidateSitemap()(context.Background(), rc, ChangeEvent{Operation: OperationUpdate, Doc: doc})
			assert.Equal(t, tc.want, res.Status)
		})
	}

	t.Run("nil revalidator", func(t *testing.T) {
		t.Parallel()
		res := RevalidateSitemap()(context.Background(), RequestContext{Logger: discardLogger()}, ChangeEvent{Doc: doc})
		assert.Equal(t, StatusSkipped, res.Status)
	})
}
