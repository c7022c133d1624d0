package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unevent/unevent-api/internal/domain/model"
)

func TestRegistry_CoversEveryEvent(t *testing.T) {
	t.Parallel()
	r := MustNewRegistry()
	assert.ElementsMatch(t, []model.EventType{
		model.EventListingApproved,
		model.EventListingRejected,
		model.EventAdminListingPending,
		model.EventListingClaimInvitation,
	}, r.Events())
}

func TestRegistry_Render(t *testing.T) {
	t.Parallel()
	r := MustNewRegistry()

	tests := []struct {
		name        string
		payload     model.NotificationPayload
		wantSubject string
		wantBody    []string
		notInBody   []string
	}{
		{
			name: "approved",
			payload: model.NotificationPayload{
				Event: model.EventListingApproved,
				To:    []string{"ana@example.com"},
				Data:  map[string]string{"title": "Sala Mare", "ownerName": "Ana", "listingUrl": "https://unevent.ro/locations/sala-mare"},
			},
			wantSubject: "Listarea „Sala Mare” a fost aprobată",
			wantBody:    []string{"Bună, Ana!", "https://unevent.ro/locations/sala-mare"},
		},
		{
			name: "rejected with reason",
			payload: model.NotificationPayload{
				Event: model.EventListingRejected,
				To:    []string{"ana@example.com"},
				Data:  map[string]string{"title": "Sala Mare", "reason": "Lipsesc pozele"},
			},
			wantSubject: "Listarea „Sala Mare” necesită modificări",
			wantBody:    []string{"Motiv: Lipsesc pozele", "Bună, acolo!"},
		},
		{
			name: "rejected without reason",
			payload: model.NotificationPayload{
				Event: model.EventListingRejected,
				To:    []string{"ana@example.com"},
				Data:  map[string]string{"title": "Sala Mare"},
			},
			wantSubject: "Listarea „Sala Mare” necesită modificări",
			notInBody:   []string{"Motiv:", "<no value>"},
		},
		{
			name: "admin pending",
			payload: model.NotificationPayload{
				Event: model.EventAdminListingPending,
				To:    []string{"a@unevent.ro", "b@unevent.ro"},
				Data: map[string]string{
					"title": "DJ Mihai", "collection": "services", "creatorName": "mihai",
					"dashboardUrl": "https://admin.unevent.ro/admin/collections/services/s-1",
				},
			},
			wantSubject: "[UN:EVENT] Listare nouă în așteptare: DJ Mihai",
			wantBody:    []string{"mihai a trimis „DJ Mihai” (services)", "collections/services/s-1"},
		},
		{
			name: "claim invitation",
			payload: model.NotificationPayload{
				Event: model.EventListingClaimInvitation,
				To:    []string{"contact@sala.ro"},
				Data: map[string]string{
					"title": "Sala Mare", "claimUrl": "https://unevent.ro/claim?listing=l-1&type=locations",
					"supportEmail": "support@unevent.ro",
				},
			},
			wantSubject: "Revendică listarea „Sala Mare” pe UN:EVENT",
			wantBody:    []string{"https://unevent.ro/claim?listing=l-1&type=locations", "support@unevent.ro"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			msg, err := r.Render(&tt.payload)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSubject, msg.Subject)
			assert.Equal(t, tt.payload.To, msg.To)
			for _, s := range tt.wantBody {
				assert.Contains(t, msg.Text, s)
			}
			for _, s := range tt.notInBody {
				assert.NotContains(t, msg.Text, s)
			}
		})
	}
}

func TestRegistry_RenderClaimSetsReplyTo(t *testing.T) {
	t.Parallel()
	msg, err := MustNewRegistry().Render(&model.NotificationPayload{
		Event: model.EventListingClaimInvitation,
		To:    []string{"contact@sala.ro"},
		Data:  map[string]string{"supportEmail": "support@unevent.ro"},
	})
	require.NoError(t, err)
	assert.Equal(t, "support@unevent.ro", msg.ReplyTo)
	assert.Equal(t, "listing-claim-invitation", msg.Tag)
}

func TestRegistry_RenderUnknownEvent(t *testing.T) {
	t.Parallel()
	_, err := MustNewRegistry().Render(&model.NotificationPayload{Event: "listing.archived", To: []string{"x@y"}})
	require.ErrorIs(t, err, ErrUnknownEvent)

	_, err = MustNewRegistry().Render(nil)
	require.Error(t, err)
}
