package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRef_UnmarshalShapes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare string", `"p-1"`, "p-1"},
		{"bare number", `42`, "42"},
		{"expanded string id", `{"id":"p-2","name":"Ana"}`, "p-2"},
		{"expanded number id", `{"id":7}`, "7"},
		{"null", `null`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Ref
			require.NoError(t, json.Unmarshal([]byte(tt.in), &r))
			assert.Equal(t, tt.want, r.ID)
		})
	}
}

func TestRef_UnmarshalRejectsNestedObject(t *testing.T) {
	var r Ref
	assert.Error(t, json.Unmarshal([]byte(`{"id":{"id":1}}`), &r))
	assert.Error(t, json.Unmarshal([]byte(`true`), &r))
}

func TestRef_MarshalAsBareID(t *testing.T) {
	b, err := json.Marshal(struct {
		Owner *Ref `json:"owner"`
		Media Ref  `json:"media"`
	}{Owner: NewRef("p-1"), Media: Ref{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"owner":"p-1","media":null}`, string(b))
}

func TestResolveID(t *testing.T) {
	assert.Equal(t, "", ResolveID(nil))
	assert.Equal(t, "x", ResolveID(&Ref{ID: "x"}))
	assert.Nil(t, NewRef(""))
}

func TestDistinctRefIDs(t *testing.T) {
	got := DistinctRefIDs(&Ref{ID: "42"}, []Ref{{ID: "7"}, {ID: "7"}, {ID: "9"}, {ID: ""}, {ID: "42"}})
	assert.Equal(t, []string{"42", "7", "9"}, got)
	assert.Empty(t, DistinctRefIDs(nil, nil))
}

func TestListingPatch_ApplyTo(t *testing.T) {
	base := &Listing{
		ID:               "l-1",
		Title:            "Sala Mare",
		Slug:             "sala-mare",
		ModerationStatus: ModerationPending,
		Gallery:          []Ref{{ID: "1"}},
	}
	status := ModerationApproved
	title := "Sala Mica"
	gallery := []Ref{{ID: "2"}, {ID: "3"}}
	out := (&ListingPatch{Title: &title, ModerationStatus: &status, Gallery: &gallery}).ApplyTo(base)

	assert.Equal(t, "Sala Mica", out.Title)
	assert.Equal(t, "sala-mare", out.Slug)
	assert.Equal(t, ModerationApproved, out.ModerationStatus)
	assert.Equal(t, []Ref{{ID: "2"}, {ID: "3"}}, out.Gallery)

	// base untouched
	assert.Equal(t, "Sala Mare", base.Title)
	assert.Equal(t, []Ref{{ID: "1"}}, base.Gallery)
}

func TestListingPatch_SlugFillsOnlyEmpty(t *testing.T) {
	empty, other := "", "alt-slug"

	out := (&ListingPatch{Slug: &empty}).ApplyTo(&Listing{Slug: "sala-mare"})
	assert.Equal(t, "sala-mare", out.Slug)

	out = (&ListingPatch{Slug: &other}).ApplyTo(&Listing{Slug: "sala-mare"})
	assert.Equal(t, "sala-mare", out.Slug)

	out = (&ListingPatch{Slug: &other}).ApplyTo(&Listing{})
	assert.Equal(t, "alt-slug", out.Slug)
}

func TestListingPatch_ClearFeaturedImage(t *testing.T) {
	base := &Listing{FeaturedImage: &Ref{ID: "5"}}
	out := (&ListingPatch{FeaturedImage: &Ref{}}).ApplyTo(base)
	assert.Nil(t, out.FeaturedImage)
}

func TestEnumsValid(t *testing.T) {
	assert.True(t, CollectionEvents.Valid())
	assert.False(t, Collection("posts").Valid())
	assert.True(t, ModerationDraft.Valid())
	assert.False(t, ModerationStatus("").Valid())
	assert.True(t, ClaimUnclaimed.Valid())
	assert.False(t, ClaimStatus("pending").Valid())
}

func TestAccount_EmailLocalPart(t *testing.T) {
	assert.Equal(t, "ana.pop", (&Account{Email: "ana.pop@example.ro"}).EmailLocalPart())
	assert.Equal(t, "", (*Account)(nil).EmailLocalPart())
}
