package httpx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	domainauth "github.com/unevent/unevent-api/internal/domain/auth"
)

func TestContextValues(t *testing.T) {
	t.Parallel()
	bg := context.Background()

	_, ok := GetUserSessionFromContext(bg)
	assert.False(t, ok)
	assert.Nil(t, ActorFromContext(bg))
	assert.Equal(t, bg, SetSessionInContext(bg, nil))
	assert.Equal(t, bg, SetActorInContext(bg, nil))

	sess := &domainauth.Session{ID: "abc", Role: domainauth.RoleUser}
	actor := &domainauth.Actor{UserID: "ana", ProfileID: "p-1", Role: domainauth.RoleUser}
	ctx := SetActorInContext(SetSessionInContext(bg, sess), actor)

	got, ok := GetUserSessionFromContext(ctx)
	assert.True(t, ok)
	assert.Same(t, sess, got)
	assert.Same(t, actor, ActorFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(ctx))
}
