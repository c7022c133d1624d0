package httpx

import (
	"context"

	domainauth "github.com/unevent/unevent-api/internal/domain/auth"
)

// ctxKey gives each stored type its own key.
type ctxKey[T any] struct{}

type requestIDKey struct{}

func withPtr[T any](ctx context.Context, v *T) context.Context {
	if v == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey[T]{}, v)
}

func ptrFrom[T any](ctx context.Context) *T {
	v, _ := ctx.Value(ctxKey[T]{}).(*T)
	return v
}

// SetSessionInContext returns ctx unchanged for a nil session.
func SetSessionInContext(ctx context.Context, s *domainauth.Session) context.Context {
	return withPtr(ctx, s)
}

func GetUserSessionFromContext(ctx context.Context) (*domainauth.Session, bool) {
	s := ptrFrom[domainauth.Session](ctx)
	return s, s != nil
}

func SetActorInContext(ctx context.Context, a *domainauth.Actor) context.Context {
	return withPtr(ctx, a)
}

// ActorFromContext returns the actor RequireAuth resolved, or nil.
func ActorFromContext(ctx context.Context) *domainauth.Actor {
	return ptrFrom[domainauth.Actor](ctx)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
