package auth

import "context"

// Actor is the caller on whose behalf a booking operation runs.
type Actor struct {
	ID      string
	IsAdmin bool
}

// ActorFromClaims maps verified token claims to an Actor.
func ActorFromClaims(c *Claims) Actor {
	if c == nil {
		return Actor{}
	}
	return Actor{ID: c.Sub, IsAdmin: c.Role == RoleAdmin}
}

type ctxKey int

const ctxKeyActor ctxKey = iota

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKeyActor, a)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKeyActor).(Actor)
	return a, ok && a.ID != ""
}
