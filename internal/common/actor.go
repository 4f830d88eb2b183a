package common

import "context"

type ctxKey string

const actorKey ctxKey = "auth/actor"

// Actor identifies the authenticated caller. Services take it as an explicit
// argument rather than digging it out of the context themselves; only the HTTP
// layer touches the context.
type Actor struct {
	UserID string
	Role   string
}

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == "admin"
}

// WithActor stores the authenticated actor on the provided context.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// ActorFrom extracts the authenticated actor from the context if present.
func ActorFrom(ctx context.Context) (Actor, bool) {
	v := ctx.Value(actorKey)
	if v == nil {
		return Actor{}, false
	}
	a, ok := v.(Actor)
	return a, ok
}

// UserID extracts just the authenticated user identifier from the context.
func UserID(ctx context.Context) (string, bool) {
	a, ok := ActorFrom(ctx)
	if !ok || a.UserID == "" {
		return "", false
	}
	return a.UserID, true
}
