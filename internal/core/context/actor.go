// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// ActorContext contains the authenticated caller identity.
// Receiving, backorder resolution and preorder conversion all stamp the
// actor onto the rows they write, so the identity travels via context.
type ActorContext struct {
	ActorID string
	Name    string
	Roles   []string
}

type actorContextKey struct{}

// WithActor adds ActorContext to context.
func WithActor(ctx context.Context, actor *ActorContext) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// GetActor returns ActorContext from context.
func GetActor(ctx context.Context) *ActorContext {
	if v, ok := ctx.Value(actorContextKey{}).(*ActorContext); ok {
		return v
	}
	return nil
}

// GetActorID returns the caller id from context or "system" when absent
// (seed scripts, maintenance commands).
func GetActorID(ctx context.Context) string {
	if a := GetActor(ctx); a != nil && a.ActorID != "" {
		return a.ActorID
	}
	return "system"
}

// HasRole checks if the actor has a specific role.
func HasRole(ctx context.Context, role string) bool {
	a := GetActor(ctx)
	if a == nil {
		return false
	}
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}
