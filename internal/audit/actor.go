// Package audit implements the generic entity change-auditing engine: actor
// attribution, field-level diffing with semantic-equality rules, criticality
// classification, resolution of user-role join rows into display names, the
// transactional save interceptor that ties it all together, and the read-side
// display debouncer.
//
// Audit rows are written in the same database transaction as the business
// write they describe, so the trail can never diverge from the data. The
// engine is generic over entity types: anything satisfying Auditable gets a
// correct trail with no per-entity audit code.
package audit

import "context"

// ActorContext holds "who is making this change" for one logical request or
// unit of work. It is deliberately not a process-wide singleton: the actor
// middleware creates a fresh instance per request and threads it through
// context.Context, so concurrent requests from different users can never see
// each other's attribution.
type ActorContext struct {
	name *string
	id   *string
}

// NewActorContext returns an empty actor context. An empty context is a valid
// state: writes performed without an authenticated actor produce audit rows
// with blank attribution rather than failing.
func NewActorContext() *ActorContext {
	return &ActorContext{}
}

// SetActor records the acting user for the remainder of the unit of work.
func (a *ActorContext) SetActor(name, id string) {
	a.name = &name
	a.id = &id
}

// Clear resets the context to the unauthenticated state.
func (a *ActorContext) Clear() {
	a.name = nil
	a.id = nil
}

// Current returns copies of the actor name and id, or nil, nil when no actor
// has been set. Copies are returned so callers cannot mutate the context
// through the returned pointers.
func (a *ActorContext) Current() (name, id *string) {
	if a == nil || a.name == nil {
		return nil, nil
	}
	n, i := *a.name, *a.id
	return &n, &i
}

type actorCtxKey struct{}

// WithContext attaches an actor context to ctx for downstream save calls.
func WithContext(ctx context.Context, actor *ActorContext) context.Context {
	return context.WithValue(ctx, actorCtxKey{}, actor)
}

// FromContext returns the actor context attached to ctx, or an empty one when
// none was attached.
func FromContext(ctx context.Context) *ActorContext {
	if actor, ok := ctx.Value(actorCtxKey{}).(*ActorContext); ok && actor != nil {
		return actor
	}
	return NewActorContext()
}
