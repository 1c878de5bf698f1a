// Package auditcontext carries the acting user through request contexts so
// snapshot and audit writes can attribute changes.
package auditcontext

import "context"

type contextKey string

const (
	requestIDKey contextKey = "audit_request_id"
	actorIDKey   contextKey = "audit_actor_id"
	actorNameKey contextKey = "audit_actor_name"
	ipAddressKey contextKey = "audit_ip_address"
	userAgentKey contextKey = "audit_user_agent"
)

// Actor identifies the user that triggered a change.
type Actor struct {
	ID   string
	Name string
}

// System is the actor recorded for scheduled or seed writes.
var System = Actor{ID: "system", Name: "System"}

func (a Actor) IsZero() bool { return a.ID == "" && a.Name == "" }

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}

func WithActor(ctx context.Context, actor Actor) context.Context {
	if actor.ID != "" {
		ctx = context.WithValue(ctx, actorIDKey, actor.ID)
	}
	if actor.Name != "" {
		ctx = context.WithValue(ctx, actorNameKey, actor.Name)
	}
	return ctx
}

// ActorFromContext returns the request actor, falling back to System so
// audit rows are never attributed to nobody.
func ActorFromContext(ctx context.Context) Actor {
	id, _ := ctx.Value(actorIDKey).(string)
	name, _ := ctx.Value(actorNameKey).(string)
	if id == "" && name == "" {
		return System
	}
	if name == "" {
		name = id
	}
	return Actor{ID: id, Name: name}
}

func WithIPAddress(ctx context.Context, ipAddress string) context.Context {
	if ipAddress == "" {
		return ctx
	}
	return context.WithValue(ctx, ipAddressKey, ipAddress)
}

func IPAddressFromContext(ctx context.Context) string {
	value, _ := ctx.Value(ipAddressKey).(string)
	return value
}

func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	if userAgent == "" {
		return ctx
	}
	return context.WithValue(ctx, userAgentKey, userAgent)
}

func UserAgentFromContext(ctx context.Context) string {
	value, _ := ctx.Value(userAgentKey).(string)
	return value
}
