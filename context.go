package aegis

import "context"

type contextKey int

const (
	ctxKeyActor contextKey = iota
	ctxKeyRequestMeta
)

// WithActor returns a context carrying the authenticated caller.
// Host applications set this in their auth middleware so that checks
// and audit writes can attribute the request.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, ctxKeyActor, actor)
}

// ActorFromContext returns the actor stored by WithActor, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKeyActor).(Actor)
	return a, ok
}

// WithRequestMeta returns a context carrying request metadata
// (client IP, user agent) for audit attribution.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, ctxKeyRequestMeta, meta)
}

// RequestMetaFromContext returns the metadata stored by WithRequestMeta.
// The zero value is returned when none is present.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	m, ok := ctx.Value(ctxKeyRequestMeta).(RequestMeta)
	if !ok {
		return RequestMeta{}
	}
	return m
}
