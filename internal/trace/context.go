package trace

import "context"

// requestIDKey is an unexported type so values stored under it can't
// collide with keys set by other packages using context.WithValue.
type requestIDKey struct{}

// WithRequestID returns a copy of ctx carrying id as the request ID that
// [Op.Begin]/[Op.End] attach to their start/end log records.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom reports the request ID stored in ctx by [WithRequestID], if
// any. ok is false if ctx carries no request ID.
func RequestIDFrom(ctx context.Context) (id string, ok bool) {
	id, ok = ctx.Value(requestIDKey{}).(string)
	return id, ok
}
