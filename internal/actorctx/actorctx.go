// Package actorctx carries request-scoped identifiers on a context.Context so
// code below the HTTP layer (repos, loggers) can see who is acting.
package actorctx

import "context"

type key string

const (
	keyUserID    key = "user_id"
	keyUsername  key = "username"
	keyRequestID key = "request_id"
	keyProcessID key = "process_id"
)

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, keyUserID, userID)
}

func UserIDFrom(ctx context.Context) (string, bool) {
	return stringFrom(ctx, keyUserID)
}

func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, keyUsername, username)
}

func UsernameFrom(ctx context.Context) (string, bool) {
	return stringFrom(ctx, keyUsername)
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

func RequestIDFrom(ctx context.Context) (string, bool) {
	return stringFrom(ctx, keyRequestID)
}

// WithProcessID stores the caller supplied X-Process-Id, used to correlate
// a multi-request business flow.
func WithProcessID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyProcessID, id)
}

func ProcessIDFrom(ctx context.Context) (string, bool) {
	return stringFrom(ctx, keyProcessID)
}

func stringFrom(ctx context.Context, k key) (string, bool) {
	v, ok := ctx.Value(k).(string)

	return v, ok && v != ""
}
