package authz

import "context"

type contextKey string

const userIDKey contextKey = "userID"

// WithUser returns a copy of ctx carrying userID.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserFrom returns the user id stored by WithUser, or "".
func UserFrom(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}
