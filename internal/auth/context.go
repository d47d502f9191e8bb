// Package auth carries the signed-in user through request contexts.
package auth

import "context"

type contextKey struct{}

// AuthContext describes the caller of an authenticated request.
type AuthContext struct {
	UserID      int64
	Username    string
	SessionID   int64
	DefaultFYID int
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

// UserID returns the caller's user id, or 0 when unauthenticated.
func UserID(ctx context.Context) int64 {
	ac, _ := FromContext(ctx)
	return ac.UserID
}

// SessionID returns the caller's login session id, or 0 when unauthenticated.
func SessionID(ctx context.Context) int64 {
	ac, _ := FromContext(ctx)
	return ac.SessionID
}
