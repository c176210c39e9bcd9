package account

import "context"

type accountContextKey struct{}
type sessionContextKey struct{}

// ContextWithAccount attaches the authenticated account to the context.
func ContextWithAccount(ctx context.Context, a *Account) context.Context {
	if a == nil {
		return ctx
	}
	return context.WithValue(ctx, accountContextKey{}, a)
}

// FromContext extracts the authenticated account from the context.
func FromContext(ctx context.Context) (*Account, bool) {
	if ctx == nil {
		return nil, false
	}
	a, ok := ctx.Value(accountContextKey{}).(*Account)
	if !ok || a == nil {
		return nil, false
	}
	return a, true
}

// ContextWithSession attaches the resolved session to the context.
func ContextWithSession(ctx context.Context, s *Session) context.Context {
	if s == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// SessionFromContext extracts the resolved session from the context.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	if ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(sessionContextKey{}).(*Session)
	if !ok || s == nil {
		return nil, false
	}
	return s, true
}
