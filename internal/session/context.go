package session

import "context"

type ctxKey struct{}

func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session attached to ctx. It panics when there is
// none: reaching game state without a session is a wiring bug.
func FromContext(ctx context.Context) *Session {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	if !ok || s == nil {
		panic("session: cannot access session state outside a session context")
	}
	return s
}
