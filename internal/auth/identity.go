// Package auth resolves a bearer token into an Identity. Staff privilege is decided here,
// once per request, from the server-side staff table; services only read Identity.Staff.
package auth

import "context"

type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Phone  string `json:"phone,omitempty"`
	Staff  bool   `json:"staff"`
}

// Anonymous is the identity of a request without a valid session.
var Anonymous = Identity{}

func (i Identity) Authenticated() bool { return i.UserID != "" }

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the request identity, Anonymous when none was attached.
func FromContext(ctx context.Context) Identity {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	if !ok {
		return Anonymous
	}
	return id
}
