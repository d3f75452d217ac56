package auth

import (
	"context"
	"errors"
	"fmt"
)

var ErrInvalidSession = errors.New("invalid or expired session")

// Session is what the identity provider stores for a bearer token.
type Session struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Phone  string `json:"phone,omitempty"`
}

type SessionStore interface {
	Lookup(ctx context.Context, token string) (Session, error)
}

type StaffDirectory interface {
	IsStaff(ctx context.Context, userID string) (bool, error)
}

type Authenticator struct {
	Sessions SessionStore
	Staff    StaffDirectory
}

// Authenticate returns ErrInvalidSession for unknown tokens; other errors mean the
// session or staff backend failed.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Anonymous, ErrInvalidSession
	}
	sess, err := a.Sessions.Lookup(ctx, token)
	if err != nil {
		return Anonymous, err
	}
	staff, err := a.Staff.IsStaff(ctx, sess.UserID)
	if err != nil {
		return Anonymous, fmt.Errorf("staff lookup: %w", err)
	}
	return Identity{UserID: sess.UserID, Email: sess.Email, Phone: sess.Phone, Staff: staff}, nil
}
