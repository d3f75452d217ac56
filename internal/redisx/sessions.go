package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/bagstore/internal/auth"
	"github.com/redis/go-redis/v9"
)

// SessionStore reads bearer sessions. Sessions are issued by the identity provider;
// Issue exists for storectl and local development.
type SessionStore struct {
	Redis *redis.Client
}

func (s *SessionStore) Lookup(ctx context.Context, token string) (auth.Session, error) {
	raw, err := s.Redis.Get(ctx, fmt.Sprintf(KeySession, token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return auth.Session{}, auth.ErrInvalidSession
	}
	if err != nil {
		return auth.Session{}, err
	}
	var sess auth.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return auth.Session{}, fmt.Errorf("decode session: %w", err)
	}
	if sess.UserID == "" {
		return auth.Session{}, auth.ErrInvalidSession
	}
	return sess, nil
}

func (s *SessionStore) Issue(ctx context.Context, token string, sess auth.Session, ttl time.Duration) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.Redis.Set(ctx, fmt.Sprintf(KeySession, token), b, ttl).Err()
}
