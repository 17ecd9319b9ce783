package services

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// SessionService tracks live sessions in Redis so that logout can
// revoke a token before it expires and sign the provider session out.
// A nil Redis client degrades gracefully: sessions are not recorded and
// no token is ever considered revoked, which matches the stateless
// baseline where logout is a client-side token discard.
type SessionService struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewSessionService(rdb *redis.Client, ttl time.Duration) *SessionService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &SessionService{Redis: rdb, TTL: ttl}
}

// Store records the identity provider's access token under the session
// jti so logout can forward the sign-out upstream.
func (s *SessionService) Store(ctx context.Context, jti, providerToken string) error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Set(ctx, "session:"+jti, providerToken, s.TTL).Err()
}

// ProviderToken returns the stored provider access token for jti, or ""
// when none is recorded.
func (s *SessionService) ProviderToken(ctx context.Context, jti string) string {
	if s.Redis == nil {
		return ""
	}
	val, err := s.Redis.Get(ctx, "session:"+jti).Result()
	if err != nil {
		return ""
	}
	return val
}

// Revoke denylists the jti until the token would have expired anyway
// and drops the session record.
func (s *SessionService) Revoke(ctx context.Context, jti string) error {
	if s.Redis == nil {
		return nil
	}
	if err := s.Redis.Set(ctx, "revoked:"+jti, "1", s.TTL).Err(); err != nil {
		return err
	}
	return s.Redis.Del(ctx, "session:"+jti).Err()
}

// IsRevoked reports whether the jti has been revoked. Redis errors are
// treated as not-revoked so that a cache outage does not lock everyone
// out; the token signature and expiry still gate the request.
func (s *SessionService) IsRevoked(ctx context.Context, jti string) bool {
	if s.Redis == nil || jti == "" {
		return false
	}
	n, err := s.Redis.Exists(ctx, "revoked:"+jti).Result()
	if err != nil {
		return false
	}
	return n > 0
}
