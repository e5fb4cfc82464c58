package redis

import (
	"context"
	"encoding/json"
	"time"

	"academy-quiz-service/internal/auth"
	"github.com/redis/go-redis/v9"
)

const (
	credentialKey = "quiz:admin:user"
	lockoutKey    = "quiz:admin:lockout"
	accessLogKey  = "quiz:admin:access-log"
	sessionPrefix = "quiz:admin:session:"
)

// AuthStore persists the admin gate state in Redis. Sessions expire with
// their key so abandoned tokens do not accumulate.
type AuthStore struct {
	client *redis.Client
}

func NewAuthStore(client *redis.Client) *AuthStore {
	return &AuthStore{client: client}
}

func (s *AuthStore) LoadCredential(ctx context.Context) (auth.Credential, error) {
	var cred auth.Credential
	err := s.getJSON(ctx, credentialKey, &cred)
	if isNil(err) {
		return auth.Credential{}, auth.ErrCredentialNotFound
	}
	return cred, err
}

func (s *AuthStore) SaveCredential(ctx context.Context, cred auth.Credential) error {
	return s.setJSON(ctx, credentialKey, cred, 0)
}

func (s *AuthStore) LoadLockout(ctx context.Context) (auth.Lockout, error) {
	var lock auth.Lockout
	err := s.getJSON(ctx, lockoutKey, &lock)
	if isNil(err) {
		return auth.Lockout{}, nil
	}
	return lock, err
}

func (s *AuthStore) SaveLockout(ctx context.Context, lock auth.Lockout) error {
	return s.setJSON(ctx, lockoutKey, lock, 0)
}

func (s *AuthStore) AppendAccessLog(ctx context.Context, entry auth.AccessLogEntry, limit int) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, accessLogKey, raw)
		if limit > 0 {
			pipe.LTrim(ctx, accessLogKey, int64(-limit), -1)
		}
		return nil
	})
	return err
}

func (s *AuthStore) AccessLog(ctx context.Context) ([]auth.AccessLogEntry, error) {
	items, err := s.client.LRange(ctx, accessLogKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]auth.AccessLogEntry, 0, len(items))
	for _, item := range items {
		var entry auth.AccessLogEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s *AuthStore) SaveSession(ctx context.Context, session auth.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		// expiry is still enforced by the gate
		ttl = 0
	}
	return s.setJSON(ctx, sessionPrefix+session.Token, session, ttl)
}

func (s *AuthStore) LoadSession(ctx context.Context, token string) (auth.Session, error) {
	var session auth.Session
	err := s.getJSON(ctx, sessionPrefix+token, &session)
	if isNil(err) {
		return auth.Session{}, auth.ErrSessionNotFound
	}
	return session, err
}

func (s *AuthStore) DeleteSession(ctx context.Context, token string) error {
	return s.client.Del(ctx, sessionPrefix+token).Err()
}

func (s *AuthStore) getJSON(ctx context.Context, key string, v interface{}) error {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func (s *AuthStore) setJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, raw, ttl).Err()
}
