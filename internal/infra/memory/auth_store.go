package memory

import (
	"context"
	"sync"

	"academy-quiz-service/internal/auth"
)

// AuthStore is an in-memory implementation of auth.Repository.
type AuthStore struct {
	mu         sync.RWMutex
	credential *auth.Credential
	lockout    auth.Lockout
	accessLog  []auth.AccessLogEntry
	sessions   map[string]auth.Session
}

func NewAuthStore() *AuthStore {
	return &AuthStore{sessions: make(map[string]auth.Session)}
}

func (s *AuthStore) LoadCredential(_ context.Context) (auth.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.credential == nil {
		return auth.Credential{}, auth.ErrCredentialNotFound
	}
	return *s.credential, nil
}

func (s *AuthStore) SaveCredential(_ context.Context, cred auth.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credential = &cred
	return nil
}

func (s *AuthStore) LoadLockout(_ context.Context) (auth.Lockout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lockout, nil
}

func (s *AuthStore) SaveLockout(_ context.Context, lock auth.Lockout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lockout = lock
	return nil
}

func (s *AuthStore) AppendAccessLog(_ context.Context, entry auth.AccessLogEntry, limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessLog = append(s.accessLog, entry)
	if limit > 0 && len(s.accessLog) > limit {
		s.accessLog = append([]auth.AccessLogEntry(nil), s.accessLog[len(s.accessLog)-limit:]...)
	}
	return nil
}

func (s *AuthStore) AccessLog(_ context.Context) ([]auth.AccessLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]auth.AccessLogEntry, len(s.accessLog))
	copy(out, s.accessLog)
	return out, nil
}

func (s *AuthStore) SaveSession(_ context.Context, session auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Token] = session
	return nil
}

func (s *AuthStore) LoadSession(_ context.Context, token string) (auth.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[token]
	if !ok {
		return auth.Session{}, auth.ErrSessionNotFound
	}
	return session, nil
}

func (s *AuthStore) DeleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}
