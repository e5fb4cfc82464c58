package memory

import (
	"context"
	"sync"

	"academy-quiz-service/internal/domain"
)

// LeaderboardStore keeps sorted leaderboards per discipline in memory.
type LeaderboardStore struct {
	mu      sync.RWMutex
	entries map[string][]domain.LeaderboardEntry
}

func NewLeaderboardStore() *LeaderboardStore {
	return &LeaderboardStore{entries: make(map[string][]domain.LeaderboardEntry)}
}

func (s *LeaderboardStore) Insert(_ context.Context, entry domain.LeaderboardEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append(s.entries[entry.DisciplineID], entry)
	domain.SortLeaderboard(list)
	s.entries[entry.DisciplineID] = list
	return nil
}

func (s *LeaderboardStore) List(_ context.Context, disciplineID string) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.entries[disciplineID]
	out := make([]domain.LeaderboardEntry, len(list))
	copy(out, list)
	return out, nil
}

func (s *LeaderboardStore) Clear(_ context.Context, disciplineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, disciplineID)
	return nil
}
