package memory

import (
	"context"
	"sync"
	"time"

	"academy-quiz-service/internal/domain"
)

// CoordinatorStore is an in-memory implementation of app.CoordinatorRepository.
type CoordinatorStore struct {
	mu           sync.RWMutex
	pin          domain.SessionPIN
	participants map[string]domain.Participant
	waiting      map[string][]string
	active       map[string]time.Time
}

func NewCoordinatorStore() *CoordinatorStore {
	return &CoordinatorStore{
		participants: make(map[string]domain.Participant),
		waiting:      make(map[string][]string),
		active:       make(map[string]time.Time),
	}
}

func (s *CoordinatorStore) SavePIN(_ context.Context, pin domain.SessionPIN) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pin = pin
	return nil
}

func (s *CoordinatorStore) LoadPIN(_ context.Context) (domain.SessionPIN, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pin, nil
}

func (s *CoordinatorStore) AddParticipant(_ context.Context, p domain.Participant) (domain.Participant, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.waiting[p.DisciplineID] {
		if existing := s.participants[id]; existing.Name == p.Name {
			return existing, false, nil
		}
	}
	s.participants[p.ID] = p
	s.waiting[p.DisciplineID] = append(s.waiting[p.DisciplineID], p.ID)
	return p, true, nil
}

func (s *CoordinatorStore) Participant(_ context.Context, id string) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[id]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return p, nil
}

func (s *CoordinatorStore) Participants(_ context.Context, disciplineID string) ([]domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.waiting[disciplineID]
	out := make([]domain.Participant, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.participants[id])
	}
	return out, nil
}

func (s *CoordinatorStore) SetActive(_ context.Context, disciplineID string, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[disciplineID] = startedAt
	return nil
}

func (s *CoordinatorStore) Active(_ context.Context, disciplineID string) (bool, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	startedAt, ok := s.active[disciplineID]
	return ok, startedAt, nil
}

// ResetSession keeps participant records so results stay attributable.
func (s *CoordinatorStore) ResetSession(_ context.Context, disciplineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, disciplineID)
	delete(s.waiting, disciplineID)
	return nil
}
