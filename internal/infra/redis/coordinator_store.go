package redis

import (
	"context"
	"encoding/json"
	"time"

	"academy-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	pinKey             = "quiz:session:pin"
	participantsPrefix = "quiz:session:participants:"
	participantPrefix  = "quiz:session:participant:"
	participantsByName = "quiz:session:names:"
	activePrefix       = "quiz:session:active:"
)

// CoordinatorStore shares session coordination state between instances.
//   - the PIN is a JSON value with a matching key expiry
//   - the waiting list is a Redis list of participant ids (join order)
//   - a name hash deduplicates joins per discipline (HSETNX)
//   - the active flag holds the start time in RFC 3339
type CoordinatorStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCoordinatorStore stores participant records for ttl (zero keeps them).
func NewCoordinatorStore(client *redis.Client, ttl time.Duration) *CoordinatorStore {
	return &CoordinatorStore{client: client, ttl: ttl}
}

func (s *CoordinatorStore) SavePIN(ctx context.Context, pin domain.SessionPIN) error {
	raw, err := json.Marshal(pin)
	if err != nil {
		return err
	}
	// the key expiry only cleans up; validity is checked against ExpiresAt
	ttl := time.Until(pin.ExpiresAt)
	if ttl <= 0 {
		ttl = 0
	}
	return s.client.Set(ctx, pinKey, raw, ttl).Err()
}

func (s *CoordinatorStore) LoadPIN(ctx context.Context) (domain.SessionPIN, error) {
	raw, err := s.client.Get(ctx, pinKey).Bytes()
	if isNil(err) {
		return domain.SessionPIN{}, nil
	}
	if err != nil {
		return domain.SessionPIN{}, err
	}
	var pin domain.SessionPIN
	if err := json.Unmarshal(raw, &pin); err != nil {
		return domain.SessionPIN{}, err
	}
	return pin, nil
}

func (s *CoordinatorStore) AddParticipant(ctx context.Context, p domain.Participant) (domain.Participant, bool, error) {
	added, err := s.client.HSetNX(ctx, participantsByName+p.DisciplineID, p.Name, p.ID).Result()
	if err != nil {
		return domain.Participant{}, false, err
	}
	if !added {
		id, err := s.client.HGet(ctx, participantsByName+p.DisciplineID, p.Name).Result()
		if err != nil {
			return domain.Participant{}, false, err
		}
		existing, err := s.Participant(ctx, id)
		return existing, false, err
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return domain.Participant{}, false, err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, participantPrefix+p.ID, raw, s.ttl)
		pipe.RPush(ctx, participantsPrefix+p.DisciplineID, p.ID)
		return nil
	})
	if err != nil {
		return domain.Participant{}, false, err
	}
	return p, true, nil
}

func (s *CoordinatorStore) Participant(ctx context.Context, id string) (domain.Participant, error) {
	raw, err := s.client.Get(ctx, participantPrefix+id).Bytes()
	if isNil(err) {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, err
	}
	var p domain.Participant
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.Participant{}, err
	}
	return p, nil
}

func (s *CoordinatorStore) Participants(ctx context.Context, disciplineID string) ([]domain.Participant, error) {
	ids, err := s.client.LRange(ctx, participantsPrefix+disciplineID, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domain.Participant{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = participantPrefix + id
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Participant, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var p domain.Participant
		if err := json.Unmarshal([]byte(str), &p); err != nil {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *CoordinatorStore) SetActive(ctx context.Context, disciplineID string, startedAt time.Time) error {
	return s.client.Set(ctx, activePrefix+disciplineID, startedAt.UTC().Format(time.RFC3339Nano), 0).Err()
}

func (s *CoordinatorStore) Active(ctx context.Context, disciplineID string) (bool, time.Time, error) {
	raw, err := s.client.Get(ctx, activePrefix+disciplineID).Result()
	if isNil(err) {
		return false, time.Time{}, nil
	}
	if err != nil {
		return false, time.Time{}, err
	}
	startedAt, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return false, time.Time{}, err
	}
	return true, startedAt, nil
}

func (s *CoordinatorStore) ResetSession(ctx context.Context, disciplineID string) error {
	return s.client.Del(ctx,
		activePrefix+disciplineID,
		participantsPrefix+disciplineID,
		participantsByName+disciplineID,
	).Err()
}
