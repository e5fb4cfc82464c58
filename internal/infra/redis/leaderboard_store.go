package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"academy-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const maxInsertRetries = 5

// LeaderboardStore keeps each discipline's sorted leaderboard as one JSON
// array under quiz:leaderboard:{disciplineID}. Inserts are optimistic
// read-modify-write transactions guarded by WATCH.
type LeaderboardStore struct {
	client *redis.Client
}

func NewLeaderboardStore(client *redis.Client) *LeaderboardStore {
	return &LeaderboardStore{client: client}
}

func (s *LeaderboardStore) Insert(ctx context.Context, entry domain.LeaderboardEntry) error {
	key := leaderboardKey(entry.DisciplineID)
	txf := func(tx *redis.Tx) error {
		entries, err := readEntries(ctx, tx, key)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		domain.SortLeaderboard(entries)
		raw, err := json.Marshal(entries)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxInsertRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("leaderboard insert %s: %w", entry.DisciplineID, redis.TxFailedErr)
}

func (s *LeaderboardStore) List(ctx context.Context, disciplineID string) ([]domain.LeaderboardEntry, error) {
	return readEntries(ctx, s.client, leaderboardKey(disciplineID))
}

func (s *LeaderboardStore) Clear(ctx context.Context, disciplineID string) error {
	return s.client.Del(ctx, leaderboardKey(disciplineID)).Err()
}

func readEntries(ctx context.Context, c redis.Cmdable, key string) ([]domain.LeaderboardEntry, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if isNil(err) {
		return []domain.LeaderboardEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	var entries []domain.LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode leaderboard %s: %w", key, err)
	}
	return entries, nil
}

func leaderboardKey(disciplineID string) string {
	return "quiz:leaderboard:" + disciplineID
}
