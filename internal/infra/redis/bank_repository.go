package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"academy-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// BankLoader fetches a question bank from its source of truth (files, Postgres).
type BankLoader interface {
	LoadBank(ctx context.Context, disciplineID string) (domain.QuestionBank, error)
}

// BankRepository caches question banks in Redis and falls back to a loader on
// cache miss. Banks are stored as JSON: SET quiz:bank:{disciplineID} {bank}.
type BankRepository struct {
	client *redis.Client
	loader BankLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewBankRepository(client *redis.Client, loader BankLoader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *BankRepository) GetBank(ctx context.Context, disciplineID string) (domain.QuestionBank, error) {
	if bank, ok := r.cached(ctx, disciplineID); ok {
		return bank, nil
	}

	result, err, _ := r.sf.Do(disciplineID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if bank, ok := r.cached(ctx, disciplineID); ok {
			return bank, nil
		}

		bank, err := r.loader.LoadBank(ctx, disciplineID)
		if err != nil {
			return domain.QuestionBank{}, err
		}
		bank.DisciplineID = disciplineID

		if raw, err := json.Marshal(bank); err == nil {
			_ = r.client.Set(ctx, bankKey(disciplineID), raw, r.ttlWithJitter()).Err()
		}
		return bank, nil
	})
	if err != nil {
		return domain.QuestionBank{}, err
	}
	return result.(domain.QuestionBank), nil
}

// Invalidate removes the cached copy of a bank.
func (r *BankRepository) Invalidate(ctx context.Context, disciplineID string) error {
	return r.client.Del(ctx, bankKey(disciplineID)).Err()
}

func (r *BankRepository) cached(ctx context.Context, disciplineID string) (domain.QuestionBank, bool) {
	raw, err := r.client.Get(ctx, bankKey(disciplineID)).Bytes()
	if err != nil {
		return domain.QuestionBank{}, false
	}
	var bank domain.QuestionBank
	if err := json.Unmarshal(raw, &bank); err != nil || len(bank.Questions) == 0 {
		return domain.QuestionBank{}, false
	}
	return bank, true
}

func bankKey(disciplineID string) string {
	return "quiz:bank:" + disciplineID
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// isNil reports a missing key.
func isNil(err error) bool {
	return errors.Is(err, redis.Nil)
}
