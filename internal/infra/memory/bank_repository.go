package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"academy-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// BankLoader fetches a question bank from a backing store (files, Postgres).
type BankLoader interface {
	LoadBank(ctx context.Context, disciplineID string) (domain.QuestionBank, error)
}

// BankRepository caches question banks with TTL to avoid repeated loads.
// A non-positive TTL keeps banks until invalidated.
type BankRepository struct {
	loader BankLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedBank
}

type cachedBank struct {
	bank      domain.QuestionBank
	expiresAt time.Time
}

func NewBankRepository(loader BankLoader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedBank),
	}
}

func (r *BankRepository) GetBank(ctx context.Context, disciplineID string) (domain.QuestionBank, error) {
	if bank, ok := r.cached(disciplineID); ok {
		return bank, nil
	}

	result, err, _ := r.sf.Do(disciplineID, func() (interface{}, error) {
		if bank, ok := r.cached(disciplineID); ok {
			return bank, nil
		}
		bank, err := r.loader.LoadBank(ctx, disciplineID)
		if err != nil {
			return domain.QuestionBank{}, err
		}
		bank.DisciplineID = disciplineID

		entry := cachedBank{bank: bank}
		if r.ttl > 0 {
			entry.expiresAt = r.clock().Add(r.ttlWithJitter())
		}
		r.mu.Lock()
		r.cache[disciplineID] = entry
		r.mu.Unlock()
		return bank, nil
	})
	if err != nil {
		return domain.QuestionBank{}, err
	}
	return result.(domain.QuestionBank), nil
}

// Invalidate drops a cached bank so the next read reloads it.
func (r *BankRepository) Invalidate(disciplineID string) {
	r.mu.Lock()
	delete(r.cache, disciplineID)
	r.mu.Unlock()
}

func (r *BankRepository) cached(disciplineID string) (domain.QuestionBank, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[disciplineID]
	// a zero expiry never expires, matching a zero Redis TTL
	if !ok || (!entry.expiresAt.IsZero() && !entry.expiresAt.After(r.clock())) {
		return domain.QuestionBank{}, false
	}
	return entry.bank, true
}

// StaticBankLoader is a loader backed by an in-memory map (tests, demos).
type StaticBankLoader struct {
	banks map[string]domain.QuestionBank
}

func NewStaticBankLoader(banks map[string]domain.QuestionBank) *StaticBankLoader {
	return &StaticBankLoader{banks: banks}
}

func (l *StaticBankLoader) LoadBank(_ context.Context, disciplineID string) (domain.QuestionBank, error) {
	if bank, ok := l.banks[disciplineID]; ok {
		return bank, nil
	}
	return domain.QuestionBank{}, domain.ErrBankNotFound
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
