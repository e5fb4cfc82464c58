package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"academy-quiz-service/internal/domain"
)

func TestBankRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		BankLoader: NewStaticBankLoader(map[string]domain.QuestionBank{
			"munitions": sampleBank(),
		}),
	}
	repo := NewBankRepository(loader, time.Minute)

	bank, err := repo.GetBank(context.Background(), "munitions")
	if err != nil {
		t.Fatalf("get bank: %v", err)
	}
	if bank.DisciplineID != "munitions" {
		t.Fatalf("expected discipline id stamped, got %q", bank.DisciplineID)
	}
	if loader.count() != 1 {
		t.Fatalf("expected loader once, got %d", loader.count())
	}

	if _, err := repo.GetBank(context.Background(), "munitions"); err != nil {
		t.Fatalf("get bank 2: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.count())
	}

	repo.Invalidate("munitions")
	if _, err := repo.GetBank(context.Background(), "munitions"); err != nil {
		t.Fatalf("get bank 3: %v", err)
	}
	if loader.count() != 2 {
		t.Fatalf("expected reload after invalidate, loader calls %d", loader.count())
	}
}

func TestBankRepositoryExpires(t *testing.T) {
	loader := &countingLoader{
		BankLoader: NewStaticBankLoader(map[string]domain.QuestionBank{"agc": sampleBank()}),
	}
	repo := NewBankRepository(loader, time.Minute)
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	if _, err := repo.GetBank(context.Background(), "agc"); err != nil {
		t.Fatalf("get bank: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := repo.GetBank(context.Background(), "agc"); err != nil {
		t.Fatalf("get bank after ttl: %v", err)
	}
	if loader.count() != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.count())
	}
}

func TestBankRepositoryZeroTTLNeverExpires(t *testing.T) {
	loader := &countingLoader{
		BankLoader: NewStaticBankLoader(map[string]domain.QuestionBank{"agc": sampleBank()}),
	}
	repo := NewBankRepository(loader, 0)
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	if _, err := repo.GetBank(context.Background(), "agc"); err != nil {
		t.Fatalf("get bank: %v", err)
	}
	now = now.Add(24 * time.Hour)
	if _, err := repo.GetBank(context.Background(), "agc"); err != nil {
		t.Fatalf("get bank later: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected one load with zero ttl, loader calls %d", loader.count())
	}
}

func TestBankRepositoryUnknownDiscipline(t *testing.T) {
	repo := NewBankRepository(NewStaticBankLoader(nil), time.Minute)
	if _, err := repo.GetBank(context.Background(), "missing"); !errors.Is(err, domain.ErrBankNotFound) {
		t.Fatalf("expected ErrBankNotFound, got %v", err)
	}
}

type countingLoader struct {
	BankLoader
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadBank(ctx context.Context, disciplineID string) (domain.QuestionBank, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.BankLoader.LoadBank(ctx, disciplineID)
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func sampleBank() domain.QuestionBank {
	return domain.QuestionBank{
		QuizTitle: "Munitions fundamentals",
		Questions: []domain.Question{
			{ID: 1, Question: "What is 2 + 2?", Options: []string{"3", "4"}, CorrectAnswer: 1},
			{ID: 2, Question: "Pick the first", Options: []string{"a", "b", "c"}, CorrectAnswer: 0},
		},
	}
}
