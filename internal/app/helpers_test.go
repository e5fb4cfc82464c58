package app_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"academy-quiz-service/internal/domain"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingRecorder struct {
	mu      sync.Mutex
	entries []domain.LeaderboardEntry
	err     error
}

func (r *recordingRecorder) Record(_ context.Context, entry domain.LeaderboardEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, entry)
	return nil
}

var errRecorder = errors.New("recorder unavailable")

// twoQuestionBank has correct answers [1, 0].
func twoQuestionBank() domain.QuestionBank {
	return domain.QuestionBank{
		DisciplineID: "agc",
		QuizTitle:    "AGC revision",
		Questions: []domain.Question{
			{ID: 1, Question: "First", Options: []string{"a", "b"}, CorrectAnswer: 1},
			{ID: 2, Question: "Second", Options: []string{"a", "b", "c"}, CorrectAnswer: 0},
		},
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
