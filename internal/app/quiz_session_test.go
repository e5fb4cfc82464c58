package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"academy-quiz-service/internal/app"
	"academy-quiz-service/internal/domain"
)

func startedSession(t *testing.T, budget time.Duration, rec app.ResultRecorder) (*app.QuizSession, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	s := app.NewQuizSessionWithClock(budget, rec, clock.Now)
	s.Load(twoQuestionBank())
	if err := s.Start(domain.Participant{ID: "p1", Name: "  Alice  "}); err != nil {
		t.Fatalf("start: %v", err)
	}
	return s, clock
}

func TestSubmitScoresAnswers(t *testing.T) {
	rec := &recordingRecorder{}
	s, clock := startedSession(t, time.Minute, rec)

	if _, err := s.Answer(1, 1); err != nil {
		t.Fatalf("answer q1: %v", err)
	}
	if _, err := s.Answer(2, 1); err != nil {
		t.Fatalf("answer q2: %v", err)
	}
	clock.Advance(time.Minute)
	result, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 1 || result.TotalQuestions != 2 || result.Percentage != 50 {
		t.Fatalf("expected 1/2 (50%%), got %d/%d (%d%%)", result.Score, result.TotalQuestions, result.Percentage)
	}
	if result.StudentName != "Alice" {
		t.Fatalf("expected trimmed name, got %q", result.StudentName)
	}
	if !result.CompletedAt.Equal(clock.Now()) {
		t.Fatalf("expected completion at %v, got %v", clock.Now(), result.CompletedAt)
	}
	if s.Phase() != app.PhaseCompleted {
		t.Fatalf("expected completed, got %v", s.Phase())
	}
	if len(rec.entries) != 1 || rec.entries[0].DisciplineID != "agc" || rec.entries[0].ParticipantID != "p1" {
		t.Fatalf("expected one recorded entry for agc/p1, got %+v", rec.entries)
	}
}

func TestAnswerReplacesPreviousSelection(t *testing.T) {
	s, _ := startedSession(t, time.Minute, nil)

	for i := 0; i < 5; i++ {
		s.Tick()
	}
	if _, err := s.Answer(1, 0); err != nil {
		t.Fatalf("answer: %v", err)
	}
	a, err := s.Answer(1, 1)
	if err != nil {
		t.Fatalf("answer again: %v", err)
	}
	if !a.IsCorrect || a.TimeSpent != 5 || a.CorrectAnswer != 1 {
		t.Fatalf("unexpected answer %+v", a)
	}
	answers := s.Answers()
	if len(answers) != 1 || *answers[0].SelectedAnswer != 1 {
		t.Fatalf("expected single replaced answer, got %+v", answers)
	}
}

func TestAnswerRejectsInvalidInput(t *testing.T) {
	s, _ := startedSession(t, time.Minute, nil)

	if _, err := s.Answer(99, 0); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
	if _, err := s.Answer(1, 2); !errors.Is(err, domain.ErrOptionNotFound) {
		t.Fatalf("expected ErrOptionNotFound, got %v", err)
	}
	if _, err := s.Answer(1, -1); !errors.Is(err, domain.ErrOptionNotFound) {
		t.Fatalf("expected ErrOptionNotFound, got %v", err)
	}
	if len(s.Answers()) != 0 {
		t.Fatalf("expected no answers recorded")
	}
}

func TestTickLocksAtZero(t *testing.T) {
	s, _ := startedSession(t, 3*time.Second, nil)

	for i := 0; i < 3; i++ {
		if !s.Tick() {
			t.Fatalf("tick %d should change state", i)
		}
	}
	if !s.Locked() || s.Remaining() != 0 {
		t.Fatalf("expected locked at 0, got locked=%v remaining=%d", s.Locked(), s.Remaining())
	}
	if s.Tick() || s.Remaining() != 0 {
		t.Fatalf("expected tick to be a no-op once locked")
	}
	if _, err := s.Answer(1, 1); !errors.Is(err, domain.ErrQuestionLocked) {
		t.Fatalf("expected ErrQuestionLocked, got %v", err)
	}

	if !s.Advance(1) {
		t.Fatalf("expected locked question to be skippable")
	}
	if s.Locked() || s.Remaining() != 3 {
		t.Fatalf("expected countdown reset, got locked=%v remaining=%d", s.Locked(), s.Remaining())
	}
}

func TestExpiredQuestionCountsAsUnanswered(t *testing.T) {
	s, _ := startedSession(t, 2*time.Second, nil)
	s.Tick()
	s.Tick()
	s.Advance(1)
	if _, err := s.Answer(2, 0); err != nil {
		t.Fatalf("answer q2: %v", err)
	}

	result, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 1 || result.Unanswered() != 1 || result.Incorrect() != 0 {
		t.Fatalf("expected 1 correct and 1 unanswered, got %+v", result)
	}
}

func TestNavigationBounds(t *testing.T) {
	s, _ := startedSession(t, time.Minute, nil)

	if s.Advance(-1) {
		t.Fatalf("expected no move before the first question")
	}
	if !s.GoTo(1) || s.Index() != 1 {
		t.Fatalf("expected goto 1")
	}
	if s.Advance(1) {
		t.Fatalf("expected no move past the last question")
	}
	if s.GoTo(5) || s.GoTo(-1) {
		t.Fatalf("expected out-of-range goto to be rejected")
	}
}

func TestStartPreconditions(t *testing.T) {
	s := app.NewQuizSession(time.Minute, nil)
	if err := s.Start(domain.Participant{Name: "Alice"}); !errors.Is(err, domain.ErrBankNotLoaded) {
		t.Fatalf("expected ErrBankNotLoaded, got %v", err)
	}
	s.Load(twoQuestionBank())
	if err := s.Start(domain.Participant{Name: "   "}); !errors.Is(err, domain.ErrNameRequired) {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}
	if s.Phase() != app.PhaseNotStarted {
		t.Fatalf("expected not started after rejected start")
	}
	if err := s.Start(domain.Participant{Name: "Alice"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Start(domain.Participant{Name: "Alice"}); !errors.Is(err, domain.ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestSubmitPreconditions(t *testing.T) {
	s := app.NewQuizSession(time.Minute, nil)
	if _, err := s.Submit(context.Background()); !errors.Is(err, domain.ErrBankNotLoaded) {
		t.Fatalf("expected ErrBankNotLoaded, got %v", err)
	}
	s.Load(twoQuestionBank())
	if _, err := s.Submit(context.Background()); !errors.Is(err, domain.ErrNotInProgress) {
		t.Fatalf("expected ErrNotInProgress, got %v", err)
	}
	if _, ok := s.Result(); ok {
		t.Fatalf("expected no result")
	}
}

func TestSubmitRecorderFailureKeepsAttempt(t *testing.T) {
	rec := &recordingRecorder{err: errRecorder}
	s, _ := startedSession(t, time.Minute, rec)
	_, _ = s.Answer(1, 1)

	if _, err := s.Submit(context.Background()); !errors.Is(err, errRecorder) {
		t.Fatalf("expected recorder error, got %v", err)
	}
	if s.Phase() != app.PhaseInProgress || len(s.Answers()) != 1 {
		t.Fatalf("expected attempt untouched, phase=%v answers=%d", s.Phase(), len(s.Answers()))
	}
}

func TestResetClearsAttempt(t *testing.T) {
	s, _ := startedSession(t, time.Minute, nil)
	_, _ = s.Answer(1, 1)
	s.GoTo(1)
	s.Reset()

	snap := s.Snapshot()
	if snap.Phase != "not_started" || snap.StudentName != "" || snap.Answered != 0 || snap.QuestionIndex != 0 {
		t.Fatalf("expected cleared snapshot, got %+v", snap)
	}
	if !s.Loaded() {
		t.Fatalf("expected bank kept after reset")
	}
}

func TestSnapshotHidesCorrectAnswer(t *testing.T) {
	s, _ := startedSession(t, time.Minute, nil)
	_, _ = s.Answer(1, 0)
	snap := s.Snapshot()
	if snap.Question == nil || snap.Question.ID != 1 || len(snap.Question.Options) != 2 {
		t.Fatalf("expected current question view, got %+v", snap.Question)
	}
	if snap.Selected == nil || *snap.Selected != 0 {
		t.Fatalf("expected selected option 0, got %v", snap.Selected)
	}
	if snap.TotalQuestions != 2 || snap.Remaining != 60 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestPercentage(t *testing.T) {
	cases := []struct{ score, total, want int }{
		{0, 0, 0}, {1, 2, 50}, {2, 3, 67}, {1, 3, 33}, {10, 10, 100},
	}
	for _, c := range cases {
		if got := app.Percentage(c.score, c.total); got != c.want {
			t.Fatalf("Percentage(%d, %d) = %d, want %d", c.score, c.total, got, c.want)
		}
	}
}
