package app

import (
	"context"
	"math"
	"strings"
	"time"

	"academy-quiz-service/internal/domain"
)

// DefaultQuestionBudget is the countdown each question starts with.
const DefaultQuestionBudget = 60 * time.Second

// Phase is the lifecycle state of one participant's attempt.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseInProgress
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseInProgress:
		return "in_progress"
	case PhaseCompleted:
		return "completed"
	default:
		return "not_started"
	}
}

// ResultRecorder receives every submitted attempt (normally the leaderboard).
type ResultRecorder interface {
	Record(ctx context.Context, entry domain.LeaderboardEntry) error
}

// QuestionView is a question as shown to a participant, without the correct index.
type QuestionView struct {
	ID       int      `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// SessionSnapshot is a read-only view of a QuizSession.
type SessionSnapshot struct {
	Phase          string        `json:"phase"`
	ParticipantID  string        `json:"participantId,omitempty"`
	StudentName    string        `json:"studentName,omitempty"`
	QuestionIndex  int           `json:"questionIndex"`
	TotalQuestions int           `json:"totalQuestions"`
	Remaining      int           `json:"remaining"`
	Locked         bool          `json:"locked"`
	Answered       int           `json:"answered"`
	Question       *QuestionView `json:"question,omitempty"`
	Selected       *int          `json:"selected,omitempty"`
	StartedAt      time.Time     `json:"startedAt,omitempty"`
}

// QuizSession is the per-participant quiz state machine. It is not safe for
// concurrent use; Runner serializes access.
type QuizSession struct {
	budget   int
	now      func() time.Time
	recorder ResultRecorder

	bank        *domain.QuestionBank
	phase       Phase
	participant domain.Participant
	index       int
	remaining   int
	locked      bool
	answers     []domain.Answer
	startedAt   time.Time
	result      *domain.Result
}

// NewQuizSession builds a session with the given per-question budget. A
// non-positive budget falls back to DefaultQuestionBudget.
func NewQuizSession(budget time.Duration, recorder ResultRecorder) *QuizSession {
	return NewQuizSessionWithClock(budget, recorder, time.Now)
}

// NewQuizSessionWithClock is test-only for deterministic timestamps.
func NewQuizSessionWithClock(budget time.Duration, recorder ResultRecorder, now func() time.Time) *QuizSession {
	secs := int(budget / time.Second)
	if secs <= 0 {
		secs = int(DefaultQuestionBudget / time.Second)
	}
	return &QuizSession{
		budget:    secs,
		now:       now,
		recorder:  recorder,
		remaining: secs,
	}
}

// Load attaches the question bank used by the attempt.
func (s *QuizSession) Load(bank domain.QuestionBank) {
	b := bank
	s.bank = &b
}

// Loaded reports whether a question bank is attached.
func (s *QuizSession) Loaded() bool { return s.bank != nil }

func (s *QuizSession) Phase() Phase { return s.phase }

// Locked reports whether the current question's countdown expired.
func (s *QuizSession) Locked() bool { return s.locked }

func (s *QuizSession) Remaining() int { return s.remaining }

func (s *QuizSession) Index() int { return s.index }

// Answers returns a copy of the recorded answers in recording order.
func (s *QuizSession) Answers() []domain.Answer {
	out := make([]domain.Answer, len(s.answers))
	copy(out, s.answers)
	return out
}

// Result returns the submitted result once the attempt is completed.
func (s *QuizSession) Result() (domain.Result, bool) {
	if s.result == nil {
		return domain.Result{}, false
	}
	return *s.result, true
}

// Start begins an attempt for the participant.
func (s *QuizSession) Start(p domain.Participant) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return domain.ErrNameRequired
	}
	if s.bank == nil {
		return domain.ErrBankNotLoaded
	}
	if s.phase != PhaseNotStarted {
		return domain.ErrAlreadyStarted
	}
	s.participant = p
	s.phase = PhaseInProgress
	s.startedAt = s.now()
	s.index = 0
	s.answers = nil
	s.result = nil
	s.resetCountdown()
	return nil
}

// Tick advances the countdown by one second. It locks the current question
// when the countdown reaches zero and reports whether the state changed.
func (s *QuizSession) Tick() bool {
	if s.phase != PhaseInProgress || s.locked {
		return false
	}
	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining == 0 {
		s.locked = true
	}
	return true
}

// Answer records the selected option for a question, replacing any earlier
// selection for the same question. The state is unchanged on error.
func (s *QuizSession) Answer(questionID, option int) (domain.Answer, error) {
	if s.bank == nil {
		return domain.Answer{}, domain.ErrBankNotLoaded
	}
	if s.phase != PhaseInProgress {
		return domain.Answer{}, domain.ErrNotInProgress
	}
	if s.locked {
		return domain.Answer{}, domain.ErrQuestionLocked
	}
	question, ok := s.bank.Question(questionID)
	if !ok {
		return domain.Answer{}, domain.ErrQuestionNotFound
	}
	if option < 0 || option >= len(question.Options) {
		return domain.Answer{}, domain.ErrOptionNotFound
	}

	selected := option
	answer := domain.Answer{
		QuestionID:     questionID,
		SelectedAnswer: &selected,
		IsCorrect:      option == question.CorrectAnswer,
		TimeSpent:      s.budget - s.remaining,
		CorrectAnswer:  question.CorrectAnswer,
	}

	kept := make([]domain.Answer, 0, len(s.answers)+1)
	for _, a := range s.answers {
		if a.QuestionID != questionID {
			kept = append(kept, a)
		}
	}
	s.answers = append(kept, answer)
	return answer, nil
}

// Advance moves one question forward (direction > 0) or backward
// (direction < 0). It is a no-op at the boundaries and reports whether the
// index moved.
func (s *QuizSession) Advance(direction int) bool {
	switch {
	case direction > 0:
		return s.GoTo(s.index + 1)
	case direction < 0:
		return s.GoTo(s.index - 1)
	default:
		return false
	}
}

// GoTo jumps to the question at index, resetting its countdown. Recorded
// answers are preserved; a locked question can always be left.
func (s *QuizSession) GoTo(index int) bool {
	if s.bank == nil || s.phase != PhaseInProgress {
		return false
	}
	if index < 0 || index >= len(s.bank.Questions) {
		return false
	}
	s.index = index
	s.resetCountdown()
	return true
}

// Submit scores the attempt, records it and completes the session. On error
// the session stays in progress and no result is produced.
func (s *QuizSession) Submit(ctx context.Context) (domain.Result, error) {
	if s.bank == nil {
		return domain.Result{}, domain.ErrBankNotLoaded
	}
	if s.phase != PhaseInProgress {
		return domain.Result{}, domain.ErrNotInProgress
	}

	score := 0
	for _, a := range s.answers {
		if a.IsCorrect {
			score++
		}
	}
	total := len(s.bank.Questions)
	result := domain.Result{
		ParticipantID:  s.participant.ID,
		StudentName:    s.participant.Name,
		Grade:          s.participant.Grade,
		Class:          s.participant.Class,
		RegisterNumber: s.participant.RegisterNumber,
		Score:          score,
		TotalQuestions: total,
		Percentage:     Percentage(score, total),
		Answers:        s.Answers(),
		CompletedAt:    s.now(),
	}

	if s.recorder != nil {
		entry := domain.LeaderboardEntry{DisciplineID: s.bank.DisciplineID, Result: result}
		if err := s.recorder.Record(ctx, entry); err != nil {
			return domain.Result{}, err
		}
	}

	s.result = &result
	s.phase = PhaseCompleted
	return result, nil
}

// Reset returns the session to NotStarted and clears every per-attempt field.
// The loaded question bank is kept.
func (s *QuizSession) Reset() {
	s.phase = PhaseNotStarted
	s.participant = domain.Participant{}
	s.index = 0
	s.answers = nil
	s.startedAt = time.Time{}
	s.result = nil
	s.resetCountdown()
}

// Snapshot returns a view suitable for sending to the participant.
func (s *QuizSession) Snapshot() SessionSnapshot {
	snap := SessionSnapshot{
		Phase:         s.phase.String(),
		ParticipantID: s.participant.ID,
		StudentName:   s.participant.Name,
		QuestionIndex: s.index,
		Remaining:     s.remaining,
		Locked:        s.locked,
		Answered:      len(s.answers),
		StartedAt:     s.startedAt,
	}
	if s.bank == nil {
		return snap
	}
	snap.TotalQuestions = len(s.bank.Questions)
	if s.phase == PhaseInProgress && s.index < len(s.bank.Questions) {
		q := s.bank.Questions[s.index]
		snap.Question = &QuestionView{ID: q.ID, Question: q.Question, Options: q.Options}
		for _, a := range s.answers {
			if a.QuestionID == q.ID {
				snap.Selected = a.SelectedAnswer
			}
		}
	}
	return snap
}

func (s *QuizSession) resetCountdown() {
	s.remaining = s.budget
	s.locked = false
}

// Percentage rounds score/total to a whole percent; an empty bank scores 0.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(total) * 100))
}
