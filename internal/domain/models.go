package domain

import (
	"fmt"
	"sort"
	"time"
)

// Discipline is an exam track with its own question bank, leaderboard and session state.
type Discipline struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	FullName     string `json:"fullName" yaml:"fullName"`
	Level        string `json:"level" yaml:"level"`
	Description  string `json:"description" yaml:"description"`
	DataFile     string `json:"dataFile" yaml:"dataFile"`
	BriefingText string `json:"briefingText" yaml:"briefingText"`
}

// Question models an MCQ question; CorrectAnswer indexes into Options.
type Question struct {
	ID            int      `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
}

// QuestionBank is the static question set of a discipline.
type QuestionBank struct {
	DisciplineID string     `json:"disciplineId,omitempty"`
	QuizTitle    string     `json:"quizTitle"`
	Creator      string     `json:"creator"`
	Module       string     `json:"module"`
	Questions    []Question `json:"questions"`
}

// Question returns the question with the given id.
func (b QuestionBank) Question(id int) (Question, bool) {
	for _, q := range b.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Validate checks that the bank has questions with unique ids and in-range
// correct answers.
func (b QuestionBank) Validate() error {
	if len(b.Questions) == 0 {
		return fmt.Errorf("%w: no questions", ErrInvalidBank)
	}
	seen := make(map[int]struct{}, len(b.Questions))
	for _, q := range b.Questions {
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("%w: duplicate question id %d", ErrInvalidBank, q.ID)
		}
		seen[q.ID] = struct{}{}
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: question %d needs at least two options", ErrInvalidBank, q.ID)
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return fmt.Errorf("%w: question %d correct answer out of range", ErrInvalidBank, q.ID)
		}
	}
	return nil
}

// Answer is a participant's selection for one question.
type Answer struct {
	QuestionID     int  `json:"questionId"`
	SelectedAnswer *int `json:"selectedAnswer"`
	IsCorrect      bool `json:"isCorrect"`
	TimeSpent      int  `json:"timeSpent"`
	CorrectAnswer  int  `json:"correctAnswer"`
}

// Participant identifies someone who joined a discipline session.
type Participant struct {
	ID             string    `json:"id"`
	DisciplineID   string    `json:"disciplineId"`
	Name           string    `json:"name"`
	Grade          string    `json:"grade,omitempty"`
	Class          string    `json:"class,omitempty"`
	RegisterNumber string    `json:"registerNumber,omitempty"`
	JoinedAt       time.Time `json:"joinedAt"`
}

// Result is the immutable outcome of one submitted attempt.
type Result struct {
	ParticipantID  string    `json:"participantId,omitempty"`
	StudentName    string    `json:"studentName"`
	Grade          string    `json:"grade,omitempty"`
	Class          string    `json:"class,omitempty"`
	RegisterNumber string    `json:"registerNumber,omitempty"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	Percentage     int       `json:"percentage"`
	Answers        []Answer  `json:"answers"`
	CompletedAt    time.Time `json:"completedAt"`
}

// Unanswered counts the questions with no recorded answer.
func (r Result) Unanswered() int {
	n := r.TotalQuestions - len(r.Answers)
	if n < 0 {
		return 0
	}
	return n
}

// Incorrect counts recorded answers that were wrong.
func (r Result) Incorrect() int {
	n := 0
	for _, a := range r.Answers {
		if !a.IsCorrect && a.SelectedAnswer != nil {
			n++
		}
	}
	return n
}

// LeaderboardEntry is a persisted completed attempt.
type LeaderboardEntry struct {
	DisciplineID string `json:"disciplineId"`
	Result
}

// RankedBefore reports whether a sorts ahead of b on a leaderboard.
func RankedBefore(a, b LeaderboardEntry) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Percentage > b.Percentage
}

// SortLeaderboard orders entries by score then percentage, both descending.
// Ties keep their insertion order.
func SortLeaderboard(entries []LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return RankedBefore(entries[i], entries[j])
	})
}

// SessionStatus is the shared "session active" flag of a discipline.
type SessionStatus struct {
	DisciplineID string        `json:"disciplineId"`
	Active       bool          `json:"active"`
	StartedAt    time.Time     `json:"startedAt,omitempty"`
	Waiting      []Participant `json:"waiting"`
}

// SessionPIN gates admission to a synchronized start.
type SessionPIN struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Valid reports whether code matches and the PIN is not expired at now.
func (p SessionPIN) Valid(code string, now time.Time) bool {
	if p.Code == "" || code == "" {
		return false
	}
	if !p.ExpiresAt.IsZero() && now.After(p.ExpiresAt) {
		return false
	}
	return p.Code == code
}
